// Package notify sends booking confirmation emails.  No mail provider is
// wired in this service; FileMailer drops each message into an outbox
// directory for a relay (or a developer) to pick up.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-booking/internal/queue"
)

var ErrNoRecipient = errors.New("confirmation has no recipient email")

// Message is one outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// FileMailer writes messages as RFC 822 files under Dir.
type FileMailer struct {
	Dir string
	log logrus.FieldLogger
	now func() time.Time
}

func NewFileMailer(dir string, log logrus.FieldLogger) *FileMailer {
	return &FileMailer{Dir: dir, log: log, now: time.Now}
}

func (f *FileMailer) Send(_ context.Context, m Message) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir outbox: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\n\r\n%s",
		m.From, m.To, m.Subject, f.now().UTC().Format(time.RFC1123Z), m.Body)

	name := fmt.Sprintf("%d-%s.eml", f.now().UnixNano(), sanitize(m.To))
	if err := os.WriteFile(filepath.Join(f.Dir, name), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	f.log.WithFields(logrus.Fields{"to": m.To, "file": name}).Info("email queued in outbox")
	return nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, s)
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`Hi {{.CustomerName}},

Your booking {{.Reference}} for {{.TourTitle}} on {{.TourDate}} is confirmed.

Participants: {{.Participants.Count}}
Amount paid:  {{.Total}} {{.Currency}}
Payment ref:  {{.TransactionID}}

See you there!
`))

// Confirmation renders the confirmation email for ev.
func Confirmation(from string, ev queue.BookingConfirmedEvent) (Message, error) {
	if strings.TrimSpace(ev.CustomerEmail) == "" {
		return Message{}, ErrNoRecipient
	}
	var body bytes.Buffer
	err := confirmationTmpl.Execute(&body, struct {
		queue.BookingConfirmedEvent
		Total string
	}{ev, FormatCents(ev.TotalCents)})
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    from,
		To:      ev.CustomerEmail,
		Subject: "Booking confirmed: " + ev.Reference,
		Body:    body.String(),
	}, nil
}

// FormatCents renders 12345 as "123.45".
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Handler adapts a Mailer to a queue consumer handler.
func Handler(m Mailer, from string) queue.Handler {
	return func(ctx context.Context, ev queue.BookingConfirmedEvent) error {
		msg, err := Confirmation(from, ev)
		if err != nil {
			return err
		}
		return m.Send(ctx, msg)
	}
}

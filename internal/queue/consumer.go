package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Handler reacts to one confirmation.  Handlers are side effects only; a
// failing handler never touches the order.
type Handler func(ctx context.Context, ev BookingConfirmedEvent) error

// Consumer reads booking.confirmed and runs every handler per message.
type Consumer struct {
    url      string
    handlers []Handler
    log      logrus.FieldLogger
}

func NewConsumer(url string, log logrus.FieldLogger, handlers ...Handler) *Consumer {
    return &Consumer{url: url, handlers: handlers, log: log}
}

// Run connects to RabbitMQ, declares the durable queue and consumes until
// ctx is cancelled, reconnecting with backoff when the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).Warnf("booking-consumer: dial failed; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if errors.Is(err, context.Canceled) || ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("booking-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(ctx, d.Body); err != nil {
                c.log.WithError(err).Error("booking-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and runs the handlers in order.  Every
// handler runs even if an earlier one fails; the errors are joined.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    var errs []error
    for _, h := range c.handlers {
        if err := h(ctx, ev); err != nil {
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}

// BookingLog returns a handler appending one line per confirmation to
// dir/booking.log.
func BookingLog(dir string) Handler {
    return func(_ context.Context, ev BookingConfirmedEvent) error {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return fmt.Errorf("mkdir logs: %w", err)
        }
        f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
        if err != nil {
            return fmt.Errorf("open log file: %w", err)
        }
        defer f.Close()

        line := fmt.Sprintf("[%s] Booking confirmed | order_id=%d | ref=%s | tour=%q | date=%s | participants=%d | total=%d %s | txn=%s\n",
            ev.ConfirmedAt, ev.OrderID, ev.Reference, ev.TourTitle, ev.TourDate, ev.Participants.Count(),
            ev.TotalCents, ev.Currency, ev.TransactionID)
        if _, err := f.WriteString(line); err != nil {
            return fmt.Errorf("write log: %w", err)
        }
        return nil
    }
}

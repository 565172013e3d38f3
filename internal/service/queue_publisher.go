// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can treat publishing as best effort.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    q "github.com/iliyamo/tour-booking/internal/queue"
)

// Publisher sends confirmations to the booking.confirmed queue.  A
// connection is dialled per publish; confirmations are rare enough that
// pooling is not worth the reconnect handling.
type Publisher struct {
    url string
    log logrus.FieldLogger
}

func New(url string, log logrus.FieldLogger) *Publisher {
    return &Publisher{url: url, log: log}
}

// PublishBookingConfirmed sends event as a persistent JSON message.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, event q.BookingConfirmedEvent) error {
    log := p.log.WithField("order_id", event.OrderID)
    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(q.BookingConfirmedQueue, true, false, false, false, nil); err != nil {
        log.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    event.Reference,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", q.BookingConfirmedQueue, false, false, pub); err != nil {
        log.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}

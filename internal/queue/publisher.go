package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const reservationQueueName = "reservation.confirmed"

// Publisher publishes domain events to RabbitMQ.  Errors are logged and
// returned so callers can ignore failures without interrupting the main
// request flow.
type Publisher struct {
	url    string
	logger *logrus.Logger
}

// NewPublisher returns a Publisher dialing the given AMQP URL per publish.
func NewPublisher(url string, logger *logrus.Logger) *Publisher {
	return &Publisher{url: url, logger: logger}
}

// PublishReservationConfirmed publishes to the durable
// "reservation.confirmed" queue.  Messages are marked persistent.
func (p *Publisher) PublishReservationConfirmed(ctx context.Context, event ReservationConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(reservationQueueName, true, false, false, false, nil); err != nil {
		p.logger.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Warn("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", reservationQueueName, false, false, pub); err != nil {
		p.logger.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

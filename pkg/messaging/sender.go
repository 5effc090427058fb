package messaging

import (
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
	"github.com/matst80/slask-docs/pkg/request"
)

func getName(prefix string, topic ChangeTopic) string {
	return fmt.Sprintf("%s_%s", prefix, topic)
}

func DefineTopic(ch *amqp.Channel, prefix string, topic ChangeTopic) error {
	name := getName(prefix, topic)
	if err := ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-delete
		false,   // internal
		false,   // noWait
		nil,     // arguments
	); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(
		name,  // name of the queue
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // noWait
		nil,   // arguments
	); err != nil {
		return err
	}
	return nil
}

func SendChange[V any](c *amqp.Connection, prefix string, topic ChangeTopic, data V) error {
	bytes, err := jsoncompat.Marshal(data)
	if err != nil {
		return err
	}
	ch, err := c.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	name := getName(prefix, topic)
	return ch.Publish(
		name,
		name,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        bytes,
		},
	)
}

// RequestEventSender publishes recorded access requests on the bus. It
// implements request.EventSink.
type RequestEventSender struct {
	Conn   *amqp.Connection
	Prefix string
}

func (s *RequestEventSender) RequestRecorded(ev request.RequestEvent) {
	if err := SendChange(s.Conn, s.Prefix, RequestRecorded, ev); err != nil {
		log.Printf("failed to publish request event: %v", err)
	}
}

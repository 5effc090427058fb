package messaging

import (
	"context"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := getName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(q.Name, name, name, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

func ListenToTopic(ch *amqp.Channel, prefix string, topic ChangeTopic, handle func(amqp.Delivery) error) error {
	fc, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func(msgs <-chan amqp.Delivery) {
		defer ch.Close()
		for d := range msgs {
			if err := handle(d); err != nil {
				log.Printf("Error processing message: %v", err)
				return
			}
			d.Ack(false)
		}
	}(fc)
	return nil
}

// Reloader is the part of the controller the listener needs.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ListenForDocumentChanges reloads the listing whenever the upstream source
// announces changed documents. Reload failures are logged and the message is
// acked anyway, the next change triggers a fresh attempt.
func ListenForDocumentChanges(ch *amqp.Channel, prefix string, reloader Reloader) error {
	return ListenToTopic(ch, prefix, DocumentsChanged, func(d amqp.Delivery) error {
		log.Printf("documents changed upstream, reloading")
		if err := reloader.Reload(context.Background()); err != nil {
			log.Printf("reload after change failed: %v", err)
		}
		return nil
	})
}

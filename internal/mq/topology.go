package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

const (
	ExchangeRuns       Exchange   = "spiderchef.runs"
	QueueRunsFinished  Queue      = "runs.finished"
	RoutingKeyFinished RoutingKey = "finished"
)

// SetupTopology объявляет exchange и очередь завершённых запусков.
func SetupTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeRuns), // name
		"direct",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeRuns, err)
	}

	_, err = ch.QueueDeclare(
		string(QueueRunsFinished), // name
		true,                      // durable
		false,                     // delete when unused
		false,                     // exclusive
		false,                     // no-wait
		nil,                       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", QueueRunsFinished, err)
	}

	err = ch.QueueBind(
		string(QueueRunsFinished),  // queue name
		string(RoutingKeyFinished), // routing key
		string(ExchangeRuns),       // exchange
		false,                      // no-wait
		nil,                        // arguments
	)
	if err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", QueueRunsFinished, ExchangeRuns, err)
	}
	return nil
}

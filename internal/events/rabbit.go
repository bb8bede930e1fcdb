package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

func DialRabbit(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return conn, nil
}

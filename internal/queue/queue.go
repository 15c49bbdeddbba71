package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/docgraph/internal/util"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
)

const (
	DefaultExchange = "pubsub_exchange"
	DefaultTopic    = "docgraph.run.finished"

	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
)

// Config addresses the broker. An empty Host disables publishing.
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	Exchange string
	Topic    string
}

// ConfigFromEnv reads the RABBITMQ_* variables.
func ConfigFromEnv() Config {
	return Config{
		User:     util.GetEnvString("RABBITMQ_USER", "guest"),
		Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		Host:     util.GetEnv("RABBITMQ_HOST"),
		Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		Exchange: util.GetEnvString("RABBITMQ_EXCHANGE", DefaultExchange),
		Topic:    util.GetEnvString("RABBITMQ_TOPIC", DefaultTopic),
	}
}

func (c Config) Enabled() bool {
	return c.Host != ""
}

func (c Config) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

// Dial connects to the broker described by cfg.
func Dial(cfg Config) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ at %s:%s: %w", cfg.Host, cfg.Port, err)
	}
	return conn, nil
}

// Channel is the part of *amqp091.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher sends JSON messages to a topic exchange.
type Publisher struct {
	ch       Channel
	exchange string
	topic    string
}

// NewPublisher declares the exchange and returns a publisher for topic.
func NewPublisher(ch Channel, exchange, topic string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if topic == "" {
		topic = DefaultTopic
	}
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		false, // durable
		true,  // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, topic: topic}, nil
}

// Publish marshals v and sends it with the publisher's routing key.
// Transient broker errors are retried.
func (p *Publisher) Publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	err = util.RetryErrWithContext(ctx, publishAttempts, publishBackoff, func(ctx context.Context) error {
		return p.ch.PublishWithContext(ctx, p.exchange, p.topic, false, false, publishing)
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", p.exchange, p.topic, err)
	}
	logger.Debug("[Queue] Published message", "exchange", p.exchange, "topic", p.topic, "bytes", len(body))
	return nil
}

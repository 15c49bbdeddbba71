package main

import (
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/docgraph/internal/pipeline"
	"github.com/OFFIS-RIT/docgraph/internal/queue"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
)

type publishChannel interface {
	queue.Channel
	Close() error
}

type brokerConn interface {
	Channel() (publishChannel, error)
	Close() error
}

type amqpConn struct {
	*amqp091.Connection
}

func (c amqpConn) Channel() (publishChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialBroker(cfg queue.Config) (brokerConn, error) {
	conn, err := queue.Dial(cfg)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// newNotifier connects the run-summary publisher. A broker failure at any
// step only disables publishing. The returned cleanup is always non-nil.
func newNotifier(cfg queue.Config, dial func(queue.Config) (brokerConn, error)) (pipeline.Notifier, func()) {
	noop := func() {}
	if !cfg.Enabled() {
		return nil, noop
	}

	conn, err := dial(cfg)
	if err != nil {
		logger.Warn("[Run] Run summaries will not be published", "err", err)
		return nil, noop
	}
	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("[Run] Run summaries will not be published", "err", err)
		_ = conn.Close()
		return nil, noop
	}
	publisher, err := queue.NewPublisher(ch, cfg.Exchange, cfg.Topic)
	if err != nil {
		logger.Warn("[Run] Run summaries will not be published", "err", err)
		_ = ch.Close()
		_ = conn.Close()
		return nil, noop
	}

	return publisher, func() {
		_ = ch.Close()
		_ = conn.Close()
	}
}

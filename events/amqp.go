package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"vantera/config"
	"vantera/models"
)

const publishTimeout = 10 * time.Second

// AMQPPublisher sends run events to a durable topic exchange.
type AMQPPublisher struct {
	mu         sync.Mutex
	exchange   string
	connection *amqp.Connection
	channel    *amqp.Channel
}

func NewAMQPPublisher(cfg config.RabbitMQConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("events: RABBITMQ_URL is required")
	}
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("events: exchange name is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("events: dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange %q: %w", cfg.Exchange, err)
	}

	log.Printf("Events: publishing to exchange %q", cfg.Exchange)
	return &AMQPPublisher{exchange: cfg.Exchange, connection: conn, channel: ch}, nil
}

func (p *AMQPPublisher) RunFinished(ctx context.Context, run *models.ImportRun) error {
	msg, err := buildPublishing(run)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.connection == nil || p.connection.IsClosed() {
		return fmt.Errorf("events: not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyRunFinished, false, false, msg); err != nil {
		return fmt.Errorf("events: publish run %s: %w", run.ID, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.connection = nil
	}
	return firstErr
}

func buildPublishing(run *models.ImportRun) (amqp.Publishing, error) {
	body, err := json.Marshal(NewRunFinished(run))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("events: marshal run %s: %w", run.ID, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    run.ID,
		Type:         RoutingKeyRunFinished,
		Timestamp:    time.Now(),
		Body:         body,
	}, nil
}

package queue

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking/internal/logger"
)

// Publisher sends JSON events to RabbitMQ.  The connection is opened on
// first use and reopened after it drops.  Publish failures are logged and
// returned so callers can choose to ignore them without interrupting the
// request that produced the event.
type Publisher struct {
    url string

    mu       sync.Mutex
    conn     *amqp.Connection
    ch       *amqp.Channel
    declared map[string]bool
}

func NewPublisher(url string) *Publisher {
    return &Publisher{url: url, declared: map[string]bool{}}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := amqp.Dial(p.url)
        if err != nil {
            return nil, err
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        return nil, err
    }
    p.ch = ch
    p.declared = map[string]bool{}
    return ch, nil
}

// Publish marshals payload and sends it to queue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, queue string, payload any) error {
    body, err := json.Marshal(payload)
    if err != nil {
        logger.Error("rabbitmq: marshal event failed", zap.String("queue", queue), zap.Error(err))
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        logger.Warn("rabbitmq: channel unavailable", zap.String("queue", queue), zap.Error(err))
        return err
    }
    if !p.declared[queue] {
        // durable so messages survive broker restarts
        if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            logger.Warn("rabbitmq: queue declare failed", zap.String("queue", queue), zap.Error(err))
            return err
        }
        p.declared[queue] = true
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
        logger.Warn("rabbitmq: publish failed", zap.String("queue", queue), zap.Error(err))
        return err
    }
    return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        return p.conn.Close()
    }
    return nil
}

// NopPublisher drops every event.  It is used when AMQP is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

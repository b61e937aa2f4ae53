package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking/internal/logger"
)

// Consumer subscribes to every event queue and appends one structured line
// per event to its audit logger (by default logs/booking.log).
type Consumer struct {
    url   string
    audit *zap.Logger
}

func NewConsumer(url string, audit *zap.Logger) *Consumer {
    return &Consumer{url: url, audit: audit}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return nil
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            logger.Warn("event-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleepCtx(ctx, backoff) {
                return nil
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return nil
        }
        logger.Warn("event-consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleepCtx(ctx, 2*time.Second) {
            return nil
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warn("event-consumer: set QoS failed", zap.Error(err))
    }

    type tagged struct {
        queue string
        d     amqp.Delivery
    }
    merged := make(chan tagged)
    done := make(chan struct{})
    defer close(done)

    for _, q := range AllQueues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        go func(q string, msgs <-chan amqp.Delivery) {
            for d := range msgs {
                select {
                case merged <- tagged{queue: q, d: d}:
                case <-done:
                    return
                }
            }
        }(q, msgs)
    }

    closed := conn.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr == nil {
                return errors.New("connection closed")
            }
            return amqpErr
        case m := <-merged:
            if err := c.Handle(m.queue, m.d.Body); err != nil {
                logger.Warn("event-consumer: handle message failed", zap.String("queue", m.queue), zap.Error(err))
                _ = m.d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = m.d.Ack(false)
        }
    }
}

// Handle decodes one message from queue and writes it to the audit log.
func (c *Consumer) Handle(queue string, body []byte) error {
    switch queue {
    case QueueShowingsScheduled:
        var ev ShowingsScheduledEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        ids := make([]uint64, 0, len(ev.Showings))
        for _, s := range ev.Showings {
            ids = append(ids, s.ShowingID)
        }
        c.audit.Info("Showings scheduled",
            zap.String("event_id", ev.EventID),
            zap.Uint64("movie_id", ev.MovieID),
            zap.String("movie", ev.MovieTitle),
            zap.Uint64("hall_id", ev.HallID),
            zap.Uint64("staff_id", ev.StaffID),
            zap.Uint64s("showing_ids", ids),
            zap.Time("occurred_at", ev.OccurredAt),
        )
    case QueueBookingConfirmed, QueueBookingCancelled:
        var ev BookingEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        msg := "Booking confirmed"
        if queue == QueueBookingCancelled {
            msg = "Booking cancelled"
        }
        c.audit.Info(msg,
            zap.String("event_id", ev.EventID),
            zap.Uint64("booking_id", ev.BookingID),
            zap.Uint64("showing_id", ev.ShowingID),
            zap.Uint64("hall_id", ev.HallID),
            zap.Uint64("customer_id", ev.CustomerID),
            zap.Int("seat", ev.Seat),
            zap.Int("available", ev.AvailableCount),
            zap.Time("occurred_at", ev.OccurredAt),
        )
    default:
        return fmt.Errorf("unknown queue %q", queue)
    }
    return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

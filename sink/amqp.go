package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	siemfeed "github.com/tphakala/go-siemfeed"
)

const defaultAMQPBatchSize = 1000

// AMQPConfig describes the broker target for an AMQP sink.
type AMQPConfig struct {
	URL        string
	Exchange   string // empty publishes to the default exchange
	RoutingKey string
	BatchSize  int // events per message, default 1000
}

// AMQP publishes event batches to a RabbitMQ exchange as persistent JSON
// messages. The dataset tags travel as message headers.
type AMQP struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	batchSize  int
	logger     *zap.Logger
}

// NewAMQP connects to the broker and declares the exchange when one is
// named. A nil logger disables logging.
func NewAMQP(cfg AMQPConfig, logger *zap.Logger) (*AMQP, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if cfg.Exchange != "" {
		if err := channel.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
			_ = channel.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declaring exchange %q: %w", cfg.Exchange, err)
		}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultAMQPBatchSize
	}

	logger.Info("connected to broker",
		zap.String("exchange", cfg.Exchange),
		zap.String("routing_key", cfg.RoutingKey))

	return &AMQP{
		conn:       conn,
		channel:    channel,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		batchSize:  batchSize,
		logger:     logger,
	}, nil
}

// Ingest publishes the events in batches, one message per batch.
func (s *AMQP) Ingest(ctx context.Context, events []siemfeed.Event, vendor, product string) error {
	for _, batch := range chunk(events, s.batchSize) {
		body, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("encoding events: %w", err)
		}

		messageID := uuid.NewString()
		err = s.channel.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Headers: amqp.Table{
				"vendor":      vendor,
				"product":     product,
				"event_count": int32(len(batch)),
			},
			Body: body,
		})
		if err != nil {
			return fmt.Errorf("publishing events: %w", err)
		}

		s.logger.Debug("published batch",
			zap.String("message_id", messageID),
			zap.String("vendor", vendor),
			zap.String("product", product),
			zap.Int("count", len(batch)))
	}
	return nil
}

// Close releases the channel and connection.
func (s *AMQP) Close() error {
	if err := s.channel.Close(); err != nil {
		_ = s.conn.Close()
		return fmt.Errorf("closing channel: %w", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}
	return nil
}

var _ siemfeed.Sink = (*AMQP)(nil)

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/brojonat/lnbits/service/metrics"
)

// Publisher defines the interface for publishing payment events to NATS.
type Publisher interface {
	// PublishPayment publishes a single payment event to JetStream.
	PublishPayment(ctx context.Context, event *PaymentEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes payment events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	logger  *slog.Logger
	metrics *metrics.Metrics
}

const (
	// StreamName is the name of the JetStream stream for payment events.
	StreamName = "LNBITS_PAYMENTS"

	// SubjectPrefix prefixes every payment event subject.
	SubjectPrefix = "lnbits"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = SubjectPrefix + ".>"

	// StreamRetention is how long messages are retained (30 days by default).
	StreamRetention = 30 * 24 * time.Hour
)

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists. m may be nil.
func NewPublisher(natsURL string, logger *slog.Logger, m *metrics.Metrics) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("lnbits-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		logger:  logger,
		metrics: m,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Debug("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Payment events from LNbits wallets",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishPayment publishes a single payment event.
func (p *JetStreamPublisher) PublishPayment(ctx context.Context, event *PaymentEvent) error {
	subject := event.Subject()
	start := time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}

	_, err = p.js.Publish(ctx, subject, data)
	p.record(event.Type, start, err)
	if err != nil {
		return fmt.Errorf("failed to publish payment event: %w", err)
	}

	p.logger.Debug("published payment event",
		"subject", subject,
		"type", event.Type,
		"payment_hash", event.PaymentHash,
	)

	return nil
}

func (p *JetStreamPublisher) record(eventType EventType, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordNATSPublish(string(eventType), status, time.Since(start).Seconds())
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}

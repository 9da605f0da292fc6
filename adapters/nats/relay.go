package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/Migorithm/IAM/core/es"
)

type RelayConfig struct {
	Connect       Connector         // Connect creates the NATS connection. If nil, ConnectDefault() is used.
	Sessions      es.SessionFactory // Sessions opens the transactions the relay reads and marks rows in.
	Log           *slog.Logger      // Log for diagnostics (optional)
	Metrics       RelayMetrics      // Metrics observes draining (optional)
	SubjectPrefix string            // SubjectPrefix for event subjects, e.g. "iam.events" -> iam.events.<topic>
	BatchSize     int               // BatchSize caps rows drained per poll. Defaults to 100.
	PollInterval  time.Duration     // PollInterval between polls. Defaults to 1s.
}

// RelayMetrics observes outbox draining.
type RelayMetrics interface {
	EntriesDelivered(count int)
	DrainFailure()
}

type nopRelayMetrics struct{}

func (nopRelayMetrics) EntriesDelivered(int) {}
func (nopRelayMetrics) DrainFailure()        {}

// Relay drains the outbox. Each poll reads up to BatchSize pending rows
// under a row lock, publishes them, and marks the published ones processed
// before committing. A row whose publish fails stays pending and is
// retried on a later poll, so delivery is at-least-once; consumers must
// deduplicate by outbox id if they need exactly-once effects.
type Relay struct {
	nc       *natsgo.Conn
	closeNc  closeFunc
	sessions es.SessionFactory
	log      *slog.Logger
	metrics  RelayMetrics
	prefix   string
	batch    int
	interval time.Duration
}

func NewRelay(cfg RelayConfig) (*Relay, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("relay: session factory is required")
	}

	connFn := cfg.Connect
	if connFn == nil {
		connFn = ConnectDefault()
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "iam.events"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	m := cfg.Metrics
	if m == nil {
		m = nopRelayMetrics{}
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	return &Relay{
		nc:       nc,
		closeNc:  closeNc,
		sessions: cfg.Sessions,
		log:      log.With(slog.String("component", "outbox-relay")),
		metrics:  m,
		prefix:   prefix,
		batch:    batch,
		interval: interval,
	}, nil
}

// Run polls until ctx is cancelled. Poll errors are logged and retried on
// the next tick; only ctx cancellation ends the loop.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("relay started",
		slog.String("prefix", r.prefix),
		slog.Int("batch_size", r.batch),
		slog.Duration("poll_interval", r.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.DrainOnce(ctx)
			if err != nil {
				r.metrics.DrainFailure()
				r.log.Error("drain failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				r.log.Debug("drained", slog.Int("num_entries", n))
			}
		}
	}
}

// DrainOnce reads one batch of pending entries, publishes each to
// <prefix>.<topic>, and marks the successfully published ones processed.
// It returns the number of entries delivered.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	session, err := r.sessions.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer session.Rollback(ctx)

	pending, err := session.Outbox().Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	delivered := make([]string, 0, len(pending))
	for _, entry := range pending {
		subject := r.prefix + "." + entry.Topic
		if err := r.nc.Publish(subject, entry.State); err != nil {
			r.log.Error("publish failed",
				slog.String("subject", subject),
				slog.String("outbox_id", entry.ID),
				slog.Any("error", err),
			)
			break
		}
		delivered = append(delivered, entry.ID)
	}
	if len(delivered) == 0 {
		return 0, nil
	}
	if err := r.nc.FlushWithContext(ctx); err != nil {
		return 0, err
	}

	if err := session.Outbox().MarkProcessed(ctx, delivered...); err != nil {
		return 0, err
	}
	if err := session.Commit(ctx); err != nil {
		return 0, err
	}
	r.metrics.EntriesDelivered(len(delivered))
	return len(delivered), nil
}

// Close releases the NATS connection.
func (r *Relay) Close() {
	if r.closeNc != nil {
		r.closeNc()
	}
}

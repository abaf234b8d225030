// Package consumer subscribes to the partitioned device-telemetry stream
// and drives each event through admission, normalization, persistence and
// liveness tracking. Committing the group offset is the checkpoint: drops
// are committed, processing failures are not, so un-checkpointed events
// are redelivered after a restart.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/segmentio/kafka-go"

	"asset-tracking-backend/internal/notify"
	"asset-tracking-backend/internal/session"
	"asset-tracking-backend/internal/store"
	"asset-tracking-backend/internal/telemetry"
)

// Events older than this on arrival are persisted but not forwarded to the
// live dashboard; a backlog replay must not masquerade as live data.
const staleForwardWindow = 65 * time.Second

var (
	ErrReadMessage   = errors.New("error reading message")
	ErrCommitMessage = errors.New("error committing message")
)

// reader is the fetch/commit surface of kafka.Reader.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type gatekeeper interface {
	Admit(ctx context.Context, deviceID string, enqueued time.Time) (session.Decision, *store.Session, error)
}

type tracker interface {
	RecordDeviceContact(ctx context.Context, deviceID string, now time.Time) error
	RecordSensorEvent(ctx context.Context, sensor telemetry.SensorType, now time.Time) error
}

type repository interface {
	SetKeepAliveIntervals(ctx context.Context, deviceID string, iv telemetry.Intervals, now time.Time) error
	InsertTelemetry(ctx context.Context, eventType string, payload any) error
}

type Config struct {
	Brokers         string
	ConsumerGroupID string
	ConsumerTopic   string
	Gatekeeper      gatekeeper
	Tracker         tracker
	Repo            repository
	Emitter         notify.Emitter
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

type Consumer struct {
	reader     reader
	gatekeeper gatekeeper
	tracker    tracker
	repo       repository
	emitter    notify.Emitter
	now        func() time.Time
}

func New(cfg Config) *Consumer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			GroupID:     cfg.ConsumerGroupID,
			Topic:       cfg.ConsumerTopic,
			StartOffset: kafka.FirstOffset,
		}),
		gatekeeper: cfg.Gatekeeper,
		tracker:    cfg.Tracker,
		repo:       cfg.Repo,
		emitter:    cfg.Emitter,
		now:        now,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Consumer started...")
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Consumer stopped...")
			return
		default:
			c.ProcessMessage(ctx)
		}
	}
}

func (c *Consumer) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing consumer resources...")
	c.reader.Close()
}

// ProcessMessage handles one stream event end to end. Explicit commit
// only; a failure before commit leaves the event for redelivery.
func (c *Consumer) ProcessMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Stream-level failure: surface it as a connectivity notification
		// and keep the subscription open; the client retries on its own.
		c.emitter.Publish(notify.TopicStreamConnectivity, notify.ConnectivityChanged{Type: classifyStreamError(err)})
		slog.ErrorContext(ctx, "Error fetching message", "error", err)
		return
	}

	deviceID := string(m.Key)
	decision, _, err := c.gatekeeper.Admit(ctx, deviceID, m.Time)
	if err != nil {
		slog.ErrorContext(ctx, "Error resolving session", "error", err)
		return
	}
	if decision != session.Admit {
		// Expected traffic shaping, not a failure: checkpoint and move on.
		c.commit(ctx, m)
		return
	}

	now := c.now()
	if err := c.tracker.RecordDeviceContact(ctx, deviceID, now); err != nil {
		slog.ErrorContext(ctx, "Error recording device contact", "error", err)
		return
	}

	var raw telemetry.RawMessage
	if err := json.Unmarshal(m.Value, &raw); err != nil {
		slog.WarnContext(ctx, "Error parsing device payload, skipping", "error", err, "device_id", deviceID)
		c.commit(ctx, m)
		return
	}
	event, err := telemetry.Normalize(raw, now)
	if err != nil {
		slog.WarnContext(ctx, "Unrecognized device message, skipping",
			"error", err,
			"device_id", deviceID,
			"msgtype", raw.MsgType,
		)
		c.commit(ctx, m)
		return
	}

	if event.IsKeepAlive() {
		// The liveness baseline was seeded by RecordDeviceContact on first
		// contact; here we persist the reported cadence.
		if err := c.repo.SetKeepAliveIntervals(ctx, deviceID, *event.Intervals, now); err != nil {
			slog.ErrorContext(ctx, "Error saving keep-alive intervals", "error", err)
			return
		}
	} else {
		if err := c.tracker.RecordSensorEvent(ctx, telemetry.SensorType(event.Type), now); err != nil {
			slog.ErrorContext(ctx, "Error recording sensor event", "error", err)
			return
		}
		if err := c.repo.InsertTelemetry(ctx, event.Type, event.Payload()); err != nil {
			slog.ErrorContext(ctx, "Error saving telemetry", "error", err)
			return
		}
		if now.Sub(m.Time) <= staleForwardWindow {
			c.emitter.Publish(notify.TopicTelemetryReceived, event)
		}
	}

	c.commit(ctx, m)
	slog.InfoContext(ctx, "Processed device event", "device_id", deviceID, "type", event.Type)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		slog.ErrorContext(ctx, "Error committing message", "error", err)
	}
}

// classifyStreamError distinguishes an unreachable broker from a timed-out
// connection for the connectivity notification.
func classifyStreamError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return notify.IotConnectionTimeout
	}
	return notify.NetworkError
}

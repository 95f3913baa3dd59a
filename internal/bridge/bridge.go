// Package bridge ingests device messages from the MQTT bus into the document
// store. Bridge writes run as a trusted system principal and are broadcast
// with a source tag so dashboards can tell device data from client writes.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"alphabase/internal/document"
	"alphabase/internal/platform/metrics"
)

// BridgeOwner is the owner recorded on every document the bridge writes.
const BridgeOwner = "mqtt_bridge"

// eventSource tags broadcast events for bridge-originated mutations.
const eventSource = "mqtt"

// Ingestor is the document service entry point the bridge writes through.
type Ingestor interface {
	Ingest(ctx context.Context, collection, key string, value json.RawMessage, owner, source string) (document.Document, error)
}

// Bridge routes raw bus messages into collections. Sensor readings become
// append-style records keyed by device and time; status messages upsert one
// record per device.
type Bridge struct {
	ingestor Ingestor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock sets the clock used for sensor record keys.
func WithClock(clock func() time.Time) Option {
	return func(b *Bridge) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// New creates a Bridge. metrics may be nil in tests.
func New(ingestor Ingestor, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Bridge {
	b := &Bridge{
		ingestor: ingestor,
		logger:   logger,
		metrics:  m,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// HandleMessage classifies one bus message by topic and stores it. Malformed
// payloads and unroutable topics are logged and dropped; the bridge never
// propagates per-message errors back to the bus.
func (b *Bridge) HandleMessage(ctx context.Context, topic string, payload []byte) {
	fields := map[string]any{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		b.logger.WarnContext(ctx, "bridge message dropped: payload is not a JSON object",
			"topic", topic,
			"error", err,
		)
		b.dropped()
		return
	}

	collection, key, ok := b.route(topic, fields)
	if !ok {
		// Command topics and anything else we do not handle.
		b.logger.InfoContext(ctx, "bridge message ignored", "topic", topic)
		b.dropped()
		return
	}

	if _, err := b.ingestor.Ingest(ctx, collection, key, payload, BridgeOwner, eventSource); err != nil {
		b.logger.ErrorContext(ctx, "bridge ingest failed",
			"topic", topic,
			"collection", collection,
			"key", key,
			"error", err,
		)
		b.dropped()
		return
	}

	if b.metrics != nil {
		b.metrics.BridgeMessages.Inc()
	}
	b.logger.InfoContext(ctx, "bridge message stored",
		"topic", topic,
		"collection", collection,
		"key", key,
	)
}

// route maps a topic to the target collection and key. Classification is a
// plain substring match, so the bare topic "prefix/sensors" routes the same
// as "prefix/sensors/device". Sensor readings get a "<device>_<unix-seconds>"
// key so each reading is its own record; status messages key on the device ID
// alone so the latest status wins.
func (b *Bridge) route(topic string, fields map[string]any) (collection, key string, ok bool) {
	deviceID := deviceIDOf(fields)
	switch {
	case strings.Contains(topic, "sensors"):
		return "sensors", fmt.Sprintf("%s_%d", deviceID, b.clock().Unix()), true
	case strings.Contains(topic, "status"):
		return "devices", deviceID, true
	default:
		return "", "", false
	}
}

func deviceIDOf(fields map[string]any) string {
	if id, ok := fields["device_id"].(string); ok && id != "" {
		return id
	}
	return "unknown"
}

func (b *Bridge) dropped() {
	if b.metrics != nil {
		b.metrics.BridgeDropped.Inc()
	}
}

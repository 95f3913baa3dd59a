package bridge

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"alphabase/internal/document"
	"alphabase/internal/realtime"
	"alphabase/internal/rules"
)

// recordingHub keeps published events for assertions.
type recordingHub struct {
	events []realtime.Event
}

func (h *recordingHub) Publish(event realtime.Event) {
	h.events = append(h.events, event)
}

type BridgeSuite struct {
	suite.Suite
	ctx    context.Context
	store  *document.InMemoryStore
	hub    *recordingHub
	bridge *Bridge
	now    time.Time
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeSuite))
}

func (s *BridgeSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = document.NewInMemoryStore()
	s.hub = &recordingHub{}
	s.now = time.Unix(1748780400, 0)

	logger := slog.New(slog.DiscardHandler)
	service := document.NewService(s.store, rules.NewEngine(), s.hub, logger, nil)
	s.bridge = New(service, logger, nil, WithClock(func() time.Time { return s.now }))
}

func (s *BridgeSuite) TestSensorReadingStoredAndBroadcast() {
	payload := []byte(`{"device_id":"d1","temperature":22.5}`)
	s.bridge.HandleMessage(s.ctx, "alphabase/sensors/d1", payload)

	key := "d1_1748780400"
	doc, err := s.store.Get(s.ctx, "sensors:"+key)
	s.Require().NoError(err)
	s.Equal(BridgeOwner, doc.Owner)
	s.JSONEq(string(payload), string(doc.Value))

	s.Require().Len(s.hub.events, 1)
	s.Equal(realtime.Event{
		Action:     realtime.ActionUpdate,
		Collection: "sensors",
		Key:        key,
		Source:     "mqtt",
	}, s.hub.events[0])
}

func (s *BridgeSuite) TestConsecutiveReadingsGetDistinctKeys() {
	s.bridge.HandleMessage(s.ctx, "alphabase/sensors/d1", []byte(`{"device_id":"d1","v":1}`))
	s.now = s.now.Add(time.Second)
	s.bridge.HandleMessage(s.ctx, "alphabase/sensors/d1", []byte(`{"device_id":"d1","v":2}`))

	docs, err := s.store.List(s.ctx, "sensors")
	s.Require().NoError(err)
	s.Len(docs, 2)
}

func (s *BridgeSuite) TestStatusUpsertsPerDevice() {
	s.bridge.HandleMessage(s.ctx, "alphabase/status/d2", []byte(`{"device_id":"d2","online":true}`))
	s.bridge.HandleMessage(s.ctx, "alphabase/status/d2", []byte(`{"device_id":"d2","online":false}`))

	docs, err := s.store.List(s.ctx, "devices")
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal("d2", docs[0].Key)
	s.JSONEq(`{"device_id":"d2","online":false}`, string(docs[0].Value))
}

func (s *BridgeSuite) TestMissingDeviceIDDefaultsToUnknown() {
	s.bridge.HandleMessage(s.ctx, "alphabase/sensors/x", []byte(`{"temperature":10}`))

	_, err := s.store.Get(s.ctx, "sensors:unknown_1748780400")
	s.NoError(err)
}

func (s *BridgeSuite) TestCommandTopicIgnored() {
	s.bridge.HandleMessage(s.ctx, "alphabase/commands/d1", []byte(`{"device_id":"d1","cmd":"reboot"}`))

	docs, err := s.store.List(s.ctx, "sensors")
	s.Require().NoError(err)
	s.Empty(docs)
	s.Empty(s.hub.events)
}

func (s *BridgeSuite) TestMalformedPayloadDropped() {
	for _, payload := range []string{`not json`, `[1,2,3]`, `"just a string"`} {
		s.bridge.HandleMessage(s.ctx, "alphabase/sensors/d1", []byte(payload))
	}

	docs, err := s.store.List(s.ctx, "sensors")
	s.Require().NoError(err)
	s.Empty(docs)
	s.Empty(s.hub.events)
}

func TestRouteIsPrefixAgnostic(t *testing.T) {
	b := New(nil, slog.New(slog.DiscardHandler), nil)
	collection, _, ok := b.route("factory/status/plc-1", map[string]any{"device_id": "plc-1"})
	if !ok || collection != "devices" {
		t.Fatalf("expected devices route, got %q ok=%v", collection, ok)
	}
}

// A broker delivers the bare topic "prefix/sensors" for the filter
// "prefix/sensors/#"; it must route like any other sensor message.
func (s *BridgeSuite) TestBareTopicRouted() {
	s.bridge.HandleMessage(s.ctx, "alphabase/sensors", []byte(`{"device_id":"d1","v":1}`))

	_, err := s.store.Get(s.ctx, "sensors:d1_1748780400")
	s.Require().NoError(err)

	s.bridge.HandleMessage(s.ctx, "alphabase/status", []byte(`{"device_id":"d1","online":true}`))
	_, err = s.store.Get(s.ctx, "devices:d1")
	s.NoError(err)
}

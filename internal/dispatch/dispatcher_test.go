package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reborn-client/internal/registry"
)

func TestDispatchCallsHandlerThenObserversThenEvents(t *testing.T) {
	bus := NewEventBus()
	d := New(bus, nil, nil)

	var order []string
	bus.Subscribe(TopicRawPacketReceived, func(data map[string]any) { order = append(order, "raw") })
	d.RegisterHandler(9, func(data map[string]any) { order = append(order, "handler") })
	d.AddObserver(func(id int, name string, data map[string]any) { order = append(order, "observer") })
	bus.Subscribe(TopicPlayerMoved, func(data map[string]any) { order = append(order, "event") })

	d.Dispatch(&registry.ParsedPacket{
		ID:     9,
		Name:   "PLO_PLAYERPROPS",
		Fields: map[string]any{},
		Events: []string{TopicPlayerMoved},
	})

	assert.Equal(t, []string{"raw", "handler", "observer", "event"}, order)
}

func TestDispatchPrefersParsedDataOverFields(t *testing.T) {
	bus := NewEventBus()
	d := New(bus, nil, nil)

	var seen map[string]any
	d.RegisterHandler(6, func(data map[string]any) { seen = data })

	d.Dispatch(&registry.ParsedPacket{
		ID:         6,
		Fields:     map[string]any{"raw": true},
		ParsedData: map[string]any{"level_name": "onlinestartlocal.nw"},
	})

	assert.Equal(t, "onlinestartlocal.nw", seen["level_name"])
}

func TestDispatchUnknownPacketStillEmitsRaw(t *testing.T) {
	bus := NewEventBus()
	d := New(bus, nil, nil)

	var gotRaw bool
	bus.Subscribe(TopicRawPacketReceived, func(data map[string]any) { gotRaw = true })

	assert.NotPanics(t, func() {
		d.Dispatch(&registry.ParsedPacket{ID: 255, Name: "PLO_UNKNOWN"})
	})
	assert.True(t, gotRaw)
}

func TestDispatchHandlerPanicDoesNotStopObservers(t *testing.T) {
	bus := NewEventBus()
	d := New(bus, nil, nil)

	observed := false
	d.RegisterHandler(1, func(data map[string]any) { panic("boom") })
	d.AddObserver(func(id int, name string, data map[string]any) { observed = true })

	assert.NotPanics(t, func() {
		d.Dispatch(&registry.ParsedPacket{ID: 1})
	})
	assert.True(t, observed)
}

func TestEventBusUnsubscribeStopsFutureDelivery(t *testing.T) {
	bus := NewEventBus()
	count := 0
	unsub := bus.Subscribe("X", func(data map[string]any) { count++ })
	bus.Emit("X", nil)
	unsub()
	bus.Emit("X", nil)
	assert.Equal(t, 1, count)
}

func TestEventBusSnapshotDuringEmitIgnoresConcurrentSubscribe(t *testing.T) {
	bus := NewEventBus()
	var calls int
	bus.Subscribe("X", func(data map[string]any) {
		calls++
		bus.Subscribe("X", func(data map[string]any) { calls++ })
	})
	bus.Emit("X", nil)
	assert.Equal(t, 1, calls)
	bus.Emit("X", nil)
	assert.Equal(t, 3, calls)
}

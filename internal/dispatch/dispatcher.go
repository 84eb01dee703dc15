package dispatch

import (
	"sync"

	"go.uber.org/zap"

	"reborn-client/internal/metrics"
	"reborn-client/internal/registry"
)

// Topic names for the bus (spec.md §4.7/§8, Design Notes event taxonomy).
const (
	TopicRawPacketReceived = "RAW_PACKET_RECEIVED"
	TopicConnected         = "CONNECTED"
	TopicDisconnected      = "DISCONNECTED"
	TopicConnectionFailed  = "CONNECTION_FAILED"
	TopicFileDownloaded    = "FILE_DOWNLOADED"
	TopicGmapModeEntered   = "GMAP_MODE_ENTERED"
	TopicPlayerMoved       = "PLAYER_MOVED"
	TopicPlayerUpdate      = "PLAYER_UPDATE"
)

// Dispatcher maintains the packet_id -> handler table plus a list of
// low-priority observers (spec.md §4.7). Dispatch is driven from the
// connection manager's read loop (spec.md §5's single-cooperative-thread
// model); mu guards the handler, observer and unknown-id tables so that
// RegisterHandler and AddObserver may also be called from other
// goroutines.
type Dispatcher struct {
	bus       *EventBus
	metrics   *metrics.Collectors
	log       *zap.SugaredLogger
	mu        sync.Mutex
	handlers  map[int]Handler
	observers []Observer
	unknown   map[int]bool
}

// Handler receives a single packet's field data (spec.md §4.4's
// parsed_data preferred over fields when a post-parse function ran).
type Handler func(data map[string]any)

func New(bus *EventBus, coll *metrics.Collectors, log *zap.SugaredLogger) *Dispatcher {
	if coll == nil {
		coll = metrics.Noop()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		bus:      bus,
		metrics:  coll,
		log:      log,
		handlers: make(map[int]Handler),
		unknown:  make(map[int]bool),
	}
}

// RegisterHandler maps a packet id to its handler (spec.md §4.7).
func (d *Dispatcher) RegisterHandler(id int, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[id] = h
}

// AddObserver appends a low-priority observer that sees every packet.
func (d *Dispatcher) AddObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Dispatch routes one decoded packet per spec.md §4.7's ordering:
// (a) emit RAW_PACKET_RECEIVED, (b) call the mapped handler, (c) call
// observers, (d) emit any sub-parser-attached events.
func (d *Dispatcher) Dispatch(pp *registry.ParsedPacket) {
	data := pp.Fields
	if pp.ParsedData != nil {
		data = pp.ParsedData
	}

	d.bus.Emit(TopicRawPacketReceived, map[string]any{
		"id": pp.ID, "name": pp.Name, "data": data,
	})

	d.mu.Lock()
	handler, hasHandler := d.handlers[pp.ID]
	observers := append([]Observer{}, d.observers...)
	d.mu.Unlock()

	if hasHandler {
		d.safeCall(pp.ID, func() { handler(data) })
	} else {
		d.noteUnknown(pp.ID, pp.Name)
	}

	for _, obs := range observers {
		o := obs
		d.safeCall(pp.ID, func() { o(pp.ID, pp.Name, data) })
	}

	for _, ev := range pp.Events {
		d.bus.Emit(ev, data)
	}

	d.metrics.PacketsDispatched.Inc()
}

// safeCall implements the Application error kind policy (spec.md §7):
// a handler panic is caught, logged, and dispatch continues.
func (d *Dispatcher) safeCall(id int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("handler panicked", "packet_id", id, "recover", r)
		}
	}()
	fn()
}

func (d *Dispatcher) noteUnknown(id int, name string) {
	d.mu.Lock()
	alreadyLogged := d.unknown[id]
	d.unknown[id] = true
	d.mu.Unlock()

	if !alreadyLogged {
		d.log.Debugw("no handler registered for packet", "packet_id", id, "name", name)
	}
	d.metrics.UnknownPacketIDs.Inc()
}

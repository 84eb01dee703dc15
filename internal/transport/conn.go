package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"reborn-client/internal/codec"
	"reborn-client/internal/dispatch"
	"reborn-client/internal/metrics"
	"reborn-client/internal/registry"
	"reborn-client/internal/rerrors"
)

// outboundRateLimit is the minimum spacing between sent packets (spec.md
// §4.6/§5: "Rate-limited to >= 50 ms between outbound packets").
const outboundRateLimit = 50 * time.Millisecond

// DefaultConnectTimeout is used when Manager.ConnectTimeout is zero
// (spec.md §5: "connect honors a configurable timeout (default 10 s)").
const DefaultConnectTimeout = 10 * time.Second

// Manager owns the socket, the codec, and the read/write loop pair
// (spec.md §4.6, §5). It generalizes the teacher's
// sync.WaitGroup+shutdown-channel lifecycle (internal/server/server.go)
// from an accept loop to a single outbound connection's read and write
// loops.
type Manager struct {
	Generation     codec.Generation
	ConnectTimeout time.Duration

	bus        *dispatch.EventBus
	reg        *registry.Registry
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Collectors
	log        *zap.SugaredLogger

	mu       sync.Mutex
	conn     net.Conn
	cdc      codec.Codec
	reader   *FrameReader
	shutdown chan struct{}
	wg       sync.WaitGroup
	sendCh   chan []byte
	rawSink  RawDataSink

	disconnectOnce sync.Once
}

// New builds a Manager. bus and dispatcher must already be wired with
// handlers; reg is used to look up structures for each inner packet.
func New(gen codec.Generation, bus *dispatch.EventBus, reg *registry.Registry, d *dispatch.Dispatcher, coll *metrics.Collectors, log *zap.SugaredLogger) *Manager {
	if coll == nil {
		coll = metrics.Noop()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		Generation: gen,
		bus:        bus,
		reg:        reg,
		dispatcher: d,
		metrics:    coll,
		log:        log,
	}
}

// Connect opens the TCP connection and starts the read loop. Seed is the
// per-connection encryption seed used to construct the codec (spec.md
// §4.1: cipher state is per-connection, derived at login time in the
// real protocol; this engine accepts it up front since the seed is
// negotiated before Connect is reachable from a caller's perspective).
func (m *Manager) Connect(ctx context.Context, host string, port int, seed byte) error {
	timeout := m.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", host, port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		m.bus.Emit(dispatch.TopicConnectionFailed, map[string]any{"reason": err.Error()})
		return rerrors.Wrap(rerrors.Transport, "transport.Connect", err)
	}

	cdc, err := codec.New(m.Generation, seed)
	if err != nil {
		conn.Close()
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.cdc = cdc
	m.shutdown = make(chan struct{})
	m.sendCh = make(chan []byte, 64)
	m.disconnectOnce = sync.Once{}
	m.reader = NewFrameReader(bufio.NewReader(conn), cdc, m.handleInner, m.rawSink)
	m.mu.Unlock()

	m.wg.Add(2)
	go m.readLoop()
	go m.writeLoop()

	m.bus.Emit(dispatch.TopicConnected, map[string]any{"host": host, "port": port})
	return nil
}

// SetRawSink installs the callback the reassembler uses to receive
// PLO_RAWDATA blobs once they're complete (spec.md §4.5).
func (m *Manager) SetRawSink(sink RawDataSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawSink = sink
	if m.reader != nil {
		m.reader.rawSink = sink
	}
}

// EnterRawDataMode forwards to the active frame reader (called by a
// PLO_RAWDATA handler that has an announced size header, spec.md §4.3
// step 6 — normally the reader detects this itself, but a handler may
// also drive it directly for a download-id-scoped announced size).
func (m *Manager) EnterRawDataMode(expected int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reader != nil {
		m.reader.EnterRawDataMode(expected)
	}
}

func (m *Manager) handleInner(ip InnerPacket) {
	structure, ok := m.reg.Lookup(ip.ID, registry.ContextClient)
	if !ok {
		m.dispatcher.Dispatch(&registry.ParsedPacket{ID: ip.ID, Name: fmt.Sprintf("UNKNOWN_%d", ip.ID)})
		return
	}
	pp := registry.Decode(structure, ip.Payload, ip.AnnouncedSize)
	m.dispatcher.Dispatch(pp)
}

func (m *Manager) readLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.shutdown:
			return
		default:
		}
		if err := m.reader.ReadFrame(); err != nil {
			m.log.Warnw("read loop stopping", "error", err)
			m.emitDisconnected()
			return
		}
	}
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()
	limiter := rate.NewLimiter(rate.Every(outboundRateLimit), 1)
	for {
		select {
		case <-m.shutdown:
			return
		case plaintext, ok := <-m.sendCh:
			if !ok {
				return
			}
			if err := limiter.Wait(context.Background()); err != nil {
				return
			}
			m.writeOne(plaintext)
		}
	}
}

func (m *Manager) writeOne(plaintext []byte) {
	m.mu.Lock()
	conn, cdc := m.conn, m.cdc
	m.mu.Unlock()
	if conn == nil || cdc == nil {
		return
	}

	wire, err := cdc.EncodePacket(plaintext)
	if err != nil {
		m.log.Errorw("encode failed, dropping outbound packet", "error", err)
		return
	}

	frame := make([]byte, 2+len(wire))
	frame[0] = byte(len(wire) >> 8)
	frame[1] = byte(len(wire))
	copy(frame[2:], wire)

	if _, err := conn.Write(frame); err != nil {
		m.log.Warnw("write failed", "error", err)
	}
}

// Send enqueues inner_bytes for the write loop (spec.md §4.6).
func (m *Manager) Send(inner []byte) {
	m.mu.Lock()
	ch := m.sendCh
	m.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- inner:
	case <-m.shutdown:
	}
}

// SendLoginFrame sends a pre-built login frame plain-zlib-compressed
// with a 2-byte length prefix, bypassing the normal codec path (spec.md
// §4.6: "unencrypted but zlib-compressed").
func (m *Manager) SendLoginFrame(plainFrame []byte) error {
	loginCodec, err := codec.New(codec.Gen2, 0) // gen2 is always plain zlib
	if err != nil {
		return err
	}
	wire, err := loginCodec.EncodePacket(plainFrame)
	if err != nil {
		return rerrors.Wrap(rerrors.Transport, "transport.SendLoginFrame", err)
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return rerrors.Wrap(rerrors.Transport, "transport.SendLoginFrame", rerrors.ErrNotConnected)
	}

	frame := make([]byte, 2+len(wire))
	frame[0] = byte(len(wire) >> 8)
	frame[1] = byte(len(wire))
	copy(frame[2:], wire)
	_, err = conn.Write(frame)
	return err
}

// Disconnect is idempotent; it shuts down the socket, drains queues, and
// emits DISCONNECTED (spec.md §4.6).
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.shutdown == nil {
		m.mu.Unlock()
		return
	}
	select {
	case <-m.shutdown:
		m.mu.Unlock()
		return
	default:
		close(m.shutdown)
	}
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.wg.Wait()
	m.emitDisconnected()
}

// emitDisconnected fires DISCONNECTED exactly once per connection (spec.md
// §8 scenario S6: "DISCONNECTED emitted once"), since both the read
// loop's own error path and an explicit Disconnect call may reach here.
func (m *Manager) emitDisconnected() {
	m.disconnectOnce.Do(func() {
		m.bus.Emit(dispatch.TopicDisconnected, nil)
	})
}

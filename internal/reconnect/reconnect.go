// Package reconnect implements the reconnect controller (spec.md §4.6):
// a separate task subscribed to DISCONNECTED/CONNECTION_FAILED that
// drives retries per a configurable policy, translating the teacher's
// goroutine lifecycle idiom and the source's threading.Thread +
// threading.Event loop (resilience_manager.py's _reconnection_loop) into
// a goroutine cancelled by context.Context instead of an Event flag.
package reconnect

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"reborn-client/internal/dispatch"
	"reborn-client/internal/metrics"
)

// Strategy selects the delay formula (spec.md §4.6 policy table).
type Strategy int

const (
	Exponential Strategy = iota
	Linear
	Fixed
	Immediate
)

// Policy mirrors resilience_manager.py's ReconnectPolicy dataclass
// exactly, field for field and default for default.
type Policy struct {
	Enabled        bool
	MaxAttempts    int
	Strategy       Strategy
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	ResetOnSuccess bool
}

// DefaultPolicy matches spec.md §4.6's default column.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:        true,
		MaxAttempts:    5,
		Strategy:       Exponential,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		ResetOnSuccess: true,
	}
}

// HealthMetrics tracks the success-rate figures spec.md §4.6 names
// ("unhealthy" at or below 70%, see Unhealthy).
type HealthMetrics struct {
	ConnectionAttempts    int
	SuccessfulConnections int
	FailedConnections     int
	ReconnectionAttempts  int
}

// SuccessRate returns successes / (successes + failures), or 1.0 with no
// data yet.
func (h HealthMetrics) SuccessRate() float64 {
	total := h.SuccessfulConnections + h.FailedConnections
	if total == 0 {
		return 1.0
	}
	return float64(h.SuccessfulConnections) / float64(total)
}

// Unhealthy reports whether the success rate is at or below 70%
// (resilience_manager.py's is_healthy uses a strict > 0.7, so exactly
// 70% is unhealthy, not the boundary-inclusive healthy case).
func (h HealthMetrics) Unhealthy() bool {
	return h.SuccessRate() <= 0.70
}

// ConnectFunc attempts to (re-)establish the connection; it returns nil
// on success.
type ConnectFunc func(ctx context.Context) error

// Controller drives reconnect attempts per Policy, subscribed to the
// event bus's DISCONNECTED/CONNECTION_FAILED topics (spec.md §4.6).
type Controller struct {
	policy  Policy
	bus     *dispatch.EventBus
	metrics *metrics.Collectors
	log     *zap.SugaredLogger
	connect ConnectFunc

	health HealthMetrics
}

func New(policy Policy, bus *dispatch.EventBus, coll *metrics.Collectors, log *zap.SugaredLogger, connect ConnectFunc) *Controller {
	if coll == nil {
		coll = metrics.Noop()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{policy: policy, bus: bus, metrics: coll, log: log, connect: connect}
}

// Health returns a snapshot of the controller's connection health
// metrics.
func (c *Controller) Health() HealthMetrics { return c.health }

// Start subscribes the controller to the bus; it runs the reconnect loop
// in its own goroutine whenever DISCONNECTED or CONNECTION_FAILED fires,
// never touching a live connection's codec state directly (spec.md §5:
// "Reconnect runs on a separate task and never mutates codec state of a
// live connection" — Run only calls back into the connect function the
// caller supplied, which owns that state).
func (c *Controller) Start(ctx context.Context) (unsubscribe func()) {
	unsubDisc := c.bus.Subscribe(dispatch.TopicDisconnected, func(data map[string]any) {
		c.health.FailedConnections++
		if c.policy.Enabled {
			go c.run(ctx)
		}
	})
	unsubFail := c.bus.Subscribe(dispatch.TopicConnectionFailed, func(data map[string]any) {
		c.health.FailedConnections++
		if c.policy.Enabled {
			go c.run(ctx)
		}
	})
	return func() {
		unsubDisc()
		unsubFail()
	}
}

// run performs the retry loop (spec.md §4.6): on success, emits
// CONNECTED with the attempt count and resets the attempt counter if
// configured; on exhaustion, emits CONNECTION_FAILED{reason:
// "max_attempts_exceeded"}.
func (c *Controller) run(ctx context.Context) {
	attempt := 0
	for attempt < c.policy.MaxAttempts {
		attempt++
		c.health.ReconnectionAttempts++
		c.metrics.ReconnectAttempts.Inc()

		delay := c.delayFor(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := c.connect(ctx); err == nil {
			c.health.SuccessfulConnections++
			c.metrics.ReconnectSuccesses.Inc()
			c.bus.Emit(dispatch.TopicConnected, map[string]any{"attempt": attempt})
			if c.policy.ResetOnSuccess {
				attempt = 0
			}
			return
		}
		c.log.Warnw("reconnect attempt failed", "attempt", attempt)
	}

	c.bus.Emit(dispatch.TopicConnectionFailed, map[string]any{
		"reason":   "max_attempts_exceeded",
		"attempts": attempt,
	})
}

// delayFor implements resilience_manager.py's _calculate_reconnect_delay
// per strategy. The exponential case is expressed via
// backoff.ExponentialBackOff's geometric growth so that the one strategy
// the pack's backoff library actually models reuses it, rather than
// hand-rolling every strategy identically.
func (c *Controller) delayFor(attempt int) time.Duration {
	switch c.policy.Strategy {
	case Immediate:
		return 0
	case Fixed:
		return c.policy.InitialDelay
	case Linear:
		d := time.Duration(attempt) * c.policy.InitialDelay
		return capDuration(d, c.policy.MaxDelay)
	default: // Exponential
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.policy.InitialDelay
		eb.Multiplier = c.policy.Multiplier
		eb.MaxInterval = c.policy.MaxDelay
		eb.RandomizationFactor = 0
		eb.Reset()
		var d time.Duration
		for i := 0; i < attempt; i++ {
			d = eb.NextBackOff()
		}
		return capDuration(d, c.policy.MaxDelay)
	}
}

func capDuration(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

package reconnect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reborn-client/internal/dispatch"
)

func TestDelayForExponentialMatchesFormula(t *testing.T) {
	p := DefaultPolicy()
	c := New(p, dispatch.NewEventBus(), nil, nil, nil)

	assert.Equal(t, 1*time.Second, c.delayFor(1))
	assert.Equal(t, 2*time.Second, c.delayFor(2))
	assert.Equal(t, 4*time.Second, c.delayFor(3))
}

func TestDelayForExponentialCapsAtMaxDelay(t *testing.T) {
	p := DefaultPolicy()
	p.MaxDelay = 3 * time.Second
	c := New(p, dispatch.NewEventBus(), nil, nil, nil)
	assert.Equal(t, 3*time.Second, c.delayFor(3))
}

func TestDelayForLinear(t *testing.T) {
	p := DefaultPolicy()
	p.Strategy = Linear
	p.InitialDelay = 2 * time.Second
	c := New(p, dispatch.NewEventBus(), nil, nil, nil)
	assert.Equal(t, 4*time.Second, c.delayFor(2))
}

func TestDelayForFixed(t *testing.T) {
	p := DefaultPolicy()
	p.Strategy = Fixed
	p.InitialDelay = 5 * time.Second
	c := New(p, dispatch.NewEventBus(), nil, nil, nil)
	assert.Equal(t, 5*time.Second, c.delayFor(1))
	assert.Equal(t, 5*time.Second, c.delayFor(4))
}

func TestDelayForImmediateIsZero(t *testing.T) {
	p := DefaultPolicy()
	p.Strategy = Immediate
	c := New(p, dispatch.NewEventBus(), nil, nil, nil)
	assert.Equal(t, time.Duration(0), c.delayFor(1))
}

func TestHealthUnhealthyBelowSeventyPercent(t *testing.T) {
	h := HealthMetrics{SuccessfulConnections: 8, FailedConnections: 2}
	assert.False(t, h.Unhealthy())

	h2 := HealthMetrics{SuccessfulConnections: 6, FailedConnections: 5}
	assert.True(t, h2.Unhealthy())
}

func TestHealthExactlySeventyPercentIsUnhealthy(t *testing.T) {
	h := HealthMetrics{SuccessfulConnections: 7, FailedConnections: 3}
	require.InDelta(t, 0.70, h.SuccessRate(), 1e-9)
	assert.True(t, h.Unhealthy())
}

func TestRunEmitsConnectionFailedOnExhaustion(t *testing.T) {
	bus := dispatch.NewEventBus()
	p := DefaultPolicy()
	p.MaxAttempts = 2
	p.InitialDelay = time.Millisecond
	p.Strategy = Immediate

	var gotReason string
	bus.Subscribe(dispatch.TopicConnectionFailed, func(data map[string]any) {
		if r, ok := data["reason"].(string); ok {
			gotReason = r
		}
	})

	c := New(p, bus, nil, nil, func(ctx context.Context) error { return errors.New("refused") })
	c.run(context.Background())

	assert.Equal(t, "max_attempts_exceeded", gotReason)
}

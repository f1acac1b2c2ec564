package eventbus

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Regions int    `json:"regions"`
	Seed    string `json:"seed"`
}

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope("worldgen", "world.generated", samplePayload{Regions: 4, Seed: "abc"})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "world.generated", ev.EventType)
	assert.Equal(t, 1, ev.Version)
	assert.False(t, ev.Timestamp.IsZero())

	var got samplePayload
	require.NoError(t, ev.Decode(&got))
	assert.Equal(t, samplePayload{Regions: 4, Seed: "abc"}, got)
}

func TestNewEnvelopeRejectsUnencodablePayload(t *testing.T) {
	_, err := NewEnvelope("worldgen", "bad", make(chan int))
	assert.Error(t, err)
}

func TestMemoryBusDeliversMatchingEvents(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{}, 4)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"world.reset"}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		seen = append(seen, ev.EventType)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)

	for _, typ := range []string{"world.generated", "world.reset"} {
		ev, err := NewEnvelope("worldgen", typ, samplePayload{})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"world.reset"}, seen)

	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Consumed)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) { calls++ })
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, err := NewEnvelope("worldgen", "world.reset", nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	assert.Equal(t, 0, calls)
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	ev, err := NewEnvelope("worldgen", "world.reset", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)

	_, err = bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMatchFilter(t *testing.T) {
	ev := &Envelope{EventType: "world.generated", Source: "worldgen"}
	assert.True(t, matchFilter(ev, Filter{}))
	assert.True(t, matchFilter(ev, Filter{Types: []string{"world.reset", "world.generated"}}))
	assert.False(t, matchFilter(ev, Filter{Sources: []string{"editor"}}))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "worldgen.world.region_failed", Subject("world.region_failed"))
}

func TestCollectorExportsStats(t *testing.T) {
	bus := NewMemoryBus(4)
	ev, err := NewEnvelope("worldgen", "world.generated", nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(bus)))

	expected := `
# HELP eventbus_messages_published_total Общее число опубликованных сообщений.
# TYPE eventbus_messages_published_total counter
eventbus_messages_published_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eventbus_messages_published_total"))
}

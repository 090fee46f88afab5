package messaging

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

type probeHandler struct {
	mu        sync.Mutex
	interests []shared.EventType
	received  []shared.Event
}

func (h *probeHandler) InterestedIn() []shared.EventType { return h.interests }

func (h *probeHandler) Handle(event shared.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return nil
}

func (h *probeHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func syncBus() *InMemoryEventBus {
	cfg := DefaultConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestEventBus_RoutesByInterest(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	returns := &probeHandler{interests: []shared.EventType{shared.EventExpeditionReturned}}
	everything := &probeHandler{}
	require.NoError(t, bus.Subscribe(returns))
	require.NoError(t, bus.Subscribe(everything))

	created := shared.NewExpeditionCreatedEvent("exp-1", "Sortie", "bourgade-1", 3, "alice")
	returned := shared.NewExpeditionReturnedEvent("exp-1", "Sortie", "bourgade-1", shared.ReturnReasonExpired)

	require.NoError(t, bus.Publish(created))
	require.NoError(t, bus.Publish(returned))

	// The interest-scoped handler only sees returns; the global one sees both.
	assert.Equal(t, 1, returns.count())
	assert.Equal(t, shared.EventExpeditionReturned, returns.received[0].EventType())
	assert.Equal(t, 2, everything.count())
}

func TestEventBus_PublishWithoutHandlers(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	err := bus.Publish(shared.NewExpeditionCreatedEvent("exp-1", "Sortie", "bourgade-1", 3, "alice"))
	assert.NoError(t, err)
}

func TestEventBus_ClosedBusRejectsWork(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewExpeditionCreatedEvent("exp-1", "Sortie", "bourgade-1", 3, "alice"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(&probeHandler{})
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Double close is a no-op.
	assert.NoError(t, bus.Close())
}

func TestEventBus_AsyncDeliveryCompletesOnClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	probe := &probeHandler{}
	require.NoError(t, bus.Subscribe(probe))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewDayRolledEvent("exp-1", "EST", i+1)))
	}

	assert.Eventually(t, func() bool { return probe.count() == 5 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Close())
}

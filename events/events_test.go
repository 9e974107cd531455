package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	a, unsubA := bus.Subscribe(1)
	defer unsubA()
	b, unsubB := bus.Subscribe(1)
	defer unsubB()

	n := bus.Publish(ReloadRequested{Reason: "test"})
	assert.Equal(t, 2, n)

	ev := <-a
	assert.Equal(t, "reload-products", ev.Name())
	ev = <-b
	require.IsType(t, ReloadRequested{}, ev)
	assert.Equal(t, "test", ev.(ReloadRequested).Reason)
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ch, unsub := bus.Subscribe(1)
	defer unsub()

	assert.Equal(t, 1, bus.Publish(CacheInvalidated{}))
	assert.Equal(t, 0, bus.Publish(CacheInvalidated{}))
	assert.Len(t, ch, 1)
	assert.Equal(t, "invalidate-product-cache", (<-ch).Name())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(nil)
	ch, unsub := bus.Subscribe(4)
	unsub()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Publish(ReloadRequested{}))
}

func TestCloseClosesSubscribers(t *testing.T) {
	bus := NewBus(nil)
	ch, unsub := bus.Subscribe(1)
	bus.Close()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := bus.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}

func TestHelpersPublishTypedEvents(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()
	ch, unsub := bus.Subscribe(2)
	defer unsub()

	bus.RequestReload("mutation")
	bus.InvalidateCache("admin")

	assert.IsType(t, ReloadRequested{}, <-ch)
	assert.IsType(t, CacheInvalidated{}, <-ch)
}

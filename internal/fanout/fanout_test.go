package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttach_SendsConnectionEstablishedImmediately(t *testing.T) {
	h := NewHub()

	obs := h.Attach("initial-snapshot")
	require.Equal(t, 1, h.Len())

	select {
	case ev := <-obs.Send:
		assert.Equal(t, KindConnectionEstablished, ev.Kind)
		assert.Equal(t, "initial-snapshot", ev.Snapshot)
	default:
		t.Fatal("expected a CONNECTION_ESTABLISHED event queued on attach")
	}
}

func TestBroadcast_DeliversToAllAttachedObservers(t *testing.T) {
	h := NewHub()
	a := h.Attach(nil)
	b := h.Attach(nil)

	// Drain the CONNECTION_ESTABLISHED event each observer got on attach.
	<-a.Send
	<-b.Send

	h.Broadcast(Event{Kind: KindOrderBookUpdate})

	assertReceivesKind(t, a.Send, KindOrderBookUpdate)
	assertReceivesKind(t, b.Send, KindOrderBookUpdate)
}

func TestDetach_StopsFutureDelivery(t *testing.T) {
	h := NewHub()
	obs := h.Attach(nil)
	<-obs.Send

	h.Detach(obs.ID)
	assert.Equal(t, 0, h.Len())

	h.Broadcast(Event{Kind: KindOrderBookUpdate})

	select {
	case _, ok := <-obs.Send:
		assert.False(t, ok, "channel should not carry the broadcast after detach")
	default:
		// Also acceptable: nothing was ever sent to the detached observer.
	}
}

func TestBroadcast_DropsSlowObserverWithoutBlocking(t *testing.T) {
	h := NewHub()
	obs := h.Attach(nil)
	<-obs.Send // drain CONNECTION_ESTABLISHED

	// Fill the observer's buffer completely so the next send would block.
	for i := 0; i < observerBuffer; i++ {
		h.Broadcast(Event{Kind: KindOrderBookUpdate})
	}
	require.Equal(t, 1, h.Len(), "observer should still be attached while every send has fit in its buffer")

	// One more broadcast overflows the buffer; Broadcast must return
	// (not block on the full channel) and detach the slow observer.
	h.Broadcast(Event{Kind: KindOrderBookUpdate})

	assert.Equal(t, 0, h.Len(), "overflowing observer should be detached")
}

func assertReceivesKind(t *testing.T, ch <-chan Event, kind Kind) {
	t.Helper()
	select {
	case ev := <-ch:
		assert.Equal(t, kind, ev.Kind)
	default:
		t.Fatalf("expected an event of kind %s", kind)
	}
}

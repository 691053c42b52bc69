// Package fanout implements the EventFanout of spec.md §4.4: a registry of
// observers that a single writer (the engine, via the API adapter or the
// simulator) broadcasts typed state-change events to, without ever
// blocking on a slow or dead observer.
package fanout

import (
	"sync"

	"limitbook/internal/common"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Kind discriminates the event payload, mirroring spec.md §6.2's two
// broadcast kinds. The push channel's ping/pong heartbeat is a separate,
// un-broadcast reply handled directly by the adapter's WebSocket pump.
type Kind string

const (
	KindOrderBookUpdate       Kind = "ORDER_BOOK_UPDATE"
	KindConnectionEstablished Kind = "CONNECTION_ESTABLISHED"
)

// OrderDetails is the optional taker summary carried on an
// ORDER_BOOK_UPDATE event when the taker still rests after matching.
type OrderDetails struct {
	OrderID   uint64
	Client    string
	Side      common.Side
	Price     float64
	Volume    uint64
	Timestamp int64 // Milliseconds since epoch.
}

// Event is the single envelope type broadcast to observers. Only the
// fields relevant to Kind are populated; the API adapter serializes this
// down to the wire shapes of spec.md §6.2.
type Event struct {
	Kind             Kind
	Snapshot         interface{} // engine.Snapshot, kept opaque to avoid an import cycle.
	Trades           []common.TradeEvent
	TakerOrder       *OrderDetails
	CancelledOrderID *uint64
}

// Observer is one attached push-channel subscriber. Send is a bounded,
// buffered channel drained by the adapter's per-connection writer
// goroutine; a full channel is treated as a delivery failure and the
// observer is detached (spec.md §4.4: "a send failure causes detachment
// without a retry").
type Observer struct {
	ID   uuid.UUID
	Send chan Event
}

const observerBuffer = 32

// Hub is the EventFanout itself.
type Hub struct {
	mu        sync.Mutex
	observers map[uuid.UUID]*Observer
}

// NewHub constructs an empty fan-out registry.
func NewHub() *Hub {
	return &Hub{observers: make(map[uuid.UUID]*Observer)}
}

// Attach registers a new observer and immediately enqueues a
// CONNECTION_ESTABLISHED event carrying the given initial snapshot
// (spec.md §4.4). The caller is responsible for computing that snapshot
// under the engine's lock before calling Attach, so it reflects a
// consistent point-in-time state.
func (h *Hub) Attach(initialSnapshot interface{}) *Observer {
	obs := &Observer{
		ID:   uuid.New(),
		Send: make(chan Event, observerBuffer),
	}

	h.mu.Lock()
	h.observers[obs.ID] = obs
	h.mu.Unlock()

	obs.Send <- Event{Kind: KindConnectionEstablished, Snapshot: initialSnapshot}
	return obs
}

// Detach removes an observer, e.g. on connection close.
func (h *Hub) Detach(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observers, id)
}

// Broadcast delivers event to every attached observer in the order this
// method is called (spec.md §5: "for a given observer, broadcast order
// equals mutation order"). A non-blocking send that would otherwise block
// longer than this one call is treated as observer failure: the observer
// is detached and broadcast continues to the rest (spec.md §4.4).
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, obs := range h.observers {
		select {
		case obs.Send <- event:
		default:
			log.Warn().Str("observer", id.String()).Msg("dropping slow observer")
			close(obs.Send)
			delete(h.observers, id)
		}
	}
}

// Len reports the number of attached observers, primarily for tests and
// diagnostics.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

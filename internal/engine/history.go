package engine

import "limitbook/internal/common"

// priceHistory is a bounded ring of (timestamp, mid-price) samples,
// append-only until capacity, then oldest-evicted. Mirrors
// collections.deque(maxlen=...) from the original implementation.
type priceHistory struct {
	points   []common.PricePoint
	capacity int
	lastMid  float64
	hasLast  bool
}

func newPriceHistory(capacity int) *priceHistory {
	if capacity <= 0 {
		capacity = 200
	}
	return &priceHistory{capacity: capacity}
}

// record appends (now, mid) if mid differs from the last recorded value.
// Consecutive duplicates are suppressed per spec.md §4.3.4.
func (h *priceHistory) record(nowMs int64, mid float64) {
	if h.hasLast && mid == h.lastMid {
		return
	}
	h.lastMid = mid
	h.hasLast = true

	h.points = append(h.points, common.PricePoint{Timestamp: nowMs, Price: mid})
	if len(h.points) > h.capacity {
		h.points = h.points[len(h.points)-h.capacity:]
	}
}

// snapshot returns a defensive copy so callers cannot mutate the ring.
func (h *priceHistory) snapshot() []common.PricePoint {
	out := make([]common.PricePoint, len(h.points))
	copy(out, h.points)
	return out
}

package engine

import "limitbook/internal/common"

// PriceLevel is the FIFO of resting orders at one (price, side) coordinate,
// plus its aggregate resting volume maintained incrementally (I2).
type PriceLevel struct {
	PriceLevel float64
	Orders     []*common.Order
	Volume     uint64
}

// push appends to the tail (arrival order).
func (l *PriceLevel) push(o *common.Order) {
	l.Orders = append(l.Orders, o)
	l.Volume += o.Quantity
}

// head returns the FIFO head, the only order eligible to trade next.
func (l *PriceLevel) head() *common.Order {
	if len(l.Orders) == 0 {
		return nil
	}
	return l.Orders[0]
}

// popHead removes the FIFO head after it has been reduced to zero volume.
func (l *PriceLevel) popHead() {
	if len(l.Orders) == 0 {
		return
	}
	l.Orders = l.Orders[1:]
}

// remove does an O(n-in-level) scan removal of a specific order, used by
// cancellation. Returns false if the order was not found (a tolerable
// inconsistency per spec.md §4.6 — the caller logs and continues).
func (l *PriceLevel) remove(id uint64) bool {
	for i, o := range l.Orders {
		if o.ID == id {
			if o.Quantity <= l.Volume {
				l.Volume -= o.Quantity
			} else {
				l.Volume = 0
			}
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			return true
		}
	}
	return false
}

func (l *PriceLevel) empty() bool {
	return len(l.Orders) == 0 || l.Volume == 0
}

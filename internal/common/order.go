package common

import (
	"fmt"
	"time"
)

// Order is a resting or in-flight record in the book. Quantity is the
// residual volume and strictly decreases via trades or cancellation;
// TotalQuantity is fixed at admission and only used for display/reporting.
type Order struct {
	ID            uint64    // Unique, nonzero, monotonically increasing.
	AssetType     AssetType // Instrument class.
	OrderType     OrderType // Limit or market (only Limit is accepted).
	Side          Side      // Buy or sell.
	LimitPrice    float64   // Admission price, never re-rounded by the engine.
	Quantity      uint64    // Remaining volume.
	TotalQuantity uint64    // Volume requested at admission.
	Timestamp     time.Time // Arrival time; time priority comes from FIFO position, not this field.
	ExchTimestamp time.Time // Time the order entered the book proper.
	Owner         string    // Client that submitted the order.
}

func (o Order) String() string {
	return fmt.Sprintf(
		`Order(ID=%d, Owner=%s, Side=%v, Price=%.2f, Qty=%d/%d, Timestamp=%s)`,
		o.ID, o.Owner, o.Side, o.LimitPrice, o.Quantity, o.TotalQuantity,
		o.Timestamp.Format(time.RFC3339Nano),
	)
}

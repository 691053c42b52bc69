package common

import "fmt"

// TradeEvent records one fill. Maker is the resting order; taker is the
// order whose arrival caused the cross. Price is always the maker's
// posted price (price improvement for the taker), never averaged.
type TradeEvent struct {
	Timestamp    int64 // Milliseconds since epoch.
	Price        float64
	Volume       uint64
	MakerOrderID uint64
	TakerOrderID uint64
	MakerClient  string
	TakerClient  string
}

func (t TradeEvent) String() string {
	return fmt.Sprintf(
		"Trade(price=%.2f, volume=%d, maker=%d/%s, taker=%d/%s, ts=%d)",
		t.Price, t.Volume, t.MakerOrderID, t.MakerClient, t.TakerOrderID, t.TakerClient, t.Timestamp,
	)
}

// PricePoint is one sample in the mid-price history ring.
type PricePoint struct {
	Timestamp int64 // Milliseconds since epoch.
	Price     float64
}

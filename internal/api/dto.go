package api

import (
	"limitbook/internal/common"
	"limitbook/internal/engine"
	"limitbook/internal/fanout"
)

// orderRequest is the POST /order body of spec.md §6.1.
type orderRequest struct {
	Client string  `json:"client"`
	Side   string  `json:"side"`
	Price  float64 `json:"price"`
	Volume uint64  `json:"volume"`
}

// orderResponse is the POST /order success body of spec.md §6.1.
type orderResponse struct {
	Message        string      `json:"message"`
	OrderID        uint64      `json:"order_id"`
	TradesExecuted []tradeWire `json:"trades_executed"`
}

// tradeWire is the wire shape for a common.TradeEvent.
type tradeWire struct {
	Timestamp    int64   `json:"timestamp"`
	Price        float64 `json:"price"`
	Volume       uint64  `json:"volume"`
	MakerOrderID uint64  `json:"maker_order_id"`
	TakerOrderID uint64  `json:"taker_order_id"`
	MakerClient  string  `json:"maker_client"`
	TakerClient  string  `json:"taker_client"`
}

func tradesToWire(trades []common.TradeEvent) []tradeWire {
	out := make([]tradeWire, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeWire{
			Timestamp:    t.Timestamp,
			Price:        t.Price,
			Volume:       t.Volume,
			MakerOrderID: t.MakerOrderID,
			TakerOrderID: t.TakerOrderID,
			MakerClient:  t.MakerClient,
			TakerClient:  t.TakerClient,
		})
	}
	return out
}

// levelWire is one aggregated depth entry.
type levelWire struct {
	Price  float64 `json:"price"`
	Volume uint64  `json:"volume"`
}

// snapshotWire is the GET /lob response shape.
type snapshotWire struct {
	Bids []levelWire `json:"bids"`
	Asks []levelWire `json:"asks"`
}

func snapshotToWire(s engine.Snapshot) snapshotWire {
	w := snapshotWire{
		Bids: make([]levelWire, 0, len(s.Bids)),
		Asks: make([]levelWire, 0, len(s.Asks)),
	}
	for _, l := range s.Bids {
		w.Bids = append(w.Bids, levelWire{Price: l.Price, Volume: l.Volume})
	}
	for _, l := range s.Asks {
		w.Asks = append(w.Asks, levelWire{Price: l.Price, Volume: l.Volume})
	}
	return w
}

// pricePointWire is one GET /price_history entry.
type pricePointWire struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

func historyToWire(points []common.PricePoint) []pricePointWire {
	out := make([]pricePointWire, 0, len(points))
	for _, p := range points {
		out = append(out, pricePointWire{Timestamp: p.Timestamp, Price: p.Price})
	}
	return out
}

// cancelResponse is the DELETE /order/{id} success body of spec.md §6.1.
type cancelResponse struct {
	Message string `json:"message"`
	OrderID uint64 `json:"order_id"`
}

// priceHistoryResponse is the GET /price_history body of spec.md §6.1.
type priceHistoryResponse struct {
	History []pricePointWire `json:"history"`
}

// simulatorStatusResponse is returned from GET /simulator/status and
// POST /simulator/toggle.
type simulatorStatusResponse struct {
	Active bool `json:"active"`
}

// simulatorToggleRequest is the POST /simulator/toggle body of spec.md §6.1.
type simulatorToggleRequest struct {
	Active bool `json:"active"`
}

// rootResponse is the GET / body of spec.md §6.1.
type rootResponse struct {
	Message string `json:"message"`
}

// errorResponse is the uniform error body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// orderDetailsWire mirrors fanout.OrderDetails for the push channel.
type orderDetailsWire struct {
	OrderID   uint64  `json:"order_id"`
	Client    string  `json:"client"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Volume    uint64  `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

func orderDetailsToWire(d *fanout.OrderDetails) *orderDetailsWire {
	if d == nil {
		return nil
	}
	return &orderDetailsWire{
		OrderID:   d.OrderID,
		Client:    d.Client,
		Side:      d.Side.String(),
		Price:     d.Price,
		Volume:    d.Volume,
		Timestamp: d.Timestamp,
	}
}

// pushMessage is the single envelope shape sent over the WebSocket push
// channel, matching spec.md §6.2's ORDER_BOOK_UPDATE and
// CONNECTION_ESTABLISHED kinds. Ping/pong is a separate un-enveloped
// heartbeat handled directly by ws.go.
type pushMessage struct {
	Kind             string            `json:"kind"`
	Book             *snapshotWire     `json:"order_book,omitempty"`
	Trades           []tradeWire       `json:"trades,omitempty"`
	TakerOrder       *orderDetailsWire `json:"taker_order,omitempty"`
	CancelledOrderID *uint64           `json:"cancelled_order_id,omitempty"`
}

func eventToWire(e fanout.Event) pushMessage {
	msg := pushMessage{Kind: string(e.Kind)}
	if snap, ok := e.Snapshot.(engine.Snapshot); ok {
		w := snapshotToWire(snap)
		msg.Book = &w
	}
	if len(e.Trades) > 0 {
		msg.Trades = tradesToWire(e.Trades)
	}
	msg.TakerOrder = orderDetailsToWire(e.TakerOrder)
	msg.CancelledOrderID = e.CancelledOrderID
	return msg
}

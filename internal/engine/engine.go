// Package engine implements the limit order book matching engine: the
// data model and algorithms of spec.md §3-§4 (OrderIdAllocator,
// PriceLevel, BookSide, MatchingEngine). Concurrency is serialized per
// OrderBook with a plain mutex, matching the "mutex around an Engine
// value" option spec.md §5 calls out as equivalent to a single-writer
// task or an actor.
package engine

import (
	"sync/atomic"
	"time"

	"limitbook/internal/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Re-exported vocabulary so callers only need to import one package for
// both the engine and the order shape it operates on.
type (
	AssetType  = common.AssetType
	Side       = common.Side
	OrderType  = common.OrderType
	Order      = common.Order
	TradeEvent = common.TradeEvent
)

const (
	Equities    = common.Equities
	Buy         = common.Buy
	Sell        = common.Sell
	LimitOrder  = common.LimitOrder
	MarketOrder = common.MarketOrder
)

const defaultHistoryLimit = 200

// Engine owns every instrument's OrderBook and the process-wide order id
// allocator (spec.md §4.1: "a property of a MatchingEngine instance, not
// global"). The teacher's Engine.Books map[AssetType]OrderBook shape is
// kept even though this module only ever constructs one book, so a
// second instrument is a constructor argument away rather than a rewrite.
type Engine struct {
	Books map[AssetType]*OrderBook

	nextID atomic.Uint64
	logger zerolog.Logger
}

// New constructs an engine with a book for each of the given assets. The
// module only ever passes Equities, matching spec.md's single-symbol
// scope.
func New(logger zerolog.Logger, historyLimit int, assets ...AssetType) *Engine {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	e := &Engine{
		Books:  make(map[AssetType]*OrderBook, len(assets)),
		logger: logger,
	}
	for _, asset := range assets {
		e.Books[asset] = NewOrderBook(historyLimit)
	}
	return e
}

// allocateID implements the OrderIdAllocator of spec.md §4.1: a fresh
// positive integer on every call, strictly greater than all previous.
func (e *Engine) allocateID() uint64 {
	return e.nextID.Add(1)
}

// PlaceOrder implements spec.md §4.3.1. client is the opaque owner string.
// Every order placed through this API is a LimitOrder; there is no
// parameter to request MarketOrder (see SPEC_FULL.md §9).
func (e *Engine) PlaceOrder(asset AssetType, client string, side Side, price float64, volume uint64) (uint64, []TradeEvent, error) {
	book, ok := e.Books[asset]
	if !ok {
		return 0, nil, ErrUnknownAsset
	}
	if price <= 0 || volume == 0 {
		return 0, nil, ErrInvalidInput
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	now := time.Now()
	order := &Order{
		ID:            e.allocateID(),
		AssetType:     asset,
		OrderType:     LimitOrder,
		Side:          side,
		LimitPrice:    price,
		Quantity:      volume,
		TotalQuantity: volume,
		Timestamp:     now,
		ExchTimestamp: now,
		Owner:         client,
	}
	book.orders[order.ID] = order

	trades := book.place(order)
	book.trades = append(book.trades, trades...)
	book.updatePriceHistory()

	e.logger.Debug().
		Uint64("orderID", order.ID).
		Str("side", side.String()).
		Float64("price", price).
		Uint64("volume", volume).
		Int("trades", len(trades)).
		Msg("order placed")

	return order.ID, trades, nil
}

// CancelOrder implements spec.md §4.3.2.
func (e *Engine) CancelOrder(asset AssetType, orderID uint64) (bool, error) {
	book, ok := e.Books[asset]
	if !ok {
		return false, ErrUnknownAsset
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	ok = book.cancel(orderID)
	if ok {
		book.updatePriceHistory()
	}
	return ok, nil
}

// BestBid returns the highest bid price with positive aggregate volume.
func (e *Engine) BestBid(asset AssetType) (float64, bool, error) {
	book, ok := e.Books[asset]
	if !ok {
		return 0, false, ErrUnknownAsset
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	price, ok := book.bestBid()
	return price, ok, nil
}

// BestAsk returns the lowest ask price with positive aggregate volume.
func (e *Engine) BestAsk(asset AssetType) (float64, bool, error) {
	book, ok := e.Books[asset]
	if !ok {
		return 0, false, ErrUnknownAsset
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	price, ok := book.bestAsk()
	return price, ok, nil
}

// Snapshot returns the top `levels` price levels per side, best-first.
func (e *Engine) Snapshot(asset AssetType, levels int) (Snapshot, error) {
	book, ok := e.Books[asset]
	if !ok {
		return Snapshot{}, ErrUnknownAsset
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.snapshot(levels), nil
}

// VolumeAt returns the aggregate resting volume at (price, side).
func (e *Engine) VolumeAt(asset AssetType, price float64, side Side) (uint64, error) {
	book, ok := e.Books[asset]
	if !ok {
		return 0, ErrUnknownAsset
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.volumeAt(price, side), nil
}

// PriceHistory returns a defensive copy of the mid-price ring.
func (e *Engine) PriceHistory(asset AssetType) ([]common.PricePoint, error) {
	book, ok := e.Books[asset]
	if !ok {
		return nil, ErrUnknownAsset
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.history.snapshot(), nil
}

// LogBook dumps the trade log for the given asset at Info level. This is
// the Go home for original_source's print_trade_log/the teacher's
// LogBook() interface method (SPEC_FULL.md §9 "supplemented features").
func (e *Engine) LogBook(asset AssetType) {
	book, ok := e.Books[asset]
	if !ok {
		log.Error().Str("asset", asset.String()).Msg("LogBook: unknown asset")
		return
	}
	book.mu.Lock()
	trades := make([]common.TradeEvent, len(book.trades))
	copy(trades, book.trades)
	book.mu.Unlock()

	if len(trades) == 0 {
		log.Info().Msg("trade log is empty")
		return
	}
	for _, t := range trades {
		log.Info().Str("trade", t.String()).Msg("trade log entry")
	}
}

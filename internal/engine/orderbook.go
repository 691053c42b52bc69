package engine

import (
	"sync"
	"time"

	"limitbook/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"
)

// PriceLevels is the per-side priority structure: a strict ordered map of
// price -> *PriceLevel. This is the "ordered map, no heap tombstones"
// variant spec.md §9 calls out as equally valid to a heap-with-lazy-cleanup:
// a level is deleted from the tree the instant its volume reaches zero, so
// there is nothing to lazily reclaim on a normal path. peekBest still
// defensively skips a zero-volume entry if one is ever observed, treating
// it as the tolerable structural inconsistency spec.md §4.6 describes,
// but that path is not expected to be exercised in steady state.
type PriceLevels = btree.BTreeG[*PriceLevel]

// OrderBook is one BookSide pair (bids + asks) for a single instrument,
// plus the order index, trade log, and price-history ring that spec.md
// §3 attaches to the engine as a whole. Every mutation is taken under mu,
// which is the "single logical writer" of spec.md §5.
type OrderBook struct {
	mu sync.Mutex

	Bids *PriceLevels // Sorted highest-price-first.
	Asks *PriceLevels // Sorted lowest-price-first.

	orders  map[uint64]*common.Order
	trades  []common.TradeEvent
	history *priceHistory
}

// NewOrderBook constructs an empty book with the given price-history ring
// capacity (spec.md §6.4, default 200).
func NewOrderBook(historyLimit int) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.PriceLevel > b.PriceLevel // Highest first.
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.PriceLevel < b.PriceLevel // Lowest first.
	})
	return &OrderBook{
		Bids:    bids,
		Asks:    asks,
		orders:  make(map[uint64]*common.Order),
		history: newPriceHistory(historyLimit),
	}
}

// levelsFor returns the priority structure an order of the given side
// rests on.
func (b *OrderBook) levelsFor(side common.Side) *PriceLevels {
	if side == common.Buy {
		return b.Bids
	}
	return b.Asks
}

// oppositeLevelsFor returns the priority structure an order of the given
// side matches against.
func (b *OrderBook) oppositeLevelsFor(side common.Side) *PriceLevels {
	if side == common.Buy {
		return b.Asks
	}
	return b.Bids
}

// peekBest returns the best live level on the given side, discarding any
// zero-volume tombstone it encounters along the way (spec.md §4.2).
func peekBest(levels *PriceLevels) (*PriceLevel, bool) {
	for {
		level, ok := levels.Min()
		if !ok {
			return nil, false
		}
		if !level.empty() {
			return level, true
		}
		log.Warn().Float64("price", level.PriceLevel).Msg("discarding stale price level tombstone")
		levels.Delete(level)
	}
}

// crosses reports whether a taker at takerPrice on takerSide would trade
// against a resting level at bestPrice.
func crosses(takerSide common.Side, takerPrice, bestPrice float64) bool {
	if takerSide == common.Buy {
		return takerPrice >= bestPrice
	}
	return takerPrice <= bestPrice
}

// place runs the price-time-priority matching algorithm of spec.md §4.3.1
// for a single new order, mutating the book and returning the trades this
// call produced. The caller holds b.mu for the duration.
func (b *OrderBook) place(taker *common.Order) []common.TradeEvent {
	var trades []common.TradeEvent
	opposite := b.oppositeLevelsFor(taker.Side)

	for taker.Quantity > 0 {
		level, ok := peekBest(opposite)
		if !ok || !crosses(taker.Side, taker.LimitPrice, level.PriceLevel) {
			break
		}

		maker := level.head()
		traded := min(taker.Quantity, maker.Quantity)
		tradePrice := level.PriceLevel

		taker.Quantity -= traded
		maker.Quantity -= traded
		level.Volume -= traded

		trades = append(trades, common.TradeEvent{
			Timestamp:    time.Now().UnixMilli(),
			Price:        tradePrice,
			Volume:       traded,
			MakerOrderID: maker.ID,
			TakerOrderID: taker.ID,
			MakerClient:  maker.Owner,
			TakerClient:  taker.Owner,
		})

		if maker.Quantity == 0 {
			level.popHead()
			delete(b.orders, maker.ID)
		}
		if level.empty() {
			opposite.Delete(level)
		}
	}

	if taker.Quantity > 0 {
		b.rest(taker)
	} else {
		delete(b.orders, taker.ID)
	}

	return trades
}

// rest appends a resting (or partially filled) order onto its own side,
// creating the price level if it does not yet exist (spec.md §4.2 push).
func (b *OrderBook) rest(order *common.Order) {
	levels := b.levelsFor(order.Side)
	key := &PriceLevel{PriceLevel: order.LimitPrice}
	if level, ok := levels.GetMut(key); ok {
		level.push(order)
		return
	}
	level := &PriceLevel{PriceLevel: order.LimitPrice}
	level.push(order)
	levels.Set(level)
}

// cancel implements spec.md §4.3.2. Returns false if the order is unknown
// or already exhausted.
func (b *OrderBook) cancel(id uint64) bool {
	order, ok := b.orders[id]
	if !ok {
		return false
	}
	if order.Quantity == 0 {
		delete(b.orders, id)
		return false
	}

	levels := b.levelsFor(order.Side)
	key := &PriceLevel{PriceLevel: order.LimitPrice}
	level, ok := levels.GetMut(key)
	if !ok {
		log.Error().Uint64("orderID", id).Msg("cancel: order present in index but its price level is missing")
		delete(b.orders, id)
		return true
	}

	if !level.remove(id) {
		log.Error().Uint64("orderID", id).Msg("cancel: order present in index but not found in its level's FIFO")
	}
	if level.empty() {
		levels.Delete(level)
	}

	delete(b.orders, id)
	return true
}

// bestBid returns the highest bid price with positive aggregate volume.
func (b *OrderBook) bestBid() (float64, bool) {
	level, ok := peekBest(b.Bids)
	if !ok {
		return 0, false
	}
	return level.PriceLevel, true
}

// bestAsk returns the lowest ask price with positive aggregate volume.
func (b *OrderBook) bestAsk() (float64, bool) {
	level, ok := peekBest(b.Asks)
	if !ok {
		return 0, false
	}
	return level.PriceLevel, true
}

// Level is one entry of a depth snapshot.
type Level struct {
	Price  float64
	Volume uint64
}

// Snapshot is the aggregated top-of-book view returned by spec.md §4.3.3.
type Snapshot struct {
	Bids []Level
	Asks []Level
}

// snapshot returns up to `levels` best price levels per side, best-first,
// skipping any zero-volume entries still awaiting reclamation.
func (b *OrderBook) snapshot(levels int) Snapshot {
	if levels < 1 {
		levels = 1
	}
	out := Snapshot{}

	collect := func(tree *PriceLevels) []Level {
		var result []Level
		tree.Scan(func(l *PriceLevel) bool {
			if !l.empty() {
				result = append(result, Level{Price: l.PriceLevel, Volume: l.Volume})
			}
			return len(result) < levels
		})
		return result
	}

	out.Bids = collect(b.Bids)
	out.Asks = collect(b.Asks)
	return out
}

// volumeAt is the aggregate-volume lookup of spec.md §4.2.
func (b *OrderBook) volumeAt(price float64, side common.Side) uint64 {
	level, ok := b.levelsFor(side).Get(&PriceLevel{PriceLevel: price})
	if !ok {
		return 0
	}
	return level.Volume
}

// updatePriceHistory implements spec.md §4.3.4, called after every mutation.
func (b *OrderBook) updatePriceHistory() {
	bid, hasBid := b.bestBid()
	ask, hasAsk := b.bestAsk()

	var mid float64
	switch {
	case hasBid && hasAsk:
		mid = roundToCents((bid + ask) / 2)
	case hasBid:
		mid = bid
	case hasAsk:
		mid = ask
	default:
		return
	}
	b.history.record(time.Now().UnixMilli(), mid)
}

func roundToCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

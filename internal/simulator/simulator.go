// Package simulator implements the bounded stochastic order generator of
// spec.md §4.5: a toggleable background producer that repeatedly derives
// a target price from current top-of-book and submits randomized orders
// through the engine.
package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"limitbook/internal/common"
	"limitbook/internal/engine"
	"limitbook/internal/fanout"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"
)

const (
	clientName   = "AutoTrader"
	tickInterval = 500 * time.Millisecond
	errorBackoff = 5 * time.Second
	priceStdDev  = 0.25
	minVolume    = 5
	maxVolume    = 25 // inclusive
	minPrice     = 0.01
)

// Simulator is a single background task with the INACTIVE/ACTIVE states
// of spec.md §4.5. SetActive/Status are safe to call from any goroutine;
// the active flag is a signal observed only by the run loop.
type Simulator struct {
	engine *engine.Engine
	hub    *fanout.Hub
	logger zerolog.Logger

	active  atomic.Bool
	lastMid atomic.Uint64 // math.Float64bits(lastMid), starts at 100.00.
	tomb    tomb.Tomb
}

// New constructs a simulator bound to eng, broadcasting state changes via
// hub. The simulator does not start its loop until Run is called.
func New(eng *engine.Engine, hub *fanout.Hub, logger zerolog.Logger) *Simulator {
	s := &Simulator{engine: eng, hub: hub, logger: logger}
	s.setLastMid(100.00)
	return s
}

// Status reports whether the generator is currently active.
func (s *Simulator) Status() bool {
	return s.active.Load()
}

// SetActive toggles the generator on or off.
func (s *Simulator) SetActive(active bool) {
	s.active.Store(active)
}

// Run starts the background loop, supervised by a tomb so it can be
// cancelled via ctx the same way the teacher's net.Server ties its
// goroutines to one tomb (internal/net/server.go Run).
func (s *Simulator) Run(ctx context.Context) {
	s.tomb.Go(func() error {
		return s.loop(ctx)
	})
}

// Stop requests the loop to exit and waits for it to do so.
func (s *Simulator) Stop() error {
	s.tomb.Kill(nil)
	return s.tomb.Wait()
}

func (s *Simulator) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.tomb.Dying():
			return nil
		case <-time.After(tickInterval):
		}

		if !s.active.Load() {
			continue
		}

		if err := s.tick(); err != nil {
			s.logger.Error().Err(err).Msg("simulator tick failed")
			select {
			case <-ctx.Done():
				return nil
			case <-s.tomb.Dying():
				return nil
			case <-time.After(errorBackoff):
			}
		}
	}
}

// tick derives a reference price, draws a randomized order, and submits
// it through the engine, broadcasting the resulting state change
// (spec.md §4.5 steps 3-6).
func (s *Simulator) tick() error {
	reference := s.referencePrice()

	side := common.Buy
	if rand.IntN(2) == 1 {
		side = common.Sell
	}
	offset := rand.NormFloat64() * priceStdDev
	price := roundToCents(reference + offset)
	if price < minPrice {
		price = minPrice
	}
	volume := uint64(minVolume + rand.IntN(maxVolume-minVolume+1))

	orderID, trades, err := s.engine.PlaceOrder(common.Equities, clientName, side, price, volume)
	if err != nil {
		return err
	}

	snapshot, err := s.engine.Snapshot(common.Equities, 15)
	if err != nil {
		return err
	}

	event := fanout.Event{
		Kind:     fanout.KindOrderBookUpdate,
		Snapshot: snapshot,
		Trades:   trades,
	}
	if details := s.restingOrderDetails(orderID, side, price, volume, trades); details != nil {
		event.TakerOrder = details
	}
	s.hub.Broadcast(event)

	if bid, hasBid, _ := s.engine.BestBid(common.Equities); hasBid {
		if ask, hasAsk, _ := s.engine.BestAsk(common.Equities); hasAsk {
			s.setLastMid(roundToCents((bid + ask) / 2))
			return nil
		}
		s.setLastMid(bid)
		return nil
	}
	if ask, hasAsk, _ := s.engine.BestAsk(common.Equities); hasAsk {
		s.setLastMid(ask)
	}
	return nil
}

// restingOrderDetails reports the taker's resting state iff it still has
// residual volume after matching, per spec.md §4.5 step 6. The total
// traded volume across this call's trades tells us whether anything is
// left of the order's originally requested volume.
func (s *Simulator) restingOrderDetails(orderID uint64, side common.Side, price float64, volume uint64, trades []common.TradeEvent) *fanout.OrderDetails {
	var filled uint64
	for _, t := range trades {
		if t.TakerOrderID == orderID {
			filled += t.Volume
		}
	}
	residual := volume - filled
	if residual == 0 {
		return nil
	}
	return &fanout.OrderDetails{
		OrderID:   orderID,
		Client:    clientName,
		Side:      side,
		Price:     price,
		Volume:    residual,
		Timestamp: time.Now().UnixMilli(),
	}
}

// referencePrice implements spec.md §4.5 step 3.
func (s *Simulator) referencePrice() float64 {
	bid, hasBid, _ := s.engine.BestBid(common.Equities)
	ask, hasAsk, _ := s.engine.BestAsk(common.Equities)

	switch {
	case hasBid && hasAsk:
		return (bid + ask) / 2
	case hasBid:
		return bid + 0.01
	case hasAsk:
		return ask - 0.01
	default:
		return s.getLastMid()
	}
}

func (s *Simulator) setLastMid(v float64) {
	s.lastMid.Store(math.Float64bits(v))
}

func (s *Simulator) getLastMid() float64 {
	return math.Float64frombits(s.lastMid.Load())
}

func roundToCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

package simulator

import (
	"context"
	"testing"
	"time"

	"limitbook/internal/common"
	"limitbook/internal/engine"
	"limitbook/internal/fanout"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T) (*Simulator, *engine.Engine) {
	t.Helper()
	eng := engine.New(zerolog.Nop(), 200, common.Equities)
	hub := fanout.NewHub()
	return New(eng, hub, zerolog.Nop()), eng
}

func TestSimulator_StartsInactive(t *testing.T) {
	sim, _ := newTestSimulator(t)
	assert.False(t, sim.Status())
}

func TestSimulator_SetActiveTogglesStatus(t *testing.T) {
	sim, _ := newTestSimulator(t)

	sim.SetActive(true)
	assert.True(t, sim.Status())

	sim.SetActive(false)
	assert.False(t, sim.Status())
}

func TestSimulator_TickPlacesAnOrderWhenActive(t *testing.T) {
	sim, eng := newTestSimulator(t)
	sim.SetActive(true)

	require.NoError(t, sim.tick())

	_, hasBid, err := eng.BestBid(common.Equities)
	require.NoError(t, err)
	_, hasAsk, err := eng.BestAsk(common.Equities)
	require.NoError(t, err)

	assert.True(t, hasBid || hasAsk, "a single tick should always place exactly one resting or crossing order")
}

func TestSimulator_ReferencePriceFallsBackToLastMidOnEmptyBook(t *testing.T) {
	sim, _ := newTestSimulator(t)

	assert.Equal(t, 100.00, sim.referencePrice(), "an empty book falls back to the documented starting reference of 100.00")
}

func TestSimulator_ReferencePriceUsesMidOfBothSides(t *testing.T) {
	sim, eng := newTestSimulator(t)

	_, _, err := eng.PlaceOrder(common.Equities, "alice", common.Buy, 99.0, 10)
	require.NoError(t, err)
	_, _, err = eng.PlaceOrder(common.Equities, "bob", common.Sell, 101.0, 10)
	require.NoError(t, err)

	assert.Equal(t, 100.0, sim.referencePrice())
}

func TestSimulator_ReferencePriceUsesOneSidedOffsetWhenOnlyBidExists(t *testing.T) {
	sim, eng := newTestSimulator(t)

	_, _, err := eng.PlaceOrder(common.Equities, "alice", common.Buy, 99.0, 10)
	require.NoError(t, err)

	assert.Equal(t, 99.01, sim.referencePrice())
}

func TestSimulator_RunRespectsContextCancellation(t *testing.T) {
	sim, _ := newTestSimulator(t)

	ctx, cancel := context.WithCancel(context.Background())
	sim.Run(ctx)
	cancel()

	done := make(chan error, 1)
	go func() { done <- sim.tomb.Wait() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator loop did not exit promptly after context cancellation")
	}
}

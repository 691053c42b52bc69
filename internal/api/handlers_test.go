package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"limitbook/internal/common"
	"limitbook/internal/config"
	"limitbook/internal/engine"
	"limitbook/internal/fanout"
	"limitbook/internal/simulator"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a Server the same way NewServer does, but exposes
// the underlying *mux.Router directly via httptest instead of binding a
// real listener.
func newTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()
	eng := engine.New(zerolog.Nop(), 200, common.Equities)
	hub := fanout.NewHub()
	sim := simulator.New(eng, hub, zerolog.Nop())
	srv := NewServer(config.Config{Port: 0, HistoryLimit: 200}, eng, hub, sim, zerolog.Nop())
	return srv, srv.router
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleRoot(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rootResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
}

func TestHandlePlaceOrder_RestsWithoutTrading(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/order", orderRequest{
		Client: "alice", Side: "buy", Price: 99.0, Volume: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.OrderID)
	assert.Empty(t, resp.TradesExecuted)
	assert.NotEmpty(t, resp.Message)
}

func TestHandlePlaceOrder_RejectsBadSide(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/order", orderRequest{
		Client: "alice", Side: "sideways", Price: 99.0, Volume: 10,
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlePlaceOrder_ProducesTradeOnCross(t *testing.T) {
	_, router := newTestServer(t)

	doRequest(t, router, http.MethodPost, "/order", orderRequest{
		Client: "bob", Side: "sell", Price: 100.0, Volume: 10,
	})
	rec := doRequest(t, router, http.MethodPost, "/order", orderRequest{
		Client: "alice", Side: "buy", Price: 100.0, Volume: 10,
	})

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.TradesExecuted, 1)
	assert.Equal(t, uint64(10), resp.TradesExecuted[0].Volume)
}

func TestHandleCancelOrder(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/order", orderRequest{
		Client: "alice", Side: "buy", Price: 99.0, Volume: 10,
	})
	var placed orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec = doRequest(t, router, http.MethodDelete, fmtOrderPath(placed.OrderID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelled cancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, placed.OrderID, cancelled.OrderID)
}

func TestHandleCancelOrder_UnknownIDReturnsNotFound(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodDelete, "/order/999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSnapshot_DefaultsToFiveLevels(t *testing.T) {
	_, router := newTestServer(t)

	for _, price := range []float64{94, 95, 96, 97, 98, 99} {
		doRequest(t, router, http.MethodPost, "/order", orderRequest{
			Client: "alice", Side: "buy", Price: price, Volume: 10,
		})
	}

	rec := doRequest(t, router, http.MethodGet, "/lob", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap snapshotWire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Bids, 5, "default depth is 5 per spec.md §6.1")
}

func TestHandleSnapshot_RespectsLevelsQueryParam(t *testing.T) {
	_, router := newTestServer(t)

	for _, price := range []float64{94, 95, 96} {
		doRequest(t, router, http.MethodPost, "/order", orderRequest{
			Client: "alice", Side: "buy", Price: price, Volume: 10,
		})
	}

	rec := doRequest(t, router, http.MethodGet, "/lob?levels=2", nil)
	var snap snapshotWire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Bids, 2)
}

func TestHandlePriceHistory_WrapsInHistoryKey(t *testing.T) {
	_, router := newTestServer(t)

	doRequest(t, router, http.MethodPost, "/order", orderRequest{
		Client: "alice", Side: "buy", Price: 99.0, Volume: 10,
	})

	rec := doRequest(t, router, http.MethodGet, "/price_history", nil)
	var resp priceHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, 99.0, resp.History[0].Price)
}

func TestHandleSimulatorToggle_SetsRequestedState(t *testing.T) {
	srv, router := newTestServer(t)
	require.False(t, srv.simulator.Status())

	rec := doRequest(t, router, http.MethodPost, "/simulator/toggle", simulatorToggleRequest{Active: true})
	var status simulatorStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Active)
	assert.True(t, srv.simulator.Status())

	rec = doRequest(t, router, http.MethodPost, "/simulator/toggle", simulatorToggleRequest{Active: false})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Active)
	assert.False(t, srv.simulator.Status())
}

func fmtOrderPath(id uint64) string {
	return "/order/" + strconv.FormatUint(id, 10)
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"limitbook/internal/common"
	"limitbook/internal/engine"
	"limitbook/internal/fanout"

	"github.com/gorilla/mux"
)

const (
	pushSnapshotDepth    = 15
	defaultSnapshotDepth = 5
	maxSnapshotDepth     = 50
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// handleRoot implements GET / (spec.md §6.1).
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Message: "limitbook order book engine"})
}

func parseSide(raw string) (common.Side, error) {
	switch raw {
	case "buy", "BUY", "Buy":
		return common.Buy, nil
	case "sell", "SELL", "Sell":
		return common.Sell, nil
	default:
		return 0, engine.ErrInvalidInput
	}
}

// handlePlaceOrder implements POST /order (spec.md §6.1).
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, engine.ErrInvalidInput)
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	orderID, trades, err := s.engine.PlaceOrder(common.Equities, req.Client, side, req.Price, req.Volume)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.broadcastOrderBookUpdate(trades, nil)

	writeJSON(w, http.StatusCreated, orderResponse{
		Message:        "order placed",
		OrderID:        orderID,
		TradesExecuted: tradesToWire(trades),
	})
}

// handleCancelOrder implements DELETE /order/{id} (spec.md §6.1).
func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	idRaw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idRaw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, engine.ErrNotFound)
		return
	}

	cancelled, err := s.engine.CancelOrder(common.Equities, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !cancelled {
		writeError(w, http.StatusNotFound, engine.ErrNotFound)
		return
	}

	cancelledID := id
	s.broadcastOrderBookUpdate(nil, &cancelledID)

	writeJSON(w, http.StatusOK, cancelResponse{Message: "order cancelled", OrderID: id})
}

func (s *Server) broadcastOrderBookUpdate(trades []common.TradeEvent, cancelledOrderID *uint64) {
	snapshot, err := s.engine.Snapshot(common.Equities, pushSnapshotDepth)
	if err != nil {
		s.logger.Error().Err(err).Msg("snapshot for broadcast failed")
		return
	}
	s.hub.Broadcast(fanout.Event{
		Kind:             fanout.KindOrderBookUpdate,
		Snapshot:         snapshot,
		Trades:           trades,
		CancelledOrderID: cancelledOrderID,
	})
}

// handleSnapshot implements GET /lob (spec.md §6.1): `levels` query param
// in [1,50], default 5.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	depth := parseLevels(r)
	snapshot, err := s.engine.Snapshot(common.Equities, depth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToWire(snapshot))
}

func parseLevels(r *http.Request) int {
	raw := r.URL.Query().Get("levels")
	if raw == "" {
		return defaultSnapshotDepth
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return defaultSnapshotDepth
	}
	if v > maxSnapshotDepth {
		return maxSnapshotDepth
	}
	return v
}

// handlePriceHistory implements GET /price_history (spec.md §6.1).
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.engine.PriceHistory(common.Equities)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, priceHistoryResponse{History: historyToWire(points)})
}

// handleSimulatorStatus implements GET /simulator/status (spec.md §6.1).
func (s *Server) handleSimulatorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, simulatorStatusResponse{Active: s.simulator.Status()})
}

// handleSimulatorToggle implements POST /simulator/toggle (spec.md §6.1):
// the body sets the desired active state; the response echoes post-state.
func (s *Server) handleSimulatorToggle(w http.ResponseWriter, r *http.Request) {
	var req simulatorToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, engine.ErrInvalidInput)
		return
	}
	s.simulator.SetActive(req.Active)
	writeJSON(w, http.StatusOK, simulatorStatusResponse{Active: s.simulator.Status()})
}

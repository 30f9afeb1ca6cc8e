// Package handlers exposes the bracket engine over HTTP. Handlers do
// request decoding and status mapping only; every rule lives in the
// engine and below.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonhee/bracket/internal/bracket"
	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/engine"
	"github.com/wonhee/bracket/pkg/logger"
)

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(eng *engine.Engine, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		engine: eng,
		logger: log,
	}
}

// List returns the session's orders, newest first.
// GET /api/orders?symbol=BTCUSDT
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	orders := h.engine.Orders(symbol)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// Reload replaces the session collection with the server's order list.
// POST /api/orders/reload?symbol=BTCUSDT
func (h *OrderHandler) Reload(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	orders, err := h.engine.LoadOrders(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).Error("Failed to reload orders")
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// Create validates and persists a new bracket order.
// POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input bracket.DraftInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.engine.CreateOrder(r.Context(), input)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// Get returns one order.
// GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order, err := h.engine.Order(orderID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Cancel cancels the whole bracket.
// DELETE /api/orders/{id}
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	if err := h.engine.CancelOrder(r.Context(), orderID); err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"order_id": orderID,
		"status":   "cancelled",
	})
}

type updateLegRequest struct {
	Price float64 `json:"price"`
}

// UpdateLeg commits a single-leg price change immediately.
// PUT /api/orders/{id}/legs/{leg}
func (h *OrderHandler) UpdateLeg(w http.ResponseWriter, r *http.Request) {
	ref, ok := legRef(w, r)
	if !ok {
		return
	}

	var req updateLegRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.engine.UpdateLeg(r.Context(), ref, req.Price)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// RemoveLeg cancels one protective leg.
// DELETE /api/orders/{id}/legs/{leg}
func (h *OrderHandler) RemoveLeg(w http.ResponseWriter, r *http.Request) {
	ref, ok := legRef(w, r)
	if !ok {
		return
	}

	order, err := h.engine.RemoveLeg(r.Context(), ref)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Lines returns the chart line projection with staged drags overlaid.
// GET /api/lines
func (h *OrderHandler) Lines(w http.ResponseWriter, r *http.Request) {
	lines := h.engine.Lines()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	})
}

// legRef extracts and validates the {id}/{leg} pair from the path.
func legRef(w http.ResponseWriter, r *http.Request) (contracts.LegRef, bool) {
	vars := mux.Vars(r)
	leg := contracts.LegType(vars["leg"])
	if !leg.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid leg type (valid: entry, stop, tp1, tp2)")
		return contracts.LegRef{}, false
	}
	return contracts.LegRef{OrderID: vars["id"], LegType: leg}, true
}

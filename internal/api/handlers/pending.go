package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonhee/bracket/internal/engine"
	"github.com/wonhee/bracket/pkg/logger"
)

// PendingHandler handles the staged drag batch endpoints.
type PendingHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewPendingHandler creates a new pending handler
func NewPendingHandler(eng *engine.Engine, log *logger.Logger) *PendingHandler {
	return &PendingHandler{
		engine: eng,
		logger: log,
	}
}

type stageRequest struct {
	// LineID is the flat chart line identifier, "order-<orderId>-<legType>".
	LineID string  `json:"line_id"`
	Price  float64 `json:"price"`
}

// Stage records a drag without committing it.
// POST /api/pending
func (h *PendingHandler) Stage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.engine.StageLegDragByLineID(req.LineID, req.Price); err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"staged": h.engine.PendingChanges(),
	})
}

// List returns the staged, uncommitted changes.
// GET /api/pending
func (h *PendingHandler) List(w http.ResponseWriter, r *http.Request) {
	staged := h.engine.PendingChanges()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"staged": staged,
		"count":  len(staged),
	})
}

// Apply commits every staged change, one validated write per order.
// POST /api/pending/apply
func (h *PendingHandler) Apply(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.ApplyPending(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CancelAll discards every staged change.
// DELETE /api/pending
func (h *PendingHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	reverts := h.engine.CancelPending()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reverts": reverts,
		"count":   len(reverts),
	})
}

// CancelOne discards the staged change for a single leg.
// DELETE /api/pending/{id}/{leg}
func (h *PendingHandler) CancelOne(w http.ResponseWriter, r *http.Request) {
	ref, ok := legRef(w, r)
	if !ok {
		return
	}

	revert, found := h.engine.CancelPendingOne(ref)
	if !found {
		respondError(w, http.StatusNotFound, "No staged change for leg")
		return
	}

	respondJSON(w, http.StatusOK, revert)
}

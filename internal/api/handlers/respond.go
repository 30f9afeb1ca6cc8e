package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonhee/bracket/internal/bracket"
	"github.com/wonhee/bracket/internal/engine"
	"github.com/wonhee/bracket/internal/persist"
	"github.com/wonhee/bracket/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondEngineError maps domain errors onto HTTP statuses. Validation
// rejections carry the leg that violated the price ordering so the UI
// can highlight it.
func respondEngineError(w http.ResponseWriter, err error) {
	if ve, ok := bracket.AsValidation(err); ok {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": ve.Result.Reason,
			"leg":   ve.Result.Leg,
		})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, persist.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bracket.ErrEntryLegImmutable),
		errors.Is(err, bracket.ErrOrderTerminal),
		errors.Is(err, bracket.ErrLegNotPresent),
		errors.Is(err, persist.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrApplyInProgress):
		respondError(w, http.StatusTooManyRequests, err.Error())
	case persist.IsRetryable(err):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusBadRequest, err.Error())
	}
}

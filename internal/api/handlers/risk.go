package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonhee/bracket/internal/risk"
	"github.com/wonhee/bracket/internal/riskconfig"
	"github.com/wonhee/bracket/pkg/logger"
)

// RiskHandler handles risk settings and position sizing endpoints.
type RiskHandler struct {
	settings *risk.SettingsStore
	presets  []riskconfig.Preset
	logger   *logger.Logger
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(settings *risk.SettingsStore, presets []riskconfig.Preset, log *logger.Logger) *RiskHandler {
	return &RiskHandler{
		settings: settings,
		presets:  presets,
		logger:   log,
	}
}

// GetSettings returns the current account risk settings.
// GET /api/risk/settings
func (h *RiskHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Get())
}

type updateSettingsRequest struct {
	TotalBalance   *float64 `json:"total_balance,omitempty"`
	DefaultRiskPct *float64 `json:"default_risk_pct,omitempty"`
}

// UpdateSettings updates balance and/or default risk percentage. Out of
// range values leave the stored setting unchanged.
// PUT /api/risk/settings
func (h *RiskHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	current := h.settings.Get()
	if req.TotalBalance != nil {
		current = h.settings.SetBalance(r.Context(), *req.TotalBalance)
	}
	if req.DefaultRiskPct != nil {
		current = h.settings.SetRiskPct(r.Context(), *req.DefaultRiskPct)
	}

	respondJSON(w, http.StatusOK, current)
}

// Presets returns the configured risk percentage presets.
// GET /api/risk/presets
func (h *RiskHandler) Presets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"presets": h.presets,
	})
}

type positionSizeRequest struct {
	EntryPrice      float64 `json:"entry_price"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	TakeProfitPrice float64 `json:"take_profit_price,omitempty"`
	RiskPct         float64 `json:"risk_pct,omitempty"`
}

// PositionSize sizes a position from the stored balance. Degenerate
// inputs produce zeros, never errors, matching the calculator's totality.
// POST /api/risk/position-size
func (h *RiskHandler) PositionSize(w http.ResponseWriter, r *http.Request) {
	var req positionSizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp := map[string]interface{}{
		"position_size": h.settings.PositionSize(req.EntryPrice, req.StopLossPrice, req.RiskPct),
		"risk_amount":   h.settings.RiskAmount(req.RiskPct),
	}
	if req.TakeProfitPrice > 0 {
		resp["reward_ratio"] = risk.RewardRatio(req.EntryPrice, req.StopLossPrice, req.TakeProfitPrice)
	}

	respondJSON(w, http.StatusOK, resp)
}

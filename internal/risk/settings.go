package risk

import (
	"context"
	"sync"

	"github.com/wonhee/bracket/pkg/logger"
	"github.com/wonhee/bracket/pkg/redis"
)

// Preset risk percentages exposed to the UI.
const (
	PresetConservative = 0.25
	PresetModerate     = 0.5
	PresetAggressive   = 1.0
)

// Settings holds a session's account-level risk preferences.
type Settings struct {
	TotalBalance   float64 `json:"total_balance"`
	DefaultRiskPct float64 `json:"default_risk_pct"`
}

const settingsKey = "risk:settings"

// SettingsStore owns the current risk settings and persists them across
// sessions through the cache when Redis is available.
type SettingsStore struct {
	mu       sync.RWMutex
	settings Settings
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewSettingsStore creates a settings store seeded with defaults, then
// overlays any persisted settings.
func NewSettingsStore(defaults Settings, cache *redis.Cache, log *logger.Logger) *SettingsStore {
	s := &SettingsStore{
		settings: defaults,
		cache:    cache,
		logger:   log,
	}

	if cache != nil {
		var persisted Settings
		found, err := cache.Get(context.Background(), settingsKey, &persisted)
		if err != nil {
			log.WithError(err).Warn("Failed to load persisted risk settings")
		} else if found && persisted.TotalBalance > 0 && persisted.DefaultRiskPct > 0 {
			s.settings = persisted
		}
	}

	return s
}

// Get returns the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetBalance updates the account balance. Non-positive values are ignored.
func (s *SettingsStore) SetBalance(ctx context.Context, balance float64) Settings {
	s.mu.Lock()
	if balance > 0 {
		s.settings.TotalBalance = balance
	}
	current := s.settings
	s.mu.Unlock()

	s.persist(ctx, current)
	return current
}

// SetRiskPct updates the default risk percentage. Values outside (0, 100]
// are ignored.
func (s *SettingsStore) SetRiskPct(ctx context.Context, pct float64) Settings {
	s.mu.Lock()
	if pct > 0 && pct <= 100 {
		s.settings.DefaultRiskPct = pct
	}
	current := s.settings
	s.mu.Unlock()

	s.persist(ctx, current)
	return current
}

// PositionSize sizes a position using the stored balance and, when
// riskPct is 0, the stored default percentage.
func (s *SettingsStore) PositionSize(entryPrice, stopLossPrice, riskPct float64) float64 {
	settings := s.Get()
	if riskPct <= 0 {
		riskPct = settings.DefaultRiskPct
	}
	return PositionSize(entryPrice, stopLossPrice, settings.TotalBalance, riskPct)
}

// RiskAmount returns the currency amount at risk for the stored balance.
func (s *SettingsStore) RiskAmount(riskPct float64) float64 {
	settings := s.Get()
	if riskPct <= 0 {
		riskPct = settings.DefaultRiskPct
	}
	return Amount(settings.TotalBalance, riskPct)
}

func (s *SettingsStore) persist(ctx context.Context, settings Settings) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, settingsKey, settings, 0); err != nil {
		s.logger.WithError(err).Warn("Failed to persist risk settings")
	}
}

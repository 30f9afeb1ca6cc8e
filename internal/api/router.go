package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonhee/bracket/internal/api/handlers"
	"github.com/wonhee/bracket/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(orders *handlers.OrderHandler, pendingH *handlers.PendingHandler, risk *handlers.RiskHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Order lifecycle
	api.HandleFunc("/orders", orders.List).Methods("GET")
	api.HandleFunc("/orders", orders.Create).Methods("POST")
	api.HandleFunc("/orders/reload", orders.Reload).Methods("POST")
	api.HandleFunc("/orders/{id}", orders.Get).Methods("GET")
	api.HandleFunc("/orders/{id}", orders.Cancel).Methods("DELETE")

	// Single-leg edits
	api.HandleFunc("/orders/{id}/legs/{leg}", orders.UpdateLeg).Methods("PUT")
	api.HandleFunc("/orders/{id}/legs/{leg}", orders.RemoveLeg).Methods("DELETE")

	// Chart line projection
	api.HandleFunc("/lines", orders.Lines).Methods("GET")

	// Staged drag batch
	api.HandleFunc("/pending", pendingH.Stage).Methods("POST")
	api.HandleFunc("/pending", pendingH.List).Methods("GET")
	api.HandleFunc("/pending", pendingH.CancelAll).Methods("DELETE")
	api.HandleFunc("/pending/apply", pendingH.Apply).Methods("POST")
	api.HandleFunc("/pending/{id}/{leg}", pendingH.CancelOne).Methods("DELETE")

	// Risk settings and calculator
	api.HandleFunc("/risk/settings", risk.GetSettings).Methods("GET")
	api.HandleFunc("/risk/settings", risk.UpdateSettings).Methods("PUT")
	api.HandleFunc("/risk/presets", risk.Presets).Methods("GET")
	api.HandleFunc("/risk/position-size", risk.PositionSize).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "bracket-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

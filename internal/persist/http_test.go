package persist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/pkg/httputil"
	"github.com/wonhee/bracket/pkg/logger"
)

func newGatewayClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := httputil.New(logger.NewNop()).DisableRetry()
	return NewHTTPClient(client, srv.URL, "test-key", logger.NewNop()), srv
}

func TestHTTPClient_Create(t *testing.T) {
	var gotAuth string
	gateway, _ := newGatewayClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPost || r.URL.Path != "/bracket-orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var draft contracts.BracketOrder
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			t.Fatalf("decode draft: %v", err)
		}

		draft.ID = "srv-1"
		draft.Status = contracts.StatusPending
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(draft)
	})

	created, err := gateway.Create(context.Background(), &contracts.BracketOrder{
		Symbol: "BTC-USDT", Side: contracts.SideBuy, Quantity: 1,
		EntryType: contracts.EntryLimit, EntryPrice: 45000,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "srv-1" {
		t.Errorf("ID = %q, want srv-1", created.ID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestHTTPClient_List(t *testing.T) {
	gateway, _ := newGatewayClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTC-USDT" {
			t.Errorf("symbol = %q", got)
		}
		json.NewEncoder(w).Encode([]*contracts.BracketOrder{
			{ID: "a"}, {ID: "b"},
		})
	})

	orders, err := gateway.List(context.Background(), "BTC-USDT")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("len = %d, want 2", len(orders))
	}
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		check     func(error) bool
		checkName string
	}{
		{"not found", http.StatusNotFound, func(err error) bool { return errors.Is(err, ErrNotFound) }, "ErrNotFound"},
		{"conflict", http.StatusConflict, func(err error) bool { return errors.Is(err, ErrConflict) }, "ErrConflict"},
		{"unprocessable", http.StatusUnprocessableEntity, func(err error) bool { return errors.Is(err, ErrConflict) }, "ErrConflict"},
		{"server error", http.StatusInternalServerError, IsRetryable, "retryable"},
		{"rate limited", http.StatusTooManyRequests, IsRetryable, "retryable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway, _ := newGatewayClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			err := gateway.Cancel(context.Background(), "x")
			if err == nil || !tt.check(err) {
				t.Errorf("err = %v, want %s", err, tt.checkName)
			}
		})
	}
}

func TestHTTPClient_Update(t *testing.T) {
	gateway, _ := newGatewayClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/bracket-orders/ord-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var patch contracts.OrderPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			t.Fatalf("decode patch: %v", err)
		}
		if patch.StopLossPrice == nil || *patch.StopLossPrice != 44500 {
			t.Errorf("unexpected patch %+v", patch)
		}

		json.NewEncoder(w).Encode(&contracts.BracketOrder{
			ID: "ord-1", StopLossPrice: 44500, Status: contracts.StatusActive,
		})
	})

	updated, err := gateway.Update(context.Background(), "ord-1",
		contracts.OrderPatch{StopLossPrice: contracts.Float64Ptr(44500)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.StopLossPrice != 44500 {
		t.Errorf("StopLossPrice = %v", updated.StopLossPrice)
	}
}

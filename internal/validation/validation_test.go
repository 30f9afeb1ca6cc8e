package validation

import (
	"math"
	"testing"

	"github.com/wonhee/bracket/internal/contracts"
)

func TestOrderPrices_Buy(t *testing.T) {
	tests := []struct {
		name    string
		entry   float64
		stop    float64
		tps     []float64
		valid   bool
		wantLeg contracts.LegType
	}{
		{
			name:  "full bracket ordered",
			entry: 45000, stop: 44000, tps: []float64{47000, 49000},
			valid: true,
		},
		{
			name:  "entry only",
			entry: 45000,
			valid: true,
		},
		{
			name:  "stop above entry",
			entry: 45000, stop: 46000,
			valid: false, wantLeg: contracts.LegStop,
		},
		{
			name:  "stop equal to entry",
			entry: 45000, stop: 45000,
			valid: false, wantLeg: contracts.LegStop,
		},
		{
			name:  "tp1 below entry",
			entry: 45000, tps: []float64{44000},
			valid: false, wantLeg: contracts.LegTP1,
		},
		{
			name:  "tp2 below tp1",
			entry: 45000, tps: []float64{47000, 46000},
			valid: false, wantLeg: contracts.LegTP2,
		},
		{
			name:  "tp2 equal to tp1",
			entry: 45000, tps: []float64{47000, 47000},
			valid: false, wantLeg: contracts.LegTP2,
		},
		{
			name:  "unset tp slots skipped",
			entry: 45000, stop: 44000, tps: []float64{0, 0},
			valid: true,
		},
		{
			name:  "tp2 set while tp1 unset",
			entry: 45000, tps: []float64{0, 47000},
			valid: true,
		},
		{
			name:  "zero entry",
			entry: 0,
			valid: false, wantLeg: contracts.LegEntry,
		},
		{
			name:  "negative entry",
			entry: -1,
			valid: false, wantLeg: contracts.LegEntry,
		},
		{
			name:  "nan entry",
			entry: math.NaN(),
			valid: false, wantLeg: contracts.LegEntry,
		},
		{
			name:  "inf entry",
			entry: math.Inf(1),
			valid: false, wantLeg: contracts.LegEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := OrderPrices(contracts.SideBuy, tt.entry, tt.stop, tt.tps)
			if res.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (reason: %s)", res.Valid, tt.valid, res.Reason)
			}
			if !tt.valid {
				if res.Leg != tt.wantLeg {
					t.Errorf("Leg = %q, want %q", res.Leg, tt.wantLeg)
				}
				if res.Reason == "" {
					t.Error("invalid result must carry a reason")
				}
			}
		})
	}
}

func TestOrderPrices_Sell(t *testing.T) {
	tests := []struct {
		name    string
		entry   float64
		stop    float64
		tps     []float64
		valid   bool
		wantLeg contracts.LegType
	}{
		{
			name:  "full bracket ordered",
			entry: 45000, stop: 46000, tps: []float64{43000, 42000},
			valid: true,
		},
		{
			name:  "stop below entry",
			entry: 45000, stop: 44000,
			valid: false, wantLeg: contracts.LegStop,
		},
		{
			name:  "tp1 above entry",
			entry: 45000, tps: []float64{46000},
			valid: false, wantLeg: contracts.LegTP1,
		},
		{
			name:  "tp2 above tp1",
			entry: 45000, tps: []float64{43000, 44000},
			valid: false, wantLeg: contracts.LegTP2,
		},
		{
			name:  "unset stop skipped",
			entry: 45000, tps: []float64{43000},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := OrderPrices(contracts.SideSell, tt.entry, tt.stop, tt.tps)
			if res.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (reason: %s)", res.Valid, tt.valid, res.Reason)
			}
			if !tt.valid && res.Leg != tt.wantLeg {
				t.Errorf("Leg = %q, want %q", res.Leg, tt.wantLeg)
			}
		})
	}
}

func TestLegUpdate(t *testing.T) {
	// Committed buy bracket: entry 45000, stop 44000, tps 47000/49000.
	entry, stop := 45000.0, 44000.0
	tps := []float64{47000, 49000}

	tests := []struct {
		name     string
		leg      contracts.LegType
		proposed float64
		valid    bool
	}{
		{"drag stop up but below entry", contracts.LegStop, 44500, true},
		{"drag stop above entry", contracts.LegStop, 45500, false},
		{"drag entry below stop", contracts.LegEntry, 43000, false},
		{"drag entry between stop and tp1", contracts.LegEntry, 46000, true},
		{"drag tp1 above tp2", contracts.LegTP1, 49500, false},
		{"drag tp2 below tp1", contracts.LegTP2, 46500, false},
		{"drag tp2 higher", contracts.LegTP2, 50000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := LegUpdate(contracts.SideBuy, tt.leg, tt.proposed, entry, stop, tps)
			if res.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (reason: %s)", res.Valid, tt.valid, res.Reason)
			}
		})
	}
}

func TestLegUpdate_DoesNotMutateInput(t *testing.T) {
	tps := []float64{47000, 49000}
	LegUpdate(contracts.SideBuy, contracts.LegTP1, 48000, 45000, 44000, tps)

	if tps[0] != 47000 {
		t.Errorf("input slice mutated: tps[0] = %v", tps[0])
	}
}

func TestLegUpdate_UnknownLeg(t *testing.T) {
	res := LegUpdate(contracts.SideBuy, contracts.LegType("bogus"), 1, 45000, 0, nil)
	if res.Valid {
		t.Error("unknown leg must be rejected")
	}
}

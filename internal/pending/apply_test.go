package pending

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/persist"
	"github.com/wonhee/bracket/internal/store"
	"github.com/wonhee/bracket/pkg/logger"
)

type applyFixture struct {
	store  *store.Store
	fake   *persist.Fake
	buffer *Buffer
}

func newApplyFixture(t *testing.T) *applyFixture {
	t.Helper()
	st := store.New()
	fake := persist.NewFake()
	return &applyFixture{
		store:  st,
		fake:   fake,
		buffer: New(st, fake, logger.NewNop()),
	}
}

// seedOrder creates a buy bracket at the fake server and mirrors it into
// the session store, returning the server id.
func (f *applyFixture) seedOrder(t *testing.T) string {
	t.Helper()
	draft := &contracts.BracketOrder{
		Symbol:        "BTC-USDT",
		Side:          contracts.SideBuy,
		Quantity:      1,
		EntryType:     contracts.EntryLimit,
		EntryPrice:    45000,
		StopLossPrice: 44000,
		TakeProfitLevels: []contracts.TakeProfitLevel{
			{Price: 47000, Quantity: 0.5},
			{Price: 49000, Quantity: 0.5},
		},
	}
	created, err := f.fake.Create(context.Background(), draft)
	require.NoError(t, err)
	f.store.Add(created)
	return created.ID
}

func TestApplyAll_Empty(t *testing.T) {
	f := newApplyFixture(t)

	result := f.buffer.ApplyAll(context.Background())
	assert.Equal(t, BatchEmpty, result.Status)
	assert.Empty(t, result.Outcomes)
}

func TestApplyAll_SingleOrder(t *testing.T) {
	f := newApplyFixture(t)
	id := f.seedOrder(t)

	f.buffer.Stage(contracts.LegRef{OrderID: id, LegType: contracts.LegStop}, 44000, 44500)
	f.buffer.Stage(contracts.LegRef{OrderID: id, LegType: contracts.LegTP1}, 47000, 47500)

	result := f.buffer.ApplyAll(context.Background())
	require.Equal(t, BatchApplied, result.Status)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, OutcomeApplied, result.Outcomes[0].Status)

	// The server echo landed in the store.
	got, err := f.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 44500.0, got.StopLossPrice)
	assert.Equal(t, 47500.0, got.TakeProfitLevels[0].Price)
	assert.Equal(t, 49000.0, got.TakeProfitLevels[1].Price)

	// Buffer drained.
	assert.Zero(t, f.buffer.Len())
}

func TestApplyAll_GroupValidatedAsWhole(t *testing.T) {
	f := newApplyFixture(t)
	id := f.seedOrder(t)

	// Each drag passes against committed state on its own: tp1 48500 stays
	// under the committed tp2 49000, tp2 48000 stays above the committed
	// tp1 47000. Composed they cross, so the group must be rejected.
	f.buffer.Stage(contracts.LegRef{OrderID: id, LegType: contracts.LegTP1}, 47000, 48500)
	f.buffer.Stage(contracts.LegRef{OrderID: id, LegType: contracts.LegTP2}, 49000, 48000)

	result := f.buffer.ApplyAll(context.Background())
	require.Equal(t, BatchFailed, result.Status)
	require.Len(t, result.Outcomes, 1)

	out := result.Outcomes[0]
	assert.Equal(t, OutcomeInvalid, out.Status)
	assert.NotEmpty(t, out.Reason)
	assert.Len(t, out.Reverts, 2)

	// Committed state untouched.
	got, _ := f.store.Get(id)
	assert.Equal(t, 47000.0, got.TakeProfitLevels[0].Price)
	assert.Equal(t, 49000.0, got.TakeProfitLevels[1].Price)
}

func TestApplyAll_PartialSuccess(t *testing.T) {
	f := newApplyFixture(t)
	goodID := f.seedOrder(t)
	badID := f.seedOrder(t)

	f.buffer.Stage(contracts.LegRef{OrderID: goodID, LegType: contracts.LegStop}, 44000, 44500)
	// Stop above entry: invalid for a buy.
	f.buffer.Stage(contracts.LegRef{OrderID: badID, LegType: contracts.LegStop}, 44000, 46000)

	result := f.buffer.ApplyAll(context.Background())
	require.Equal(t, BatchPartial, result.Status)
	require.Len(t, result.Outcomes, 2)

	byID := make(map[string]OrderOutcome)
	for _, out := range result.Outcomes {
		byID[out.OrderID] = out
	}

	assert.Equal(t, OutcomeApplied, byID[goodID].Status)
	assert.Equal(t, OutcomeInvalid, byID[badID].Status)
	require.Len(t, byID[badID].Reverts, 1)
	assert.Equal(t, 44000.0, byID[badID].Reverts[0].Price)

	// The good order committed despite its neighbor failing.
	good, _ := f.store.Get(goodID)
	assert.Equal(t, 44500.0, good.StopLossPrice)
	bad, _ := f.store.Get(badID)
	assert.Equal(t, 44000.0, bad.StopLossPrice)
}

func TestApplyAll_PersistFailure(t *testing.T) {
	f := newApplyFixture(t)
	id := f.seedOrder(t)

	f.buffer.Stage(contracts.LegRef{OrderID: id, LegType: contracts.LegStop}, 44000, 44500)
	f.fake.FailNext(&persist.RetryableError{Err: errors.New("gateway timeout")})

	result := f.buffer.ApplyAll(context.Background())
	require.Equal(t, BatchFailed, result.Status)

	out := result.Outcomes[0]
	assert.Equal(t, OutcomePersistFailed, out.Status)
	assert.True(t, out.Retryable)
	assert.Len(t, out.Reverts, 1)

	// Local committed price untouched on write failure.
	got, _ := f.store.Get(id)
	assert.Equal(t, 44000.0, got.StopLossPrice)
}

func TestApplyAll_UnknownOrder(t *testing.T) {
	f := newApplyFixture(t)

	f.buffer.Stage(contracts.LegRef{OrderID: "ghost", LegType: contracts.LegStop}, 44000, 44500)

	result := f.buffer.ApplyAll(context.Background())
	require.Equal(t, BatchFailed, result.Status)
	assert.Equal(t, OutcomeInvalid, result.Outcomes[0].Status)
}

func TestApplyAll_DrainsBufferOnFailure(t *testing.T) {
	f := newApplyFixture(t)
	id := f.seedOrder(t)

	f.buffer.Stage(contracts.LegRef{OrderID: id, LegType: contracts.LegStop}, 44000, 46000)

	f.buffer.ApplyAll(context.Background())
	assert.Zero(t, f.buffer.Len(), "failed groups must not linger staged")
}

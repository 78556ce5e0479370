package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"gorollupbridge/config"
	"gorollupbridge/storage"
	"gorollupbridge/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, store storage.Store) *Ledger {
	t.Helper()
	l, err := New(context.Background(), store, nil)
	require.NoError(t, err)
	return l
}

func tx(id string, typ types.TxType) types.Transaction {
	v := "0.1"
	return types.Transaction{
		Type:          typ,
		TxID:          id,
		Value:         &v,
		AssetName:     "ETH",
		AssetType:     types.AssetNative,
		Sender:        "0x26c7c4473fefe6e9662f2ccfd9501d47c0fbce8b",
		SourceChainID: 1,
	}
}

func TestAppendDefaultsAndPersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	l := newLedger(t, store)

	require.NoError(t, l.Append(ctx, tx("0x01", types.TxSourceDeposit)))

	got, ok := l.Get("0x01")
	require.True(t, ok)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Equal(t, types.PhaseObserved, got.Phase)
	assert.NotZero(t, got.TimestampCreated)

	raw, found, err := store.Get(ctx, config.KEY_TRANSACTIONS)
	require.NoError(t, err)
	require.True(t, found)
	var persisted []types.Transaction
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, "0x01", persisted[0].TxID)
}

func TestAppendDuplicateIsNoop(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	l := newLedger(t, store)

	require.NoError(t, l.Append(ctx, tx("0x01", types.TxWithdraw)))
	writes := store.Writes()

	err := l.Append(ctx, tx("0x01", types.TxWithdraw))
	assert.ErrorIs(t, err, ErrDuplicateTx)
	assert.Len(t, l.List(), 1)
	assert.Equal(t, writes, store.Writes())
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, storage.NewMemory())
	require.NoError(t, l.Append(ctx, tx("0x01", types.TxOutboxClaim)))

	assert.ErrorIs(t, l.SetStatus(ctx, "0xmissing", types.StatusSuccess), ErrUnknownTx)

	require.NoError(t, l.SetStatus(ctx, "0x01", types.StatusSuccess))
	got, _ := l.Get("0x01")
	require.NotNil(t, got.TimestampResolved)

	assert.ErrorIs(t, l.SetStatus(ctx, "0x01", types.StatusPending), ErrInvalidTransition)
	require.NoError(t, l.SetStatus(ctx, "0x01", types.StatusConfirmed))
	assert.ErrorIs(t, l.SetStatus(ctx, "0x01", types.StatusFailure), ErrInvalidTransition)

	got, _ = l.Get("0x01")
	assert.Equal(t, types.StatusConfirmed, got.Status)
}

func TestTimedOutIsNotTerminal(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, storage.NewMemory())
	require.NoError(t, l.Append(ctx, tx("0x02", types.TxDestinationDeposit)))

	require.NoError(t, l.SetStatus(ctx, "0x02", types.StatusTimedOut))
	got, _ := l.Get("0x02")
	assert.Nil(t, got.TimestampResolved)

	require.NoError(t, l.SetStatus(ctx, "0x02", types.StatusSuccess))
	got, _ = l.Get("0x02")
	assert.Equal(t, types.StatusSuccess, got.Status)
}

func TestObserve(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, storage.NewMemory())
	dest := tx("0x03", types.TxDestinationDeposit)
	dest.Phase = types.PhaseAnnounced
	require.NoError(t, l.Append(ctx, dest))

	require.NoError(t, l.Observe(ctx, "0x03", 1234))
	got, _ := l.Get("0x03")
	assert.Equal(t, types.PhaseObserved, got.Phase)
	require.NotNil(t, got.BlockNumber)
	assert.Equal(t, uint64(1234), *got.BlockNumber)
}

func TestRemoveAndReplace(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, storage.NewMemory())
	require.NoError(t, l.Append(ctx, tx("0x01", types.TxSourceDeposit)))
	require.NoError(t, l.Append(ctx, tx("0x02", types.TxDestinationDeposit)))
	require.NoError(t, l.Append(ctx, tx("0x03", types.TxApprove)))

	failed := tx("0x02", types.TxDestinationDepositAutoRedeem)
	failed.Status = types.StatusFailure
	require.NoError(t, l.Replace(ctx, "0x02", failed))

	// the replacement keeps its place in insertion order
	list := l.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"0x01", "0x02", "0x03"}, []string{list[0].TxID, list[1].TxID, list[2].TxID})
	assert.Equal(t, types.TxDestinationDepositAutoRedeem, list[1].Type)
	assert.Equal(t, types.StatusFailure, list[1].Status)
	assert.NotNil(t, list[1].TimestampResolved)

	reloaded := newLedger(t, l.store)
	assert.Equal(t, "0x02", reloaded.List()[1].TxID)

	assert.ErrorIs(t, l.Replace(ctx, "0x01", tx("0x03", types.TxApprove)), ErrDuplicateTx)
	assert.Len(t, l.List(), 3)

	require.NoError(t, l.Remove(ctx, "0x01"))
	assert.ErrorIs(t, l.Remove(ctx, "0x01"), ErrUnknownTx)
	_, ok := l.Get("0x03")
	assert.True(t, ok)
}

func TestClearPending(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, storage.NewMemory())
	require.NoError(t, l.Append(ctx, tx("0x01", types.TxSourceDeposit)))
	require.NoError(t, l.Append(ctx, tx("0x02", types.TxDestinationDeposit)))
	require.NoError(t, l.Append(ctx, tx("0x03", types.TxWithdraw)))
	require.NoError(t, l.SetStatus(ctx, "0x01", types.StatusSuccess))
	require.NoError(t, l.SetStatus(ctx, "0x02", types.StatusTimedOut))

	removed, err := l.ClearPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list := l.List()
	require.Len(t, list, 1)
	assert.Equal(t, "0x01", list[0].TxID)
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	l := newLedger(t, store)
	require.NoError(t, l.Append(ctx, tx("0x01", types.TxSourceDeposit)))
	require.NoError(t, l.SetStatus(ctx, "0x01", types.StatusSuccess))
	require.NoError(t, l.Append(ctx, tx("0x02", types.TxDestinationDeposit)))

	reloaded := newLedger(t, store)
	assert.Equal(t, l.List(), reloaded.List())
	assert.ErrorIs(t, reloaded.Append(ctx, tx("0x02", types.TxDestinationDeposit)), ErrDuplicateTx)
}

func TestCorruptStorage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, config.KEY_TRANSACTIONS, []byte("{not json")))

	_, err := New(ctx, store, nil)
	assert.Error(t, err)
}

// random operation sequences never produce duplicate ids or backward moves
func TestLedgerProperties(t *testing.T) {
	ctx := context.Background()
	statuses := []types.TxStatus{
		types.StatusPending, types.StatusTimedOut, types.StatusSuccess,
		types.StatusFailure, types.StatusConfirmed,
	}
	rank := map[types.TxStatus]int{
		types.StatusPending: 0, types.StatusTimedOut: 1,
		types.StatusSuccess: 2, types.StatusFailure: 2, types.StatusConfirmed: 3,
	}

	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		l := newLedger(t, storage.NewMemory())
		last := map[string]types.TxStatus{}

		for step := 0; step < 300; step++ {
			id := fmt.Sprintf("0x%02x", rng.Intn(12))
			switch rng.Intn(4) {
			case 0:
				_ = l.Append(ctx, tx(id, types.TxWithdraw))
			case 1, 2:
				_ = l.SetStatus(ctx, id, statuses[rng.Intn(len(statuses))])
			case 3:
				if rng.Intn(5) == 0 {
					if l.Remove(ctx, id) == nil {
						delete(last, id)
					}
				}
			}

			seen := map[string]bool{}
			for _, rec := range l.List() {
				require.False(t, seen[rec.TxID], "duplicate txID %s (seed %d)", rec.TxID, seed)
				seen[rec.TxID] = true

				if prev, ok := last[rec.TxID]; ok {
					require.GreaterOrEqual(t, rank[rec.Status], rank[prev],
						"%s moved %s -> %s (seed %d)", rec.TxID, prev, rec.Status, seed)
					if prev == types.StatusFailure || prev == types.StatusConfirmed {
						require.Equal(t, prev, rec.Status)
					}
				}
				last[rec.TxID] = rec.Status
			}
		}
	}
}

func TestConcurrentMutationsAreDurable(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	l := newLedger(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(ctx, tx(fmt.Sprintf("0x%03d", i), types.TxApprove)))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Writes(), 40)
	reloaded := newLedger(t, store)
	assert.Len(t, reloaded.List(), 40)
}

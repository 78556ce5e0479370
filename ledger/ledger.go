package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorollupbridge/config"
	"gorollupbridge/logging"
	"gorollupbridge/storage"
	"gorollupbridge/types"

	"go.uber.org/zap"
)

var (
	ErrDuplicateTx       = errors.New("ledger: transaction already present")
	ErrUnknownTx         = errors.New("ledger: transaction not found")
	ErrInvalidTransition = errors.New("ledger: invalid status transition")
)

// Ledger is the ordered list of bridge transactions. Every mutation is written
// to the store as a whole JSON array before the call returns.
type Ledger struct {
	store storage.Store
	log   *zap.SugaredLogger
	now   func() time.Time

	mu      sync.RWMutex
	txs     []types.Transaction
	index   map[string]int
	version uint64

	// flushes are serialized, a flush writes the newest snapshot so
	// mutations queued behind it are already durable when they get the lock
	flushMu sync.Mutex
	flushed uint64
}

// New rehydrates the ledger from the store.
func New(ctx context.Context, store storage.Store, log *zap.SugaredLogger) (*Ledger, error) {
	l := &Ledger{
		store: store,
		log:   logging.OrNop(log),
		now:   time.Now,
		index: make(map[string]int),
	}

	raw, found, err := store.Get(ctx, config.KEY_TRANSACTIONS)
	if err != nil {
		return nil, fmt.Errorf("cannot load transactions: %w", err)
	}
	if found && len(raw) > 0 {
		if err := json.Unmarshal(raw, &l.txs); err != nil {
			return nil, fmt.Errorf("cannot unmarshal transactions: %w", err)
		}
	}
	l.reindex()
	l.log.Infof("Loaded %d bridge transactions", len(l.txs))

	return l, nil
}

func (l *Ledger) reindex() {
	l.index = make(map[string]int, len(l.txs))
	for i, tx := range l.txs {
		l.index[tx.TxID] = i
	}
}

// Append adds a new record. Status defaults to pending and creation time to now.
func (l *Ledger) Append(ctx context.Context, tx types.Transaction) error {
	l.mu.Lock()
	if _, ok := l.index[tx.TxID]; ok {
		l.mu.Unlock()
		l.log.Warnf("Transaction %s already in ledger, ignoring append", tx.TxID)
		return ErrDuplicateTx
	}
	if tx.Status == "" {
		tx.Status = types.StatusPending
	}
	if tx.Phase == "" {
		tx.Phase = types.PhaseObserved
	}
	if tx.TimestampCreated == 0 {
		tx.TimestampCreated = l.now().UnixMilli()
	}
	l.txs = append(l.txs, tx.Clone())
	l.index[tx.TxID] = len(l.txs) - 1
	v := l.bump()
	l.mu.Unlock()

	return l.commit(ctx, v)
}

// SetStatus moves a record forward. Unknown ids and backward moves are
// logged and reported, the ledger is left untouched.
func (l *Ledger) SetStatus(ctx context.Context, txID string, status types.TxStatus) error {
	l.mu.Lock()
	i, ok := l.index[txID]
	if !ok {
		l.mu.Unlock()
		l.log.Warnf("Cannot set status %s: transaction %s not in ledger", status, txID)
		return ErrUnknownTx
	}
	current := l.txs[i].Status
	if current == status {
		l.mu.Unlock()
		return nil
	}
	if !current.CanMoveTo(status) {
		l.mu.Unlock()
		l.log.Warnf("Rejected status change of %s from %s to %s", txID, current, status)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	l.txs[i].Status = status
	if status.Terminal() {
		ts := l.now().UnixMilli()
		l.txs[i].TimestampResolved = &ts
	}
	v := l.bump()
	l.mu.Unlock()

	return l.commit(ctx, v)
}

// Observe marks an announced (derived) hash as seen on chain.
func (l *Ledger) Observe(ctx context.Context, txID string, blockNumber uint64) error {
	l.mu.Lock()
	i, ok := l.index[txID]
	if !ok {
		l.mu.Unlock()
		l.log.Warnf("Cannot observe transaction %s: not in ledger", txID)
		return ErrUnknownTx
	}
	l.txs[i].Phase = types.PhaseObserved
	if blockNumber > 0 {
		l.txs[i].BlockNumber = &blockNumber
	}
	v := l.bump()
	l.mu.Unlock()

	return l.commit(ctx, v)
}

// Remove deletes a record, only used when a destination leg is proven dead.
func (l *Ledger) Remove(ctx context.Context, txID string) error {
	l.mu.Lock()
	if !l.removeLocked(txID) {
		l.mu.Unlock()
		l.log.Warnf("Cannot remove transaction %s: not in ledger", txID)
		return ErrUnknownTx
	}
	v := l.bump()
	l.mu.Unlock()

	return l.commit(ctx, v)
}

// Replace swaps the record oldTxID for tx at the same position in a single write.
func (l *Ledger) Replace(ctx context.Context, oldTxID string, tx types.Transaction) error {
	l.mu.Lock()
	if _, ok := l.index[tx.TxID]; ok && tx.TxID != oldTxID {
		l.mu.Unlock()
		return ErrDuplicateTx
	}
	i, ok := l.index[oldTxID]
	if !ok {
		l.mu.Unlock()
		l.log.Warnf("Cannot replace transaction %s: not in ledger", oldTxID)
		return ErrUnknownTx
	}
	if tx.TimestampCreated == 0 {
		tx.TimestampCreated = l.now().UnixMilli()
	}
	if tx.Status.Terminal() && tx.TimestampResolved == nil {
		ts := l.now().UnixMilli()
		tx.TimestampResolved = &ts
	}
	l.txs[i] = tx.Clone()
	delete(l.index, oldTxID)
	l.index[tx.TxID] = i
	v := l.bump()
	l.mu.Unlock()

	return l.commit(ctx, v)
}

// ClearPending drops every record that has not resolved yet (manual reset).
func (l *Ledger) ClearPending(ctx context.Context) (int, error) {
	l.mu.Lock()
	kept := make([]types.Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if tx.Status == types.StatusPending || tx.Status == types.StatusTimedOut {
			continue
		}
		kept = append(kept, tx)
	}
	removed := len(l.txs) - len(kept)
	if removed == 0 {
		l.mu.Unlock()
		return 0, nil
	}
	l.txs = kept
	l.reindex()
	v := l.bump()
	l.mu.Unlock()

	return removed, l.commit(ctx, v)
}

func (l *Ledger) removeLocked(txID string) bool {
	i, ok := l.index[txID]
	if !ok {
		return false
	}
	l.txs = append(l.txs[:i:i], l.txs[i+1:]...)
	l.reindex()
	return true
}

// List returns a copy of all records in insertion order.
func (l *Ledger) List() []types.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.Transaction, len(l.txs))
	for i, tx := range l.txs {
		out[i] = tx.Clone()
	}
	return out
}

func (l *Ledger) Get(txID string) (types.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[txID]
	if !ok {
		return types.Transaction{}, false
	}
	return l.txs[i].Clone(), true
}

func (l *Ledger) bump() uint64 {
	l.version++
	return l.version
}

// commit returns once version v (or a newer one) is in the store.
func (l *Ledger) commit(ctx context.Context, v uint64) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	if l.flushed >= v {
		return nil
	}

	l.mu.RLock()
	version := l.version
	data, err := json.Marshal(l.txs)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("cannot marshal transactions to JSON: %w", err)
	}

	if err := l.store.Set(ctx, config.KEY_TRANSACTIONS, data); err != nil {
		l.log.Errorf("Error persisting transactions (%d bytes): %s", len(data), err.Error())
		return fmt.Errorf("cannot persist transactions: %w", err)
	}
	l.flushed = version
	return nil
}

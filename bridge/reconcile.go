package bridge

import (
	"context"
	"fmt"
	"sync"

	"gorollupbridge/events"
	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// parallel state queries during rebuild and refresh
const stateQueryLimit = 8

// Reconcile resumes watching deposit legs left unresolved by a previous
// session and rebuilds the pending withdrawal registry from chain history.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	o.resumeDestinations()
	return o.RebuildWithdrawals(ctx)
}

// RebuildWithdrawals merges the account's withdrawals found on chain that are
// not executed yet into the registry. Withdrawals registered while the scan
// runs are kept. On error the registry is left as it was.
func (o *Orchestrator) RebuildWithdrawals(ctx context.Context) error {
	base := o.registry.Snapshot()
	msgs, err := o.chain.WithdrawalHistory(ctx, o.chain.Account())
	if err != nil {
		o.log.Errorf("Error scanning withdrawal history: %s", err.Error())
		return fmt.Errorf("withdrawal history: %w", err)
	}

	var (
		mu      sync.Mutex
		entries = make([]types.PendingWithdrawal, 0, len(msgs))
		cached  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stateQueryLimit)
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			if o.cache.Has(msg.ID) {
				mu.Lock()
				cached++
				mu.Unlock()
				return nil
			}
			state, err := o.chain.QueryOutgoingMessageState(gctx, msg)
			if err != nil {
				o.log.Errorf("Error querying state of %s: %s", msg.ID, err.Error())
				state = types.MessageUnconfirmed
			}
			if state == types.MessageExecuted {
				return nil
			}
			mu.Lock()
			entries = append(entries, types.NewPendingWithdrawal(msg, state))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	added := o.registry.Rebuild(base, entries)
	o.log.Infof("Rebuilt pending withdrawals: %d found, %d pending, %d new, %d known executed", len(msgs), len(entries), len(added), cached)
	for _, pw := range added {
		pw := pw
		o.bus.Publish(events.Event{Kind: events.WithdrawalRegistered, Withdrawal: &pw})
	}
	return nil
}

// resumeDestinations restarts the child chain watch for destination legs that
// were still pending or timed out when the last session ended.
func (o *Orchestrator) resumeDestinations() {
	for _, tx := range o.ledger.List() {
		if tx.Type != types.TxDestinationDeposit {
			continue
		}
		if tx.Status != types.StatusPending && tx.Status != types.StatusTimedOut {
			continue
		}
		txID := tx.TxID
		o.log.Infof("Resuming watch of deposit leg %s", txID)
		o.track(common.HexToHash(txID), func(ctx context.Context) error {
			return o.watchDestination(ctx, txID, nil)
		})
	}
}

// RefreshWithdrawals polls the state of every registered withdrawal.
// Entries found executed are dropped from the registry.
func (o *Orchestrator) RefreshWithdrawals(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stateQueryLimit)
	for _, pw := range o.registry.List() {
		pw := pw
		if pw.State == types.MessageExecuted {
			o.dropExecuted(pw)
			continue
		}
		g.Go(func() error {
			state, err := o.messageState(gctx, pw.Message)
			if err != nil {
				o.log.Warnf("Error refreshing state of %s: %s", pw.Message.ID, err.Error())
				return nil
			}
			next, ok := o.registry.SetState(pw.UniqueID, state)
			if !ok || next == pw.State {
				return nil
			}
			pw.State = next
			if next == types.MessageExecuted {
				o.dropExecuted(pw)
				return nil
			}
			o.bus.Publish(events.Event{Kind: events.WithdrawalUpdated, Withdrawal: &pw})
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) dropExecuted(pw types.PendingWithdrawal) {
	if !o.registry.Remove(pw.UniqueID) {
		return
	}
	pw.State = types.MessageExecuted
	o.log.Infof("Withdrawal %s already executed, removed from pending", pw.UniqueID)
	o.bus.Publish(events.Event{Kind: events.WithdrawalUpdated, Withdrawal: &pw})
}

package bridge

import (
	"context"
	"fmt"

	"gorollupbridge/events"
	"gorollupbridge/types"
)

// Claim executes a pending withdrawal's outgoing message on the parent chain.
// Unknown ids fail before any chain call.
func (o *Orchestrator) Claim(ctx context.Context, uniqueID string) (*Transfer, error) {
	pw, ok := o.registry.Get(uniqueID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWithdrawalNotFound, uniqueID)
	}
	if !o.startClaim(uniqueID) {
		return nil, fmt.Errorf("%w: %s", ErrClaimInProgress, uniqueID)
	}

	sub, err := o.chain.SubmitClaim(ctx, pw.Message)
	if err != nil {
		o.endClaim(uniqueID)
		o.log.Errorf("Error submitting claim of %s: %s", pw.Message.ID, err.Error())
		return nil, fmt.Errorf("claim submission: %w", err)
	}
	o.log.Infof("Submitted claim %s for %s", sub.Hash.Hex(), pw.Message.ID)

	asset, value := o.claimAsset(pw)
	rec := o.newRecord(types.TxOutboxClaim, sub.Hash, value, asset, o.chain.ParentChainID())
	o.appendRecord(ctx, rec)

	return o.track(sub.Hash, func(ctx context.Context) error {
		defer o.endClaim(uniqueID)
		return o.trackClaim(ctx, rec.TxID, pw, sub)
	}), nil
}

// claimAsset gives the asset and decimal value recorded for a claim. A token
// that is not configured keeps its address as symbol and its raw base units.
func (o *Orchestrator) claimAsset(pw types.PendingWithdrawal) (Asset, string) {
	if pw.TokenAddress == nil {
		asset := NativeAsset("ETH")
		return asset, FormatAmount(pw.Message.Value, asset.Decimals)
	}
	if o.tokens != nil {
		if asset, ok := o.tokens(*pw.TokenAddress); ok {
			return asset, FormatAmount(pw.Message.Value, asset.Decimals)
		}
	}
	o.log.Warnf("Token %s of withdrawal %s is not configured, recording raw value", pw.TokenAddress.Hex(), pw.UniqueID)
	return Asset{Type: pw.Type, Symbol: pw.TokenAddress.Hex(), ParentAddress: pw.TokenAddress}, pw.Value
}

func (o *Orchestrator) trackClaim(ctx context.Context, txID string, pw types.PendingWithdrawal, sub Submission) error {
	if _, err := o.awaitSource(ctx, txID, sub, types.StatusConfirmed); err != nil {
		// entry stays in the registry so the claim can be retried
		return err
	}

	o.registry.Remove(pw.UniqueID)
	if err := o.cache.MarkExecuted(ctx, pw.Message.ID); err != nil {
		o.log.Errorf("Claim %s confirmed but %s not cached: %s", txID, pw.Message.ID, err.Error())
	}

	claimed := pw
	claimed.State = types.MessageExecuted
	o.bus.Publish(events.Event{Kind: events.WithdrawalClaimed, Withdrawal: &claimed, TxID: txID})
	o.log.Infof("Withdrawal %s claimed in %s", pw.UniqueID, txID)
	return nil
}

func (o *Orchestrator) startClaim(uniqueID string) bool {
	o.claimMu.Lock()
	defer o.claimMu.Unlock()
	if o.claiming[uniqueID] {
		return false
	}
	o.claiming[uniqueID] = true
	return true
}

func (o *Orchestrator) endClaim(uniqueID string) {
	o.claimMu.Lock()
	defer o.claimMu.Unlock()
	delete(o.claiming, uniqueID)
}

package bridge

import (
	"context"
	"errors"
	"fmt"

	"gorollupbridge/events"
	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type DepositRequest struct {
	Asset  Asset
	Amount string // decimal, in whole units of the asset
}

// Deposit submits the parent chain deposit and returns once it has a hash.
// Submission errors come back directly and leave no ledger record; everything
// after that is reported through Transfer.Wait and the ledger.
func (o *Orchestrator) Deposit(ctx context.Context, req DepositRequest) (*Transfer, error) {
	amount, err := ParseAmount(req.Amount, req.Asset.Decimals)
	if err != nil {
		return nil, err
	}

	sub, err := o.chain.SubmitDeposit(ctx, req.Asset, amount)
	if err != nil {
		o.log.Errorf("Error submitting %s %s deposit: %s", req.Amount, req.Asset.Symbol, err.Error())
		return nil, fmt.Errorf("deposit submission: %w", err)
	}
	o.log.Infof("Submitted %s %s deposit %s", req.Amount, req.Asset.Symbol, sub.Hash.Hex())

	source := o.newRecord(types.TxSourceDeposit, sub.Hash, req.Amount, req.Asset, o.chain.ParentChainID())
	o.appendRecord(ctx, source)

	return o.track(sub.Hash, func(ctx context.Context) error {
		return o.trackDeposit(ctx, req, source, sub)
	}), nil
}

func (o *Orchestrator) trackDeposit(ctx context.Context, req DepositRequest, source types.Transaction, sub Submission) error {
	receipt, err := o.awaitSource(ctx, source.TxID, sub, types.StatusSuccess)
	if err != nil {
		// no destination leg for a failed source
		return err
	}

	hashes, err := o.chain.DeriveDestinationHashes(receipt)
	if err != nil {
		o.log.Errorf("Cannot derive destination hash of deposit %s: %s", source.TxID, err.Error())
		// the leg cannot be watched, record it failed under a placeholder id
		dest := o.newRecord(types.TxDestinationDeposit, underivableHash(sub.Hash), req.Amount, req.Asset, o.chain.ChildChainID())
		dest.Phase = types.PhaseAnnounced
		dest.ParentTxID = source.TxID
		o.appendRecord(ctx, dest)
		o.setStatus(ctx, dest.TxID, types.StatusFailure)
		return fmt.Errorf("%w: deriving destination hash of %s: %w", ErrDestinationFailed, source.TxID, err)
	}

	dest := o.newRecord(types.TxDestinationDeposit, hashes.Primary, req.Amount, req.Asset, o.chain.ChildChainID())
	dest.Phase = types.PhaseAnnounced
	dest.ParentTxID = source.TxID
	o.appendRecord(ctx, dest)
	o.log.Infof("Watching child chain for %s (deposit %s)", dest.TxID, source.TxID)

	return o.watchDestination(ctx, dest.TxID, hashes.AutoRedeem)
}

// watchDestination waits for the destination leg and resolves it. On timeout
// the record is marked timed-out, which is not terminal. A ticket whose
// auto-redeem does not show up in time stays pending but observed.
func (o *Orchestrator) watchDestination(ctx context.Context, txID string, autoRedeem *common.Hash) error {
	receipt, err := o.awaitDestination(ctx, txID, common.HexToHash(txID))
	if err != nil {
		return err
	}

	o.observe(ctx, txID, receipt)
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		o.setStatus(ctx, txID, types.StatusFailure)
		return fmt.Errorf("%w: %s", ErrDestinationFailed, txID)
	}

	if autoRedeem != nil {
		redeem, err := o.chain.AwaitDestinationInclusion(ctx, *autoRedeem, o.timeout)
		if errors.Is(err, ErrInclusionTimeout) {
			// the ticket itself is included, only the redeem outcome is unknown
			o.log.Warnf("Auto-redeem %s of ticket %s not seen after %s, ticket may need a manual redeem", autoRedeem.Hex(), txID, o.timeout)
			return fmt.Errorf("%w: auto-redeem %s", ErrDestinationTimeout, autoRedeem.Hex())
		}
		if err != nil {
			o.log.Errorf("Error waiting for auto-redeem %s on child chain: %s", autoRedeem.Hex(), err.Error())
			return fmt.Errorf("waiting for auto-redeem %s on child chain: %w", autoRedeem.Hex(), err)
		}
		if redeem.Status != ethtypes.ReceiptStatusSuccessful {
			return o.failAutoRedeem(ctx, txID, autoRedeem.Hex())
		}
	}

	o.setStatus(ctx, txID, types.StatusSuccess)
	o.log.Infof("Deposit leg %s included on child chain", txID)
	return nil
}

// underivableHash stands in for the destination hash of a deposit whose
// retryable ticket could not be derived from the source receipt.
func underivableHash(source common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte("underivable"), source.Bytes())
}

func (o *Orchestrator) awaitDestination(ctx context.Context, txID string, hash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := o.chain.AwaitDestinationInclusion(ctx, hash, o.timeout)
	if errors.Is(err, ErrInclusionTimeout) {
		o.log.Warnf("%s not seen on child chain after %s, marking timed-out", hash.Hex(), o.timeout)
		o.setStatus(ctx, txID, types.StatusTimedOut)
		return nil, fmt.Errorf("%w: %s", ErrDestinationTimeout, hash.Hex())
	}
	if err != nil {
		o.log.Errorf("Error waiting for %s on child chain: %s", hash.Hex(), err.Error())
		return nil, fmt.Errorf("waiting for %s on child chain: %w", hash.Hex(), err)
	}
	return receipt, nil
}

// failAutoRedeem swaps the pending destination record for a failed auto-redeem
// record with the same id, so it does not spin as pending forever.
func (o *Orchestrator) failAutoRedeem(ctx context.Context, txID string, redeemHash string) error {
	o.log.Warnf("Auto-redeem %s of ticket %s failed, ticket needs a manual redeem", redeemHash, txID)

	dest, ok := o.ledger.Get(txID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAutoRedeemFailed, txID)
	}
	failed := dest.Clone()
	failed.Type = types.TxDestinationDepositAutoRedeem
	failed.Status = types.StatusFailure
	failed.TimestampResolved = nil

	if err := o.ledger.Replace(ctx, txID, failed); err != nil {
		o.log.Errorf("Error replacing %s with auto-redeem failure: %s", txID, err.Error())
	}
	o.bus.Publish(events.Event{Kind: events.TransactionRemoved, TxID: txID})
	o.publishTx(txID)
	return fmt.Errorf("%w: %s", ErrAutoRedeemFailed, txID)
}

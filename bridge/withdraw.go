package bridge

import (
	"context"
	"fmt"

	"gorollupbridge/events"
	"gorollupbridge/types"
)

type WithdrawRequest struct {
	Asset  Asset
	Amount string
}

type ApproveRequest struct {
	Asset  Asset
	Amount string
}

// Withdraw submits the child chain withdrawal. When its receipt carries
// exactly one outgoing message the message is added to the pending registry.
func (o *Orchestrator) Withdraw(ctx context.Context, req WithdrawRequest) (*Transfer, error) {
	amount, err := ParseAmount(req.Amount, req.Asset.Decimals)
	if err != nil {
		return nil, err
	}

	sub, err := o.chain.SubmitWithdraw(ctx, req.Asset, amount)
	if err != nil {
		o.log.Errorf("Error submitting %s %s withdrawal: %s", req.Amount, req.Asset.Symbol, err.Error())
		return nil, fmt.Errorf("withdraw submission: %w", err)
	}
	o.log.Infof("Submitted %s %s withdrawal %s", req.Amount, req.Asset.Symbol, sub.Hash.Hex())

	rec := o.newRecord(types.TxWithdraw, sub.Hash, req.Amount, req.Asset, o.chain.ChildChainID())
	o.appendRecord(ctx, rec)

	return o.track(sub.Hash, func(ctx context.Context) error {
		return o.trackWithdraw(ctx, rec.TxID, sub)
	}), nil
}

func (o *Orchestrator) trackWithdraw(ctx context.Context, txID string, sub Submission) error {
	receipt, err := o.awaitSource(ctx, txID, sub, types.StatusSuccess)
	if err != nil {
		return err
	}

	msgs, err := o.chain.ParseOutgoingMessageEvents(receipt)
	if err != nil {
		o.log.Errorf("Error parsing outgoing messages of %s: %s", txID, err.Error())
		return fmt.Errorf("parsing outgoing messages of %s: %w", txID, err)
	}
	if len(msgs) != 1 {
		msg := fmt.Sprintf("withdrawal %s produced %d outgoing messages, not registered", txID, len(msgs))
		o.log.Warnf("Anomalous %s", msg)
		o.bus.Publish(events.Event{Kind: events.WithdrawalAnomalous, TxID: txID, Message: msg})
		return nil
	}

	msg := msgs[0]
	if msg.TxHash == "" {
		msg.TxHash = txID
	}
	state, err := o.messageState(ctx, msg)
	if err != nil {
		// still register, the refresh loop will catch up
		o.log.Errorf("Error querying state of %s: %s", msg.ID, err.Error())
		state = types.MessageUnconfirmed
	}

	pw := types.NewPendingWithdrawal(msg, state)
	o.registry.Upsert(pw)
	o.log.Infof("Registered withdrawal %s (%s) in state %s", pw.UniqueID, msg.ID, state)
	o.bus.Publish(events.Event{Kind: events.WithdrawalRegistered, Withdrawal: &pw, TxID: txID})
	return nil
}

// Approve lets the token gateway pull amount of the token on the parent chain.
func (o *Orchestrator) Approve(ctx context.Context, req ApproveRequest) (*Transfer, error) {
	if req.Asset.IsNative() {
		return nil, ErrNotToken
	}
	amount, err := ParseAmount(req.Amount, req.Asset.Decimals)
	if err != nil {
		return nil, err
	}

	sub, err := o.chain.SubmitApprove(ctx, req.Asset, amount)
	if err != nil {
		o.log.Errorf("Error submitting %s approval: %s", req.Asset.Symbol, err.Error())
		return nil, fmt.Errorf("approve submission: %w", err)
	}

	rec := o.newRecord(types.TxApprove, sub.Hash, req.Amount, req.Asset, o.chain.ParentChainID())
	o.appendRecord(ctx, rec)

	return o.track(sub.Hash, func(ctx context.Context) error {
		_, err := o.awaitSource(ctx, rec.TxID, sub, types.StatusSuccess)
		return err
	}), nil
}

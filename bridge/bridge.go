package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorollupbridge/config"
	"gorollupbridge/events"
	"gorollupbridge/ledger"
	"gorollupbridge/logging"
	"gorollupbridge/msgcache"
	"gorollupbridge/types"
	"gorollupbridge/withdrawals"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	ErrWithdrawalNotFound = errors.New("pending withdrawal not found")
	ErrClaimInProgress    = errors.New("claim already in progress")
	ErrSourceReverted     = errors.New("transaction reverted")
	ErrDestinationTimeout = errors.New("deposit not seen on child chain in time")
	ErrDestinationFailed  = errors.New("retryable ticket creation reverted")
	ErrAutoRedeemFailed   = errors.New("retryable auto-redeem failed")
	ErrNotToken           = errors.New("asset is not a token")
)

type Options struct {
	DestinationTimeout time.Duration
	Log                *zap.SugaredLogger
	Bus                *events.Bus
	// TokenByParent names claimed tokens in the ledger, optional
	TokenByParent func(parent common.Address) (Asset, bool)
}

// Orchestrator runs deposit, withdraw, approve and claim flows. It is the only
// component talking to the Chain and it keeps the ledger, the pending
// withdrawal registry and the executed message cache in step.
type Orchestrator struct {
	chain    Chain
	ledger   *ledger.Ledger
	cache    *msgcache.Cache
	registry *withdrawals.Registry
	bus      *events.Bus
	log      *zap.SugaredLogger
	timeout  time.Duration
	tokens   func(parent common.Address) (Asset, bool)

	// flows outlive the request that started them
	ctx context.Context
	wg  sync.WaitGroup

	claimMu  sync.Mutex
	claiming map[string]bool
}

func New(ctx context.Context, chain Chain, l *ledger.Ledger, cache *msgcache.Cache, registry *withdrawals.Registry, opts Options) *Orchestrator {
	if opts.DestinationTimeout == 0 {
		opts.DestinationTimeout = config.DEFAULT_DESTINATION_TIMEOUT
	}
	log := logging.OrNop(opts.Log)
	if opts.Bus == nil {
		opts.Bus = events.NewBus(log)
	}
	return &Orchestrator{
		chain:    chain,
		ledger:   l,
		cache:    cache,
		registry: registry,
		bus:      opts.Bus,
		log:      log,
		timeout:  opts.DestinationTimeout,
		tokens:   opts.TokenByParent,
		ctx:      ctx,
		claiming: make(map[string]bool),
	}
}

// Transfer is the awaitable result of a submitted flow.
type Transfer struct {
	SourceHash common.Hash
	done       chan struct{}
	err        error
}

func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Wait returns the final outcome of the flow, or ctx's error if ctx ends first.
func (t *Transfer) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transactions is the read-only ledger snapshot for rendering.
func (o *Orchestrator) Transactions() []types.Transaction {
	return o.ledger.List()
}

func (o *Orchestrator) PendingWithdrawals() []types.PendingWithdrawal {
	return o.registry.List()
}

func (o *Orchestrator) Events() *events.Bus {
	return o.bus
}

// ClearPending drops unresolved records from the ledger (manual reset).
func (o *Orchestrator) ClearPending(ctx context.Context) (int, error) {
	n, err := o.ledger.ClearPending(ctx)
	if n > 0 {
		o.bus.Publish(events.Event{Kind: events.TransactionRemoved, Message: fmt.Sprintf("cleared %d pending transactions", n)})
	}
	return n, err
}

// Wait blocks until every flow started so far has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) track(hash common.Hash, flow func(ctx context.Context) error) *Transfer {
	t := &Transfer{SourceHash: hash, done: make(chan struct{})}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(t.done)
		t.err = flow(o.ctx)
		if t.err != nil {
			o.log.Warnf("Transfer %s finished with error: %s", hash.Hex(), t.err.Error())
		}
	}()
	return t
}

func (o *Orchestrator) newRecord(typ types.TxType, hash common.Hash, value string, asset Asset, chainID uint64) types.Transaction {
	var v *string
	if value != "" {
		v = &value
	}
	return types.Transaction{
		Type:          typ,
		Status:        types.StatusPending,
		Phase:         types.PhaseObserved,
		Value:         v,
		TxID:          hash.Hex(),
		AssetName:     asset.Symbol,
		AssetType:     asset.Type,
		Sender:        o.chain.Account().Hex(),
		SourceChainID: chainID,
	}
}

// appendRecord never fails the flow: the transaction is already on chain, a
// storage error only costs durability and is logged.
func (o *Orchestrator) appendRecord(ctx context.Context, tx types.Transaction) {
	err := o.ledger.Append(ctx, tx)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTx) {
		o.log.Errorf("Error appending %s %s to ledger: %s", tx.Type, tx.TxID, err.Error())
	}
	o.publishTx(tx.TxID)
}

func (o *Orchestrator) setStatus(ctx context.Context, txID string, status types.TxStatus) {
	err := o.ledger.SetStatus(ctx, txID, status)
	if err != nil {
		if !errors.Is(err, ledger.ErrUnknownTx) && !errors.Is(err, ledger.ErrInvalidTransition) {
			o.log.Errorf("Error setting %s to %s: %s", txID, status, err.Error())
		}
		return
	}
	o.publishTx(txID)
}

func (o *Orchestrator) observe(ctx context.Context, txID string, receipt *ethtypes.Receipt) {
	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	if err := o.ledger.Observe(ctx, txID, block); err != nil && !errors.Is(err, ledger.ErrUnknownTx) {
		o.log.Errorf("Error recording block of %s: %s", txID, err.Error())
	}
}

func (o *Orchestrator) publishTx(txID string) {
	tx, ok := o.ledger.Get(txID)
	if !ok {
		return
	}
	o.bus.Publish(events.Event{Kind: events.TransactionUpdated, Transaction: &tx, TxID: txID})
}

// awaitSource waits for a submitted transaction and resolves its record:
// okStatus on success, failure on revert or wait error. A cancelled context
// leaves the record pending, it can be picked up again later.
func (o *Orchestrator) awaitSource(ctx context.Context, txID string, sub Submission, okStatus types.TxStatus) (*ethtypes.Receipt, error) {
	receipt, err := sub.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		o.log.Errorf("Error waiting for %s: %s", txID, err.Error())
		o.setStatus(ctx, txID, types.StatusFailure)
		return nil, fmt.Errorf("waiting for %s: %w", txID, err)
	}

	o.observe(ctx, txID, receipt)
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		o.log.Warnf("Transaction %s reverted", txID)
		o.setStatus(ctx, txID, types.StatusFailure)
		return receipt, fmt.Errorf("%w: %s", ErrSourceReverted, txID)
	}

	o.setStatus(ctx, txID, okStatus)
	return receipt, nil
}

// messageState answers from the executed cache when it can, the chain otherwise.
func (o *Orchestrator) messageState(ctx context.Context, msg types.OutgoingMessage) (types.OutgoingMessageState, error) {
	if o.cache.Has(msg.ID) {
		return types.MessageExecuted, nil
	}
	return o.chain.QueryOutgoingMessageState(ctx, msg)
}

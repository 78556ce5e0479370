package handlers

import (
	"context"

	"gorollupbridge/balance"
	"gorollupbridge/bridge"
	"gorollupbridge/events"
	"gorollupbridge/logging"
	"gorollupbridge/types"

	"go.uber.org/zap"
)

// Orchestrator is what the HTTP surface needs from bridge.Orchestrator.
type Orchestrator interface {
	Deposit(ctx context.Context, req bridge.DepositRequest) (*bridge.Transfer, error)
	Withdraw(ctx context.Context, req bridge.WithdrawRequest) (*bridge.Transfer, error)
	Approve(ctx context.Context, req bridge.ApproveRequest) (*bridge.Transfer, error)
	Claim(ctx context.Context, uniqueID string) (*bridge.Transfer, error)

	Transactions() []types.Transaction
	PendingWithdrawals() []types.PendingWithdrawal
	ClearPending(ctx context.Context) (int, error)
	Events() *events.Bus
}

type BalanceSource interface {
	Snapshot() balance.Snapshot
}

// Deps are shared by every handler, set once with Setup before serving.
type Deps struct {
	Orchestrator Orchestrator
	Balances     BalanceSource
	Assets       *Assets
	Account      string
	ParentChain  uint64
	ChildChain   uint64
	// optional store probe for /healthcheck
	Health func(ctx context.Context) error
	Log    *zap.SugaredLogger
}

var deps Deps

func Setup(d Deps) {
	d.Log = logging.OrNop(d.Log)
	deps = d
}

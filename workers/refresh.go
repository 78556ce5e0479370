package workers

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type WithdrawalRefresher interface {
	RebuildWithdrawals(ctx context.Context) error
	RefreshWithdrawals(ctx context.Context) error
}

type BalanceRefresher interface {
	RefreshAll(ctx context.Context, parentTokens, childTokens []common.Address) error
}

// every runs fn right away and then every period until ctx is cancelled.
func every(ctx context.Context, period time.Duration, fn func(ctx context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Worker_refreshWithdrawals polls the state of pending withdrawals so newly
// confirmed and elsewhere claimed messages show up. Until the registry was
// built from chain history once (rebuilt=false at startup) each round retries
// that instead.
func Worker_refreshWithdrawals(ctx context.Context, r WithdrawalRefresher, rebuilt bool, period time.Duration, log *zap.SugaredLogger) {
	log.Infof("Refreshing withdrawals every %s", period)
	every(ctx, period, func(ctx context.Context) {
		if !rebuilt {
			if err := r.RebuildWithdrawals(ctx); err != nil {
				if ctx.Err() == nil {
					log.Errorf("Error rebuilding withdrawals: %s", err.Error())
				}
				return
			}
			rebuilt = true
		}
		if err := r.RefreshWithdrawals(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("Error refreshing withdrawals: %s", err.Error())
		}
	})
	log.Infof("Withdrawal refresh stopped")
}

// Worker_refreshBalances keeps the balance tracker warm, errors are logged
// by the tracker itself.
func Worker_refreshBalances(ctx context.Context, r BalanceRefresher, parentTokens, childTokens []common.Address, period time.Duration, log *zap.SugaredLogger) {
	log.Infof("Refreshing balances every %s", period)
	every(ctx, period, func(ctx context.Context) {
		r.RefreshAll(ctx, parentTokens, childTokens)
	})
	log.Infof("Balance refresh stopped")
}

package EVMRPC

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

func (b *Bridge) NativeBalance(ctx context.Context, side types.ChainSide, account common.Address) (*big.Int, error) {
	pool := b.pool(side)
	return WithClient(ctx, pool, func(client *ethclient.Client) (*big.Int, error) {
		return client.BalanceAt(ctx, account, nil)
	})
}

// TokenBalances reads balanceOf for every token concurrently. Tokens that
// could not be read are missing from the result and reported in the error.
func (b *Bridge) TokenBalances(ctx context.Context, side types.ChainSide, account common.Address, tokens []common.Address) (map[common.Address]*big.Int, error) {
	pool := b.pool(side)

	var (
		mu       sync.Mutex
		balances = make(map[common.Address]*big.Int, len(tokens))
		errs     []error
	)
	var g errgroup.Group
	g.SetLimit(receiptFetchLimit)
	for _, token := range tokens {
		token := token
		g.Go(func() error {
			out, err := b.call(ctx, pool, token, erc20Contract, "balanceOf", account)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("balanceOf %s on %s: %w", token.Hex(), pool.Name, err))
				return nil
			}
			balances[token] = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
			return nil
		})
	}
	g.Wait()

	return balances, errors.Join(errs...)
}

package balance

import (
	"context"
	"math/big"
	"sync"

	"gorollupbridge/logging"
	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Reader interface {
	NativeBalance(ctx context.Context, side types.ChainSide, account common.Address) (*big.Int, error)
	// partial results come back together with the error
	TokenBalances(ctx context.Context, side types.ChainSide, account common.Address, tokens []common.Address) (map[common.Address]*big.Int, error)
}

// Balances of one chain. Token balances are keyed by token address hex.
type Balances struct {
	Native *string           `json:"native"`
	Tokens map[string]string `json:"tokens"`
}

type Snapshot struct {
	Parent Balances `json:"parent"`
	Child  Balances `json:"child"`
}

type sideBalances struct {
	native *big.Int
	tokens map[common.Address]*big.Int
}

// Tracker caches the last known balances of one account. Callers decide
// which tokens to fetch, a failed fetch keeps the previous value.
type Tracker struct {
	reader  Reader
	account common.Address
	log     *zap.SugaredLogger

	mu    sync.RWMutex
	sides [2]sideBalances
}

func NewTracker(reader Reader, account common.Address, log *zap.SugaredLogger) *Tracker {
	t := &Tracker{
		reader:  reader,
		account: account,
		log:     logging.OrNop(log),
	}
	for i := range t.sides {
		t.sides[i].tokens = make(map[common.Address]*big.Int)
	}
	return t
}

func (t *Tracker) RefreshNative(ctx context.Context, side types.ChainSide) error {
	v, err := t.reader.NativeBalance(ctx, side, t.account)
	if err != nil {
		t.log.Warnf("Error refreshing %s native balance: %s", side, err.Error())
		return err
	}
	t.mu.Lock()
	t.sides[side].native = v
	t.mu.Unlock()
	return nil
}

func (t *Tracker) RefreshTokens(ctx context.Context, side types.ChainSide, tokens []common.Address) error {
	if len(tokens) == 0 {
		return nil
	}
	got, err := t.reader.TokenBalances(ctx, side, t.account, tokens)
	if err != nil {
		t.log.Warnf("Error refreshing %s token balances: %s", side, err.Error())
	}
	t.mu.Lock()
	for token, v := range got {
		if v != nil {
			t.sides[side].tokens[token] = v
		}
	}
	t.mu.Unlock()
	return err
}

// RefreshAll fetches native and token balances of both chains at once.
// The first error is returned after every fetch has finished.
func (t *Tracker) RefreshAll(ctx context.Context, parentTokens, childTokens []common.Address) error {
	var g errgroup.Group
	g.Go(func() error { return t.RefreshNative(ctx, types.SideParent) })
	g.Go(func() error { return t.RefreshNative(ctx, types.SideChild) })
	g.Go(func() error { return t.RefreshTokens(ctx, types.SideParent, parentTokens) })
	g.Go(func() error { return t.RefreshTokens(ctx, types.SideChild, childTokens) })
	return g.Wait()
}

// Native returns nil until a fetch succeeded.
func (t *Tracker) Native(side types.ChainSide) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v := t.sides[side].native; v != nil {
		return new(big.Int).Set(v)
	}
	return nil
}

func (t *Tracker) Token(side types.ChainSide, token common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.sides[side].tokens[token]; ok {
		return new(big.Int).Set(v)
	}
	return nil
}

// Snapshot renders the cached balances as base unit decimal strings.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	render := func(s sideBalances) Balances {
		b := Balances{Tokens: make(map[string]string, len(s.tokens))}
		if s.native != nil {
			v := s.native.String()
			b.Native = &v
		}
		for token, v := range s.tokens {
			b.Tokens[token.Hex()] = v.String()
		}
		return b
	}
	return Snapshot{
		Parent: render(t.sides[types.SideParent]),
		Child:  render(t.sides[types.SideChild]),
	}
}

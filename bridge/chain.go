package bridge

import (
	"context"
	"errors"
	"math/big"
	"time"

	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ErrInclusionTimeout is returned by Chain.AwaitDestinationInclusion when the
// hash did not show up on the child chain in time.
var ErrInclusionTimeout = errors.New("destination inclusion timed out")

type Asset struct {
	Type     types.AssetType
	Symbol   string
	Decimals int32
	// token contracts, nil for the native currency
	ParentAddress *common.Address
	ChildAddress  *common.Address
}

func NativeAsset(symbol string) Asset {
	return Asset{Type: types.AssetNative, Symbol: symbol, Decimals: 18}
}

func (a Asset) IsNative() bool {
	return a.Type == types.AssetNative
}

// Submission is a transaction accepted by the node. Wait blocks until it is mined.
type Submission struct {
	Hash common.Hash
	Wait func(ctx context.Context) (*ethtypes.Receipt, error)
}

// DestinationHashes are computed from a source deposit receipt before anything
// happens on the child chain. AutoRedeem is set for retryable tickets only.
type DestinationHashes struct {
	Primary    common.Hash
	AutoRedeem *common.Hash
}

// Chain is the bridging SDK surface the orchestrator drives.
type Chain interface {
	Account() common.Address
	ParentChainID() uint64
	ChildChainID() uint64

	SubmitDeposit(ctx context.Context, asset Asset, amount *big.Int) (Submission, error)
	SubmitWithdraw(ctx context.Context, asset Asset, amount *big.Int) (Submission, error)
	SubmitApprove(ctx context.Context, asset Asset, amount *big.Int) (Submission, error)
	SubmitClaim(ctx context.Context, msg types.OutgoingMessage) (Submission, error)

	// pure, no chain call
	DeriveDestinationHashes(receipt *ethtypes.Receipt) (DestinationHashes, error)
	AwaitDestinationInclusion(ctx context.Context, hash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error)

	ParseOutgoingMessageEvents(receipt *ethtypes.Receipt) ([]types.OutgoingMessage, error)
	QueryOutgoingMessageState(ctx context.Context, msg types.OutgoingMessage) (types.OutgoingMessageState, error)
	WithdrawalHistory(ctx context.Context, account common.Address) ([]types.OutgoingMessage, error)
}

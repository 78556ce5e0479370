package bridge

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	parentChainID = 11155111
	childChainID  = 421614
)

type destResult struct {
	status uint64
	err    error
}

// fakeChain stands in for the bridging SDK. Gates, when set, hold the
// corresponding wait until closed.
type fakeChain struct {
	mu sync.Mutex

	account common.Address
	nonce   byte

	submitErr    error
	sourceStatus uint64
	sourceErr    error
	sourceGate   chan struct{}

	tokenDeposits map[common.Hash]bool
	deriveErr     error
	destGate      chan struct{}
	dest          map[common.Hash]destResult

	events   []types.OutgoingMessage
	parseErr error

	states     map[string]types.OutgoingMessageState
	stateCalls int
	stateErr   error

	history []types.OutgoingMessage
	// duringHistory runs inside WithdrawalHistory, before it returns
	duringHistory func()

	submitted   []string
	claimCalls  int
	approveCall int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		account:       common.HexToAddress("0x26c7c4473fefe6e9662f2ccfd9501d47c0fbce8b"),
		sourceStatus:  ethtypes.ReceiptStatusSuccessful,
		dest:          make(map[common.Hash]destResult),
		tokenDeposits: make(map[common.Hash]bool),
		states:        make(map[string]types.OutgoingMessageState),
	}
}

func (f *fakeChain) Account() common.Address { return f.account }
func (f *fakeChain) ParentChainID() uint64   { return parentChainID }
func (f *fakeChain) ChildChainID() uint64    { return childChainID }

func (f *fakeChain) submission(kind string) (Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return Submission{}, f.submitErr
	}
	f.nonce++
	f.submitted = append(f.submitted, kind)
	hash := crypto.Keccak256Hash([]byte(kind), []byte{f.nonce})
	status, waitErr, gate := f.sourceStatus, f.sourceErr, f.sourceGate

	return Submission{
		Hash: hash,
		Wait: func(ctx context.Context) (*ethtypes.Receipt, error) {
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if waitErr != nil {
				return nil, waitErr
			}
			return &ethtypes.Receipt{TxHash: hash, Status: status, BlockNumber: big.NewInt(100)}, nil
		},
	}, nil
}

func (f *fakeChain) SubmitDeposit(ctx context.Context, asset Asset, amount *big.Int) (Submission, error) {
	if asset.IsNative() {
		return f.submission("deposit-native")
	}
	sub, err := f.submission("deposit-token")
	if err == nil {
		f.mu.Lock()
		f.tokenDeposits[sub.Hash] = true
		f.mu.Unlock()
	}
	return sub, err
}

func (f *fakeChain) SubmitWithdraw(ctx context.Context, asset Asset, amount *big.Int) (Submission, error) {
	return f.submission("withdraw")
}

func (f *fakeChain) SubmitApprove(ctx context.Context, asset Asset, amount *big.Int) (Submission, error) {
	f.mu.Lock()
	f.approveCall++
	f.mu.Unlock()
	return f.submission("approve")
}

func (f *fakeChain) SubmitClaim(ctx context.Context, msg types.OutgoingMessage) (Submission, error) {
	f.mu.Lock()
	f.claimCalls++
	f.mu.Unlock()
	return f.submission("claim")
}

func (f *fakeChain) DeriveDestinationHashes(receipt *ethtypes.Receipt) (DestinationHashes, error) {
	primary := crypto.Keccak256Hash([]byte("dest"), receipt.TxHash.Bytes())
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deriveErr != nil {
		return DestinationHashes{}, f.deriveErr
	}
	if f.tokenDeposits[receipt.TxHash] {
		redeem := crypto.Keccak256Hash(primary.Bytes(), common.Hash{}.Bytes())
		return DestinationHashes{Primary: primary, AutoRedeem: &redeem}, nil
	}
	return DestinationHashes{Primary: primary}, nil
}

func (f *fakeChain) AwaitDestinationInclusion(ctx context.Context, hash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error) {
	f.mu.Lock()
	gate := f.destGate
	res, ok := f.dest[hash]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		res = destResult{status: ethtypes.ReceiptStatusSuccessful}
	}
	if res.err != nil {
		return nil, res.err
	}
	return &ethtypes.Receipt{TxHash: hash, Status: res.status, BlockNumber: big.NewInt(5000)}, nil
}

func (f *fakeChain) ParseOutgoingMessageEvents(receipt *ethtypes.Receipt) ([]types.OutgoingMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, f.parseErr
}

func (f *fakeChain) QueryOutgoingMessageState(ctx context.Context, msg types.OutgoingMessage) (types.OutgoingMessageState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	if f.stateErr != nil {
		return "", f.stateErr
	}
	if st, ok := f.states[msg.UniqueID]; ok {
		return st, nil
	}
	return types.MessageUnconfirmed, nil
}

func (f *fakeChain) WithdrawalHistory(ctx context.Context, account common.Address) ([]types.OutgoingMessage, error) {
	f.mu.Lock()
	during := f.duringHistory
	f.mu.Unlock()
	if during != nil {
		during()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.history == nil {
		return nil, errors.New("history unavailable")
	}
	return f.history, nil
}

func (f *fakeChain) calls() (state, claim int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateCalls, f.claimCalls
}

func outgoing(uniqueID string, pos uint64, token *common.Address, value int64) types.OutgoingMessage {
	return types.OutgoingMessage{
		ID:           types.MessageID{ChainID: childChainID, Position: pos},
		UniqueID:     uniqueID,
		Caller:       common.HexToAddress("0x26c7c4473fefe6e9662f2ccfd9501d47c0fbce8b"),
		Destination:  common.HexToAddress("0x26c7c4473fefe6e9662f2ccfd9501d47c0fbce8b"),
		ArbBlockNum:  big.NewInt(1),
		EthBlockNum:  big.NewInt(1),
		Timestamp:    big.NewInt(1700000000),
		CallValue:    big.NewInt(0),
		TokenAddress: token,
		Value:        big.NewInt(value),
	}
}

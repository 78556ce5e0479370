package EVMRPC

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorollupbridge/bridge"
	"gorollupbridge/config"
	"gorollupbridge/logging"
	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	ErrLegacyClaim  = errors.New("claiming legacy outbox messages is not supported")
	ErrNotConfirmed = errors.New("outgoing message not confirmed yet")
	ErrNoToken      = errors.New("token address missing")
)

// Bridge drives the rollup contracts of a parent/child chain pair with a
// single signing key. It implements bridge.Chain and balance.Reader.
type Bridge struct {
	parent, child       *Pool
	parentCfg, childCfg config.ChainConfig
	log                 *zap.SugaredLogger

	key     *ecdsa.PrivateKey
	account common.Address

	pollInterval  time.Duration
	maxGas        *big.Int
	gasPriceBid   *big.Int
	submissionFee *big.Int
}

var _ bridge.Chain = (*Bridge)(nil)

func NewBridge(ctx context.Context, parent, child *Pool, cfg config.Configuration, log *zap.SugaredLogger) (*Bridge, error) {
	key, err := crypto.HexToECDSA(trimHex(cfg.Wallet.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("error instantiating private key: %w", err)
	}
	gasPriceBid, ok := new(big.Int).SetString(cfg.Bridge.RetryableGasPriceBid, 10)
	if !ok {
		return nil, fmt.Errorf("invalid retryable gas price bid %q", cfg.Bridge.RetryableGasPriceBid)
	}
	submissionFee, ok := new(big.Int).SetString(cfg.Bridge.RetryableSubmissionFee, 10)
	if !ok {
		return nil, fmt.Errorf("invalid retryable submission fee %q", cfg.Bridge.RetryableSubmissionFee)
	}

	b := &Bridge{
		parent:        parent,
		child:         child,
		parentCfg:     cfg.Parent,
		childCfg:      cfg.Child,
		log:           logging.OrNop(log),
		key:           key,
		account:       crypto.PubkeyToAddress(key.PublicKey),
		pollInterval:  cfg.Bridge.PollInterval,
		maxGas:        new(big.Int).SetUint64(cfg.Bridge.RetryableMaxGas),
		gasPriceBid:   gasPriceBid,
		submissionFee: submissionFee,
	}
	if b.pollInterval == 0 {
		b.pollInterval = config.DEFAULT_POLL_INTERVAL
	}

	for _, side := range []struct {
		pool *Pool
		cfg  *config.ChainConfig
	}{{parent, &b.parentCfg}, {child, &b.childCfg}} {
		if side.cfg.ChainID != 0 {
			continue
		}
		id, err := WithClient(ctx, side.pool, func(client *ethclient.Client) (*big.Int, error) {
			return client.ChainID(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("chain id of %s: %w", side.pool.Name, err)
		}
		side.cfg.ChainID = id.Uint64()
	}

	b.log.Infof("Bridging account %s, parent chain %d, child chain %d", b.account.Hex(), b.parentCfg.ChainID, b.childCfg.ChainID)
	return b, nil
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func (b *Bridge) Account() common.Address { return b.account }
func (b *Bridge) ParentChainID() uint64   { return b.parentCfg.ChainID }
func (b *Bridge) ChildChainID() uint64    { return b.childCfg.ChainID }

func (b *Bridge) pool(side types.ChainSide) *Pool {
	if side == types.SideChild {
		return b.child
	}
	return b.parent
}

func (b *Bridge) chainID(pool *Pool) uint64 {
	if pool == b.child {
		return b.childCfg.ChainID
	}
	return b.parentCfg.ChainID
}

// transact signs and sends a contract call. The receipt wait of the returned
// submission fails over across the pool like every other call.
func (b *Bridge) transact(ctx context.Context, pool *Pool, to common.Address, contract abi.ABI, value *big.Int, method string, args ...interface{}) (bridge.Submission, error) {
	tx, err := WithClient(ctx, pool, func(client *ethclient.Client) (*ethtypes.Transaction, error) {
		auth, err := bind.NewKeyedTransactorWithChainID(b.key, new(big.Int).SetUint64(b.chainID(pool)))
		if err != nil {
			return nil, fmt.Errorf("error instantiating contract call: %w", err)
		}
		auth.Context = ctx
		auth.Value = value
		return bind.NewBoundContract(to, contract, client, client, client).Transact(auth, method, args...)
	})
	if err != nil {
		return bridge.Submission{}, fmt.Errorf("%s on %s: %w", method, pool.Name, err)
	}
	b.log.Infof("Sent %s to %s on %s: %s", method, to.Hex(), pool.Name, tx.Hash().Hex())

	return bridge.Submission{
		Hash: tx.Hash(),
		Wait: func(ctx context.Context) (*ethtypes.Receipt, error) {
			return WithClient(ctx, pool, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
				return bind.WaitMined(ctx, client, tx)
			})
		},
	}, nil
}

func (b *Bridge) call(ctx context.Context, pool *Pool, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	return WithClient(ctx, pool, func(client *ethclient.Client) ([]interface{}, error) {
		var out []interface{}
		err := bind.NewBoundContract(to, contract, client, client, client).Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
		return out, err
	})
}

func tokenAddress(a *common.Address) (common.Address, error) {
	if a == nil {
		return common.Address{}, ErrNoToken
	}
	return *a, nil
}

// SubmitDeposit sends native currency through the inbox, tokens through the
// parent gateway router as a retryable ticket.
func (b *Bridge) SubmitDeposit(ctx context.Context, asset bridge.Asset, amount *big.Int) (bridge.Submission, error) {
	if asset.IsNative() {
		return b.transact(ctx, b.parent, common.HexToAddress(b.parentCfg.Inbox), inboxContract, amount, "depositEth")
	}
	token, err := tokenAddress(asset.ParentAddress)
	if err != nil {
		return bridge.Submission{}, err
	}

	data, err := retryableData(b.submissionFee)
	if err != nil {
		return bridge.Submission{}, err
	}
	value := new(big.Int).Mul(b.maxGas, b.gasPriceBid)
	value.Add(value, b.submissionFee)

	return b.transact(ctx, b.parent, common.HexToAddress(b.parentCfg.GatewayRouter), parentRouterContract, value,
		"outboundTransfer", token, b.account, amount, b.maxGas, b.gasPriceBid, data)
}

// gateway extra data: abi.encode(uint256 maxSubmissionCost, bytes callHookData)
func retryableData(submissionFee *big.Int) ([]byte, error) {
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	bytesTy, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, err
	}
	return abi.Arguments{{Type: uint256Ty}, {Type: bytesTy}}.Pack(submissionFee, []byte{})
}

func (b *Bridge) SubmitWithdraw(ctx context.Context, asset bridge.Asset, amount *big.Int) (bridge.Submission, error) {
	if asset.IsNative() {
		return b.transact(ctx, b.child, common.HexToAddress(config.ARBSYS_ADDRESS), arbSysContract, amount, "withdrawEth", b.account)
	}
	token, err := tokenAddress(asset.ParentAddress)
	if err != nil {
		return bridge.Submission{}, err
	}
	return b.transact(ctx, b.child, common.HexToAddress(b.childCfg.GatewayRouter), childRouterContract, nil,
		"outboundTransfer", token, b.account, amount, []byte{})
}

// SubmitApprove approves the gateway the router assigns to the token.
func (b *Bridge) SubmitApprove(ctx context.Context, asset bridge.Asset, amount *big.Int) (bridge.Submission, error) {
	token, err := tokenAddress(asset.ParentAddress)
	if err != nil {
		return bridge.Submission{}, err
	}
	out, err := b.call(ctx, b.parent, common.HexToAddress(b.parentCfg.GatewayRouter), parentRouterContract, "getGateway", token)
	if err != nil {
		return bridge.Submission{}, fmt.Errorf("gateway of %s: %w", token.Hex(), err)
	}
	spender := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return b.transact(ctx, b.parent, token, erc20Contract, nil, "approve", spender, amount)
}

// SubmitClaim executes a confirmed message on the outbox with a proof built by
// the child chain node interface.
func (b *Bridge) SubmitClaim(ctx context.Context, msg types.OutgoingMessage) (bridge.Submission, error) {
	if msg.ID.Legacy {
		return bridge.Submission{}, ErrLegacyClaim
	}
	sendCount, err := b.confirmedSendCount(ctx)
	if err != nil {
		return bridge.Submission{}, err
	}
	if msg.ID.Position >= sendCount {
		return bridge.Submission{}, fmt.Errorf("%w: %s", ErrNotConfirmed, msg.ID)
	}

	out, err := b.call(ctx, b.child, common.HexToAddress(config.NODE_INTERFACE_ADDRESS), nodeInterfaceContract,
		"constructOutboxProof", sendCount, msg.ID.Position)
	if err != nil {
		return bridge.Submission{}, fmt.Errorf("outbox proof of %s: %w", msg.ID, err)
	}
	proof := *abi.ConvertType(out[2], new([][32]byte)).(*[][32]byte)

	return b.transact(ctx, b.parent, common.HexToAddress(b.parentCfg.Outbox), outboxContract, nil,
		"executeTransaction",
		proof,
		new(big.Int).SetUint64(msg.ID.Position),
		msg.Caller,
		msg.Destination,
		msg.ArbBlockNum,
		msg.EthBlockNum,
		msg.Timestamp,
		msg.CallValue,
		msg.Data,
	)
}

func (b *Bridge) DeriveDestinationHashes(receipt *ethtypes.Receipt) (bridge.DestinationHashes, error) {
	return DeriveDestinationHashes(b.childCfg.ChainID, receipt)
}

func (b *Bridge) ParseOutgoingMessageEvents(receipt *ethtypes.Receipt) ([]types.OutgoingMessage, error) {
	return ParseOutgoingMessages(b.childCfg.ChainID, receipt)
}

// AwaitDestinationInclusion polls the child chain for the receipt of hash.
// Running out of time gives bridge.ErrInclusionTimeout, a cancelled ctx its
// own error.
func (b *Bridge) AwaitDestinationInclusion(ctx context.Context, hash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := WithClient(wctx, b.child, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
			return client.TransactionReceipt(wctx, hash)
		})
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) && wctx.Err() == nil {
			b.log.Warnf("Error polling receipt of %s: %s", hash.Hex(), err.Error())
		}

		select {
		case <-ticker.C:
		case <-wctx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s after %s", bridge.ErrInclusionTimeout, hash.Hex(), timeout)
		}
	}
}

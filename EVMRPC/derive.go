package EVMRPC

import (
	"errors"
	"fmt"
	"math/big"

	"gorollupbridge/bridge"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var ErrNoInboxMessage = errors.New("no inbox message in receipt")

// inbox message kinds
const (
	kindSubmitRetryable = 9
	kindEthDeposit      = 12
)

// typed transaction prefixes on the child chain
const (
	depositTxType   = 0x64
	retryableTxType = 0x69
)

type depositTx struct {
	ChainId     *big.Int
	L1RequestId common.Hash
	From        common.Address
	To          common.Address
	Value       *big.Int
}

type submitRetryableTx struct {
	ChainId          *big.Int
	RequestId        common.Hash
	From             common.Address
	L1BaseFee        *big.Int
	DepositValue     *big.Int
	GasFeeCap        *big.Int
	Gas              uint64
	RetryTo          *common.Address `rlp:"nil"`
	RetryValue       *big.Int
	Beneficiary      common.Address
	MaxSubmissionFee *big.Int
	FeeRefundAddr    common.Address
	RetryData        []byte
}

type inboxMessage struct {
	num       *big.Int
	data      []byte
	kind      uint8
	sender    common.Address
	baseFeeL1 *big.Int
}

// inboxMessages pairs InboxMessageDelivered with the MessageDelivered of the
// same message number, in log order.
func inboxMessages(receipt *ethtypes.Receipt) []inboxMessage {
	delivered := make(map[string]messageDelivered)
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != rollupBridgeContract.Events["MessageDelivered"].ID {
			continue
		}
		var ev messageDelivered
		if err := unpackLog(rollupBridgeContract, &ev, "MessageDelivered", *l); err != nil {
			continue
		}
		delivered[ev.MessageIndex.String()] = ev
	}

	var out []inboxMessage
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != inboxContract.Events["InboxMessageDelivered"].ID {
			continue
		}
		var ev inboxMessageDelivered
		if err := unpackLog(inboxContract, &ev, "InboxMessageDelivered", *l); err != nil {
			continue
		}
		md, ok := delivered[ev.MessageNum.String()]
		if !ok {
			continue
		}
		out = append(out, inboxMessage{
			num:       ev.MessageNum,
			data:      ev.Data,
			kind:      md.Kind,
			sender:    md.Sender,
			baseFeeL1: md.BaseFeeL1,
		})
	}
	return out
}

// DeriveDestinationHashes computes the child chain hash of the first deposit
// message in a parent chain receipt. No chain call.
func DeriveDestinationHashes(childChainID uint64, receipt *ethtypes.Receipt) (bridge.DestinationHashes, error) {
	chainID := new(big.Int).SetUint64(childChainID)
	for _, m := range inboxMessages(receipt) {
		switch m.kind {
		case kindEthDeposit:
			h, err := ethDepositHash(chainID, m)
			if err != nil {
				return bridge.DestinationHashes{}, err
			}
			return bridge.DestinationHashes{Primary: h}, nil
		case kindSubmitRetryable:
			ticket, err := retryableHash(chainID, m)
			if err != nil {
				return bridge.DestinationHashes{}, err
			}
			redeem := AutoRedeemHash(ticket)
			return bridge.DestinationHashes{Primary: ticket, AutoRedeem: &redeem}, nil
		}
	}
	return bridge.DestinationHashes{}, fmt.Errorf("%w: %s", ErrNoInboxMessage, receipt.TxHash.Hex())
}

// eth deposit data is abi.encodePacked(address to, uint256 value)
func ethDepositHash(chainID *big.Int, m inboxMessage) (common.Hash, error) {
	if len(m.data) != 52 {
		return common.Hash{}, fmt.Errorf("eth deposit message %s: unexpected data length %d", m.num, len(m.data))
	}
	tx := depositTx{
		ChainId:     chainID,
		L1RequestId: common.BigToHash(m.num),
		From:        m.sender,
		To:          common.BytesToAddress(m.data[:20]),
		Value:       new(big.Int).SetBytes(m.data[20:52]),
	}
	return typedHash(depositTxType, tx)
}

// retryable data is a sequence of 32 byte words followed by the call data:
// to, l2CallValue, deposit, maxSubmissionFee, excessFeeRefundAddress,
// callValueRefundAddress, gasLimit, maxFeePerGas, dataLength, data
func retryableHash(chainID *big.Int, m inboxMessage) (common.Hash, error) {
	const words = 9
	if len(m.data) < words*32 {
		return common.Hash{}, fmt.Errorf("retryable message %s: data too short (%d bytes)", m.num, len(m.data))
	}
	word := func(i int) []byte { return m.data[i*32 : (i+1)*32] }
	dataLen := new(big.Int).SetBytes(word(8))
	if !dataLen.IsUint64() || uint64(len(m.data)-words*32) < dataLen.Uint64() {
		return common.Hash{}, fmt.Errorf("retryable message %s: call data length %s out of range", m.num, dataLen)
	}
	gas := new(big.Int).SetBytes(word(6))
	if !gas.IsUint64() {
		return common.Hash{}, fmt.Errorf("retryable message %s: gas limit %s out of range", m.num, gas)
	}

	tx := submitRetryableTx{
		ChainId:          chainID,
		RequestId:        common.BigToHash(m.num),
		From:             m.sender,
		L1BaseFee:        m.baseFeeL1,
		DepositValue:     new(big.Int).SetBytes(word(2)),
		GasFeeCap:        new(big.Int).SetBytes(word(7)),
		Gas:              gas.Uint64(),
		RetryValue:       new(big.Int).SetBytes(word(1)),
		Beneficiary:      common.BytesToAddress(word(5)),
		MaxSubmissionFee: new(big.Int).SetBytes(word(3)),
		FeeRefundAddr:    common.BytesToAddress(word(4)),
		RetryData:        m.data[words*32 : words*32+int(dataLen.Uint64())],
	}
	if to := common.BytesToAddress(word(0)); to != (common.Address{}) {
		tx.RetryTo = &to
	}
	if tx.L1BaseFee == nil {
		tx.L1BaseFee = new(big.Int)
	}
	return typedHash(retryableTxType, tx)
}

func typedHash(prefix byte, tx interface{}) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{prefix}, enc), nil
}

// AutoRedeemHash is the hash of the first redeem attempt of a ticket.
func AutoRedeemHash(ticket common.Hash) common.Hash {
	return crypto.Keccak256Hash(ticket.Bytes(), common.Hash{}.Bytes())
}

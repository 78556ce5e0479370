package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MessageID is the position of an outgoing message in the outbox.
// Legacy (classic) messages are addressed by batch and index in batch,
// nitro messages by a single position in the send merkle tree.
type MessageID struct {
	ChainID      uint64 `json:"chainId"`
	Legacy       bool   `json:"legacy,omitempty"`
	BatchNumber  uint64 `json:"batchNumber,omitempty"`
	IndexInBatch uint64 `json:"indexInBatch,omitempty"`
	Position     uint64 `json:"position,omitempty"`
}

// String is persisted as executed-messages-cache key, do not change the format.
func (id MessageID) String() string {
	if id.Legacy {
		return fmt.Sprintf("chainId: %d, batchNumber: %d, indexInBatch: %d", id.ChainID, id.BatchNumber, id.IndexInBatch)
	}
	return fmt.Sprintf("chainId: %d, position: %d", id.ChainID, id.Position)
}

// Less orders legacy messages before nitro ones, then by position.
func (id MessageID) Less(other MessageID) bool {
	if id.Legacy != other.Legacy {
		return id.Legacy
	}
	if id.Legacy {
		if id.BatchNumber != other.BatchNumber {
			return id.BatchNumber < other.BatchNumber
		}
		return id.IndexInBatch < other.IndexInBatch
	}
	return id.Position < other.Position
}

type OutgoingMessageState string

const (
	MessageUnconfirmed OutgoingMessageState = "unconfirmed"
	MessageConfirmed   OutgoingMessageState = "confirmed"
	MessageExecuted    OutgoingMessageState = "executed"
)

func (s OutgoingMessageState) rank() int {
	switch s {
	case MessageConfirmed:
		return 1
	case MessageExecuted:
		return 2
	}
	return 0
}

// Max returns the more advanced of two states, states never go backward.
func (s OutgoingMessageState) Max(other OutgoingMessageState) OutgoingMessageState {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// OutgoingMessage is a parsed L2-to-L1 message with everything needed to execute it
// on the outbox later.
type OutgoingMessage struct {
	ID           MessageID       `json:"id"`
	UniqueID     string          `json:"uniqueId"`
	TxHash       string          `json:"txHash"`
	Caller       common.Address  `json:"caller"`
	Destination  common.Address  `json:"destination"`
	ArbBlockNum  *big.Int        `json:"arbBlockNum"`
	EthBlockNum  *big.Int        `json:"ethBlockNum"`
	Timestamp    *big.Int        `json:"timestamp"`
	CallValue    *big.Int        `json:"callValue"`
	Data         []byte          `json:"data"`
	TokenAddress *common.Address `json:"tokenAddress,omitempty"`
	Value        *big.Int        `json:"value"` // token amount for token withdrawals, call value otherwise
}

func (m OutgoingMessage) AssetType() AssetType {
	if m.TokenAddress != nil {
		return AssetERC20
	}
	return AssetNative
}

type PendingWithdrawal struct {
	UniqueID     string               `json:"uniqueId"`
	Message      OutgoingMessage      `json:"message"`
	Type         AssetType            `json:"type"`
	TokenAddress *common.Address      `json:"tokenAddress,omitempty"`
	Value        string               `json:"value"`
	State        OutgoingMessageState `json:"outgoingMessageState"`
	TxID         string               `json:"txID,omitempty"` // withdraw transaction when known
}

func NewPendingWithdrawal(msg OutgoingMessage, state OutgoingMessageState) PendingWithdrawal {
	value := "0"
	if msg.Value != nil {
		value = msg.Value.String()
	}
	return PendingWithdrawal{
		UniqueID:     msg.UniqueID,
		Message:      msg,
		Type:         msg.AssetType(),
		TokenAddress: msg.TokenAddress,
		Value:        value,
		State:        state,
		TxID:         msg.TxHash,
	}
}

package EVMRPC

import (
	"math/big"

	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	l2ToL1TxTopic            = arbSysContract.Events["L2ToL1Tx"].ID
	l2ToL1TransactionTopic   = arbSysContract.Events["L2ToL1Transaction"].ID
	withdrawalInitiatedTopic = childGatewayContract.Events["WithdrawalInitiated"].ID
)

// ParseOutgoingMessages extracts the child-to-parent messages of a withdraw
// receipt. Token withdrawals are recognised by the gateway WithdrawalInitiated
// log that carries the same message id, token and amount are taken from it.
func ParseOutgoingMessages(childChainID uint64, receipt *ethtypes.Receipt) ([]types.OutgoingMessage, error) {
	tokens := make(map[string]withdrawalInitiated)
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != withdrawalInitiatedTopic {
			continue
		}
		var ev withdrawalInitiated
		if err := unpackLog(childGatewayContract, &ev, "WithdrawalInitiated", *l); err != nil {
			return nil, err
		}
		tokens[ev.L2ToL1Id.String()] = ev
	}

	var msgs []types.OutgoingMessage
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 {
			continue
		}
		var (
			msg types.OutgoingMessage
			key string
		)
		switch l.Topics[0] {
		case l2ToL1TxTopic:
			var ev l2ToL1Tx
			if err := unpackLog(arbSysContract, &ev, "L2ToL1Tx", *l); err != nil {
				return nil, err
			}
			msg = types.OutgoingMessage{
				ID:          types.MessageID{ChainID: childChainID, Position: ev.Position.Uint64()},
				UniqueID:    common.BigToHash(ev.Hash).Hex(),
				Caller:      ev.Caller,
				Destination: ev.Destination,
				ArbBlockNum: ev.ArbBlockNum,
				EthBlockNum: ev.EthBlockNum,
				Timestamp:   ev.Timestamp,
				CallValue:   ev.Callvalue,
				Data:        ev.Data,
			}
			key = ev.Position.String()
		case l2ToL1TransactionTopic:
			var ev l2ToL1Transaction
			if err := unpackLog(arbSysContract, &ev, "L2ToL1Transaction", *l); err != nil {
				return nil, err
			}
			msg = types.OutgoingMessage{
				ID: types.MessageID{
					ChainID:      childChainID,
					Legacy:       true,
					BatchNumber:  ev.BatchNumber.Uint64(),
					IndexInBatch: ev.IndexInBatch.Uint64(),
				},
				UniqueID:    common.BigToHash(ev.UniqueId).Hex(),
				Caller:      ev.Caller,
				Destination: ev.Destination,
				ArbBlockNum: ev.ArbBlockNum,
				EthBlockNum: ev.EthBlockNum,
				Timestamp:   ev.Timestamp,
				CallValue:   ev.Callvalue,
				Data:        ev.Data,
			}
			key = ev.UniqueId.String()
		default:
			continue
		}

		msg.TxHash = receipt.TxHash.Hex()
		msg.Value = new(big.Int).Set(msg.CallValue)
		if w, ok := tokens[key]; ok {
			token := w.L1Token
			msg.TokenAddress = &token
			msg.Value = w.Amount
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

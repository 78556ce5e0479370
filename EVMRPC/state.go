package EVMRPC

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// QueryOutgoingMessageState answers executed, confirmed or unconfirmed for a
// message from the parent chain contracts.
func (b *Bridge) QueryOutgoingMessageState(ctx context.Context, msg types.OutgoingMessage) (types.OutgoingMessageState, error) {
	if msg.ID.Legacy {
		return b.legacyState(ctx, msg)
	}

	out, err := b.call(ctx, b.parent, common.HexToAddress(b.parentCfg.Outbox), outboxContract, "isSpent", new(big.Int).SetUint64(msg.ID.Position))
	if err != nil {
		return "", fmt.Errorf("isSpent %s: %w", msg.ID, err)
	}
	if spent, _ := out[0].(bool); spent {
		return types.MessageExecuted, nil
	}

	sendCount, err := b.confirmedSendCount(ctx)
	if err != nil {
		return "", err
	}
	if msg.ID.Position < sendCount {
		return types.MessageConfirmed, nil
	}
	return types.MessageUnconfirmed, nil
}

// confirmedSendCount is the number of outgoing messages covered by the latest
// confirmed rollup node. The node's child block header carries it in the
// first eight bytes of the mix digest.
func (b *Bridge) confirmedSendCount(ctx context.Context) (uint64, error) {
	rollup := common.HexToAddress(b.parentCfg.Rollup)
	out, err := b.call(ctx, b.parent, rollup, rollupContract, "latestConfirmed")
	if err != nil {
		return 0, fmt.Errorf("latestConfirmed: %w", err)
	}
	nodeNum, _ := out[0].(uint64)

	logs, err := WithClient(ctx, b.parent, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(b.parentCfg.StartBlock),
			Addresses: []common.Address{rollup},
			Topics: [][]common.Hash{
				{rollupContract.Events["NodeConfirmed"].ID},
				{common.BigToHash(new(big.Int).SetUint64(nodeNum))},
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("NodeConfirmed %d: %w", nodeNum, err)
	}
	if len(logs) == 0 {
		return 0, fmt.Errorf("NodeConfirmed %d: no log found", nodeNum)
	}
	var ev nodeConfirmed
	if err := unpackLog(rollupContract, &ev, "NodeConfirmed", logs[len(logs)-1]); err != nil {
		return 0, err
	}

	header, err := WithClient(ctx, b.child, func(client *ethclient.Client) (*ethtypes.Header, error) {
		return client.HeaderByHash(ctx, common.Hash(ev.BlockHash))
	})
	if err != nil {
		return 0, fmt.Errorf("header of confirmed block %s: %w", common.Hash(ev.BlockHash).Hex(), err)
	}
	return binary.BigEndian.Uint64(header.MixDigest[:8]), nil
}

func (b *Bridge) legacyState(ctx context.Context, msg types.OutgoingMessage) (types.OutgoingMessageState, error) {
	legacy := common.HexToAddress(b.parentCfg.LegacyOutbox)
	batch := new(big.Int).SetUint64(msg.ID.BatchNumber)

	logs, err := WithClient(ctx, b.parent, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(b.parentCfg.StartBlock),
			Addresses: []common.Address{legacy},
			Topics: [][]common.Hash{
				{legacyOutboxContract.Events["OutBoxTransactionExecuted"].ID},
				{common.BytesToHash(msg.Destination.Bytes())},
				{common.BytesToHash(msg.Caller.Bytes())},
				{common.BigToHash(batch)},
			},
		})
	})
	if err != nil {
		return "", fmt.Errorf("legacy executions of %s: %w", msg.ID, err)
	}
	for _, l := range logs {
		var ev outBoxTransactionExecuted
		if err := unpackLog(legacyOutboxContract, &ev, "OutBoxTransactionExecuted", l); err != nil {
			continue
		}
		if ev.TransactionIndex.Uint64() == msg.ID.IndexInBatch {
			return types.MessageExecuted, nil
		}
	}

	out, err := b.call(ctx, b.parent, legacy, legacyOutboxContract, "outboxEntryExists", batch)
	if err != nil {
		return "", fmt.Errorf("outboxEntryExists %d: %w", msg.ID.BatchNumber, err)
	}
	if exists, _ := out[0].(bool); exists {
		return types.MessageConfirmed, nil
	}
	return types.MessageUnconfirmed, nil
}

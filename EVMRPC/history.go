package EVMRPC

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"gorollupbridge/config"
	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

// parallel receipt fetches for token withdrawals found in the scan
const receiptFetchLimit = 8

// WithdrawalHistory scans the child chain from the configured start block for
// every withdrawal of account. Native withdrawals are found by the message
// destination, token withdrawals by the gateway WithdrawalInitiated sender,
// their messages are then read from the withdraw receipt.
func (b *Bridge) WithdrawalHistory(ctx context.Context, account common.Address) ([]types.OutgoingMessage, error) {
	latestBlock, err := WithClient(ctx, b.child, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("latest block of %s: %w", b.child.Name, err)
	}

	accountTopic := common.BytesToHash(account.Bytes())
	batch := uint64(b.childCfg.BlockBatch)
	if batch == 0 {
		batch = 512
	}

	var (
		native      []ethtypes.Log
		tokenTxs    []common.Hash
		seenTokenTx = make(map[common.Hash]bool)
	)
	for blockNum := b.childCfg.StartBlock; blockNum <= latestBlock; blockNum += batch {
		fromBlock := blockNum
		toBlock := blockNum + batch - 1
		if toBlock > latestBlock {
			toBlock = latestBlock
		}
		b.log.Debugf("Scanning blocks %s from %v to %v...", b.child.Name, fromBlock, toBlock)

		logs, err := b.filterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Addresses: []common.Address{common.HexToAddress(config.ARBSYS_ADDRESS)},
			Topics:    [][]common.Hash{{l2ToL1TxTopic, l2ToL1TransactionTopic}, {accountTopic}},
		})
		if err != nil {
			return nil, err
		}
		native = append(native, logs...)

		logs, err = b.filterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Topics:    [][]common.Hash{{withdrawalInitiatedTopic}, {accountTopic}},
		})
		if err != nil {
			return nil, err
		}
		for _, l := range logs {
			if !seenTokenTx[l.TxHash] {
				seenTokenTx[l.TxHash] = true
				tokenTxs = append(tokenTxs, l.TxHash)
			}
		}
	}

	var (
		mu   sync.Mutex
		msgs []types.OutgoingMessage
		seen = make(map[string]bool)
	)
	add := func(found []types.OutgoingMessage) {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range found {
			if seen[m.UniqueID] {
				continue
			}
			seen[m.UniqueID] = true
			msgs = append(msgs, m)
		}
	}

	for _, l := range native {
		l := l
		found, err := ParseOutgoingMessages(b.childCfg.ChainID, &ethtypes.Receipt{TxHash: l.TxHash, Logs: []*ethtypes.Log{&l}})
		if err != nil {
			b.log.Warnf("Skipping unreadable outgoing message log in %s: %s", l.TxHash.Hex(), err.Error())
			continue
		}
		add(found)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(receiptFetchLimit)
	for _, hash := range tokenTxs {
		hash := hash
		g.Go(func() error {
			receipt, err := WithClient(gctx, b.child, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
				return client.TransactionReceipt(gctx, hash)
			})
			if err != nil {
				return fmt.Errorf("receipt of token withdrawal %s: %w", hash.Hex(), err)
			}
			found, err := ParseOutgoingMessages(b.childCfg.ChainID, receipt)
			if err != nil {
				return fmt.Errorf("outgoing messages of %s: %w", hash.Hex(), err)
			}
			add(found)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.log.Infof("Found %d withdrawals of %s on %s", len(msgs), account.Hex(), b.child.Name)
	return msgs, nil
}

func (b *Bridge) filterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	logs, err := WithClient(ctx, b.child, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("error querying %s logs %v-%v: %w", b.child.Name, q.FromBlock, q.ToBlock, err)
	}
	return logs, nil
}

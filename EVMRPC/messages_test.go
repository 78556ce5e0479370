package EVMRPC

import (
	"math/big"
	"testing"

	"gorollupbridge/config"
	"gorollupbridge/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	l1Gateway = common.HexToAddress("0x902b3e5f8f19571859f4ab1003b960a5df693aff")
	l2Gateway = common.HexToAddress("0x6e244cd02bbb8a6dbd7f626f05b2ef82151ab502")
	l1Token   = common.HexToAddress("0x1c7d4b196cb0c7b01d743fbc6116a902379c7238")
)

func l2ToL1TxLog(t *testing.T, caller, dest common.Address, hash, position int64, callvalue *big.Int) *ethtypes.Log {
	t.Helper()
	data, err := arbSysContract.Events["L2ToL1Tx"].Inputs.NonIndexed().Pack(
		caller, big.NewInt(1000), big.NewInt(2000), big.NewInt(1700000000), callvalue, []byte{0xca, 0xfe})
	require.NoError(t, err)
	return &ethtypes.Log{
		Address: common.HexToAddress(config.ARBSYS_ADDRESS),
		Topics: []common.Hash{
			l2ToL1TxTopic,
			common.BytesToHash(dest.Bytes()),
			common.BigToHash(big.NewInt(hash)),
			common.BigToHash(big.NewInt(position)),
		},
		Data: data,
	}
}

func TestParseNativeWithdrawal(t *testing.T) {
	txHash := common.HexToHash("0x01")
	receipt := &ethtypes.Receipt{
		TxHash: txHash,
		Logs:   []*ethtypes.Log{l2ToL1TxLog(t, sender, sender, 0xabc, 42, big.NewInt(5))},
	}

	msgs, err := ParseOutgoingMessages(testChildChainID, receipt)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	assert.Equal(t, types.MessageID{ChainID: testChildChainID, Position: 42}, m.ID)
	assert.Equal(t, common.BigToHash(big.NewInt(0xabc)).Hex(), m.UniqueID)
	assert.Equal(t, txHash.Hex(), m.TxHash)
	assert.Equal(t, sender, m.Caller)
	assert.Equal(t, sender, m.Destination)
	assert.Equal(t, big.NewInt(1000), m.ArbBlockNum)
	assert.Equal(t, big.NewInt(2000), m.EthBlockNum)
	assert.Equal(t, []byte{0xca, 0xfe}, m.Data)
	assert.Equal(t, big.NewInt(5), m.Value)
	assert.Nil(t, m.TokenAddress)
	assert.Equal(t, types.AssetNative, m.AssetType())
}

func TestParseTokenWithdrawal(t *testing.T) {
	data, err := childGatewayContract.Events["WithdrawalInitiated"].Inputs.NonIndexed().Pack(
		l1Token, big.NewInt(3), big.NewInt(5_000_000))
	require.NoError(t, err)
	initiated := &ethtypes.Log{
		Address: l2Gateway,
		Topics: []common.Hash{
			withdrawalInitiatedTopic,
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(sender.Bytes()),
			common.BigToHash(big.NewInt(42)),
		},
		Data: data,
	}
	receipt := &ethtypes.Receipt{
		TxHash: common.HexToHash("0x02"),
		Logs:   []*ethtypes.Log{l2ToL1TxLog(t, l2Gateway, l1Gateway, 0xdef, 42, big.NewInt(0)), initiated},
	}

	msgs, err := ParseOutgoingMessages(testChildChainID, receipt)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	require.NotNil(t, m.TokenAddress)
	assert.Equal(t, l1Token, *m.TokenAddress)
	assert.Equal(t, big.NewInt(5_000_000), m.Value)
	assert.Equal(t, l1Gateway, m.Destination)
	assert.Equal(t, types.AssetERC20, m.AssetType())
}

func TestParseLegacyWithdrawal(t *testing.T) {
	data, err := arbSysContract.Events["L2ToL1Transaction"].Inputs.NonIndexed().Pack(
		sender, big.NewInt(7), big.NewInt(1000), big.NewInt(2000), big.NewInt(1600000000), big.NewInt(9), []byte{})
	require.NoError(t, err)
	receipt := &ethtypes.Receipt{
		TxHash: common.HexToHash("0x03"),
		Logs: []*ethtypes.Log{{
			Address: common.HexToAddress(config.ARBSYS_ADDRESS),
			Topics: []common.Hash{
				l2ToL1TransactionTopic,
				common.BytesToHash(sender.Bytes()),
				common.BigToHash(big.NewInt(555)),
				common.BigToHash(big.NewInt(12)),
			},
			Data: data,
		}},
	}

	msgs, err := ParseOutgoingMessages(testChildChainID, receipt)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	id := msgs[0].ID
	assert.True(t, id.Legacy)
	assert.Equal(t, uint64(12), id.BatchNumber)
	assert.Equal(t, uint64(7), id.IndexInBatch)
	assert.Equal(t, "chainId: 421614, batchNumber: 12, indexInBatch: 7", id.String())
	assert.Equal(t, big.NewInt(9), msgs[0].Value)
}

func TestParseCountsEveryMessage(t *testing.T) {
	receipt := &ethtypes.Receipt{Logs: []*ethtypes.Log{
		l2ToL1TxLog(t, sender, sender, 1, 1, big.NewInt(1)),
		{Address: sender, Topics: []common.Hash{common.HexToHash("0xff")}},
		l2ToL1TxLog(t, sender, sender, 2, 2, big.NewInt(1)),
	}}

	msgs, err := ParseOutgoingMessages(testChildChainID, receipt)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	none, err := ParseOutgoingMessages(testChildChainID, &ethtypes.Receipt{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

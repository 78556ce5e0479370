package EVMRPC

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Only the parts of the rollup contracts the bridge touches.

const inboxABI = `[
	{"type":"function","name":"depositEth","stateMutability":"payable","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"InboxMessageDelivered","anonymous":false,"inputs":[
		{"name":"messageNum","type":"uint256","indexed":true},
		{"name":"data","type":"bytes","indexed":false}]}
]`

const rollupBridgeABI = `[
	{"type":"event","name":"MessageDelivered","anonymous":false,"inputs":[
		{"name":"messageIndex","type":"uint256","indexed":true},
		{"name":"beforeInboxAcc","type":"bytes32","indexed":true},
		{"name":"inbox","type":"address","indexed":false},
		{"name":"kind","type":"uint8","indexed":false},
		{"name":"sender","type":"address","indexed":false},
		{"name":"messageDataHash","type":"bytes32","indexed":false},
		{"name":"baseFeeL1","type":"uint256","indexed":false},
		{"name":"timestamp","type":"uint64","indexed":false}]}
]`

const parentRouterABI = `[
	{"type":"function","name":"outboundTransfer","stateMutability":"payable","inputs":[
		{"name":"_token","type":"address"},
		{"name":"_to","type":"address"},
		{"name":"_amount","type":"uint256"},
		{"name":"_maxGas","type":"uint256"},
		{"name":"_gasPriceBid","type":"uint256"},
		{"name":"_data","type":"bytes"}],
	 "outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"getGateway","stateMutability":"view","inputs":[{"name":"_token","type":"address"}],"outputs":[{"name":"gateway","type":"address"}]}
]`

const childRouterABI = `[
	{"type":"function","name":"outboundTransfer","stateMutability":"payable","inputs":[
		{"name":"_l1Token","type":"address"},
		{"name":"_to","type":"address"},
		{"name":"_amount","type":"uint256"},
		{"name":"_data","type":"bytes"}],
	 "outputs":[{"name":"","type":"bytes"}]}
]`

const childGatewayABI = `[
	{"type":"event","name":"WithdrawalInitiated","anonymous":false,"inputs":[
		{"name":"l1Token","type":"address","indexed":false},
		{"name":"_from","type":"address","indexed":true},
		{"name":"_to","type":"address","indexed":true},
		{"name":"_l2ToL1Id","type":"uint256","indexed":true},
		{"name":"_exitNum","type":"uint256","indexed":false},
		{"name":"_amount","type":"uint256","indexed":false}]}
]`

const arbSysABI = `[
	{"type":"function","name":"withdrawEth","stateMutability":"payable","inputs":[{"name":"destination","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"L2ToL1Tx","anonymous":false,"inputs":[
		{"name":"caller","type":"address","indexed":false},
		{"name":"destination","type":"address","indexed":true},
		{"name":"hash","type":"uint256","indexed":true},
		{"name":"position","type":"uint256","indexed":true},
		{"name":"arbBlockNum","type":"uint256","indexed":false},
		{"name":"ethBlockNum","type":"uint256","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false},
		{"name":"callvalue","type":"uint256","indexed":false},
		{"name":"data","type":"bytes","indexed":false}]},
	{"type":"event","name":"L2ToL1Transaction","anonymous":false,"inputs":[
		{"name":"caller","type":"address","indexed":false},
		{"name":"destination","type":"address","indexed":true},
		{"name":"uniqueId","type":"uint256","indexed":true},
		{"name":"batchNumber","type":"uint256","indexed":true},
		{"name":"indexInBatch","type":"uint256","indexed":false},
		{"name":"arbBlockNum","type":"uint256","indexed":false},
		{"name":"ethBlockNum","type":"uint256","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false},
		{"name":"callvalue","type":"uint256","indexed":false},
		{"name":"data","type":"bytes","indexed":false}]}
]`

const outboxABI = `[
	{"type":"function","name":"executeTransaction","stateMutability":"nonpayable","inputs":[
		{"name":"proof","type":"bytes32[]"},
		{"name":"index","type":"uint256"},
		{"name":"l2Sender","type":"address"},
		{"name":"to","type":"address"},
		{"name":"l2Block","type":"uint256"},
		{"name":"l1Block","type":"uint256"},
		{"name":"l2Timestamp","type":"uint256"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"}],
	 "outputs":[]},
	{"type":"function","name":"isSpent","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const legacyOutboxABI = `[
	{"type":"function","name":"outboxEntryExists","stateMutability":"view","inputs":[{"name":"batchNum","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"OutBoxTransactionExecuted","anonymous":false,"inputs":[
		{"name":"destAddr","type":"address","indexed":true},
		{"name":"l2Sender","type":"address","indexed":true},
		{"name":"outboxEntryIndex","type":"uint256","indexed":true},
		{"name":"transactionIndex","type":"uint256","indexed":false}]}
]`

const nodeInterfaceABI = `[
	{"type":"function","name":"constructOutboxProof","stateMutability":"view","inputs":[
		{"name":"size","type":"uint64"},
		{"name":"leaf","type":"uint64"}],
	 "outputs":[
		{"name":"send","type":"bytes32"},
		{"name":"root","type":"bytes32"},
		{"name":"proof","type":"bytes32[]"}]}
]`

const rollupABI = `[
	{"type":"function","name":"latestConfirmed","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"event","name":"NodeConfirmed","anonymous":false,"inputs":[
		{"name":"nodeNum","type":"uint64","indexed":true},
		{"name":"blockHash","type":"bytes32","indexed":false},
		{"name":"sendRoot","type":"bytes32","indexed":false}]}
]`

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	inboxContract         = mustParse(inboxABI)
	rollupBridgeContract  = mustParse(rollupBridgeABI)
	parentRouterContract  = mustParse(parentRouterABI)
	childRouterContract   = mustParse(childRouterABI)
	childGatewayContract  = mustParse(childGatewayABI)
	arbSysContract        = mustParse(arbSysABI)
	outboxContract        = mustParse(outboxABI)
	legacyOutboxContract  = mustParse(legacyOutboxABI)
	nodeInterfaceContract = mustParse(nodeInterfaceABI)
	rollupContract        = mustParse(rollupABI)
	erc20Contract         = mustParse(erc20ABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// raw log shapes, field names follow abi.ToCamelCase of the event arguments

type inboxMessageDelivered struct {
	MessageNum *big.Int
	Data       []byte
}

type messageDelivered struct {
	MessageIndex    *big.Int
	BeforeInboxAcc  [32]byte
	Inbox           common.Address
	Kind            uint8
	Sender          common.Address
	MessageDataHash [32]byte
	BaseFeeL1       *big.Int
	Timestamp       uint64
}

type l2ToL1Tx struct {
	Caller      common.Address
	Destination common.Address
	Hash        *big.Int
	Position    *big.Int
	ArbBlockNum *big.Int
	EthBlockNum *big.Int
	Timestamp   *big.Int
	Callvalue   *big.Int
	Data        []byte
}

type l2ToL1Transaction struct {
	Caller       common.Address
	Destination  common.Address
	UniqueId     *big.Int
	BatchNumber  *big.Int
	IndexInBatch *big.Int
	ArbBlockNum  *big.Int
	EthBlockNum  *big.Int
	Timestamp    *big.Int
	Callvalue    *big.Int
	Data         []byte
}

type withdrawalInitiated struct {
	L1Token  common.Address
	From     common.Address
	To       common.Address
	L2ToL1Id *big.Int
	ExitNum  *big.Int
	Amount   *big.Int
}

type outBoxTransactionExecuted struct {
	DestAddr         common.Address
	L2Sender         common.Address
	OutboxEntryIndex *big.Int
	TransactionIndex *big.Int
}

type nodeConfirmed struct {
	NodeNum   uint64
	BlockHash [32]byte
	SendRoot  [32]byte
}

// unpackLog decodes indexed and data fields of a log into out.
func unpackLog(contract abi.ABI, out interface{}, event string, l ethtypes.Log) error {
	return bind.NewBoundContract(l.Address, contract, nil, nil, nil).UnpackLog(out, event, l)
}

package types

// it is assumed parent chain is the L1 (Ethereum mainnet, id 1 or a testnet)
// and child chain is the rollup (Arbitrum One 42161, Nova 42170, etc.)

type ChainSide int

const (
	SideParent ChainSide = 0
	SideChild  ChainSide = 1
)

func (s ChainSide) String() string {
	if s == SideChild {
		return "child"
	}
	return "parent"
}

type TxType string

const (
	TxSourceDeposit                TxType = "source-deposit"
	TxDestinationDeposit           TxType = "destination-deposit"
	TxDestinationDepositAutoRedeem TxType = "destination-deposit-auto-redeem"
	TxWithdraw                     TxType = "withdraw"
	TxOutboxClaim                  TxType = "outbox-claim"
	TxApprove                      TxType = "approve"
)

type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusTimedOut  TxStatus = "timed-out" // destination wait gave up, still watchable
	StatusSuccess   TxStatus = "success"
	StatusFailure   TxStatus = "failure"
	StatusConfirmed TxStatus = "confirmed"
)

// Terminal statuses get a resolve timestamp and never go back.
func (s TxStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusConfirmed
}

// allowed moves, everything else is rejected by the ledger
var transitions = map[TxStatus][]TxStatus{
	StatusPending:  {StatusTimedOut, StatusSuccess, StatusFailure, StatusConfirmed},
	StatusTimedOut: {StatusSuccess, StatusFailure},
	StatusSuccess:  {StatusConfirmed},
}

func (s TxStatus) CanMoveTo(next TxStatus) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Phase separates a hash we computed ourselves (destination leg of a deposit,
// not mined yet) from one the chain has shown us.
type Phase string

const (
	PhaseAnnounced Phase = "announced"
	PhaseObserved  Phase = "observed"
)

type AssetType string

const (
	AssetNative AssetType = "native"
	AssetERC20  AssetType = "erc20"
	AssetERC721 AssetType = "erc721"
)

// Transaction is a single on-chain submission belonging to a transfer.
// TxID is the identity key inside the ledger.
type Transaction struct {
	Type              TxType    `json:"type"`
	Status            TxStatus  `json:"status"`
	Phase             Phase     `json:"phase"`
	Value             *string   `json:"value"` // decimal string as entered, nil for claims
	TxID              string    `json:"txID"`
	ParentTxID        string    `json:"parentTxID,omitempty"` // source leg of a destination leg
	AssetName         string    `json:"assetName"`
	AssetType         AssetType `json:"assetType"`
	Sender            string    `json:"sender"`
	SourceChainID     uint64    `json:"sourceChainId"`
	BlockNumber       *uint64   `json:"blockNumber,omitempty"`
	TimestampResolved *int64    `json:"timestampResolved,omitempty"`
	TimestampCreated  int64     `json:"timestampCreated"`
}

func (t Transaction) Clone() Transaction {
	c := t
	if t.Value != nil {
		v := *t.Value
		c.Value = &v
	}
	if t.BlockNumber != nil {
		b := *t.BlockNumber
		c.BlockNumber = &b
	}
	if t.TimestampResolved != nil {
		ts := *t.TimestampResolved
		c.TimestampResolved = &ts
	}
	return c
}

package handlers

import (
	"gorollupbridge/balance"
	"gorollupbridge/types"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type APIStateResponse struct {
	Status        string     `json:"status"`
	Message       string     `json:"message"`
	Account       string     `json:"account"`
	ParentChainID uint64     `json:"parentChainId"`
	ChildChainID  uint64     `json:"childChainId"`
	Transactions  int        `json:"transactions"`
	Withdrawals   int        `json:"withdrawals"`
	Assets        []APIAsset `json:"assets"`
}

type APIAsset struct {
	Symbol   string `json:"symbol"`
	Type     string `json:"type"`
	Decimals int32  `json:"decimals"`
	Parent   string `json:"parent,omitempty"`
	Child    string `json:"child,omitempty"`
}

// body of /deposit, /withdraw and /approve
type TransferRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type APISubmitResponse struct {
	Status string `json:"status"`
	TxID   string `json:"txID"`
}

type APITransactionsResponse struct {
	Status       string              `json:"status"`
	Transactions []types.Transaction `json:"transactions"`
}

type APIClearResponse struct {
	Status  string `json:"status"`
	Removed int    `json:"removed"`
}

type APIWithdrawalsResponse struct {
	Status      string                    `json:"status"`
	Withdrawals []types.PendingWithdrawal `json:"withdrawals"`
}

type APIBalancesResponse struct {
	Status  string `json:"status"`
	Account string `json:"account"`
	balance.Snapshot
}

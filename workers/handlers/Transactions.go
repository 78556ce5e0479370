package handlers

import (
	"net/http"

	"gorollupbridge/types"
)

func Transactions(w http.ResponseWriter, r *http.Request) {
	txs := deps.Orchestrator.Transactions()
	if txs == nil {
		txs = []types.Transaction{}
	}
	responseJSON(w, &APITransactionsResponse{
		Status:       "ok",
		Transactions: txs,
	}, http.StatusOK)
}

// ClearPending is the manual reset for records stuck in pending.
func ClearPending(w http.ResponseWriter, r *http.Request) {
	n, err := deps.Orchestrator.ClearPending(r.Context())
	if err != nil {
		deps.Log.Errorf("Error clearing pending transactions: %s", err.Error())
		responseError(w, "Cannot persist cleared ledger", "", http.StatusInternalServerError)
		return
	}
	deps.Log.Infof("Cleared %d pending transactions", n)
	responseJSON(w, &APIClearResponse{
		Status:  "ok",
		Removed: n,
	}, http.StatusOK)
}

func Withdrawals(w http.ResponseWriter, r *http.Request) {
	list := deps.Orchestrator.PendingWithdrawals()
	if list == nil {
		list = []types.PendingWithdrawal{}
	}
	responseJSON(w, &APIWithdrawalsResponse{
		Status:      "ok",
		Withdrawals: list,
	}, http.StatusOK)
}

package handlers

import (
	"net/http"
)

// Balances serves the last fetched values, it never calls the chains.
func Balances(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIBalancesResponse{
		Status:   "ok",
		Account:  deps.Account,
		Snapshot: deps.Balances.Snapshot(),
	}, http.StatusOK)
}

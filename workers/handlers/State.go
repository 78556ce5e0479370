package handlers

import (
	"net/http"
)

func State(w http.ResponseWriter, r *http.Request) {
	resp := &APIStateResponse{
		Status:        "ok",
		Account:       deps.Account,
		ParentChainID: deps.ParentChain,
		ChildChainID:  deps.ChildChain,
		Transactions:  len(deps.Orchestrator.Transactions()),
		Withdrawals:   len(deps.Orchestrator.PendingWithdrawals()),
	}
	if deps.Assets != nil {
		for _, a := range deps.Assets.List() {
			asset := APIAsset{Symbol: a.Symbol, Type: string(a.Type), Decimals: a.Decimals}
			if !a.IsNative() {
				asset.Parent = a.ParentAddress.Hex()
				asset.Child = a.ChildAddress.Hex()
			}
			resp.Assets = append(resp.Assets, asset)
		}
	}
	responseJSON(w, resp, http.StatusOK)
}

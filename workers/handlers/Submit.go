package handlers

import (
	"context"
	"net/http"

	"gorollupbridge/bridge"

	"github.com/go-chi/chi"
)

type submitFunc func(ctx context.Context, asset bridge.Asset, amount string) (*bridge.Transfer, error)

// submit decodes a TransferRequest and starts the flow. The response carries
// the source hash only, the outcome shows up in /transactions and /events.
func submit(kind string, start submitFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransferRequest
		if !readRequest(w, r, &req) {
			return
		}
		if req.Amount == "" {
			responseError(w, "No amount provided", "amount", http.StatusBadRequest)
			return
		}
		asset, err := deps.Assets.Resolve(req.Asset)
		if err != nil {
			deps.Log.Warnf("Error resolving %s asset '%s': %s", kind, req.Asset, err.Error())
			responseError(w, err.Error(), "asset", http.StatusBadRequest)
			return
		}

		transfer, err := start(r.Context(), asset, req.Amount)
		if err != nil {
			code := errorCode(err)
			field := ""
			if code == http.StatusBadRequest {
				field = "amount"
			}
			responseError(w, err.Error(), field, code)
			return
		}
		responseJSON(w, &APISubmitResponse{
			Status: "ok",
			TxID:   transfer.SourceHash.Hex(),
		}, http.StatusAccepted)
	}
}

func Deposit(w http.ResponseWriter, r *http.Request) {
	submit("deposit", func(ctx context.Context, asset bridge.Asset, amount string) (*bridge.Transfer, error) {
		return deps.Orchestrator.Deposit(ctx, bridge.DepositRequest{Asset: asset, Amount: amount})
	})(w, r)
}

func Withdraw(w http.ResponseWriter, r *http.Request) {
	submit("withdraw", func(ctx context.Context, asset bridge.Asset, amount string) (*bridge.Transfer, error) {
		return deps.Orchestrator.Withdraw(ctx, bridge.WithdrawRequest{Asset: asset, Amount: amount})
	})(w, r)
}

func Approve(w http.ResponseWriter, r *http.Request) {
	submit("approve", func(ctx context.Context, asset bridge.Asset, amount string) (*bridge.Transfer, error) {
		return deps.Orchestrator.Approve(ctx, bridge.ApproveRequest{Asset: asset, Amount: amount})
	})(w, r)
}

// Claim executes the pending withdrawal named by the {id} url param.
func Claim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		responseError(w, "No withdrawal id provided", "id", http.StatusBadRequest)
		return
	}
	transfer, err := deps.Orchestrator.Claim(r.Context(), id)
	if err != nil {
		responseError(w, err.Error(), "", errorCode(err))
		return
	}
	responseJSON(w, &APISubmitResponse{
		Status: "ok",
		TxID:   transfer.SourceHash.Hex(),
	}, http.StatusAccepted)
}

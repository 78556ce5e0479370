package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gorollupbridge/bridge"
)

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responseError(w http.ResponseWriter, message string, field string, code int) {
	responseJSON(w, &APIResponse{
		Status:  "error",
		Message: message,
		Field:   field,
	}, code)
}

// errorCode maps orchestrator errors to HTTP statuses.
func errorCode(err error) int {
	switch {
	case errors.Is(err, bridge.ErrAmount), errors.Is(err, bridge.ErrNotToken), errors.Is(err, ErrUnknownAsset):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrClaimInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// 1MB is plenty for a transfer request
const maxBodySize = 1 << 20

func readRequest(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		deps.Log.Warnf("Error reading request body: %s", err.Error())
		responseError(w, "Error reading request body", "", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		deps.Log.Warnf("Error unmarshalling request body: %s", err.Error())
		responseError(w, "Cannot unmarshal input JSON", "", http.StatusBadRequest)
		return false
	}
	return true
}

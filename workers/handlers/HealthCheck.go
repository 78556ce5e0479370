package handlers

import (
	"net/http"
)

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	if deps.Health != nil {
		if err := deps.Health(r.Context()); err != nil {
			deps.Log.Errorf("Healthcheck failed: %s", err.Error())
			responseError(w, "store unavailable", "", http.StatusServiceUnavailable)
			return
		}
	}
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}

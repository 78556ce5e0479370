package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gorollupbridge/events"
)

// events buffered per client, a slow client loses events rather than
// stalling the bus
const eventBuffer = 64

// Events streams bus events as server-sent events until the client goes away.
func Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		responseError(w, "streaming unsupported", "", http.StatusInternalServerError)
		return
	}

	ch := make(chan events.Event, eventBuffer)
	bus := deps.Orchestrator.Events()
	id := bus.Subscribe(func(e events.Event) {
		select {
		case ch <- e:
		default:
			deps.Log.Warnf("Dropping %s event for slow client", e.Kind)
		}
	})
	defer bus.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			data, err := json.Marshal(e)
			if err != nil {
				deps.Log.Errorf("Error marshalling %s event: %s", e.Kind, err.Error())
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}

// Package api mounts the read-only run status endpoints
package api

import (
	"net/http"

	"seqrun/internal/platform/httpd"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/services/status/domain"
)

// Options wires the api surface
type Options struct {
	Run        runcfg.Config
	Aggregator domain.AggregatorPort
}

// Mount attaches the endpoints to the router
func Mount(r httpd.Router, opts Options) {
	h := handlers{opts: opts}
	r.Get("/ping", h.ping)
	r.Get("/status", h.status)
	r.Get("/config", h.config)
}

type handlers struct {
	opts Options
}

func (h handlers) ping(w http.ResponseWriter, _ *http.Request) {
	httpd.RespondOK(w, map[string]string{"ping": "pong"})
}

// status derives the run phase on demand; the response carries the phase
// word plus raw counts so callers can render progress
func (h handlers) status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.opts.Aggregator.Check(r.Context())
	if err != nil {
		httpd.RespondError(w, err)
		return
	}
	httpd.RespondOK(w, struct {
		Phase  string `json:"phase"`
		Counts any    `json:"counts"`
	}{Phase: snap.Phase.String(), Counts: snap.Counts})
}

func (h handlers) config(w http.ResponseWriter, _ *http.Request) {
	httpd.RespondOK(w, h.opts.Run)
}

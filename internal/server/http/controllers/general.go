package controllers

import (
	"net/http"

	"github.com/rzbill/streamsync/internal/runtime"
)

// GeneralController handles health, readiness and stats.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/readyz", c.handleReady)
	mux.HandleFunc("/v1/stats", c.handleStats)
}

// handleHealth returns 200 OK with {"status": "ok"} if the backend answers,
// 503 Service Unavailable otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleReady reports whether the synchronizer is mirroring events.
func (c *GeneralController) handleReady(w http.ResponseWriter, r *http.Request) {
	if !c.rt.Ready() {
		writeError(w, http.StatusServiceUnavailable, c.rt.Synchronizer().State().String())
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

func (c *GeneralController) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sync := c.rt.Synchronizer()
	writeJSON(w, statsJSON{
		State:        sync.State().String(),
		Pending:      sync.Pending(),
		Listeners:    c.rt.Collector().Listeners(),
		Synchronizer: sync.Stats(),
		Storage:      c.rt.Storage(),
	})
}

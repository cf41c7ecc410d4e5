package controllers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rzbill/streamsync/internal/notification"
	"github.com/rzbill/streamsync/internal/runtime"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

const streamsPrefix = "/v1/streams/"

// StreamsController serves the recorded streams and lets operators announce
// or withdraw streams on the in-process collector.
//
// Reads come from the datastore, so they reflect what the synchronizer has
// committed rather than what the collector currently advertises.
type StreamsController struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// NewStreamsController creates a new streams controller.
func NewStreamsController(rt *runtime.Runtime, logger logpkg.Logger) *StreamsController {
	return &StreamsController{rt: rt, logger: logger}
}

// RegisterRoutes registers all stream-related routes with the given mux.
func (c *StreamsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/streams", c.handleListStreams)
	mux.HandleFunc("/v1/streams/register", c.handleRegister)
	mux.HandleFunc("/v1/streams/unregister", c.handleUnregister)
	mux.HandleFunc(streamsPrefix, c.handleGetStream)
}

// handleListStreams lists recorded streams, optionally narrowed by a CEL
// expression in ?filter=.
func (c *StreamsController) handleListStreams(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	filter, err := newStreamFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter: "+err.Error())
		return
	}
	streams, err := c.rt.ListStreams(r.Context())
	if err != nil {
		c.logger.Error("list streams failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to list streams")
		return
	}
	out := make([]streamJSON, 0, len(streams))
	for _, s := range streams {
		if filter.Eval(s) {
			out = append(out, toStreamJSON(s))
		}
	}
	writeJSON(w, map[string]any{"streams": out})
}

// handleGetStream returns one recorded stream by its path-escaped name.
func (c *StreamsController) handleGetStream(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	raw := strings.TrimPrefix(r.URL.EscapedPath(), streamsPrefix)
	name, err := url.PathUnescape(raw)
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, "Invalid stream name")
		return
	}
	s, err := c.rt.GetStream(r.Context(), notification.StreamName(name))
	if errors.Is(err, runtime.ErrStreamNotFound) {
		writeError(w, http.StatusNotFound, "Stream not found")
		return
	}
	if err != nil {
		c.logger.Error("get stream failed", logpkg.Str(logpkg.StreamKey, name), logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to get stream")
		return
	}
	writeJSON(w, toStreamJSON(s))
}

// handleRegister announces a stream. The record appears once the
// synchronizer's transaction commits.
func (c *StreamsController) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := c.rt.Collector().RegisterStream(req.stream()); err != nil {
		if errors.Is(err, notification.ErrInvalidStream) {
			writeError(w, http.StatusBadRequest, "Stream name is required")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "Collector unavailable")
		return
	}
	writeAccepted(w)
}

// handleUnregister withdraws a stream.
func (c *StreamsController) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req unregisterReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.rt.Collector().UnregisterStream(notification.StreamName(req.Name))
	writeAccepted(w)
}

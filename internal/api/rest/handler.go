// Package rest provides the JSON HTTP binding of the control surface.
package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/app/control"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/media"
)

// StatusResponse is the GET /status payload.
type StatusResponse struct {
	LoopsDone      int    `json:"loops_done"`
	LoopCount      int    `json:"loop_count"`
	LoopStateIndex int    `json:"loop_state_index"`
	LoopState      string `json:"loop_state"`
}

// LoopResponse is the GET /loop payload.
type LoopResponse struct {
	StateIndex int    `json:"state_index"`
	State      string `json:"state"`
	LoopCount  int    `json:"loop_count"`
}

// LoopRequest is the POST /loop body. Absent fields are left unchanged.
type LoopRequest struct {
	StateIndex *int `json:"state_index"`
	LoopCount  *int `json:"loop_count"`
}

// Patch converts the request to a loop patch.
func (r LoopRequest) Patch() loop.Patch {
	var p loop.Patch
	if r.StateIndex != nil {
		m := loop.Mode(*r.StateIndex)
		p.Mode = &m
	}
	p.TargetCount = r.LoopCount
	return p
}

// SongInfoResponse is the GET /songinfo payload.
type SongInfoResponse struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms"`
	ProgressMs int64  `json:"progress_ms"`
	IsPlaying  bool   `json:"is_playing"`
}

// Result is the body of command and update responses.
type Result struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Handler serves the REST routes.
type Handler struct {
	svc *control.Service
}

// NewHandler creates a new REST handler.
func NewHandler(svc *control.Service) *Handler {
	return &Handler{svc: svc}
}

// commandRoutes maps command paths to media commands.
var commandRoutes = map[string]media.Command{
	"/playpause":  media.PlayPause,
	"/next":       media.Next,
	"/prev":       media.Prev,
	"/volumeup":   media.VolumeUp,
	"/volumedown": media.VolumeDown,
	"/mute":       media.Mute,
}

// Register registers the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	for path, cmd := range commandRoutes {
		mux.HandleFunc("POST "+path, h.command(cmd))
	}
	mux.HandleFunc("GET /loop", h.getLoop)
	mux.HandleFunc("POST /loop", h.setLoop)
	mux.HandleFunc("GET /songinfo", h.songInfo)
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /healthz", h.healthz)
}

func (h *Handler) command(cmd media.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Execute(r.Context(), cmd); err != nil {
			writeJSON(r.Context(), w, http.StatusBadGateway, Result{Status: "error", Error: err.Error()})
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, Result{Status: "ok"})
	}
}

func (h *Handler) getLoop(w http.ResponseWriter, r *http.Request) {
	cfg := h.svc.GetLoop()
	writeJSON(r.Context(), w, http.StatusOK, LoopResponse{
		StateIndex: int(cfg.Mode),
		State:      cfg.Mode.String(),
		LoopCount:  cfg.TargetCount,
	})
}

func (h *Handler) setLoop(w http.ResponseWriter, r *http.Request) {
	var req LoopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(r.Context(), w, http.StatusBadRequest, Result{Status: "error", Error: "invalid JSON body: " + err.Error()})
		return
	}

	if _, err := h.svc.SetLoop(req.Patch()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, loop.ErrInvalidConfiguration) {
			status = http.StatusBadRequest
		}
		writeJSON(r.Context(), w, status, Result{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, Result{Status: "ok"})
}

func (h *Handler) songInfo(w http.ResponseWriter, r *http.Request) {
	snapshot := h.svc.SongInfo(r.Context())
	if snapshot == nil {
		writeJSON(r.Context(), w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, SongInfoResponse{
		Title:      snapshot.Title,
		Artist:     snapshot.Artist(),
		DurationMs: snapshot.Duration.Milliseconds(),
		ProgressMs: snapshot.Progress.Milliseconds(),
		IsPlaying:  snapshot.IsPlaying,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	cfg, _ := h.svc.GetStatus()
	writeJSON(r.Context(), w, http.StatusOK, StatusResponse{
		LoopsDone:      cfg.CompletedCount,
		LoopCount:      cfg.TargetCount,
		LoopStateIndex: int(cfg.Mode),
		LoopState:      cfg.Mode.String(),
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, Result{Status: "ok"})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Ctx(ctx).Debug().Msgf("failed to write response: %v", err)
	}
}

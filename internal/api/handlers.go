package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/journeykit/delivery/internal/repo"
	"github.com/journeykit/delivery/internal/scheduler"
)

// Resumer reactivates a paused recipient; implemented by service.Deliverer.
type Resumer interface {
	Resume(ctx context.Context, recipientID int64) error
}

type Handler struct {
	sched    *scheduler.Scheduler
	resumer  Resumer
	journeys repo.JourneyRepository
	audits   repo.AuditRepository
}

func NewHandler(s *scheduler.Scheduler, resumer Resumer, journeys repo.JourneyRepository, audits repo.AuditRepository) *Handler {
	return &Handler{sched: s, resumer: resumer, journeys: journeys, audits: audits}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

// ResumeRecipient reactivates a paused recipient, the entry point for
// operators once a content gap has been filled.
func (h *Handler) ResumeRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	switch err := h.resumer.Resume(r.Context(), id); {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "recipient not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrConflict):
		http.Error(w, "recipient is not paused", http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"resumed": id})
	}
}

func (h *Handler) RecipientProgress(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	rec, err := h.journeys.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, "recipient not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec.Progress())
}

func (h *Handler) ListAudits(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.audits.ListRecent(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

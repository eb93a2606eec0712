package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"audiowave/internal/httpkit"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/progress"
)

// ProgressResult is the body of GET /progress/{runId}.
type ProgressResult struct {
	RunID   string  `json:"run_id"`
	Percent float64 `json:"percent"`
}

// GetProgress returns the latest render percent reported for a run.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) error {
	if h.progress == nil {
		return errors.New(errors.CodeUnavailable, "progress tracking is not configured")
	}
	runID, err := progressRunID(r)
	if err != nil {
		return err
	}
	p, err := h.progress.Latest(r.Context(), runID)
	if err != nil {
		return err
	}
	httpkit.WriteSuccess(w, http.StatusOK, ProgressResult{RunID: runID, Percent: p})
	return nil
}

// StreamProgress writes a run's updates as NDJSON, starting with the latest
// known percent, until the render reaches 100 or the client goes away.
func (h *Handler) StreamProgress(w http.ResponseWriter, r *http.Request) error {
	if h.events == nil {
		return errors.New(errors.CodeUnavailable, "progress streaming is not configured")
	}
	runID, err := progressRunID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before reading the latest value so no update falls between.
	updates, err := h.events.Subscribe(ctx, runID)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "progress.stream", "progress store unavailable")
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	send := func(u progress.Update) bool {
		if err := enc.Encode(u); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return u.Percent < 100
	}

	if h.progress != nil {
		if p, err := h.progress.Latest(ctx, runID); err == nil && !send(progress.Update{RunID: runID, Percent: p}) {
			return nil
		}
	}
	for u := range updates {
		if !send(u) {
			return nil
		}
	}
	return nil
}

func progressRunID(r *http.Request) (string, error) {
	runID := strings.TrimSpace(chi.URLParam(r, "runId"))
	if runID == "" {
		return "", errors.Validation("run id is required")
	}
	return runID, nil
}

package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"audiowave/internal/httpkit"
	"audiowave/internal/pkg/errors"
)

// ListVideos lists the default folder, or ?folder= when given.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) error {
	res, err := h.videos.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("folder")))
	if err != nil {
		return err
	}
	httpkit.WriteSuccess(w, http.StatusOK, res)
	return nil
}

// GetVideo fetches /videos/{id...}. Falls back to the listing when the id
// is empty (GET /videos/).
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) error {
	id := videoID(r)
	if id == "" {
		return h.ListVideos(w, r)
	}
	res, err := h.videos.Get(r.Context(), id)
	if err != nil {
		return err
	}
	httpkit.WriteSuccess(w, http.StatusOK, res)
	return nil
}

// DeleteVideo deletes /videos/{id...}.
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) error {
	id := videoID(r)
	if id == "" {
		return errors.Validation("video id is required")
	}
	res, err := h.videos.Delete(r.Context(), []string{id})
	if err != nil {
		return err
	}
	httpkit.WriteSuccess(w, http.StatusOK, res)
	return nil
}

// videoID rejoins the wildcard segments of a multi-segment public id such as
// audio-waveform-videos/song.
func videoID(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	// chi matches on RawPath when it is set, leaving the segments escaped.
	escaped := r.URL.RawPath != ""
	var segs []string
	for _, s := range strings.Split(raw, "/") {
		if s == "" {
			continue
		}
		if escaped {
			if u, err := url.PathUnescape(s); err == nil {
				s = u
			}
		}
		segs = append(segs, s)
	}
	return strings.Join(segs, "/")
}

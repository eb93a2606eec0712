package handlers

import (
	"context"
	"net/http"

	"audiowave/internal/httpkit"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/pkg/middleware"
)

// PostAudio renders the uploaded "audio" file into a waveform video and
// publishes it. The request id is used as the run id so clients can poll
// GET /progress/{runId} while the request is in flight.
func (h *Handler) PostAudio(w http.ResponseWriter, r *http.Request) {
	if err := h.postAudio(w, r); err != nil {
		status := http.StatusInternalServerError
		if errors.IsCode(err, errors.CodeDecode) {
			status = http.StatusBadRequest
		}
		middleware.HandleErrorStatus(w, r, h.log, err, status)
	}
}

func (h *Handler) postAudio(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if id := logger.RequestIDFromContext(ctx); id != "" {
		ctx = logger.ContextWithRunID(ctx, id)
	}

	sub, cleanup, err := httpkit.DecodeAudioUpload(w, r, h.uploadsDir, h.maxUploadBytes)
	if err != nil {
		return err
	}
	defer cleanup()

	h.log.FromContext(ctx).Info("audio received", "file", sub.OriginalFileName)

	if h.pipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.pipelineTimeout)
		defer cancel()
	}

	res, err := h.pipeline.Publish(ctx, sub)
	if err != nil {
		return err
	}
	httpkit.WriteSuccess(w, http.StatusCreated, res)
	return nil
}

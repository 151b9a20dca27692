package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/facequeue/internal/api/response"
	"github.com/kiranshivaraju/facequeue/internal/submission"
)

// NewStatusHandler returns an http.HandlerFunc for GET /status/{job_id}.
// It performs one result lookup per call and never changes any state.
func NewStatusHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "job_id")

		result, err := svc.Status(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, submission.ErrInvalidJobID) {
				response.Error(w, http.StatusBadRequest,
					submission.CodeInvalidRequest, "job_id must be a valid UUID")
				return
			}
			slog.Error("status lookup failed", "job_id", jobID, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to read job result")
			return
		}

		writeJob(w, result)
	}
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/kiranshivaraju/facequeue/internal/api/middleware"
	"github.com/kiranshivaraju/facequeue/internal/api/response"
	"github.com/kiranshivaraju/facequeue/internal/submission"
	"github.com/kiranshivaraju/facequeue/pkg/models"
)

// FileField is the multipart field carrying the image.
const FileField = "inputFile"

// multipartOverhead is allowed on top of the file ceiling for boundaries and part headers.
const multipartOverhead = 1 << 20

const maxFormMemory = 32 << 20

// Submitter is what the HTTP layer needs from the submission service.
type Submitter interface {
	Submit(ctx context.Context, u submission.Upload) (*submission.Result, error)
	Status(ctx context.Context, jobID string) (*submission.Result, error)
}

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}

// NewSubmitHandler returns an http.HandlerFunc for POST /.
func NewSubmitHandler(svc Submitter, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)

		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				response.Error(w, http.StatusRequestEntityTooLarge,
					submission.CodeFileTooLarge, "File exceeds the upload size limit")
				return
			}
			response.Error(w, http.StatusBadRequest,
				submission.CodeInvalidRequest, "Request must be multipart/form-data")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(FileField)
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				submission.CodeInvalidRequest, "No file uploaded")
			return
		}
		defer file.Close()

		upload := submission.Upload{
			Filename:    header.Filename,
			Size:        header.Size,
			Body:        file,
			ContentType: header.Header.Get("Content-Type"),
		}
		if id, ok := mw.GetAPIKeyID(r); ok {
			upload.APIKeyID = &id
		}

		result, err := svc.Submit(r.Context(), upload)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		writeJob(w, result)
	}
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var verr *submission.ValidationError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.Code == submission.CodeFileTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		response.Error(w, status, verr.Code, verr.Message)
	case errors.Is(err, submission.ErrUploadFailed):
		response.Error(w, http.StatusInternalServerError, "UPLOAD_FAILED", "S3 upload failed")
	case errors.Is(err, submission.ErrEnqueueFailed):
		response.Error(w, http.StatusInternalServerError, "ENQUEUE_FAILED", "Failed to queue job")
	default:
		slog.Error("submit failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
	}
}

// writeJob answers 200 for a finished job and 202 while it is pending.
func writeJob(w http.ResponseWriter, result *submission.Result) {
	body := jobResponse{
		JobID:  result.JobID,
		Status: string(result.Status),
		Result: result.Verdict,
	}
	if result.Status == models.JobStatusDone {
		response.OK(w, body)
		return
	}
	response.Accepted(w, body)
}

// Package job defines the identifiers, queue message format and verdict
// encoding shared by the submission service and the worker.
package job

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Separator joins the job ID and the original filename in a message body.
const Separator = "_"

var (
	ErrEmptyJobID    = errors.New("job id is empty")
	ErrInvalidJobID  = errors.New("job id contains the message separator")
	ErrEmptyFilename = errors.New("filename is empty")
)

// NewID returns a fresh job identifier. UUIDs never contain Separator.
func NewID() string {
	return uuid.NewString()
}

// Encode builds the queue message body "{jobID}_{filename}". The same string
// is used as the input object key.
func Encode(jobID, filename string) (string, error) {
	if jobID == "" {
		return "", ErrEmptyJobID
	}
	if strings.Contains(jobID, Separator) {
		return "", ErrInvalidJobID
	}
	if filename == "" {
		return "", ErrEmptyFilename
	}
	return jobID + Separator + filename, nil
}

// Decode splits a message body on the first Separator. ok is false when
// either part would be empty; such a body is a poison message.
func Decode(body string) (jobID, filename string, ok bool) {
	jobID, filename, found := strings.Cut(body, Separator)
	if !found || jobID == "" || filename == "" {
		return "", "", false
	}
	return jobID, filename, true
}

// Package httpclient sends images to a remote recognition service over HTTP.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiranshivaraju/facequeue/pkg/models"
)

// Sentinel errors for remote recognizer failures.
var (
	ErrUnavailable     = errors.New("recognizer service unavailable")
	ErrBadStatus       = errors.New("recognizer service returned error status")
	ErrInvalidResponse = errors.New("recognizer service returned invalid response")
)

// FileField is the multipart field carrying the image.
const FileField = "inputFile"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 64 << 10

// Client posts the image as multipart/form-data and reads the label from the
// response. A JSON body of the form {"label": "..."} and a plain-text body are
// both accepted.
type Client struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "http" }

func (c *Client) Recognize(ctx context.Context, imagePath string) (string, error) {
	body, contentType, err := encodeImage(imagePath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}

	return parseLabel(resp.Header.Get("Content-Type"), data)
}

func encodeImage(imagePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(FileField, filepath.Base(imagePath))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copying image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

type labelResponse struct {
	Label string `json:"label"`
}

func parseLabel(contentType string, data []byte) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "application/json" {
		return strings.TrimSpace(string(data)), nil
	}

	var lr labelResponse
	if err := json.Unmarshal(data, &lr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return strings.TrimSpace(lr.Label), nil
}

// classifyError maps transport-level errors to sentinel errors. Context
// errors stay visible to errors.Is so the caller can report a timeout.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrUnavailable, context.DeadlineExceeded)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

var _ models.Recognizer = (*Client)(nil)

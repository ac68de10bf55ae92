// Package refdata is a client for the reference-data service that validates
// uploaded landings against species, vessel, gear and area data.
package refdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/logging"
)

const (
	validatePath = "/v1/upload/landings/validate"

	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept on StatusError.
	maxErrorBody = 4 << 10
)

// ErrUnavailable wraps failures to reach the service at all.
var ErrUnavailable = errors.New("reference service unavailable")

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("reference service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("reference service returned %d: %s", e.StatusCode, e.Body)
}

// Client implements landing.ReferenceValidator over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for baseURL. A zero timeout uses 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ValidateLandings posts the rows and returns them annotated with errors.
// There is no retry.
func (c *Client) ValidateLandings(ctx context.Context, req landing.ValidationRequest) ([]landing.UploadedLanding, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode validation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+validatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build validation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).Debug("reference validation",
		"rows", len(req.Landings),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var rows []landing.UploadedLanding
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode validation response: %w", err)
	}
	return rows, nil
}

package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloo-solutions/docintel/internal/domain"
)

// DefaultTimeout bounds one status callback.
const DefaultTimeout = 10 * time.Second

// Client reports job status to the system of record.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for baseURL. A non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a Client with a caller-provided HTTP client (for testing).
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Report sends report with PATCH {baseURL}/patient-documents/{documentID}/status.
// It makes exactly one attempt.
func (c *Client) Report(ctx context.Context, documentID string, report domain.StatusReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return domain.ReportingFailure("failed to encode status report", err)
	}

	endpoint := fmt.Sprintf("%s/patient-documents/%s/status", c.baseURL, url.PathEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ReportingFailure("failed to create status request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ReportingFailure("status callback failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ReportingFailure(
			fmt.Sprintf("status callback returned %d", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(msg))),
		)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

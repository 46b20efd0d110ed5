package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/okian/stagerank/internal/domain/model"
)

const clientRetryMax = 2

// ErrUnexpectedStatus is returned for an API answer with a status the call
// does not accept.
var ErrUnexpectedStatus = errors.New("unexpected status")

// IngestReport is the body of a successful POST /ingest.
type IngestReport struct {
	BatchID string `json:"batch_id"`
	MatchID string `json:"match_id"`
	Records int    `json:"records"`
	Skipped bool   `json:"skipped"`
}

// Client talks to the stagerank API.
type Client struct {
	base   string
	client *retryablehttp.Client
}

// NewClient creates a client for the API at base.
func NewClient(base string, timeout time.Duration) *Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = clientRetryMax
	c.HTTPClient.Timeout = timeout
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &Client{base: base, client: c}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// Ingest posts a results address and returns the report.
func (c *Client) Ingest(ctx context.Context, address string) (IngestReport, error) {
	body, err := json.Marshal(map[string]string{"url": address})
	if err != nil {
		return IngestReport{}, fmt.Errorf("marshal ingest request: %w", err)
	}
	var report IngestReport
	err = c.do(ctx, http.MethodPost, "/ingest", body, &report, http.StatusCreated, http.StatusOK)
	return report, err
}

// StagesByClass fetches the ranking of one class on one stage.
func (c *Client) StagesByClass(ctx context.Context, class string, stage int) ([]model.StageResult, error) {
	q := url.Values{"class": {class}, "stage": {strconv.Itoa(stage)}}
	var out []model.StageResult
	err := c.do(ctx, http.MethodGet, "/stages/class?"+q.Encode(), nil, &out, http.StatusOK)
	return out, err
}

// StagesByCompetitor fetches every stage of one competitor.
func (c *Client) StagesByCompetitor(ctx context.Context, name string) ([]model.StageResult, error) {
	q := url.Values{"name": {name}}
	var out []model.StageResult
	err := c.do(ctx, http.MethodGet, "/stages/competitor?"+q.Encode(), nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if !accepted(resp.StatusCode, accept) {
		return fmt.Errorf("%w: %s %s answered %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if status == s {
			return true
		}
	}
	return false
}

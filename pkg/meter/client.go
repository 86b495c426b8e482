package meter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/cyberpulse/pkg/credentials"
	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/logging"
)

// Operation names carried on OperationError
const (
	OpGate      = "gate"
	OpCrosswalk = "crosswalk"
)

const (
	gatePath         = "/v1/evaluate-controls"
	maxGateBody      = 1 << 20
	maxCrosswalkBody = 10 << 20
	defaultTimeout   = 30 * time.Second
)

// gateRequest is the fixed body of the usage-gating call
type gateRequest struct {
	Framework string   `json:"framework"`
	Controls  []string `json:"controls"`
	Evidence  []string `json:"evidence"`
}

var gateBody = gateRequest{
	Framework: string(engine.FrameworkNISTCSF),
	Controls:  []string{"AC-2"},
	Evidence:  []string{},
}

// Client talks to the metered API and to crosswalk hosts
type Client struct {
	baseURL string
	auth    credentials.Authenticator
	http    *http.Client
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, auth credentials.Authenticator, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "meter")
	return c
}

// Gate records one metered call so the usage plan applies to the batch.
// Any failure is an *OperationError.
func (c *Client) Gate(ctx context.Context) error {
	start := time.Now()
	payload, err := json.Marshal(gateBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+gatePath, bytes.NewReader(payload))
	if err != nil {
		return gateFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req, maxGateBody); err != nil {
		c.log.Warn("gate call failed", "error", err, "duration", time.Since(start))
		return gateFailure(err)
	}
	c.log.Debug("gate call accepted", "duration", time.Since(start))
	return nil
}

func gateFailure(err error) *OperationError {
	return translate(OpGate, err, func(err error) (string, string, error) {
		return err.Error(), "", err
	})
}

// FetchCrosswalk downloads a crosswalk document. A null or empty body
// returns a nil crosswalk, meaning the caller keeps its current table.
func (c *Client) FetchCrosswalk(ctx context.Context, url string) (engine.Crosswalk, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, crosswalkFailure(err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, maxCrosswalkBody)
	if err != nil {
		c.log.Warn("crosswalk fetch failed", "url", url, "error", err)
		return nil, crosswalkFailure(err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		c.log.Debug("crosswalk body empty, keeping current table", "url", url)
		return nil, nil
	}
	cw, err := engine.ParseCrosswalkJSON(trimmed)
	if err != nil {
		return nil, crosswalkFailure(err)
	}
	c.log.Debug("crosswalk fetched", "url", url, "categories", len(cw))
	return cw, nil
}

func crosswalkFailure(err error) *OperationError {
	return translate(OpCrosswalk, err, func(err error) (string, string, error) {
		return MsgCrosswalkFetch, err.Error(), fmt.Errorf("%w: %w", ErrCrosswalkFetch, err)
	})
}

// do sends an authenticated request and returns the body of a 2xx response
func (c *Client) do(req *http.Request, limit int64) ([]byte, error) {
	if c.auth != nil {
		if err := c.auth.Authenticate(req); err != nil {
			return nil, err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", req.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(body)}
	}
	return body, nil
}

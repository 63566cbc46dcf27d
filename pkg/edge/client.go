// Package edge talks JSON-over-HTTP to the election edge service, which owns
// the registry, tokens, ballots and tallies.
package edge

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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	PathValidate       = "validate_acp"
	PathResume         = "resume_with_code"
	PathCandidates     = "public_candidates"
	PathSaveDraft      = "save_draft"
	PathSubmitVote     = "submit_vote"
	PathUpsertRegistry = "admin_upsert_registry"
	PathNonVoters      = "non_voters"
	PathLiveTallies    = "live_tallies"
)

var ErrNoAPIKey = errors.New("edge: admin api key is not configured")

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballot_edge_requests_total",
			Help: "Requests sent to the edge service",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ballot_edge_request_duration_seconds",
			Help:    "Edge service request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

type Config struct {
	BaseURL      string        `yaml:"EDGE_BASE_URL"      env:"EDGE_BASE_URL"      env-required:"true"`
	AdminAPIKey  string        `yaml:"ADMIN_API_KEY"      env:"ADMIN_API_KEY"`
	GetTimeout   time.Duration `yaml:"EDGE_GET_TIMEOUT"   env:"EDGE_GET_TIMEOUT"   env-default:"30s"`
	PostTimeout  time.Duration `yaml:"EDGE_POST_TIMEOUT"  env:"EDGE_POST_TIMEOUT"  env-default:"45s"`
	AdminTimeout time.Duration `yaml:"EDGE_ADMIN_TIMEOUT" env:"EDGE_ADMIN_TIMEOUT" env-default:"120s"`
}

// Envelope is the part every edge answer shares.
type Envelope struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

type Response struct {
	StatusCode int
	Body       []byte
	Envelope   Envelope
}

// Success reports a 2xx status, regardless of the body.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Accepted reports a 2xx status with ok=true in the body.
func (r *Response) Accepted() bool {
	return r.Success() && r.Envelope.OK
}

// Message is the failure text as sent, reason preferred over error.
func (r *Response) Message() string {
	if reason := strings.TrimSpace(r.Envelope.Reason); reason != "" {
		return reason
	}
	return strings.TrimSpace(r.Envelope.Error)
}

// Reason is Message normalized to a lowercase code.
func (r *Response) Reason() string {
	return strings.ToLower(r.Message())
}

func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("edge: empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("edge: decode response: %w", err)
	}
	return nil
}

type Client struct {
	http *http.Client
	cfg  Config
	l    *zap.Logger
}

func New(cfg Config, l *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http: &http.Client{},
		cfg:  cfg,
		l:    l,
	}
}

func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, c.cfg.GetTimeout, false)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, c.cfg.PostTimeout, false)
}

func (c *Client) AdminGet(ctx context.Context, path string, params url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, c.cfg.AdminTimeout, true)
}

func (c *Client) AdminPost(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, c.cfg.AdminTimeout, true)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any,
	timeout time.Duration, admin bool) (*Response, error) {
	if admin && c.cfg.AdminAPIKey == "" {
		return nil, ErrNoAPIKey
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target := c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("edge: encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("edge: build %s request: %w", path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AdminAPIKey)
	}

	c.l.Debug("edge request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Bool("admin", admin))

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(method, path, "error").Inc()
		c.l.Debug("edge request failed",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("edge: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(method, path, "error").Inc()
		return nil, fmt.Errorf("edge: read %s response: %w", path, err)
	}
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(resp.StatusCode)).Inc()

	out := &Response{StatusCode: resp.StatusCode, Body: raw}
	// An empty or non-object body reads as ok=false.
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &out.Envelope); err != nil {
			c.l.Debug("edge response is not an envelope",
				zap.String("path", path),
				zap.String("request_id", requestID),
				zap.Error(err))
			out.Envelope = Envelope{}
		}
	}

	c.l.Debug("edge response",
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status_code", resp.StatusCode),
		zap.Bool("ok", out.Envelope.OK),
		zap.String("reason", out.Reason()))
	return out, nil
}

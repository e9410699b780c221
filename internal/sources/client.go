package sources

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/logger"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	defaultAgent    = "Mozilla/5.0 (compatible; spigell/job-aggregator)"
	defaultTimeout  = 15 * time.Second
	maxErrorBody    = 300
)

// Request describes a single upstream call.
type Request struct {
	Method  string
	URL     string
	Params  url.Values
	Headers map[string]string
	// Body is encoded as JSON when set.
	Body any
}

// Fetcher performs an upstream call and returns the decoded JSON document.
// Numbers are decoded as json.Number.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (any, error)
}

// Client is the HTTP Fetcher shared by all sources.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

func NewClient(logger *zap.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: defaultAgent,
	}
}

func (c *Client) Fetch(ctx context.Context, r Request) (any, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		body = gzipReader
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bad status: %s: %s", resp.Status, logger.TruncateForLog(string(data), maxErrorBody))
	}

	return decodeJSON(data)
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var payload io.Reader
	if r.Body != nil {
		encoded, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, payload)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	if r.Body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	if len(r.Params) > 0 {
		req.URL.RawQuery = r.Params.Encode()
	}

	return req, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	logger.OrNop(c.logger).Debug("make request", zap.String("method", req.Method), zap.String("url", redact(req.URL)))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	return doc, nil
}

// redact hides credentials passed as query parameters.
func redact(u *url.URL) string {
	q := u.Query()
	for _, key := range []string{"app_id", "app_key"} {
		if q.Has(key) {
			q.Set(key, "xxx")
		}
	}

	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}

package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kcolemangt/gemini-proxy/model"
	"github.com/kcolemangt/gemini-proxy/utils"
	"go.uber.org/zap"
)

// ResultKind categorizes the outcome of an upstream call
type ResultKind int

const (
	// ResultSuccess means upstream answered with a 2xx status.
	ResultSuccess ResultKind = iota
	// ResultUpstreamError means upstream answered with a non-2xx status.
	ResultUpstreamError
	// ResultTransportError means no response was obtained.
	ResultTransportError
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultUpstreamError:
		return "upstream_error"
	case ResultTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Result is what a single upstream call produced. Status and Body are set for
// ResultSuccess and ResultUpstreamError; Err is set for ResultTransportError.
type Result struct {
	Kind   ResultKind
	Status int
	Body   []byte
	Err    error
}

// Client forwards generation payloads to the upstream generateContent endpoint
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *zap.Logger
}

// NewClient builds a Client from the upstream configuration. A nil httpClient
// gets a fresh client using upstream.Timeout.
func NewClient(upstream model.UpstreamConfig, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	endpoint, err := Endpoint(upstream.BaseURL, upstream.Model)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: upstream.Timeout}
	}
	logger.Debug("Upstream client initialized", zap.String("endpoint", endpoint))
	return &Client{httpClient: httpClient, endpoint: endpoint, logger: logger}, nil
}

// Endpoint returns the generateContent URL for model under baseURL, without the key.
func Endpoint(baseURL, model string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse upstream base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("upstream base url %q must be absolute", baseURL)
	}
	u.Path += "/v1beta/models/" + model + ":generateContent"
	return u.String(), nil
}

// Generate posts payload to upstream authenticated with key and categorizes the outcome.
func (c *Client) Generate(ctx context.Context, key string, payload []byte) Result {
	target := c.endpoint + "?" + url.Values{"key": {key}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return c.transportError(key, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Forwarding request upstream",
		zap.String("endpoint", c.endpoint),
		zap.String("key", utils.RedactKey(key)),
		zap.Int("payloadSize", len(payload)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(key, fmt.Errorf("read upstream response: %w", err))
	}

	kind := ResultSuccess
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind = ResultUpstreamError
	}
	c.logger.Debug("Upstream responded",
		zap.Int("status", resp.StatusCode),
		zap.Stringer("result", kind),
		zap.Int("bodySize", len(body)))

	return Result{Kind: kind, Status: resp.StatusCode, Body: body}
}

// url.Error embeds the full request URL, key included.
func (c *Client) transportError(key string, err error) Result {
	msg := utils.ScrubKey(err.Error(), url.QueryEscape(key))
	msg = utils.ScrubKey(msg, key)
	return Result{Kind: ResultTransportError, Err: errors.New(msg)}
}

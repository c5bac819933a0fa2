// Package secapi is a client for the sec-api.io filing search, section
// extractor and insider-trading endpoints.
package secapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/worker"
)

const (
	maxResponseBytes = 8 << 20
	errorBodyLimit   = 200
)

type clientSettings struct {
	timeout    time.Duration
	httpProxy  string
	httpsProxy string
}

// Client talks to the filing-data provider
type Client struct {
	cfg     model.SECAPIConfig
	search  *http.Client
	extract *http.Client
	limiter *worker.Limiter
	logger  *slog.Logger
}

// NewClient creates a client. limiter may be nil to disable pacing.
func NewClient(cfg model.SECAPIConfig, limiter *worker.Limiter, logger *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		search: newHTTPClient(clientSettings{
			timeout:    cfg.Timeout,
			httpProxy:  cfg.HTTPProxy,
			httpsProxy: cfg.HTTPSProxy,
		}),
		extract: newHTTPClient(clientSettings{
			timeout:    cfg.ExtractorTimeout,
			httpProxy:  cfg.HTTPProxy,
			httpsProxy: cfg.HTTPSProxy,
		}),
		limiter: limiter,
		logger:  logging.OrDefault(logger),
	}
}

type queryString struct {
	Query string `json:"query"`
}

type sortOrder struct {
	Order string `json:"order"`
}

type searchPayload struct {
	Query struct {
		QueryString queryString `json:"query_string"`
	} `json:"query"`
	From int                    `json:"from"`
	Size int                    `json:"size"`
	Sort []map[string]sortOrder `json:"sort"`
}

// insiderPayload sends from/size as strings, which the insider endpoint expects
type insiderPayload struct {
	Query struct {
		QueryString queryString `json:"query_string"`
	} `json:"query"`
	From string                 `json:"from"`
	Size string                 `json:"size"`
	Sort []map[string]sortOrder `json:"sort"`
}

var newestFirst = []map[string]sortOrder{{"filedAt": {Order: "desc"}}}

// SearchFilings runs a full-text query, newest filings first
func (c *Client) SearchFilings(ctx context.Context, req SearchRequest) ([]Filing, error) {
	var payload searchPayload
	payload.Query.QueryString.Query = req.Query
	payload.From = req.From
	payload.Size = sizeOrDefault(req.Size)
	payload.Sort = newestFirst

	var resp struct {
		Filings []Filing `json:"filings"`
	}
	if err := c.postJSON(ctx, "search", c.cfg.BaseURL, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Filings, nil
}

// SearchInsider returns Form 3/4/5 filings for one issuer
func (c *Client) SearchInsider(ctx context.Context, req InsiderRequest) ([]InsiderFiling, error) {
	var payload insiderPayload
	payload.Query.QueryString.Query = req.Query()
	payload.From = "0"
	payload.Size = strconv.Itoa(sizeOrDefault(req.Size))
	payload.Sort = newestFirst

	var resp struct {
		Transactions []InsiderFiling `json:"transactions"`
	}
	if err := c.postJSON(ctx, "insider", c.cfg.InsiderURL, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// ExtractSection returns the plain text of one item of a filing
func (c *Client) ExtractSection(ctx context.Context, filingURL, item string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}

	endpoint, err := url.Parse(c.cfg.ExtractorURL)
	if err != nil {
		return "", fmt.Errorf("parse extractor url: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", filingURL)
	q.Set("item", item)
	q.Set("type", "text")
	q.Set("token", c.cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	body, contentType, err := c.do(ctx, c.extract, "extractor", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/plain, text/html;q=0.9, */*;q=0.5")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	text := string(body)
	if looksLikeHTML(contentType, text) {
		flat, err := htmlToText(text)
		if err != nil {
			return "", fmt.Errorf("flatten extractor html: %w", err)
		}
		return flat, nil
	}
	return normalizeWhitespace(text), nil
}

func (c *Client) postJSON(ctx context.Context, endpointName, rawURL string, payload, out any) error {
	if c.cfg.APIKey == "" {
		return ErrNoAPIKey
	}

	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse %s url: %w", endpointName, err)
	}
	q := endpoint.Query()
	q.Set("token", c.cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", endpointName, err)
	}

	body, _, err := c.do(ctx, c.search, endpointName, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpointName, err)
	}
	return nil
}

// do paces and sends a single request. Provider calls are never retried.
func (c *Client) do(ctx context.Context, hc *http.Client, endpointName string, build func() (*http.Request, error)) ([]byte, string, error) {
	req, err := build()
	if err != nil {
		return nil, "", fmt.Errorf("create %s request: %w", endpointName, err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, req.URL.String()); err != nil {
			return nil, "", fmt.Errorf("%s rate limit: %w", endpointName, err)
		}
	}

	return c.send(hc, req, endpointName)
}

func (c *Client) send(hc *http.Client, req *http.Request, endpointName string) ([]byte, string, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", endpointName, redactToken(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s response: %w", endpointName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > errorBodyLimit {
			snippet = snippet[:errorBodyLimit]
		}
		return nil, "", &StatusError{Endpoint: endpointName, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// redactToken strips the api token from url errors so it never reaches logs
func redactToken(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	parsed, perr := url.Parse(ue.URL)
	if perr != nil {
		return err
	}
	q := parsed.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
		parsed.RawQuery = q.Encode()
	}
	return &url.Error{Op: ue.Op, URL: parsed.String(), Err: ue.Err}
}

func sizeOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

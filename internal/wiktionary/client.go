package wiktionary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound means the endpoint answered but carried no usable definition
var ErrNotFound = errors.New("wiktionary: no definition found")

// Waiter blocks until a request to rawURL may be sent
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// ClientOptions configures the shared HTTP client
type ClientOptions struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	Proxy        func(*http.Request) (*url.URL, error)
	Limiter      Waiter
}

// Client is the HTTP transport both definition sources share
type Client struct {
	http    *resty.Client
	baseURL string
	limiter Waiter
}

// NewClient builds a client with the descriptive identifier headers set
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Api-User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))

	if opts.Proxy != nil {
		client.SetTransport(&http.Transport{Proxy: opts.Proxy})
	}

	return &Client{
		http:    client,
		baseURL: baseURL,
		limiter: opts.Limiter,
	}
}

// EndpointURLs returns the path prefixes of both endpoints under the base URL
func (c *Client) EndpointURLs() []string {
	return []string{
		c.baseURL + strings.TrimSuffix(restDefinitionPath, "{term}"),
		c.baseURL + parseAPIPath,
	}
}

// get waits for the limiter, then issues a GET and requires a 200
func (c *Client) get(ctx context.Context, path string, pathParams, query map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.baseURL+path); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req := c.http.R().SetContext(ctx)
	if len(pathParams) > 0 {
		req.SetPathParams(pathParams)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	return resp.Body(), nil
}

// PageKey turns a term into the page title both endpoints expect
func PageKey(term string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(term)), " ", "_")
}

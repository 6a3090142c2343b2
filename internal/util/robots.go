package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsVerdict is what a host's robots.txt says about one path
type RobotsVerdict struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker fetches robots.txt once per host and answers path checks
type RobotsChecker struct {
	cache      map[string]*robotstxt.RobotsData
	mu         sync.Mutex
	httpClient *http.Client
	userAgent  string
	agent      string
}

// NewRobotsChecker creates a checker identifying itself as userAgent.
// proxy may be nil.
func NewRobotsChecker(userAgent string, timeout time.Duration, proxy func(*http.Request) (*url.URL, error)) *RobotsChecker {
	client := &http.Client{Timeout: timeout}
	if proxy != nil {
		client.Transport = &http.Transport{Proxy: proxy}
	}

	return &RobotsChecker{
		cache:      make(map[string]*robotstxt.RobotsData),
		httpClient: client,
		userAgent:  userAgent,
		agent:      NormalizeUserAgent(userAgent),
	}
}

// Check reports whether rawURL may be fetched. A robots.txt that cannot
// be fetched or parsed allows everything.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsVerdict, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RobotsVerdict{}, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.robotsData(ctx, parsed)
	if err != nil {
		return RobotsVerdict{Allowed: true}, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	verdict := RobotsVerdict{Allowed: data.TestAgent(path, r.agent)}
	if group := data.FindGroup(r.agent); group != nil {
		verdict.CrawlDelay = group.CrawlDelay
	}
	return verdict, nil
}

func (r *RobotsChecker) robotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	data, exists := r.cache[target.Host]
	r.mu.Unlock()
	if exists {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[target.Host] = data
	r.mu.Unlock()

	return data, nil
}

// NormalizeUserAgent reduces a User-Agent to the product token robots.txt
// groups match on
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}

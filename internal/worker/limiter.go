package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces requests to each host by a fixed interval
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
}

// NewLimiter creates a limiter allowing one request per interval and host.
// A zero interval disables limiting.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Interval returns the default spacing between requests
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until a request to rawURL may be sent
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}
	return l.getLimiter(host).Wait(ctx)
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(every(l.interval), 1)
	l.limiters[host] = limiter
	return limiter
}

// SetHostInterval overrides the spacing for one host, e.g. from a
// robots.txt Crawl-delay
func (l *Limiter) SetHostInterval(host string, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[host]; exists {
		limiter.SetLimit(every(interval))
		return
	}
	l.limiters[host] = rate.NewLimiter(every(interval), 1)
}

func every(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ppiankov/idiomfetch/internal/cache"
)

//go:generate mockgen -source=source.go -destination=../mocks/source/mock_source.go -package=mock_source Source

// ErrNoDefinition means no source produced a definition for a term
var ErrNoDefinition = errors.New("no definition found")

// Source looks up the definition of one term
type Source interface {
	Name() string
	Lookup(ctx context.Context, term string) (string, error)
}

// Chain tries each source in order and returns the first definition.
// Each source is attempted once.
type Chain struct {
	sources []Source
	log     *slog.Logger
}

// NewChain creates a chain, primary source first
func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	return &Chain{sources: sources, log: logger}
}

// Name returns the source name
func (c *Chain) Name() string {
	return "chain"
}

// Lookup returns the first non-empty definition. Cancellation is returned
// as the context error rather than ErrNoDefinition.
func (c *Chain) Lookup(ctx context.Context, term string) (string, error) {
	var errs []error
	for _, source := range c.sources {
		definition, err := source.Lookup(ctx, term)
		if err == nil && definition != "" {
			c.log.DebugContext(ctx, "definition found", slog.String("term", term), slog.String("source", source.Name()))
			return definition, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if err == nil {
			err = errors.New(source.Name() + ": empty definition")
		}
		c.log.InfoContext(ctx, "source failed",
			slog.String("term", term),
			slog.String("source", source.Name()),
			slog.String("error", err.Error()),
		)
		errs = append(errs, err)
	}
	return "", errors.Join(append([]error{ErrNoDefinition}, errs...)...)
}

// CachedSource serves definitions from a cache before asking next.
// Only found definitions are stored.
type CachedSource struct {
	next     Source
	cache    cache.Cache
	language string
	ttl      time.Duration
	log      *slog.Logger
	hits     int
}

// NewCachedSource wraps next with c; ttl 0 uses the cache default
func NewCachedSource(next Source, c cache.Cache, language string, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		next:     next,
		cache:    c,
		language: language,
		ttl:      ttl,
		log:      logger,
	}
}

// Name returns the wrapped source name
func (s *CachedSource) Name() string {
	return "cached-" + s.next.Name()
}

// Lookup returns a cached definition or fetches and stores one
func (s *CachedSource) Lookup(ctx context.Context, term string) (string, error) {
	key := cache.Key(s.language, term)
	if val, found := s.cache.Get(key); found && len(val) > 0 {
		s.hits++
		return string(val), nil
	}

	definition, err := s.next.Lookup(ctx, term)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(key, []byte(definition), s.ttl); err != nil {
		s.log.WarnContext(ctx, "cache write failed", slog.String("term", term), slog.String("error", err.Error()))
	}
	return definition, nil
}

// Hits returns how many lookups the cache answered
func (s *CachedSource) Hits() int {
	return s.hits
}

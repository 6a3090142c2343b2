package wiktionary

import (
	"context"
	"encoding/json"
	"fmt"
)

const parseAPIPath = "/w/api.php"

// ParseSource looks up definitions by rendering the page through the
// MediaWiki parse API and reading the language section's first sense.
type ParseSource struct {
	client  *Client
	section string
}

// NewParseSource creates the fallback source; section is the heading id
// of the language section, e.g. "English".
func NewParseSource(client *Client, section string) *ParseSource {
	return &ParseSource{client: client, section: section}
}

// Name returns the source name
func (s *ParseSource) Name() string {
	return "parse"
}

type parseResponse struct {
	Parse *struct {
		Title string            `json:"title"`
		Text  map[string]string `json:"text"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Lookup returns the first list item of the language section
func (s *ParseSource) Lookup(ctx context.Context, term string) (string, error) {
	body, err := s.client.get(ctx, parseAPIPath, nil, map[string]string{
		"action": "parse",
		"page":   PageKey(term),
		"format": "json",
		"prop":   "text",
	})
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", term, err)
	}

	var resp parseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse %q: decode json: %w", term, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("parse %q: api error %s: %w", term, resp.Error.Code, ErrNotFound)
	}
	if resp.Parse == nil {
		return "", fmt.Errorf("parse %q: %w", term, ErrNotFound)
	}

	page, ok := resp.Parse.Text["*"]
	if !ok {
		return "", fmt.Errorf("parse %q: %w", term, ErrNotFound)
	}

	definition, err := ExtractDefinition(page, s.section)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", term, err)
	}
	return definition, nil
}

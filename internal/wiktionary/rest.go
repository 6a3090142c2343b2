package wiktionary

import (
	"context"
	"encoding/json"
	"fmt"
)

const restDefinitionPath = "/api/rest_v1/page/definition/{term}"

// RESTSource looks up definitions through the REST definition endpoint
type RESTSource struct {
	client   *Client
	language string
}

// NewRESTSource creates the primary source for the given language code
func NewRESTSource(client *Client, language string) *RESTSource {
	return &RESTSource{client: client, language: language}
}

// Name returns the source name
func (s *RESTSource) Name() string {
	return "rest"
}

type restUsage struct {
	PartOfSpeech string `json:"partOfSpeech"`
	Language     string `json:"language"`
	Definitions  []struct {
		Definition string `json:"definition"`
	} `json:"definitions"`
}

// Lookup returns the first definition listed under the configured language
func (s *RESTSource) Lookup(ctx context.Context, term string) (string, error) {
	body, err := s.client.get(ctx, restDefinitionPath, map[string]string{"term": PageKey(term)}, nil)
	if err != nil {
		return "", fmt.Errorf("rest %q: %w", term, err)
	}

	definition, err := parseRESTDefinition(body, s.language)
	if err != nil {
		return "", fmt.Errorf("rest %q: %w", term, err)
	}
	return definition, nil
}

// parseRESTDefinition picks the first non-empty definition for language.
// Other language keys are left undecoded.
func parseRESTDefinition(body []byte, language string) (string, error) {
	var byLanguage map[string]json.RawMessage
	if err := json.Unmarshal(body, &byLanguage); err != nil {
		return "", fmt.Errorf("decode json: %w", err)
	}

	raw, ok := byLanguage[language]
	if !ok {
		return "", ErrNotFound
	}

	var usages []restUsage
	if err := json.Unmarshal(raw, &usages); err != nil {
		return "", fmt.Errorf("decode %s usages: %w", language, err)
	}

	for _, usage := range usages {
		for _, d := range usage.Definitions {
			if text := StripTags(d.Definition); text != "" {
				return text, nil
			}
		}
	}
	return "", ErrNotFound
}

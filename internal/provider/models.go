package provider

import (
	"fmt"
	"strings"
)

// NewBackend builds a vendor client from its configured name. Construction
// is cheap and never touches the network; a misconfigured key shows up on
// the first call, which may simply be retried later.
func NewBackend(name, apiKey string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return NewOpenAIBackend(apiKey), nil
	case "anthropic":
		return NewAnthropicBackend(apiKey), nil
	case "cohere":
		return NewCohereBackend(apiKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyProvenanceModel is returned when an LLM-derived method names no model.
	ErrEmptyProvenanceModel = errors.New("model name cannot be empty")
	// ErrEmptyProvenancePrompt is returned when extracted provenance names no prompt.
	ErrEmptyProvenancePrompt = errors.New("prompt cannot be empty for extracted provenance")
)

// ProvenanceOrigin records who a memory ultimately came from.
type ProvenanceOrigin string

const (
	OriginUser  ProvenanceOrigin = "user"
	OriginAgent ProvenanceOrigin = "agent"
)

// ParseOrigin accepts a case-insensitive origin name.
func ParseOrigin(s string) (ProvenanceOrigin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return OriginUser, nil
	case "agent":
		return OriginAgent, nil
	default:
		return "", fmt.Errorf("invalid provenance origin: %q", s)
	}
}

// MethodKind discriminates how the memory's content was produced.
type MethodKind string

const (
	MethodDirect     MethodKind = "direct"
	MethodExtracted  MethodKind = "extracted"
	MethodSummarized MethodKind = "summarized"
)

// ProvenanceMethod is one of Direct, Extracted{model, prompt} or
// Summarized{model}. Model and Prompt are only meaningful for the
// LLM-derived kinds.
type ProvenanceMethod struct {
	Kind   MethodKind `json:"kind"`
	Model  string     `json:"model,omitempty"`
	Prompt string     `json:"prompt,omitempty"`
}

// DirectMethod marks content recorded verbatim.
func DirectMethod() ProvenanceMethod {
	return ProvenanceMethod{Kind: MethodDirect}
}

// ExtractedMethod marks content pulled out of a larger body by a model.
func ExtractedMethod(model, prompt string) ProvenanceMethod {
	return ProvenanceMethod{Kind: MethodExtracted, Model: model, Prompt: prompt}
}

// SummarizedMethod marks content condensed by a model.
func SummarizedMethod(model string) ProvenanceMethod {
	return ProvenanceMethod{Kind: MethodSummarized, Model: model}
}

func (m ProvenanceMethod) Validate() error {
	switch m.Kind {
	case MethodDirect:
		return nil
	case MethodExtracted:
		if strings.TrimSpace(m.Model) == "" {
			return ErrEmptyProvenanceModel
		}
		if strings.TrimSpace(m.Prompt) == "" {
			return ErrEmptyProvenancePrompt
		}
		return nil
	case MethodSummarized:
		if strings.TrimSpace(m.Model) == "" {
			return ErrEmptyProvenanceModel
		}
		return nil
	default:
		return fmt.Errorf("invalid provenance method: %q", m.Kind)
	}
}

// Provenance records where a memory came from and how it was produced.
type Provenance struct {
	Origin ProvenanceOrigin `json:"origin"`
	Method ProvenanceMethod `json:"method"`
}

// DirectUser is direct provenance from the user.
func DirectUser() Provenance {
	return Provenance{Origin: OriginUser, Method: DirectMethod()}
}

// DirectAgent is direct provenance from the agent.
func DirectAgent() Provenance {
	return Provenance{Origin: OriginAgent, Method: DirectMethod()}
}

func (p Provenance) Validate() error {
	return p.Method.Validate()
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptySummary is returned when a summary is blank after trimming.
	ErrEmptySummary = errors.New("summary must not be empty or whitespace")
	// ErrEmptyTag is returned when a tag is blank after trimming.
	ErrEmptyTag = errors.New("tag must not be empty or whitespace")
	// ErrDuplicateTag is returned when two tags collide after normalization.
	ErrDuplicateTag = errors.New("duplicate tag")
	// ErrTagNotFound is returned when removing a tag that is not present.
	ErrTagNotFound = errors.New("tag not found")
)

// MemoryContent is the searchable body of a memory: a summary plus a set of
// normalized tags. Tags are trimmed, lowercased and unique; normalization
// order matters, "Foo" and " foo " are the same tag.
type MemoryContent struct {
	Summary string   `json:"summary" description:"Concise, information-dense summary of the conversation"`
	Tags    []string `json:"tags" description:"3-7 lowercase keywords categorizing this memory"`
}

// NewContent validates and normalizes summary and tags.
func NewContent(summary string, tags []string) (MemoryContent, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return MemoryContent{}, ErrEmptySummary
	}

	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return MemoryContent{}, ErrEmptyTag
		}
		if _, dup := seen[tag]; dup {
			return MemoryContent{}, fmt.Errorf("%w: %s", ErrDuplicateTag, tag)
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}

	return MemoryContent{Summary: summary, Tags: normalized}, nil
}

// ContentFromSummary builds untagged content.
func ContentFromSummary(summary string) (MemoryContent, error) {
	return NewContent(summary, nil)
}

func (c MemoryContent) IsUntagged() bool {
	return len(c.Tags) == 0
}

// AddTag appends a normalized tag, rejecting duplicates.
func (c *MemoryContent) AddTag(tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ErrEmptyTag
	}
	for _, t := range c.Tags {
		if t == tag {
			return fmt.Errorf("%w: %s", ErrDuplicateTag, tag)
		}
	}
	c.Tags = append(c.Tags, tag)
	return nil
}

// RemoveTag removes a tag by its normalized form.
func (c *MemoryContent) RemoveTag(tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ErrEmptyTag
	}
	for i, t := range c.Tags {
		if t == tag {
			c.Tags = append(c.Tags[:i], c.Tags[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTagNotFound, tag)
}

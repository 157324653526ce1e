package project

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultDescription is assigned to newly created projects.
const DefaultDescription = "Add description at here."

// Project is a named labeling task with its own label vocabulary.
type Project struct {
	Name        string    `json:"name" yaml:"name"`
	CreateDate  time.Time `json:"create_date" yaml:"create_date"`
	Description string    `json:"description" yaml:"description"`
	Labels      []string  `json:"labels" yaml:"labels"`
}

// HasLabel reports whether label is part of the vocabulary.
func (p *Project) HasLabel(label string) bool {
	for _, l := range p.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ValidateName checks that name is non-empty and safe to use as a single
// path segment.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidName, name)
		}
	}
	return nil
}

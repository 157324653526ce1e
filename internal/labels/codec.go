// Package labels encodes label sets into the single scalar field used by the
// persisted project and record rows.
package labels

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates labels in the encoded form. It may not appear inside a
// label value.
const Delimiter = "|"

// DisplaySeparator joins labels for human-readable output.
const DisplaySeparator = ", "

// ErrInvalidLabel indicates a label that cannot be encoded.
var ErrInvalidLabel = errors.New("invalid label")

// Validate reports whether a label can be stored without corrupting the
// encoded form.
func Validate(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("%w: empty label", ErrInvalidLabel)
	case strings.Contains(label, Delimiter):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidLabel, label, Delimiter)
	case strings.ContainsAny(label, "\r\n"):
		return fmt.Errorf("%w: %q contains a line break", ErrInvalidLabel, label)
	}
	return nil
}

// Encode joins labels into their scalar form. An empty set encodes to "".
func Encode(labels []string) (string, error) {
	for _, l := range labels {
		if err := Validate(l); err != nil {
			return "", err
		}
	}
	return strings.Join(labels, Delimiter), nil
}

// Decode splits a scalar label field. An empty field yields no labels.
func Decode(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, Delimiter)
}

// Display renders labels for export and terminal output.
func Display(labels []string) string {
	return strings.Join(labels, DisplaySeparator)
}

// Contains reports whether label is in set.
func Contains(set []string, label string) bool {
	for _, l := range set {
		if l == label {
			return true
		}
	}
	return false
}

// Dedupe returns labels with repeated values dropped, keeping the first
// occurrence of each.
func Dedupe(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Without returns a copy of labels with every occurrence of label removed.
func Without(labels []string, label string) []string {
	var out []string
	for _, l := range labels {
		if l != label {
			out = append(out, l)
		}
	}
	return out
}

package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	recipientSep = regexp.MustCompile(`[,;\s\p{Z}\x{85}]+`)
	emailShape   = regexp.MustCompile(`^[^\s\p{Z}@]+@[^\s\p{Z}@]+\.[^\s\p{Z}@]+$`)
)

// ValidationError a local, recoverable input error naming the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ParseRecipients splits free-form input on commas, semicolons, whitespace and newlines.
// Empty tokens are dropped; order is kept.
func ParseRecipients(input string) []string {
	parts := recipientSep.Split(input, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsEmailish minimal local@domain.tld check.
func IsEmailish(s string) bool {
	return emailShape.MatchString(s)
}

// ValidateRecipients returns an error naming the first malformed address.
func ValidateRecipients(recipients []string) error {
	for _, r := range recipients {
		if !IsEmailish(r) {
			return &ValidationError{Field: "recipients", Message: fmt.Sprintf("invalid email: %s", r)}
		}
	}
	return nil
}

// ValidateThresholds checks every catalog metric in order; first failure wins.
func ValidateThresholds(c *Catalog, thresholds map[string]Threshold) error {
	for _, m := range c.metrics {
		t, ok := thresholds[m.Key]
		if !ok || !t.Finite() {
			return &ValidationError{Field: m.Key, Message: fmt.Sprintf("enter numeric min/max for %s", m.Label)}
		}
		if t.Min >= t.Max {
			return &ValidationError{Field: m.Key, Message: fmt.Sprintf(`"min" must be less than "max" (%s)`, m.Label)}
		}
	}
	return nil
}

// Validate runs the full pre-persist validation: recipients first, then thresholds.
func Validate(c *Catalog, recipients []string, thresholds map[string]Threshold) error {
	if err := ValidateRecipients(recipients); err != nil {
		return err
	}
	return ValidateThresholds(c, thresholds)
}

// MergeRecipients appends the addresses of add missing from base. Recipients are only
// ever added by this client, never removed.
func MergeRecipients(base, add []string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, r := range list {
			k := strings.ToLower(r)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

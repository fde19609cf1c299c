package wellness

import (
	"fmt"
	"strings"
)

// Severity is the urgency tier assigned to an assistant reply.
type Severity string

const (
	SeverityNormal  Severity = "normal"
	SeverityMild    Severity = "mild"
	SeveritySerious Severity = "serious"
)

// Marker glyphs the assistant is instructed to open its reply with.
const (
	MarkerNormal  = "🟢"
	MarkerMild    = "🟡"
	MarkerSerious = "🔴"
)

// Classify scans reply for severity markers. Serious wins over mild,
// anything unmarked is normal.
func Classify(reply string) Severity {
	switch {
	case strings.Contains(reply, MarkerSerious) || strings.Contains(reply, "Serious"):
		return SeveritySerious
	case strings.Contains(reply, MarkerMild) || strings.Contains(reply, "Mild"):
		return SeverityMild
	default:
		return SeverityNormal
	}
}

// Marker returns the glyph for s.
func (s Severity) Marker() string {
	switch s {
	case SeveritySerious:
		return MarkerSerious
	case SeverityMild:
		return MarkerMild
	default:
		return MarkerNormal
	}
}

// Valid reports whether s is one of the known tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityNormal, SeverityMild, SeveritySerious:
		return true
	}
	return false
}

// ParseSeverity converts a stored tier name back into a Severity.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", v)
	}
	return s, nil
}

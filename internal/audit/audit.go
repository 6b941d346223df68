// SPDX-License-Identifier: Apache-2.0

// Package audit keeps an optional local history of merge runs.
package audit

import (
	"time"
	"unicode/utf8"
)

// Outcome constants for Run.
const (
	OutcomeMerged = "merged"
	OutcomeDryRun = "dry-run"
	OutcomeError  = "error"
)

// Auditor records merge runs.
type Auditor interface {
	Record(entry Run) error
	Close() error
}

// Run represents one merge invocation.
type Run struct {
	ID         int64
	Timestamp  time.Time
	MainPath   string
	UpdatePath string
	UnionPaths []string
	Outcome    string // merged|dry-run|error
	Error      string // truncated to maxErrorLen bytes
	DurationMs int64
}

// Truncate shortens s to at most max bytes, appending "..." if truncated.
// It never cuts a UTF-8 sequence in half.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	suffix := "..."
	if max <= len(suffix) {
		suffix = ""
	}
	cut := max - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}

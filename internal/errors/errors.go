// Package errors provides structured error types for guidebook and the
// Issue collector used by the validator to report findings in a guide.
package errors

import (
	"fmt"
	"sort"
	"sync"
)

// Issue is a single finding produced by a validation rule.
type Issue struct {
	Rule     string        `json:"rule" yaml:"rule"`
	Section  string        `json:"section,omitempty" yaml:"section,omitempty"`
	File     string        `json:"file" yaml:"file"`
	Line     int           `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string        `json:"message" yaml:"message"`
	Severity ErrorSeverity `json:"severity" yaml:"severity"`
}

// ErrorSeverity represents the severity of an issue
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity is the inverse of String.
func ParseSeverity(s string) (ErrorSeverity, error) {
	switch s {
	case "info":
		return ErrorSeverityInfo, nil
	case "warning", "warn":
		return ErrorSeverityWarning, nil
	case "error":
		return ErrorSeverityError, nil
	default:
		return ErrorSeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText encodes the severity by name.
func (s ErrorSeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *ErrorSeverity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Error implements the error interface
func (i *Issue) Error() string {
	loc := i.File
	if i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", i.File, i.Line)
	}
	if i.Section != "" {
		return fmt.Sprintf("%s: %s: [%s] #%s: %s", loc, i.Severity, i.Rule, i.Section, i.Message)
	}
	return fmt.Sprintf("%s: %s: [%s] %s", loc, i.Severity, i.Rule, i.Message)
}

// Field implements ValidationError so issues can be gathered into a
// ValidationErrorCollection.
func (i *Issue) Field() string { return i.Rule }

// Value implements ValidationError.
func (i *Issue) Value() interface{} { return i.Section }

// Suggestions implements ValidationError.
func (i *Issue) Suggestions() []string { return nil }

// IssueCollector collects issues from concurrently running rules
type IssueCollector struct {
	issues []Issue
	mutex  sync.RWMutex
}

// NewIssueCollector creates a new issue collector
func NewIssueCollector() *IssueCollector {
	return &IssueCollector{
		issues: make([]Issue, 0),
	}
}

// Add adds an issue to the collector
func (ic *IssueCollector) Add(issue Issue) {
	ic.mutex.Lock()
	defer ic.mutex.Unlock()
	ic.issues = append(ic.issues, issue)
}

// Issues returns a copy of the collected issues ordered by file, line and rule.
func (ic *IssueCollector) Issues() []Issue {
	ic.mutex.RLock()
	result := make([]Issue, len(ic.issues))
	copy(result, ic.issues)
	ic.mutex.RUnlock()

	sort.SliceStable(result, func(a, b int) bool {
		if result[a].File != result[b].File {
			return result[a].File < result[b].File
		}
		if result[a].Line != result[b].Line {
			return result[a].Line < result[b].Line
		}
		return result[a].Rule < result[b].Rule
	})
	return result
}

// HasErrors returns true if any issue has error severity
func (ic *IssueCollector) HasErrors() bool {
	return ic.CountAtLeast(ErrorSeverityError) > 0
}

// CountAtLeast counts issues whose severity is at least min.
func (ic *IssueCollector) CountAtLeast(min ErrorSeverity) int {
	ic.mutex.RLock()
	defer ic.mutex.RUnlock()
	n := 0
	for _, issue := range ic.issues {
		if issue.Severity >= min {
			n++
		}
	}
	return n
}

// Len returns the number of collected issues.
func (ic *IssueCollector) Len() int {
	ic.mutex.RLock()
	defer ic.mutex.RUnlock()
	return len(ic.issues)
}

// BySection returns the issues for one section slug in Issues order.
func (ic *IssueCollector) BySection(slug string) []Issue {
	out := make([]Issue, 0)
	for _, issue := range ic.Issues() {
		if issue.Section == slug {
			out = append(out, issue)
		}
	}
	return out
}

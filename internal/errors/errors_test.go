package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSeverityString(t *testing.T) {
	testCases := []struct {
		severity ErrorSeverity
		expected string
	}{
		{ErrorSeverityInfo, "info"},
		{ErrorSeverityWarning, "warning"},
		{ErrorSeverityError, "error"},
		{ErrorSeverity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("warn")
	require.NoError(t, err)
	assert.Equal(t, ErrorSeverityWarning, sev)

	sev, err = ParseSeverity("error")
	require.NoError(t, err)
	assert.Equal(t, ErrorSeverityError, sev)

	_, err = ParseSeverity("fatal")
	assert.Error(t, err)
}

func TestIssueJSON(t *testing.T) {
	issue := Issue{Rule: "toc-bijection", Section: "modules", File: "a.md", Line: 3,
		Message: "missing", Severity: ErrorSeverityWarning}

	data, err := json.Marshal(issue)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rule":"toc-bijection","section":"modules","file":"a.md","line":3,`+
		`"message":"missing","severity":"warning"}`, string(data))

	var decoded Issue
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, issue, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"severity":"fatal"}`), &decoded))
}

func TestIssueError(t *testing.T) {
	issue := Issue{
		Rule:     "toc-bijection",
		Section:  "oninit",
		File:     "STYLEGUIDE.md",
		Line:     12,
		Message:  "section has no table of contents entry",
		Severity: ErrorSeverityError,
	}

	assert.Equal(t,
		"STYLEGUIDE.md:12: error: [toc-bijection] #oninit: section has no table of contents entry",
		issue.Error())

	issue.Section = ""
	issue.Line = 0
	assert.Equal(t, "STYLEGUIDE.md: error: [toc-bijection] section has no table of contents entry", issue.Error())
}

func TestIssueCollectorOrdering(t *testing.T) {
	collector := NewIssueCollector()
	collector.Add(Issue{File: "b.md", Line: 1, Rule: "x"})
	collector.Add(Issue{File: "a.md", Line: 9, Rule: "y"})
	collector.Add(Issue{File: "a.md", Line: 2, Rule: "z"})
	collector.Add(Issue{File: "a.md", Line: 2, Rule: "a"})

	issues := collector.Issues()
	require.Len(t, issues, 4)
	assert.Equal(t, "a", issues[0].Rule)
	assert.Equal(t, "z", issues[1].Rule)
	assert.Equal(t, "y", issues[2].Rule)
	assert.Equal(t, "b.md", issues[3].File)
}

func TestIssueCollectorSeverity(t *testing.T) {
	collector := NewIssueCollector()
	assert.False(t, collector.HasErrors())

	collector.Add(Issue{Rule: "toc-order", Severity: ErrorSeverityWarning, Section: "oninit"})
	assert.False(t, collector.HasErrors())
	assert.Equal(t, 1, collector.CountAtLeast(ErrorSeverityWarning))

	collector.Add(Issue{Rule: "unique-anchors", Severity: ErrorSeverityError, Section: "oninit"})
	assert.True(t, collector.HasErrors())
	assert.Equal(t, 2, collector.Len())
}

func TestIssueCollectorBySection(t *testing.T) {
	collector := NewIssueCollector()
	collector.Add(Issue{File: "g.md", Line: 40, Rule: "toc-order", Section: "oninit"})
	collector.Add(Issue{File: "g.md", Line: 12, Rule: "back-to-top", Section: "naming"})
	collector.Add(Issue{File: "g.md", Line: 31, Rule: "unique-anchors", Section: "oninit"})

	oninit := collector.BySection("oninit")
	require.Len(t, oninit, 2)
	assert.Equal(t, 31, oninit[0].Line)
	assert.Equal(t, 40, oninit[1].Line)

	linting := collector.BySection("linting")
	assert.NotNil(t, linting)
	assert.Empty(t, linting)
}

func TestIssueCollectorConcurrentAdd(t *testing.T) {
	collector := NewIssueCollector()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				collector.Add(Issue{Rule: fmt.Sprintf("rule-%d", g), Line: i})
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 400, collector.Len())
}

func TestGuideError(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		err := ErrAnchorNotFound("missing").WithLocation("STYLEGUIDE.md", 3).WithSection("missing")
		assert.Equal(t, "[ERR_ANCHOR_NOT_FOUND] section:missing STYLEGUIDE.md:3 anchor not found: #missing", err.Error())
	})

	t.Run("cause is appended and unwrapped", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := NewIOError(ErrCodeFileNotFound, "cannot read guide", cause)
		assert.Contains(t, err.Error(), "cannot read guide: permission denied")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("is compares type and code", func(t *testing.T) {
		err := fmt.Errorf("resolving: %w", ErrAnchorNotFound("a"))
		assert.ErrorIs(t, err, ErrAnchorNotFound("b"))
		assert.NotErrorIs(t, err, ErrDuplicateAnchor("a", "A", "a"))
	})

	t.Run("context", func(t *testing.T) {
		err := NewConfigError(ErrCodeConfigInvalid, "bad port").WithContext("port", -1)
		assert.Equal(t, -1, err.Context["port"])
	})
}

func TestPredicates(t *testing.T) {
	dup := ErrDuplicateAnchor("oninit", "$onInit", "onInit")
	assert.True(t, IsDuplicateAnchor(dup))
	assert.False(t, IsNotFound(dup))
	assert.Equal(t, "onInit", dup.Section)

	missing := fmt.Errorf("wrapped: %w", ErrAnchorNotFound("x"))
	assert.True(t, IsNotFound(missing))
	assert.False(t, IsDuplicateAnchor(missing))

	invalid := ErrInvalidPath("/etc/guide.md", "access to restricted path denied")
	assert.True(t, HasErrorCode(invalid, ErrCodeInvalidPath))
	assert.Equal(t, ErrorTypeValidation, invalid.Type)
	assert.Equal(t, "access to restricted path denied: /etc/guide.md", invalid.Message)
	assert.Equal(t, "/etc/guide.md", invalid.Context["path"])
	assert.False(t, IsNotFound(nil))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "X", "y"))

	inner := ErrAnchorNotFound("x").WithLocation("g.md", 4).WithSection("x")
	wrapped := WrapParse(inner, ErrCodeParseFailed, "loading guide")
	assert.Equal(t, ErrorTypeParse, wrapped.Type)
	assert.Equal(t, "g.md", wrapped.FilePath)
	assert.Equal(t, 4, wrapped.Line)
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, HasErrorCode(wrapped, ErrCodeAnchorNotFound))
	assert.True(t, HasErrorCode(wrapped, ErrCodeParseFailed))
	assert.False(t, HasErrorCode(wrapped, ErrCodeConfigInvalid))

	plain := WrapIO(errors.New("eof"), ErrCodeFileNotFound, "reading")
	assert.Len(t, GetErrorChain(plain), 2)
	assert.Equal(t, ErrorTypeIO, plain.Type)
	assert.Equal(t, ErrorTypeConfig, WrapConfig(errors.New("x"), ErrCodeConfigInvalid, "y").Type)
}

func TestCombineErrors(t *testing.T) {
	assert.NoError(t, CombineErrors(nil, nil))

	single := errors.New("one")
	assert.Same(t, single, CombineErrors(nil, single))

	a, b := errors.New("a"), errors.New("b")
	combined := CombineErrors(a, nil, b)
	require.Error(t, combined)
	assert.ErrorIs(t, combined, a)
	assert.ErrorIs(t, combined, b)
	assert.Contains(t, combined.Error(), "2 errors")
}

func TestFormatErrorWithSuggestions(t *testing.T) {
	assert.Empty(t, FormatErrorWithSuggestions(nil))

	err := NewFieldValidationError("server.port", 0, "port must be positive", "set server.port in .guidebook.yml")
	out := FormatErrorWithSuggestions(err)
	assert.Contains(t, out, "server.port")
	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "set server.port in .guidebook.yml")

	assert.Equal(t, "plain", FormatErrorWithSuggestions(errors.New("plain")))

	var vec ValidationErrorCollection
	vec.AddField("validation.disabled_rules", "bogus", `unknown rule "bogus"`, "toc-bijection", "toc-order")
	vec.AddField("server.port", -1, "out of range")
	out = FormatErrorWithSuggestions(fmt.Errorf("creating validator: %w", &vec))
	assert.Equal(t, "validation error in field 'validation.disabled_rules': unknown rule \"bogus\""+
		"\n\nSuggestions:\n  • toc-bijection\n  • toc-order"+
		"\n\nvalidation error in field 'server.port': out of range", out)
}

func TestCollectSuggestions(t *testing.T) {
	assert.Empty(t, CollectSuggestions(nil))
	assert.Empty(t, CollectSuggestions(errors.New("plain")))

	single := NewFieldValidationError("server.port", 0, "bad", "use 8080")
	assert.Equal(t, []string{"use 8080"}, CollectSuggestions(fmt.Errorf("wrapped: %w", single)))

	var vec ValidationErrorCollection
	vec.AddField("a", nil, "x", "one", "two")
	vec.AddField("b", nil, "y", "two", "three")
	assert.Equal(t, []string{"one", "two", "three"}, CollectSuggestions(&vec))
}

func TestValidationErrorCollection(t *testing.T) {
	var vec ValidationErrorCollection
	assert.False(t, vec.HasErrors())
	assert.Equal(t, "no validation errors", vec.Error())

	vec.AddField("guide.paths", nil, "at least one path is required")
	assert.True(t, vec.HasErrors())
	assert.Contains(t, vec.Error(), "guide.paths")

	vec.AddField("server.port", -1, "out of range")
	assert.Equal(t, "validation failed with 2 errors", vec.Error())
}

type recordingLogger struct {
	warns, errs int
	fields      []interface{}
}

func (r *recordingLogger) Error(_ context.Context, _ error, _ string, fields ...interface{}) {
	r.errs++
	r.fields = fields
}

func (r *recordingLogger) Warn(_ context.Context, _ error, _ string, fields ...interface{}) {
	r.warns++
	r.fields = fields
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	handler := NewErrorHandler(logger)
	ctx := context.Background()

	handler.Handle(ctx, nil)
	handler.Handle(ctx, ErrAnchorNotFound("x"))
	handler.Handle(ctx, NewIOError(ErrCodeFileNotFound, "gone", nil))
	handler.Handle(ctx, errors.New("plain"))
	assert.Empty(t, logger.fields)

	assert.Equal(t, 1, logger.warns)
	assert.Equal(t, 2, logger.errs)

	var vec ValidationErrorCollection
	vec.AddField("validation.disabled_rules", "bogus", "unknown rule", "toc-order")
	handler.Handle(ctx, &vec)
	assert.Equal(t, 3, logger.errs)
	assert.Equal(t, []interface{}{"suggestions", []string{"toc-order"}}, logger.fields)
}

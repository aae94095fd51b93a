// Package validation checks the integrity of a style guide: unique anchors,
// a table of contents in bijection with the sections, recommended exemplars
// free of discouraged patterns and parseable configuration exemplars. It also
// holds the path and origin checks used by the scanner and server.
package validation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/logging"
)

// Rule names.
const (
	RuleUniqueAnchors        = "unique-anchors"
	RuleTOCBijection         = "toc-bijection"
	RuleTOCOrder             = "toc-order"
	RuleRecommendedExemplars = "recommended-exemplars"
	RuleBackToTop            = "back-to-top"
	RuleConfigExemplars      = "config-exemplars"
	RuleDuplicateExemplars   = "duplicate-exemplars"
	RuleHTMLAnchors          = "html-anchors"
)

// AllSections is the discouraged-pattern key that applies to every section.
const AllSections = "*"

// Rule is a named integrity check.
type Rule struct {
	Name        string
	Description string
	Severity    guideerrors.ErrorSeverity
	// OptIn rules only run when explicitly enabled.
	OptIn bool

	check func(rc *ruleContext)
}

// Rules lists every rule in the order they are reported by `validate --rules`.
var Rules = []Rule{
	{
		Name:        RuleUniqueAnchors,
		Description: "every section derives a unique, non-reserved anchor",
		Severity:    guideerrors.ErrorSeverityError,
		check:       checkUniqueAnchors,
	},
	{
		Name:        RuleTOCBijection,
		Description: "every TOC entry resolves to one section and every section has one TOC entry",
		Severity:    guideerrors.ErrorSeverityError,
		check:       checkTOCBijection,
	},
	{
		Name:        RuleTOCOrder,
		Description: "the TOC lists sections in authoring order",
		Severity:    guideerrors.ErrorSeverityWarning,
		check:       checkTOCOrder,
	},
	{
		Name:        RuleRecommendedExemplars,
		Description: "recommended exemplars do not contain their section's discouraged patterns",
		Severity:    guideerrors.ErrorSeverityError,
		check:       checkRecommendedExemplars,
	},
	{
		Name:        RuleBackToTop,
		Description: "every section but the last links back to the table of contents",
		Severity:    guideerrors.ErrorSeverityWarning,
		check:       checkBackToTop,
	},
	{
		Name:        RuleConfigExemplars,
		Description: "configuration exemplars parse as a JSON or YAML mapping",
		Severity:    guideerrors.ErrorSeverityError,
		check:       checkConfigExemplars,
	},
	{
		Name:        RuleDuplicateExemplars,
		Description: "no two exemplars share the same content",
		Severity:    guideerrors.ErrorSeverityWarning,
		check:       checkDuplicateExemplars,
	},
	{
		Name:        RuleHTMLAnchors,
		Description: "every in-page link of the rendered HTML has a matching id",
		Severity:    guideerrors.ErrorSeverityError,
		OptIn:       true,
		check:       checkHTMLAnchors,
	},
}

// LookupRule returns the rule with the given name.
func LookupRule(name string) (Rule, bool) {
	for _, r := range Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Options configures a Validator.
type Options struct {
	// Disabled rule names are skipped.
	Disabled []string
	// Discouraged maps a section slug, or AllSections, to patterns that no
	// recommended exemplar of that section may contain. They add to the
	// section's own avoid directives.
	Discouraged map[string][]string
	// CheckHTML enables the opt-in html-anchors rule.
	CheckHTML bool
	// FailOnWarning makes warnings fail Report.Err.
	FailOnWarning bool
	Logger        logging.Logger
}

// Validator runs integrity rules over documents.
type Validator struct {
	opts  Options
	rules []Rule
}

// NewValidator creates a validator. Unknown names in opts.Disabled are an
// error so typos in configuration do not silently enable a rule.
func NewValidator(opts Options) (*Validator, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	var vec guideerrors.ValidationErrorCollection
	for _, name := range opts.Disabled {
		if _, ok := LookupRule(name); !ok {
			vec.AddField("validation.disabled_rules", name,
				fmt.Sprintf("unknown rule %q", name), ruleNames()...)
		}
	}
	if vec.HasErrors() {
		return nil, &vec
	}

	v := &Validator{opts: opts}
	for _, r := range Rules {
		if slices.Contains(opts.Disabled, r.Name) {
			continue
		}
		if r.OptIn && !(r.Name == RuleHTMLAnchors && opts.CheckHTML) {
			continue
		}
		v.rules = append(v.rules, r)
	}
	return v, nil
}

// Enabled returns the names of the rules this validator runs.
func (v *Validator) Enabled() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name
	}
	return names
}

// Validate runs every enabled rule concurrently and returns the report.
func (v *Validator) Validate(ctx context.Context, doc *guide.Document) (*Report, error) {
	logger := v.opts.Logger.WithComponent("validator")
	perf := logging.StartOperation(logger, "validate")

	collector := guideerrors.NewIssueCollector()
	var wg sync.WaitGroup
	for _, r := range v.rules {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			perf.EndWithError(ctx, err)
			return nil, err
		}

		wg.Add(1)
		go func(r Rule) {
			defer wg.Done()
			r.check(&ruleContext{
				doc:       doc,
				rule:      r,
				opts:      &v.opts,
				collector: collector,
			})
		}(r)
	}
	wg.Wait()
	perf.End(ctx)

	report := newReport(doc.Path, collector, v.opts.FailOnWarning)
	logger.Debug(ctx, "Validated guide",
		"path", doc.Path,
		"rules", len(v.rules),
		"errors", report.Errors,
		"warnings", report.Warnings)
	return report, nil
}

func ruleNames() []string {
	names := make([]string, len(Rules))
	for i, r := range Rules {
		names[i] = r.Name
	}
	return names
}

// ruleContext is handed to a rule's check function.
type ruleContext struct {
	doc       *guide.Document
	rule      Rule
	opts      *Options
	collector *guideerrors.IssueCollector
}

func (rc *ruleContext) report(section string, line int, format string, args ...interface{}) {
	rc.collector.Add(guideerrors.Issue{
		Rule:     rc.rule.Name,
		Section:  section,
		File:     rc.doc.Path,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
		Severity: rc.rule.Severity,
	})
}

// Report is the outcome of validating one document.
type Report struct {
	Path     string
	Issues   []guideerrors.Issue
	Errors   int
	Warnings int

	failOn guideerrors.ErrorSeverity
}

func newReport(path string, collector *guideerrors.IssueCollector, failOnWarning bool) *Report {
	r := &Report{
		Path:   path,
		Issues: collector.Issues(),
		failOn: guideerrors.ErrorSeverityError,
	}
	if failOnWarning {
		r.failOn = guideerrors.ErrorSeverityWarning
	}
	for _, issue := range r.Issues {
		switch issue.Severity {
		case guideerrors.ErrorSeverityError:
			r.Errors++
		case guideerrors.ErrorSeverityWarning:
			r.Warnings++
		}
	}
	return r
}

// OK reports whether the document passed.
func (r *Report) OK() bool {
	return r.Err() == nil
}

// ByRule returns the issues raised by one rule.
func (r *Report) ByRule(name string) []guideerrors.Issue {
	var out []guideerrors.Issue
	for _, issue := range r.Issues {
		if issue.Rule == name {
			out = append(out, issue)
		}
	}
	return out
}

// Err returns the failing issues as a ValidationErrorCollection, or nil.
func (r *Report) Err() error {
	var vec guideerrors.ValidationErrorCollection
	for i := range r.Issues {
		if r.Issues[i].Severity >= r.failOn {
			vec.Add(&r.Issues[i])
		}
	}
	if !vec.HasErrors() {
		return nil
	}
	return &vec
}

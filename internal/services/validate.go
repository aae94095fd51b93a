package services

import (
	"context"
	"fmt"
	"slices"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/registry"
	"github.com/conneroisu/guidebook/internal/validation"
)

// ValidateService checks every guide of a workspace.
type ValidateService struct {
	workspace *Workspace
}

// NewValidateService creates a validate service over ws.
func NewValidateService(ws *Workspace) *ValidateService {
	return &ValidateService{workspace: ws}
}

// ValidateOptions contains options for a validation run.
type ValidateOptions struct {
	// Rules restricts the reported issues to these rules. Load failures are
	// always reported.
	Rules []string
}

// GuideResult is the outcome for one guide.
type GuideResult struct {
	Path     string              `json:"path" yaml:"path"`
	Title    string              `json:"title" yaml:"title"`
	Sections int                 `json:"sections" yaml:"sections"`
	OK       bool                `json:"ok" yaml:"ok"`
	Errors   int                 `json:"errors" yaml:"errors"`
	Warnings int                 `json:"warnings" yaml:"warnings"`
	Issues   []guideerrors.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// ValidateResult contains the result of a validation run.
type ValidateResult struct {
	Guides   []GuideResult `json:"guides" yaml:"guides"`
	Errors   int           `json:"errors" yaml:"errors"`
	Warnings int           `json:"warnings" yaml:"warnings"`
	Failed   int           `json:"failed" yaml:"failed"`
}

// OK reports whether every guide passed.
func (r *ValidateResult) OK() bool {
	return r.Failed == 0
}

// Err summarises the failed guides, or returns nil.
func (r *ValidateResult) Err() error {
	if r.OK() {
		return nil
	}
	return guideerrors.NewValidationError(guideerrors.ErrCodeValidationFailed,
		fmt.Sprintf("%d of %d guides failed validation (%d errors, %d warnings)",
			r.Failed, len(r.Guides), r.Errors, r.Warnings))
}

// Validate loads the workspace and collects the issues of every guide. The
// returned error is reserved for invalid options and cancellation; failing
// guides are reported through the result.
func (s *ValidateService) Validate(ctx context.Context, opts ValidateOptions) (*ValidateResult, error) {
	for _, name := range opts.Rules {
		if _, ok := validation.LookupRule(name); !ok {
			return nil, guideerrors.NewConfigError(guideerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("unknown rule %q", name))
		}
	}

	if err := s.workspace.Load(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.workspace.Logger.Debug(ctx, "Some guides failed to load", "error", err.Error())
	}

	guides := s.workspace.Registry.List()
	if len(guides) == 0 {
		return nil, guideerrors.NewIOError(guideerrors.ErrCodeFileNotFound,
			fmt.Sprintf("no guides found in %v", s.workspace.Targets()), nil)
	}

	failOnWarning := s.workspace.Config.Validation.FailOnWarning
	result := &ValidateResult{Guides: make([]GuideResult, 0, len(guides))}
	for _, info := range guides {
		gr := guideResult(info, opts.Rules, failOnWarning)
		result.Errors += gr.Errors
		result.Warnings += gr.Warnings
		if !gr.OK {
			result.Failed++
		}
		result.Guides = append(result.Guides, gr)
	}
	return result, nil
}

func guideResult(info *registry.GuideInfo, rules []string, failOnWarning bool) GuideResult {
	gr := GuideResult{Path: info.Path, Title: info.Title()}
	if info.Document != nil {
		gr.Sections = info.Document.Len()
	}

	for _, issue := range info.Issues() {
		if len(rules) > 0 && issue.Rule != registry.RuleLoad && !slices.Contains(rules, issue.Rule) {
			continue
		}
		switch issue.Severity {
		case guideerrors.ErrorSeverityError:
			gr.Errors++
		case guideerrors.ErrorSeverityWarning:
			gr.Warnings++
		}
		gr.Issues = append(gr.Issues, issue)
	}

	gr.OK = gr.Errors == 0 && (!failOnWarning || gr.Warnings == 0)
	return gr
}

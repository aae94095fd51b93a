package services

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/conneroisu/guidebook/internal/config"
	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/renderer"
	"github.com/conneroisu/guidebook/internal/validation"
)

// ConfigFileName is the configuration file written by init and read by the
// command line.
const ConfigFileName = ".guidebook.yml"

// StarterGuideName is the guide written by init unless disabled.
const StarterGuideName = "STYLEGUIDE.md"

// InitService handles project initialization business logic
type InitService struct{}

// NewInitService creates a new initialization service
func NewInitService() *InitService {
	return &InitService{}
}

// InitOptions contains options for project initialization
type InitOptions struct {
	ProjectDir string
	// Wizard asks for the settings on Out, reading answers from In.
	Wizard bool
	In     io.Reader
	Out    io.Writer
	// NoGuide skips the starter guide.
	NoGuide bool
	// Force replaces existing files.
	Force bool
}

// InitResult lists the files written.
type InitResult struct {
	ConfigFile string
	GuideFile  string
}

// InitProject writes a configuration file and, unless disabled, a starter
// guide that passes every rule.
func (s *InitService) InitProject(opts InitOptions) (*InitResult, error) {
	if err := validation.ValidatePath(opts.ProjectDir); err != nil {
		return nil, guideerrors.Wrap(err, guideerrors.ErrorTypeValidation, guideerrors.ErrCodeInvalidPath,
			"project directory validation failed")
	}
	if err := os.MkdirAll(opts.ProjectDir, 0o755); err != nil {
		return nil, guideerrors.WrapIO(err, guideerrors.ErrCodeInvalidPath, "cannot create project directory")
	}

	cfg := config.Default()
	if opts.Wizard {
		var err error
		cfg, err = config.NewConfigWizard(opts.In, opts.Out).Run()
		if err != nil {
			return nil, guideerrors.WrapConfig(err, guideerrors.ErrCodeConfigInvalid, "configuration wizard failed")
		}
	}

	result := &InitResult{ConfigFile: filepath.Join(opts.ProjectDir, ConfigFileName)}
	if err := config.WriteConfigFile(result.ConfigFile, cfg, opts.Force); err != nil {
		return nil, guideerrors.WrapConfig(err, guideerrors.ErrCodeConfigInvalid, "configuration file creation failed")
	}

	if opts.NoGuide {
		return result, nil
	}

	guideFile := filepath.Join(opts.ProjectDir, StarterGuideName)
	if _, err := os.Stat(guideFile); err == nil && !opts.Force {
		return result, nil
	}
	content, err := StarterGuide()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(guideFile, content, 0o644); err != nil {
		return nil, guideerrors.WrapIO(err, guideerrors.ErrCodeInvalidPath, "starter guide creation failed")
	}
	result.GuideFile = guideFile
	return result, nil
}

// StarterGuide returns the markdown of a small guide showing each construct:
// rationale, paired exemplars, an avoid directive and a configuration
// exemplar.
func StarterGuide() ([]byte, error) {
	sections := []*guide.Section{
		{
			Heading: "Naming Conventions",
			Body:    "Name files after the feature they implement.",
			Rationale: []string{
				"Why?: Consistent names make files easy to find.",
			},
			Exemplars: []guide.CodeExemplar{
				{Language: guide.LanguageScript, Info: "js", Polarity: guide.PolarityDiscouraged,
					Content: "// avoid\nfunction ctrl() {}\n"},
				{Language: guide.LanguageScript, Info: "js", Polarity: guide.PolarityRecommended,
					Content: "// recommended\nfunction WidgetController() {}\n"},
			},
			Avoid:     []string{"function ctrl("},
			BackToTop: true,
		},
		{
			Heading: "Controllers",
			Body:    "Bind members to the controller instead of the scope.",
			Exemplars: []guide.CodeExemplar{
				{Language: guide.LanguageScript, Info: "js", Polarity: guide.PolarityRecommended,
					Content: "function WidgetController() {\n  var c = this;\n  c.title = 'Widget';\n}\n"},
			},
			Notes:     []string{"Note: Capture `this` once at the top of the controller."},
			BackToTop: true,
		},
		{
			Heading: "Code Format",
			Body:    "Format code with a shared configuration.",
			Exemplars: []guide.CodeExemplar{
				{Language: guide.LanguageConfig, Info: "json", Polarity: guide.PolarityRecommended,
					Content: "{\n  \"singleQuote\": true,\n  \"semi\": true,\n  \"tabWidth\": 2,\n  \"trailingComma\": \"es5\"\n}\n"},
			},
			BackToTop: true,
		},
	}

	doc, err := guide.NewDocument("Style Guide", guide.BuildTOC(sections), sections)
	if err != nil {
		return nil, err
	}
	doc.Intro = "Conventions for this project."

	var buf bytes.Buffer
	if err := renderer.Markdown(&buf, doc); err != nil {
		return nil, fmt.Errorf("rendering starter guide: %w", err)
	}
	return buf.Bytes(), nil
}

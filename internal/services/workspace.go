// Package services holds the operations behind the command line: loading a
// workspace of guides, validating it, initialising configuration and
// serving previews.
package services

import (
	"context"

	"github.com/conneroisu/guidebook/internal/config"
	"github.com/conneroisu/guidebook/internal/logging"
	"github.com/conneroisu/guidebook/internal/markdown"
	"github.com/conneroisu/guidebook/internal/registry"
	"github.com/conneroisu/guidebook/internal/renderer"
	"github.com/conneroisu/guidebook/internal/scanner"
	"github.com/conneroisu/guidebook/internal/validation"
)

// Workspace wires the loader, validator, registry, scanner and renderer
// described by a configuration.
type Workspace struct {
	Config    *config.Config
	Logger    logging.Logger
	Loader    *markdown.Loader
	Validator *validation.Validator
	Registry  *registry.GuideRegistry
	Scanner   *scanner.GuideScanner
	Renderer  *renderer.Renderer
}

// NewWorkspace builds a workspace from cfg. It fails when the validation
// settings name unknown rules.
func NewWorkspace(cfg *config.Config, logger logging.Logger) (*Workspace, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	var loaderOpts []markdown.Option
	if cfg.Guide.TOCHeading != "" {
		loaderOpts = append(loaderOpts, markdown.WithTOCHeading(cfg.Guide.TOCHeading))
	}
	loader := markdown.NewLoader(loaderOpts...)

	validator, err := validation.NewValidator(ValidatorOptions(cfg, logger))
	if err != nil {
		return nil, err
	}

	reg := registry.NewGuideRegistry()
	scan := scanner.NewGuideScanner(reg,
		scanner.WithLoader(loader),
		scanner.WithValidator(validator),
		scanner.WithExclude(cfg.Guide.Exclude...),
		scanner.WithLogger(logger),
	)

	return &Workspace{
		Config:    cfg,
		Logger:    logger,
		Loader:    loader,
		Validator: validator,
		Registry:  reg,
		Scanner:   scan,
		Renderer: renderer.New(
			renderer.WithTerminalStyle(cfg.Render.TerminalStyle),
			renderer.WithTerminalWidth(cfg.Render.Width),
		),
	}, nil
}

// ValidatorOptions maps the validation settings of cfg to validator options.
func ValidatorOptions(cfg *config.Config, logger logging.Logger) validation.Options {
	return validation.Options{
		Disabled:      cfg.Validation.DisabledRules,
		Discouraged:   cfg.Validation.Discouraged,
		CheckHTML:     cfg.Validation.CheckHTML,
		FailOnWarning: cfg.Validation.FailOnWarning,
		Logger:        logger,
	}
}

// Targets returns the paths to scan: the target files when set, the
// configured guide paths otherwise.
func (w *Workspace) Targets() []string {
	if len(w.Config.TargetFiles) > 0 {
		return w.Config.TargetFiles
	}
	return w.Config.Guide.Paths
}

// Load scans every target into the registry. Guides that fail to load are
// registered with their error and also reported in the returned error.
func (w *Workspace) Load(ctx context.Context) error {
	perf := logging.StartOperation(w.Logger, "load_workspace")
	if err := w.Scanner.Scan(ctx, w.Targets()); err != nil {
		perf.EndWithError(ctx, err)
		return err
	}
	perf.End(ctx)
	w.Logger.Info(ctx, "Loaded guides", "count", w.Registry.Count())
	return nil
}

// Close releases the scanner's workers.
func (w *Workspace) Close() error {
	return w.Scanner.Close()
}

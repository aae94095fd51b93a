package config

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/logging"
	"github.com/conneroisu/guidebook/internal/validation"
)

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []*guideerrors.FieldValidationError
	Warnings []*guideerrors.FieldValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// Err returns the errors as a ValidationErrorCollection, or nil.
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	var vec guideerrors.ValidationErrorCollection
	for _, err := range vr.Errors {
		vec.Add(err)
	}
	return &vec
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []*guideerrors.FieldValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + "\n")
		for _, issue := range issues {
			for i, line := range strings.Split(guideerrors.FormatErrorWithSuggestions(issue), "\n") {
				switch {
				case i == 0:
					builder.WriteString("  • " + line)
				case line != "":
					builder.WriteString("    " + line)
				}
				builder.WriteString("\n")
			}
		}
	}

	write("❌ Validation Errors:", vr.Errors)
	if vr.HasErrors() && vr.HasWarnings() {
		builder.WriteString("\n")
	}
	write("⚠️  Validation Warnings:", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, guideerrors.NewFieldValidationError(field, value, message, suggestions...))
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, guideerrors.NewFieldValidationError(field, value, message, suggestions...))
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateGuideConfigDetails(&config.Guide, result)
	validateValidationConfigDetails(&config.Validation, result)
	validateRenderConfigDetails(&config.Render, result)
	validateServerConfigDetails(&config.Server, result)
	validateWatchConfigDetails(&config.Watch, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()
	return result
}

func validateGuideConfigDetails(config *GuideConfig, result *ValidationResult) {
	if len(config.Paths) == 0 {
		result.addError("guide.paths", nil, "at least one guide path is required",
			"Set guide.paths to a guide file or a directory of guides",
			"Pass guide files as arguments")
	}
	for _, path := range config.Paths {
		if err := validation.ValidatePath(path); err != nil {
			result.addError("guide.paths", path, err.Error(),
				"Point guide.paths at a project directory, not a system tree")
		}
	}

	for _, pattern := range config.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.addError("guide.exclude", pattern, fmt.Sprintf("invalid pattern: %v", err),
				"Patterns use filepath.Match syntax and are matched against base names",
				"Example: drafts, *.draft.md")
		}
	}
}

func validateValidationConfigDetails(config *ValidationConfig, result *ValidationResult) {
	for _, name := range config.DisabledRules {
		if _, ok := validation.LookupRule(name); !ok {
			result.addError("validation.disabled_rules", name, fmt.Sprintf("unknown rule %q", name),
				"Run 'guidebook validate --rules' to list the available rules")
		}
	}

	for slug, patterns := range config.Discouraged {
		field := "validation.discouraged." + slug
		if slug != validation.AllSections && !slugPattern.MatchString(slug) {
			result.addWarning(field, slug, "key does not look like a section anchor",
				"Keys are section anchors such as 'avoid-scope', or '*' for every section")
		}
		for _, pattern := range patterns {
			if strings.TrimSpace(pattern) == "" {
				result.addError(field, pattern, "empty discouraged pattern",
					"Remove the empty entry")
			}
		}
	}

	if config.CheckHTML && contains(config.DisabledRules, validation.RuleHTMLAnchors) {
		result.addWarning("validation.check_html", true,
			"check_html is enabled but html-anchors is disabled",
			"Remove html-anchors from validation.disabled_rules")
	}
}

func validateRenderConfigDetails(config *RenderConfig, result *ValidationResult) {
	if config.Width < 20 || config.Width > 400 {
		result.addError("render.width", config.Width,
			fmt.Sprintf("width %d is not in valid range 20-400", config.Width),
			"Common terminal widths: 80, 100, 120")
	}
	if !contains(terminalStyles, config.TerminalStyle) {
		result.addWarning("render.terminal_style", config.TerminalStyle,
			fmt.Sprintf("unknown terminal style %q", config.TerminalStyle),
			"Built-in styles: "+strings.Join(terminalStyles, ", "))
	}
}

// terminalStyles are glamour's built-in style names.
var terminalStyles = []string{"ascii", "auto", "dark", "dracula", "light", "notty", "pink", "tokyo-night"}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.addError("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Common development ports: 3000, 8080, 8000, 3001",
			"Port 0 allows system to assign an available port")
	} else if config.Port > 0 && config.Port < 1024 {
		result.addWarning("server.port", config.Port,
			"port below 1024 requires elevated privileges",
			"Use a port of 1024 or above")
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.addError("server.host", config.Host, fmt.Sprintf("invalid host: %v", err),
				"Use 'localhost' for local development",
				"Use '0.0.0.0' to listen on all interfaces")
		} else if config.Host == "0.0.0.0" {
			result.addWarning("server.host", config.Host,
				"server is reachable from other machines",
				"Use 'localhost' unless the preview must be shared")
		}
	}

	for _, origin := range config.AllowedOrigins {
		if err := validation.ValidateOrigin(origin, []string{origin}); err != nil {
			result.addError("server.allowed_origins", origin, err.Error(),
				"Origins look like http://localhost:8080")
		}
	}
}

func validateWatchConfigDetails(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.addError("watch.debounce", config.Debounce, "debounce cannot be negative",
			"Use a duration such as 300ms")
	} else if config.Debounce > 5*time.Second {
		result.addWarning("watch.debounce", config.Debounce,
			"long debounce delays every reload",
			"Values between 100ms and 1s work well")
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.addError("log.level", config.Level, err.Error(),
			"Use one of: debug, info, warn, error")
	}
	if config.Format != "text" && config.Format != "json" {
		result.addError("log.format", config.Format, fmt.Sprintf("unknown log format %q", config.Format),
			"Use 'text' or 'json'")
	}
}

// slugPattern matches the characters an anchor slug is made of.
var slugPattern = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

// hostnamePattern is RFC 1123 hostname syntax.
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnamePattern.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

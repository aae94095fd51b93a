package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
)

// GuideExtensions are the file extensions treated as style guides.
var GuideExtensions = []string{".md", ".markdown"}

// restrictedRoots are system trees no guide path may point into.
var restrictedRoots = []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/"}

// shellMetacharacters never appear in a guide path.
const shellMetacharacters = ";&|$`<>\x00"

// ValidatePath rejects empty paths, paths carrying shell metacharacters and
// paths that resolve into system trees. Relative paths, ".." included, are
// resolved against the working directory first. Errors carry
// ErrCodeInvalidPath.
func ValidatePath(path string) error {
	if path == "" {
		return guideerrors.NewValidationError(guideerrors.ErrCodeInvalidPath, "path cannot be empty")
	}
	if i := strings.IndexAny(path, shellMetacharacters); i >= 0 {
		return guideerrors.ErrInvalidPath(path, fmt.Sprintf("path contains dangerous character %q", path[i]))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return guideerrors.Wrap(err, guideerrors.ErrorTypeValidation, guideerrors.ErrCodeInvalidPath,
			"resolving "+path)
	}
	resolved := strings.ToLower(filepath.ToSlash(abs)) + "/"
	for _, root := range restrictedRoots {
		if strings.HasPrefix(resolved, root) {
			return guideerrors.ErrInvalidPath(path, "access to restricted path denied")
		}
	}
	return nil
}

// ValidateGuideFile validates a path and requires a markdown extension.
func ValidateGuideFile(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return ValidateFileExtension(path, GuideExtensions)
}

// ValidateOrigin checks a live reload Origin header against the allowed
// origins. An entry matches either the whole origin or its host:port.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return guideerrors.NewValidationError(guideerrors.ErrCodeOriginDenied, "origin header is required")
	}

	u, err := url.Parse(origin)
	if err != nil {
		return guideerrors.Wrap(err, guideerrors.ErrorTypeValidation, guideerrors.ErrCodeOriginDenied,
			"invalid origin format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return guideerrors.NewValidationError(guideerrors.ErrCodeOriginDenied,
			fmt.Sprintf("invalid origin scheme %q: only http and https are allowed", u.Scheme))
	}

	if slices.ContainsFunc(allowedOrigins, func(allowed string) bool {
		return allowed == origin || allowed == u.Host
	}) {
		return nil
	}
	return guideerrors.NewValidationError(guideerrors.ErrCodeOriginDenied,
		fmt.Sprintf("origin %q is not in allowed origins list", origin))
}

// ValidateFileExtension accepts filename when its extension, compared
// case-insensitively, is one of allowedExtensions.
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	if filename == "" {
		return guideerrors.NewValidationError(guideerrors.ErrCodeInvalidPath, "filename cannot be empty")
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		return guideerrors.ErrInvalidPath(filename, "file must have an extension")
	}
	if slices.ContainsFunc(allowedExtensions, func(allowed string) bool {
		return strings.EqualFold(ext, allowed)
	}) {
		return nil
	}
	return guideerrors.ErrInvalidPath(filename, fmt.Sprintf("file extension %q is not allowed", strings.ToLower(ext)))
}

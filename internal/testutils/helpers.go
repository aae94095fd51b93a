// Package testutils holds fixtures shared by the package tests: the reference
// guide, small guides with known defects and helpers for temporary guide
// projects.
package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/guidebook/internal/config"
	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/markdown"
	"github.com/conneroisu/guidebook/internal/registry"
)

// ReferenceGuideName is the file name of the reference guide.
const ReferenceGuideName = "STYLEGUIDE.md"

// Guides with known defects.
const (
	// BrokenGuide has a table of contents entry without a section and a
	// section without an entry.
	BrokenGuide = "# Broken\n\n## Table of Contents\n\n1. [Ghost](#ghost)\n\n## Modules\n\ntext\n"

	// DuplicateAnchorGuide has two headings that slug to "oninit".
	DuplicateAnchorGuide = "# Dup\n\n## $onInit\n\n## onInit\n"

	// MinimalGuide has a single section and no table of contents.
	MinimalGuide = "# Other\n\n## Modules\n\ntext\n"
)

// ReferenceGuidePath returns the absolute path of testdata/guide/STYLEGUIDE.md.
func ReferenceGuidePath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "cannot locate testutils source")
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata", "guide", ReferenceGuideName)
}

// ReferenceGuide returns the markdown of the reference guide.
func ReferenceGuide(t *testing.T) string {
	t.Helper()
	src, err := os.ReadFile(ReferenceGuidePath(t))
	require.NoError(t, err)
	return string(src)
}

// LoadReferenceGuide parses the reference guide.
func LoadReferenceGuide(t *testing.T) *guide.Document {
	t.Helper()
	doc, err := markdown.NewLoader().Load(ReferenceGuidePath(t))
	require.NoError(t, err)
	return doc
}

// WriteFiles writes files, keyed by slash separated relative path, under dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// CreateGuideProject writes files into a fresh temporary directory and
// returns it.
func CreateGuideProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, files)
	return dir
}

// CreateReferenceProject returns a temporary directory holding a copy of the
// reference guide.
func CreateReferenceProject(t *testing.T) string {
	t.Helper()
	return CreateGuideProject(t, map[string]string{ReferenceGuideName: ReferenceGuide(t)})
}

// CreateTestConfig returns the default configuration scanning projectDir
// with a short debounce and an ephemeral loopback port.
func CreateTestConfig(projectDir string) *config.Config {
	cfg := config.Default()
	cfg.Guide.Paths = []string{projectDir}
	cfg.Watch.Debounce = 20 * time.Millisecond
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	return cfg
}

// CreateTestRegistry returns a registry holding the reference guide under
// path.
func CreateTestRegistry(t *testing.T, path string) *registry.GuideRegistry {
	t.Helper()
	reg := registry.NewGuideRegistry()
	reg.Register(&registry.GuideInfo{
		Path:     path,
		Document: LoadReferenceGuide(t),
		LastMod:  time.Now(),
	})
	return reg
}

// SecurityTestCases provides path attack vectors. Every traversal case
// resolves into a restricted system tree.
var SecurityTestCases = struct {
	PathTraversal    []string
	CommandInjection []string
}{
	PathTraversal: []string{
		"/./../../etc/passwd",
		"/home/../etc/shadow",
		"/usr/../proc/self/environ",
		"/etc/passwd",
		"/proc/self/environ",
		"/sys/kernel",
	},
	CommandInjection: []string{
		"guide.md; rm -rf /",
		"guide.md && rm -rf /",
		"guide.md | cat",
		"guide`rm -rf /`.md",
		"guide$(whoami).md",
		"guide.md > /tmp/out",
	},
}

// WaitFor polls cond every 10ms until it holds or timeout passes.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s within %v", msg, timeout)
}

// WaitForFileChange waits for a file to be modified after originalModTime.
func WaitForFileChange(t *testing.T, filePath string, originalModTime time.Time, timeout time.Duration) {
	t.Helper()
	WaitFor(t, timeout, func() bool {
		info, err := os.Stat(filePath)
		return err == nil && info.ModTime().After(originalModTime)
	}, "file "+filePath+" was not modified")
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/renderer"
	"github.com/conneroisu/guidebook/internal/services"
	"github.com/conneroisu/guidebook/internal/testutils"
)

// resetFlags restores every flag to its default so commands can run more
// than once in a test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// guideDir writes files into a temporary directory configured as the only
// guide path.
func guideDir(t *testing.T, files map[string]string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := testutils.CreateGuideProject(t, files)
	viper.Set("guide.paths", []string{dir})
	return dir
}

func referenceDir(t *testing.T) string {
	t.Helper()
	return guideDir(t, map[string]string{testutils.ReferenceGuideName: testutils.ReferenceGuide(t)})
}

func TestValidateCommand(t *testing.T) {
	referenceDir(t)

	out, err := executeCommand(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "13 sections")

	out, err = executeCommand(t, "validate", "-o", "json")
	require.NoError(t, err)
	var result services.ValidateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Guides, 1)
	assert.True(t, result.OK())
}

func TestValidateCommand_Failures(t *testing.T) {
	dir := guideDir(t, map[string]string{"broken.md": testutils.BrokenGuide})

	out, err := executeCommand(t, "validate")
	require.Error(t, err)
	assert.True(t, guideerrors.HasErrorCode(err, guideerrors.ErrCodeValidationFailed))
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, filepath.Join(dir, "broken.md"))
	assert.Contains(t, out, "[toc-bijection]")

	_, err = executeCommand(t, "validate", "--rules", "duplicate-exemplars")
	assert.NoError(t, err)

	_, err = executeCommand(t, "validate", "--rules", "bogus")
	assert.Error(t, err)

	_, err = executeCommand(t, "validate", "-o", "xml")
	assert.Error(t, err)
}

func TestTOCCommand(t *testing.T) {
	referenceDir(t)

	out, err := executeCommand(t, "toc", "-o", "json")
	require.NoError(t, err)

	var entries []renderer.TOCEntryView
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 13)
	for _, entry := range entries {
		assert.True(t, entry.Resolves, entry.Target)
	}

	out, err = executeCommand(t, "toc")
	require.NoError(t, err)
	assert.Contains(t, out, "#controlleras-syntax")
	assert.NotContains(t, out, "NO")
}

func TestTOCCommand_Unresolved(t *testing.T) {
	guideDir(t, map[string]string{"broken.md": testutils.BrokenGuide})

	out, err := executeCommand(t, "toc")
	require.Error(t, err)
	assert.Contains(t, out, "#ghost")
	assert.Contains(t, err.Error(), "1 of 1")
}

func TestListCommand(t *testing.T) {
	referenceDir(t)

	out, err := executeCommand(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "controllerAs Syntax")
	assert.Contains(t, out, "#oninit")

	out, err = executeCommand(t, "list", "-o", "yaml")
	require.NoError(t, err)
	var rows []sectionSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 13)
	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, "naming-conventions", rows[0].Slug)
	assert.Equal(t, "code-format", rows[12].Slug)
}

func TestResolveCommand(t *testing.T) {
	dir := referenceDir(t)

	out, err := executeCommand(t, "resolve", "oninit")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "## $onInit\n"), out)

	out, err = executeCommand(t, "resolve", "#one-time-binding", filepath.Join(dir, "STYLEGUIDE.md"), "-o", "json")
	require.NoError(t, err)
	var section renderer.SectionView
	require.NoError(t, json.Unmarshal([]byte(out), &section))
	assert.Equal(t, "One-time Binding", section.Heading)
	assert.Equal(t, "one-time-binding", section.Slug)

	_, err = executeCommand(t, "resolve", "missing")
	require.Error(t, err)
	assert.True(t, guideerrors.IsNotFound(err))

	_, err = executeCommand(t, "resolve")
	assert.Error(t, err)
}

func TestExemplarsCommand(t *testing.T) {
	referenceDir(t)

	out, err := executeCommand(t, "exemplars", "-o", "json")
	require.NoError(t, err)
	var all []exemplarRow
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	require.NotEmpty(t, all)
	for _, row := range all {
		assert.Len(t, row.Hash, 64)
	}

	out, err = executeCommand(t, "exemplars", "--dedupe", "-o", "json")
	require.NoError(t, err)
	var unique []exemplarRow
	require.NoError(t, json.Unmarshal([]byte(out), &unique))
	assert.LessOrEqual(t, len(unique), len(all))
	seen := map[string]bool{}
	for _, row := range unique {
		assert.False(t, seen[row.Hash], "hash listed twice: %s", row.Hash)
		seen[row.Hash] = true
	}

	out, err = executeCommand(t, "exemplars", "--language", "config", "-o", "json")
	require.NoError(t, err)
	var configs []exemplarRow
	require.NoError(t, json.Unmarshal([]byte(out), &configs))
	require.NotEmpty(t, configs)
	sections := map[string]bool{}
	for _, row := range configs {
		assert.Equal(t, "config", row.Language)
		sections[row.Section] = true
	}
	assert.True(t, sections["code-format"])

	out, err = executeCommand(t, "exemplars", "--polarity", "discouraged")
	require.NoError(t, err)
	assert.NotContains(t, out, "RECOMMENDED")

	_, err = executeCommand(t, "exemplars", "--polarity", "maybe")
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	referenceDir(t)

	out, err := executeCommand(t, "render", "--format", "markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Service Portal Widget Style Guide\n"))
	assert.Contains(t, out, "1. [controllerAs Syntax](#controlleras-syntax)")

	out, err = executeCommand(t, "render", "-f", "json")
	require.NoError(t, err)
	var view renderer.DocumentView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Len(t, view.Sections, 13)

	target := filepath.Join(t.TempDir(), "guide.html")
	out, err = executeCommand(t, "render", "--format", "html", "--out", target)
	require.NoError(t, err)
	assert.Empty(t, out)
	html, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(html), `id="oninit"`)

	_, err = executeCommand(t, "render", "--format", "pdf")
	assert.Error(t, err)
}

func TestSingleGuideCommands_RequireAGuide(t *testing.T) {
	dir := guideDir(t, map[string]string{
		"STYLEGUIDE.md": testutils.ReferenceGuide(t),
		"other.md":      testutils.MinimalGuide,
		"dup.md":        testutils.DuplicateAnchorGuide,
	})

	_, err := executeCommand(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 guides found")

	_, err = executeCommand(t, "list", filepath.Join(dir, "other.md"))
	assert.NoError(t, err)

	_, err = executeCommand(t, "list", filepath.Join(dir, "dup.md"))
	require.Error(t, err)
	assert.True(t, guideerrors.IsDuplicateAnchor(err))

	guideDir(t, nil)
	_, err = executeCommand(t, "toc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no guides found")
}

func TestInitCommand(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := filepath.Join(t.TempDir(), "project")

	out, err := executeCommand(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+filepath.Join(dir, services.ConfigFileName))
	assert.FileExists(t, filepath.Join(dir, services.StarterGuideName))

	_, err = executeCommand(t, "init", dir)
	assert.Error(t, err)

	_, err = executeCommand(t, "init", dir, "--force", "--no-guide")
	assert.NoError(t, err)

	viper.Set("guide.paths", []string{dir})
	_, err = executeCommand(t, "validate")
	assert.NoError(t, err, "the starter guide passes validation")
}

func TestConfigCommands(t *testing.T) {
	dir := referenceDir(t)
	viper.Set("validation.check_html", true)

	out, err := executeCommand(t, "config", "show")
	require.NoError(t, err)
	var shown map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Equal(t, []interface{}{dir}, shown["guide"].(map[string]interface{})["paths"])

	out, err = executeCommand(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")

	out, err = executeCommand(t, "config", "rules", "-o", "json")
	require.NoError(t, err)
	var rules []ruleRow
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	require.NotEmpty(t, rules)
	for _, r := range rules {
		assert.True(t, r.Enabled, r.Name)
	}

	viper.Set("server.port", 70000)
	out, err = executeCommand(t, "config", "validate")
	require.Error(t, err)
	assert.True(t, guideerrors.HasErrorCode(err, guideerrors.ErrCodeConfigInvalid))
	assert.Contains(t, out, "field 'server.port'")
	assert.Contains(t, out, "Suggestions:")
}

func TestReportError(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("log.format", "json")

	tests := []struct {
		name  string
		err   error
		level string
		want  []string
	}{
		{
			name: "guide error",
			err: guideerrors.WrapParse(guideerrors.ErrDuplicateAnchor("oninit", "$onInit", "onInit"),
				guideerrors.ErrCodeParseFailed, "invalid guide structure").WithLocation("STYLEGUIDE.md", 7),
			level: "ERROR",
			want:  []string{`"code":"ERR_PARSE_FAILED"`, `"error_code":"ERR_PARSE_FAILED"`, `"line":7`},
		},
		{
			name:  "anchor error",
			err:   guideerrors.ErrAnchorNotFound("ghost"),
			level: "WARN",
			want:  []string{`"code":"ERR_ANCHOR_NOT_FOUND"`},
		},
		{
			name: "configuration suggestions",
			err: func() error {
				var vec guideerrors.ValidationErrorCollection
				vec.AddField("validation.disabled_rules", "bogus", `unknown rule "bogus"`, "toc-bijection")
				return &vec
			}(),
			level: "ERROR",
			want:  []string{`"suggestions":["toc-bijection"]`, `unknown rule`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reportError(&buf, tt.err)

			var record map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record), buf.String())
			assert.Equal(t, tt.level, record["level"])
			assert.Equal(t, "cli", record["component"])
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, err = executeCommand(t, "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	out, err = executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform:")
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchWorkspace(t *testing.T) {
	dir := referenceDir(t)
	viper.Set("watch.debounce", "20ms")

	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	ws, err := services.NewWorkspace(cfg, nil)
	require.NoError(t, err)
	defer ws.Close()

	out := &syncBuffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchWorkspace(ctx, cmd, ws) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "ok       "+filepath.Join(dir, "STYLEGUIDE.md"))
	}, 5*time.Second, 10*time.Millisecond)

	// The watcher starts after the initial report; keep writing until the
	// change is picked up.
	broken := filepath.Join(dir, "broken.md")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(broken, []byte(testutils.BrokenGuide), 0o644)
		return strings.Contains(out.String(), "FAIL     "+broken)
	}, 5*time.Second, 100*time.Millisecond)

	require.NoError(t, os.Remove(broken))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "removed  "+broken)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("0"))
	assert.NoError(t, ValidatePort("8080"))
	assert.Error(t, ValidatePort("65536"))
	assert.Error(t, ValidatePort("http"))
}

func TestOutputFlags_Write(t *testing.T) {
	rows := []ruleRow{{Name: "a", Severity: "error", Enabled: true}}

	var buf bytes.Buffer
	flags := &OutputFlags{Format: FormatYAML}
	require.NoError(t, flags.Write(&buf, rows, nil))
	assert.Contains(t, buf.String(), "- name: a")

	buf.Reset()
	flags.Format = FormatTable
	require.NoError(t, flags.Write(&buf, rows, func(tw *tabwriter.Writer) {
		tw.Write([]byte("x\ty\n"))
	}))
	assert.Equal(t, "x  y\n", buf.String())

	flags.Format = "csv"
	assert.Error(t, flags.Write(&buf, rows, nil))
}

package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/guidebook/internal/config"
	"github.com/conneroisu/guidebook/internal/testutils"
)

func workspaceDir(t *testing.T, files map[string]string) (string, *config.Config) {
	t.Helper()
	dir := testutils.CreateGuideProject(t, files)
	cfg := config.Default()
	cfg.Guide.Paths = []string{dir}
	return dir, cfg
}

func newWorkspace(t *testing.T, cfg *config.Config) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestNewWorkspace(t *testing.T) {
	_, cfg := workspaceDir(t, nil)
	cfg.Validation.CheckHTML = true
	cfg.Validation.DisabledRules = []string{"back-to-top"}

	ws := newWorkspace(t, cfg)
	assert.Contains(t, ws.Validator.Enabled(), "html-anchors")
	assert.NotContains(t, ws.Validator.Enabled(), "back-to-top")
	assert.Same(t, ws.Registry, ws.Scanner.GetRegistry())

	cfg.Validation.DisabledRules = []string{"no-such-rule"}
	_, err := NewWorkspace(cfg, nil)
	assert.Error(t, err)
}

func TestWorkspace_Targets(t *testing.T) {
	dir, cfg := workspaceDir(t, nil)
	ws := newWorkspace(t, cfg)
	assert.Equal(t, []string{dir}, ws.Targets())

	cfg.TargetFiles = []string{"a.md"}
	assert.Equal(t, []string{"a.md"}, ws.Targets())
}

func TestWorkspace_Load(t *testing.T) {
	_, cfg := workspaceDir(t, map[string]string{
		"STYLEGUIDE.md":        testutils.ReferenceGuide(t),
		"docs/team.md":         "# Team\n\n## Table of Contents\n\n1. [Modules](#modules)\n\n## Modules\n\ntext\n",
		"node_modules/skip.md": "# Skipped\n",
		"docs/notes.txt":       "not a guide",
	})

	ws := newWorkspace(t, cfg)
	require.NoError(t, ws.Load(context.Background()))
	assert.Equal(t, 2, ws.Registry.Count())
}

func TestWorkspace_CustomTOCHeading(t *testing.T) {
	_, cfg := workspaceDir(t, map[string]string{
		"guide.md": "# Team\n\n## Index\n\n1. [Modules](#modules)\n\n## Modules\n\ntext\n",
	})
	cfg.Guide.TOCHeading = "Index"

	ws := newWorkspace(t, cfg)
	require.NoError(t, ws.Load(context.Background()))
	guides := ws.Registry.List()
	require.Len(t, guides, 1)
	require.NotNil(t, guides[0].Document)
	assert.Equal(t, 1, guides[0].Document.Len())
	assert.True(t, guides[0].OK())
}

func TestValidateService(t *testing.T) {
	dir, cfg := workspaceDir(t, map[string]string{
		"STYLEGUIDE.md": testutils.ReferenceGuide(t),
		"broken.md":     testutils.BrokenGuide,
		"dup.md":        testutils.DuplicateAnchorGuide,
	})
	service := NewValidateService(newWorkspace(t, cfg))

	result, err := service.Validate(context.Background(), ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, result.Guides, 3)
	assert.False(t, result.OK())
	assert.Equal(t, 2, result.Failed)
	assert.Error(t, result.Err())

	byName := map[string]GuideResult{}
	for _, g := range result.Guides {
		byName[filepath.Base(g.Path)] = g
	}

	ref := byName["STYLEGUIDE.md"]
	assert.True(t, ref.OK)
	assert.Equal(t, 13, ref.Sections)
	assert.Empty(t, ref.Issues)

	broken := byName["broken.md"]
	assert.False(t, broken.OK)
	assert.Positive(t, broken.Errors)

	dup := byName["dup.md"]
	assert.False(t, dup.OK)
	require.Len(t, dup.Issues, 1)
	assert.Equal(t, "load", dup.Issues[0].Rule)
	assert.Equal(t, filepath.Join(dir, "dup.md"), dup.Issues[0].File)
}

func TestValidateService_RuleFilter(t *testing.T) {
	_, cfg := workspaceDir(t, map[string]string{"broken.md": testutils.BrokenGuide})
	service := NewValidateService(newWorkspace(t, cfg))

	result, err := service.Validate(context.Background(), ValidateOptions{Rules: []string{"duplicate-exemplars"}})
	require.NoError(t, err)
	require.Len(t, result.Guides, 1)
	assert.True(t, result.OK())
	assert.Empty(t, result.Guides[0].Issues)
	assert.NoError(t, result.Err())

	result, err = service.Validate(context.Background(), ValidateOptions{Rules: []string{"toc-bijection"}})
	require.NoError(t, err)
	assert.False(t, result.OK())
	for _, issue := range result.Guides[0].Issues {
		assert.Equal(t, "toc-bijection", issue.Rule)
	}

	_, err = service.Validate(context.Background(), ValidateOptions{Rules: []string{"bogus"}})
	assert.Error(t, err)
}

func TestValidateService_FailOnWarning(t *testing.T) {
	// Missing back-to-top links are warnings.
	src := "# Team\n\n## Table of Contents\n\n1. [A](#a)\n1. [B](#b)\n\n## A\n\ntext\n\n## B\n\ntext\n"
	_, cfg := workspaceDir(t, map[string]string{"team.md": src})

	result, err := NewValidateService(newWorkspace(t, cfg)).Validate(context.Background(), ValidateOptions{})
	require.NoError(t, err)
	require.Positive(t, result.Warnings)
	assert.True(t, result.OK())

	cfg.Validation.FailOnWarning = true
	result, err = NewValidateService(newWorkspace(t, cfg)).Validate(context.Background(), ValidateOptions{})
	require.NoError(t, err)
	assert.False(t, result.OK())
}

func TestValidateService_NoGuides(t *testing.T) {
	_, cfg := workspaceDir(t, nil)
	_, err := NewValidateService(newWorkspace(t, cfg)).Validate(context.Background(), ValidateOptions{})
	assert.Error(t, err)
}

func TestValidateService_Cancelled(t *testing.T) {
	_, cfg := workspaceDir(t, map[string]string{"STYLEGUIDE.md": testutils.ReferenceGuide(t)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewValidateService(newWorkspace(t, cfg)).Validate(ctx, ValidateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServeService(t *testing.T) {
	_, cfg := workspaceDir(t, map[string]string{"STYLEGUIDE.md": testutils.ReferenceGuide(t)})
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	service := NewServeService(newWorkspace(t, cfg))

	info := service.GetServerInfo()
	assert.Equal(t, "http://127.0.0.1:0", info.ServerURL)
	assert.Equal(t, cfg.Guide.Paths, info.Targets)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, service.Serve(ctx))
}

func TestServeService_ListenFailure(t *testing.T) {
	_, cfg := workspaceDir(t, nil)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = -1

	err := NewServeService(newWorkspace(t, cfg)).Serve(context.Background())
	assert.Error(t, err)
}

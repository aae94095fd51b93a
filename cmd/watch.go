package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/services"
	"github.com/conneroisu/guidebook/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch [guide...]",
	Aliases: []string{"w"},
	Short:   "Re-check guides whenever they change",
	Long: `Watch the configured guides, or the given files and directories, and
re-validate each guide when it changes on disk. Runs until interrupted.

Examples:
  guidebook watch
  guidebook watch docs/ --debounce 500ms`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("debounce", 0, "Delay before re-checking a changed guide")
	bindFlags(watchCmd, map[string]string{"debounce": "watch.debounce"})
}

func runWatch(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, args)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watchWorkspace(ctx, cmd, ws)
}

// watchWorkspace reports the status of every guide, then of every guide that
// changes, until ctx is done.
func watchWorkspace(ctx context.Context, cmd *cobra.Command, ws *services.Workspace) error {
	out := cmd.OutOrStdout()
	_ = ws.Load(ctx)
	for _, info := range ws.Registry.List() {
		fmt.Fprintln(out, statusLine(info.Path, ws))
	}

	fw, err := watcher.NewFileWatcher(ws.Config.Watch.Debounce, ws.Logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.AddFilter(watcher.MarkdownFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddDirFilter(watcher.NoGitFilter)
	fw.AddDirFilter(watcher.ExcludeFilter(ws.Config.Guide.Exclude...))
	fw.AddHandler(ws.Scanner.HandleChanges)
	fw.AddHandler(func(_ context.Context, events []watcher.ChangeEvent) error {
		for _, event := range events {
			path, err := filepath.Abs(event.Path)
			if err != nil {
				continue
			}
			if event.Gone() {
				fmt.Fprintf(out, "removed  %s\n", path)
				continue
			}
			fmt.Fprintln(out, statusLine(path, ws))
		}
		return nil
	})

	if err := fw.AddTargets(ws.Targets()...); err != nil {
		ws.Logger.Warn(ctx, err, "Some paths are not watched")
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	ws.Logger.Info(ctx, "Watching guides", "directories", len(fw.WatchList()))

	<-ctx.Done()
	return fw.Stop()
}

func statusLine(path string, ws *services.Workspace) string {
	info, ok := ws.Registry.Get(path)
	switch {
	case !ok:
		return fmt.Sprintf("skipped  %s", path)
	case info.Err != nil:
		return fmt.Sprintf("FAIL     %s: %v", path, info.Err)
	case !info.OK():
		return fmt.Sprintf("FAIL     %s: %d errors, %d warnings", path, info.Report.Errors, info.Report.Warnings)
	case info.Report != nil && info.Report.Warnings > 0:
		return fmt.Sprintf("ok       %s: %d warnings", path, info.Report.Warnings)
	default:
		return fmt.Sprintf("ok       %s", path)
	}
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/renderer"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <anchor> [guide]",
	Short: "Print the section an anchor points to",
	Long: `Resolve an in-page anchor to its section. A leading '#' is ignored.

Examples:
  guidebook resolve oninit
  guidebook resolve '#controlleras-syntax' STYLEGUIDE.md
  guidebook resolve one-time-binding -o json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResolve,
}

var resolveFlags *OutputFlags

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveFlags = AddOutputFlags(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ws, info, err := loadGuide(cmd, args[1:])
	if err != nil {
		return err
	}
	defer ws.Close()

	section, err := info.Document.ResolveAnchor(args[0])
	if err != nil {
		return err
	}

	if resolveFlags.Format == FormatTable {
		return renderer.SectionMarkdown(cmd.OutOrStdout(), section)
	}
	return resolveFlags.Write(cmd.OutOrStdout(), renderer.ViewSection(section), nil)
}

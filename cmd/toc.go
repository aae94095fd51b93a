package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/renderer"
)

var tocCmd = &cobra.Command{
	Use:   "toc [guide]",
	Short: "Show the table of contents and whether each entry resolves",
	Long: `Print the table of contents as written in the guide, with the anchor each
entry targets and whether a section derives that anchor.

Examples:
  guidebook toc STYLEGUIDE.md
  guidebook toc -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTOC,
}

var tocFlags *OutputFlags

func init() {
	rootCmd.AddCommand(tocCmd)
	tocFlags = AddOutputFlags(tocCmd)
}

func runTOC(cmd *cobra.Command, args []string) error {
	ws, info, err := loadGuide(cmd, args)
	if err != nil {
		return err
	}
	defer ws.Close()

	entries := renderer.View(info.Document).TOC
	unresolved := 0
	err = tocFlags.Write(cmd.OutOrStdout(), entries, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "#\tTITLE\tTARGET\tRESOLVES")
		for i, entry := range entries {
			resolves := "yes"
			if !entry.Resolves {
				resolves = "NO"
			}
			fmt.Fprintf(tw, "%d\t%s\t#%s\t%s\n", i+1, entry.Title, entry.Target, resolves)
		}
	})
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.Resolves {
			unresolved++
		}
	}
	if unresolved > 0 {
		return fmt.Errorf("%d of %d table of contents entries do not resolve", unresolved, len(entries))
	}
	return nil
}

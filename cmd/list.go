package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/guide"
)

var listCmd = &cobra.Command{
	Use:     "list [guide]",
	Aliases: []string{"l", "sections"},
	Short:   "List the sections of a guide in document order",
	Long: `List the sections of a guide with their anchors, exemplar counts and
discouraged patterns.

Examples:
  guidebook list                    # List sections in table format
  guidebook list -o json            # Output as JSON
  guidebook list STYLEGUIDE.md -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var listFlags *OutputFlags

func init() {
	rootCmd.AddCommand(listCmd)
	listFlags = AddOutputFlags(listCmd)
}

// sectionSummary is a row of the section listing.
type sectionSummary struct {
	Index       int      `json:"index" yaml:"index"`
	Heading     string   `json:"heading" yaml:"heading"`
	Slug        string   `json:"slug" yaml:"slug"`
	Line        int      `json:"line,omitempty" yaml:"line,omitempty"`
	Recommended int      `json:"recommended" yaml:"recommended"`
	Discouraged int      `json:"discouraged" yaml:"discouraged"`
	Avoid       []string `json:"avoid,omitempty" yaml:"avoid,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	ws, info, err := loadGuide(cmd, args)
	if err != nil {
		return err
	}
	defer ws.Close()

	var rows []sectionSummary
	for s := range info.Document.ListSections() {
		rows = append(rows, sectionSummary{
			Index:       len(rows) + 1,
			Heading:     s.Heading,
			Slug:        s.AnchorSlug(),
			Line:        s.Line,
			Recommended: len(s.ExemplarsByPolarity(guide.PolarityRecommended)),
			Discouraged: len(s.ExemplarsByPolarity(guide.PolarityDiscouraged)),
			Avoid:       s.Avoid,
		})
	}

	return listFlags.Write(cmd.OutOrStdout(), rows, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "#\tHEADING\tANCHOR\tRECOMMENDED\tDISCOURAGED")
		for _, row := range rows {
			fmt.Fprintf(tw, "%d\t%s\t#%s\t%d\t%d\n", row.Index, row.Heading, row.Slug, row.Recommended, row.Discouraged)
		}
	})
}

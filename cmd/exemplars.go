package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/renderer"
)

var exemplarsCmd = &cobra.Command{
	Use:     "exemplars [guide]",
	Aliases: []string{"ex"},
	Short:   "List code exemplars with their polarity and content hash",
	Long: `List every code exemplar of a guide with the section it belongs to, its
language, polarity and SHA-256 content hash.

Examples:
  guidebook exemplars                         # Every exemplar
  guidebook exemplars --dedupe                # First occurrence of each content
  guidebook exemplars --polarity discouraged  # Only discouraged exemplars
  guidebook exemplars --language config -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExemplars,
}

var (
	exemplarsFlags    *OutputFlags
	exemplarsDedupe   bool
	exemplarsPolarity string
	exemplarsLanguage string
)

func init() {
	rootCmd.AddCommand(exemplarsCmd)

	exemplarsFlags = AddOutputFlags(exemplarsCmd)
	exemplarsCmd.Flags().BoolVar(&exemplarsDedupe, "dedupe", false, "Show each distinct content once")
	exemplarsCmd.Flags().StringVar(&exemplarsPolarity, "polarity", "", "Only show this polarity (recommended, discouraged)")
	exemplarsCmd.Flags().StringVar(&exemplarsLanguage, "language", "", "Only show this language (script, markup, config, unknown)")
	AddFlagValidation(exemplarsCmd, "polarity", func(p string) error {
		return validateChoice("polarity", p, guide.PolarityRecommended.String(), guide.PolarityDiscouraged.String())
	})
	AddFlagValidation(exemplarsCmd, "language", func(l string) error {
		return validateChoice("language", l, guide.LanguageScript.String(), guide.LanguageMarkup.String(),
			guide.LanguageConfig.String(), guide.LanguageUnknown.String())
	})
}

// exemplarRow is an exemplar with the section it belongs to.
type exemplarRow struct {
	Section               string `json:"section" yaml:"section"`
	Duplicates            int    `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	renderer.ExemplarView `yaml:",inline"`
}

func runExemplars(cmd *cobra.Command, args []string) error {
	ws, info, err := loadGuide(cmd, args)
	if err != nil {
		return err
	}
	defer ws.Close()

	rows := collectExemplars(info.Document)

	return exemplarsFlags.Write(cmd.OutOrStdout(), rows, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "SECTION\tLINE\tLANGUAGE\tPOLARITY\tHASH")
		for _, row := range rows {
			hash := row.Hash[:12]
			if row.Duplicates > 0 {
				hash += fmt.Sprintf(" (+%d)", row.Duplicates)
			}
			fmt.Fprintf(tw, "#%s\t%d\t%s\t%s\t%s\n", row.Section, row.Line, row.Language, row.Polarity, hash)
		}
	})
}

func collectExemplars(doc *guide.Document) []exemplarRow {
	var rows []exemplarRow
	first := make(map[string]int)
	for s := range doc.ListSections() {
		for _, e := range s.Exemplars {
			if exemplarsPolarity != "" && !strings.EqualFold(e.Polarity.String(), exemplarsPolarity) {
				continue
			}
			if exemplarsLanguage != "" && e.Language.String() != exemplarsLanguage {
				continue
			}

			view := renderer.ViewExemplar(e)
			if exemplarsDedupe {
				if i, ok := first[view.Hash]; ok {
					rows[i].Duplicates++
					continue
				}
				first[view.Hash] = len(rows)
			}
			rows = append(rows, exemplarRow{Section: s.AnchorSlug(), ExemplarView: view})
		}
	}
	return rows
}

func validateChoice(name, value string, choices ...string) error {
	for _, c := range choices {
		if strings.EqualFold(c, value) {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q, must be one of: %s", name, value, strings.Join(choices, ", "))
}

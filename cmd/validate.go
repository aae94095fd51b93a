package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/services"
	"github.com/conneroisu/guidebook/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:     "validate [guide...]",
	Aliases: []string{"v", "check"},
	Short:   "Check guides for integrity problems",
	Long: `Load every guide and run the integrity rules over it: unique anchors, a
table of contents in bijection with the sections, recommended exemplars free of
discouraged patterns, parsable configuration exemplars and more.

The command fails when any guide fails to load or reports an error, or a
warning with validation.fail_on_warning set.

Examples:
  guidebook validate                          # Check the configured guides
  guidebook validate docs/STYLEGUIDE.md       # Check one guide
  guidebook validate --rules toc-bijection    # Report a single rule
  guidebook validate -o json                  # Machine readable results`,
	RunE: runValidate,
}

var (
	validateFlags *OutputFlags
	validateRules []string
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateFlags = AddOutputFlags(validateCmd)
	validateCmd.Flags().StringSliceVar(&validateRules, "rules", nil, "Only report these rules")
	validateCmd.Flags().Bool("fail-on-warning", false, "Fail when a guide has warnings")
	validateCmd.Flags().Bool("check-html", false, "Also check anchors in the rendered HTML")
	bindFlags(validateCmd, map[string]string{
		"fail-on-warning": "validation.fail_on_warning",
		"check-html":      "validation.check_html",
	})

	_ = validateCmd.RegisterFlagCompletionFunc("rules", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(validation.Rules))
		for i, r := range validation.Rules {
			names[i] = r.Name
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

func runValidate(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, args)
	if err != nil {
		return err
	}
	defer ws.Close()

	result, err := services.NewValidateService(ws).Validate(cmd.Context(), services.ValidateOptions{Rules: validateRules})
	if err != nil {
		return err
	}

	err = validateFlags.Write(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
		for _, g := range result.Guides {
			status := "ok"
			if !g.OK {
				status = "FAIL"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d sections\t%d errors\t%d warnings\n",
				status, g.Path, g.Sections, g.Errors, g.Warnings)
			for i := range g.Issues {
				fmt.Fprintf(tw, "  %s\n", g.Issues[i].Error())
			}
		}
	})
	if err != nil {
		return err
	}
	return result.Err()
}

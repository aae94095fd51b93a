package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/services"
)

var initCmd = &cobra.Command{
	Use:     "init [directory]",
	Aliases: []string{"i"},
	Short:   "Write a configuration file and a starter guide",
	Long: `Initialise a project: write .guidebook.yml with the default settings and a
starter STYLEGUIDE.md that passes every integrity rule.

Examples:
  guidebook init                 # Initialise the current directory
  guidebook init docs --wizard   # Answer a few questions first
  guidebook init --no-guide      # Only write the configuration`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initWizard  bool
	initNoGuide bool
	initForce   bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initWizard, "wizard", false, "Ask for the main settings interactively")
	initCmd.Flags().BoolVar(&initNoGuide, "no-guide", false, "Do not write a starter guide")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Replace existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	result, err := services.NewInitService().InitProject(services.InitOptions{
		ProjectDir: dir,
		Wizard:     initWizard,
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
		NoGuide:    initNoGuide,
		Force:      initForce,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", result.ConfigFile)
	if result.GuideFile != "" {
		fmt.Fprintf(out, "Created %s\n", result.GuideFile)
	}
	fmt.Fprintln(out, "\nNext steps:\n  guidebook validate\n  guidebook serve")
	return nil
}

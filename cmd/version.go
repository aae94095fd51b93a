package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/version"
)

var versionShort bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for guidebook including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)

Examples:
  guidebook version              # Show detailed version info
  guidebook version --short      # Show short version
  guidebook version -o json      # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

var versionFlags *OutputFlags

func init() {
	rootCmd.AddCommand(versionCmd)

	versionFlags = AddOutputFlags(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if versionShort {
		_, err := fmt.Fprintln(out, version.GetShortVersion())
		return err
	}

	info := version.GetBuildInfo()
	if versionFlags.Format == FormatTable {
		_, err := fmt.Fprintf(out, "guidebook %s\n%s\n", version.GetShortVersion(), info)
		return err
	}
	return versionFlags.Write(out, info, nil)
}

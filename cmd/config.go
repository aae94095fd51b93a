package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/guidebook/internal/config"
	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/validation"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
	Long: `Inspect the configuration merged from .guidebook.yml, GUIDEBOOK_*
environment variables and flags.

Examples:
  guidebook config show               # Effective configuration as YAML
  guidebook config validate           # Check the configuration file
  guidebook config rules              # List the integrity rules`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and print warnings",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the integrity rules and whether they run",
	Args:  cobra.NoArgs,
	RunE:  runConfigRules,
}

var configRulesFlags *OutputFlags

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configValidateCmd, configRulesCmd)
	configRulesFlags = AddOutputFlags(configRulesCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	content, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(content)
	return err
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	result := config.ValidateConfigWithDetails(cfg)
	if file := viper.ConfigFileUsed(); file != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file: %s\n", file)
	}
	if result.HasErrors() || result.HasWarnings() {
		fmt.Fprint(cmd.OutOrStdout(), result.String())
	}
	if result.HasErrors() {
		return guideerrors.NewConfigError(guideerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("configuration has %d invalid fields", len(result.Errors))).
			WithContext("file", viper.ConfigFileUsed())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
	return nil
}

// ruleRow describes one integrity rule.
type ruleRow struct {
	Name        string `json:"name" yaml:"name"`
	Severity    string `json:"severity" yaml:"severity"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description" yaml:"description"`
}

func runConfigRules(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	enabled := make(map[string]bool)
	for _, name := range ws.Validator.Enabled() {
		enabled[name] = true
	}
	rows := make([]ruleRow, len(validation.Rules))
	for i, r := range validation.Rules {
		rows[i] = ruleRow{Name: r.Name, Severity: r.Severity.String(), Enabled: enabled[r.Name], Description: r.Description}
	}

	return configRulesFlags.Write(cmd.OutOrStdout(), rows, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "RULE\tSEVERITY\tENABLED\tDESCRIPTION")
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", row.Name, row.Severity, row.Enabled, row.Description)
		}
	})
}

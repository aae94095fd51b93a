// Package cmd provides the command-line interface for guidebook.
//
// Configuration System:
//
//	The CLI reads configuration from several sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. GUIDEBOOK_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (GUIDEBOOK_SERVER_PORT, etc.)
//	4. Configuration file (.guidebook.yml) - lowest priority
//
// Environment Variables:
//
//	GUIDEBOOK_CONFIG_FILE: Path to custom configuration file
//	GUIDEBOOK_SERVER_PORT: Override server port
//	GUIDEBOOK_GUIDE_PATHS: Comma separated guide paths
//	And others following the GUIDEBOOK_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/guidebook/internal/config"
	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/logging"
	"github.com/conneroisu/guidebook/internal/registry"
	"github.com/conneroisu/guidebook/internal/services"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "guidebook",
	Short: "Check, browse and serve markdown style guides",
	Long: `guidebook loads markdown style guides into a structural model of sections,
anchors and code exemplars, checks them for integrity and renders them.

Quick Start:
  guidebook init                    Write .guidebook.yml and a starter guide
  guidebook validate                Check every configured guide
  guidebook toc STYLEGUIDE.md       Show the table of contents
  guidebook resolve oninit          Print the section an anchor points to
  guidebook serve                   Preview guides with live reload`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. A failing command is reported on stderr before Execute
// returns its error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// reportError logs err through the error handler in the configured log
// format, with any configuration suggestions attached.
func reportError(w io.Writer, err error) {
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelInfo,
		Format: viper.GetString("log.format"),
		Output: w,
	}).WithComponent("cli")
	guideerrors.NewErrorHandler(logger).Handle(context.Background(), err)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .guidebook.yml, can also use GUIDEBOOK_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig points viper at the configuration file and enables GUIDEBOOK_
// environment overrides. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("GUIDEBOOK_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".guidebook")
	}

	viper.SetEnvPrefix("GUIDEBOOK")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and treats args as the target files.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.TargetFiles = args
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	}).WithComponent("cli")
}

// openWorkspace loads the configuration and builds a workspace over args,
// or over the configured guide paths when args is empty. Callers close it.
func openWorkspace(cmd *cobra.Command, args []string) (*services.Workspace, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	return services.NewWorkspace(cfg, newLogger(cmd, cfg))
}

// loadGuide loads the workspace and returns its only guide. With several
// guides loaded the caller has to name one.
func loadGuide(cmd *cobra.Command, args []string) (*services.Workspace, *registry.GuideInfo, error) {
	ws, err := openWorkspace(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	// Load failures are recorded on the guide and reported below.
	_ = ws.Load(cmd.Context())

	guides := ws.Registry.List()
	switch {
	case len(guides) == 0:
		ws.Close()
		return nil, nil, fmt.Errorf("no guides found in %s", strings.Join(ws.Targets(), ", "))
	case len(guides) > 1:
		ws.Close()
		return nil, nil, fmt.Errorf("%d guides found, name one of: %s", len(guides), strings.Join(ws.Registry.Paths(), ", "))
	}

	info := guides[0]
	if info.Err != nil {
		ws.Close()
		return nil, nil, fmt.Errorf("loading %s: %w", info.Path, info.Err)
	}
	return ws, info, nil
}

// Package config provides configuration management for guidebook using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports a .guidebook.yml file, environment
// variable overrides with the GUIDEBOOK_ prefix and validation with
// suggestions. It covers where guides are found, which integrity rules run,
// how guides are rendered and served, and logging.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Default values applied by Load when a key is not set.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 8080
	DefaultDebounce      = 300 * time.Millisecond
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultTerminalStyle = "dark"
	DefaultTerminalWidth = 80
)

// DefaultExclude are base-name patterns skipped while scanning for guides.
var DefaultExclude = []string{".git", "node_modules", "vendor"}

type Config struct {
	Guide       GuideConfig      `mapstructure:"guide" yaml:"guide"`
	Validation  ValidationConfig `mapstructure:"validation" yaml:"validation"`
	Render      RenderConfig     `mapstructure:"render" yaml:"render"`
	Server      ServerConfig     `mapstructure:"server" yaml:"server"`
	Watch       WatchConfig      `mapstructure:"watch" yaml:"watch"`
	Log         LogConfig        `mapstructure:"log" yaml:"log"`
	TargetFiles []string         `mapstructure:"-" yaml:"-"` // CLI arguments, not from config file
}

type GuideConfig struct {
	// Paths are guide files or directories searched for *.md files.
	Paths   []string `mapstructure:"paths" yaml:"paths"`
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// TOCHeading is recognised as a table of contents in addition to
	// "Table of Contents" and "Contents".
	TOCHeading string `mapstructure:"toc_heading" yaml:"toc_heading,omitempty"`
}

type ValidationConfig struct {
	DisabledRules []string `mapstructure:"disabled_rules" yaml:"disabled_rules,omitempty"`
	// Discouraged maps a section slug, or "*" for every section, to patterns
	// no recommended exemplar may contain.
	Discouraged   map[string][]string `mapstructure:"discouraged" yaml:"discouraged,omitempty"`
	FailOnWarning bool                `mapstructure:"fail_on_warning" yaml:"fail_on_warning"`
	CheckHTML     bool                `mapstructure:"check_html" yaml:"check_html"`
}

type RenderConfig struct {
	TerminalStyle string `mapstructure:"terminal_style" yaml:"terminal_style"`
	Width         int    `mapstructure:"width" yaml:"width"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins,omitempty"`
	Open           bool     `mapstructure:"open" yaml:"open"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load builds the configuration from viper's merged sources, applies defaults
// and validates the result.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Slices set via flags or env arrive as comma separated strings.
	if viper.IsSet("guide.paths") && len(config.Guide.Paths) == 0 {
		config.Guide.Paths = viper.GetStringSlice("guide.paths")
	}
	if viper.IsSet("validation.disabled_rules") && len(config.Validation.DisabledRules) == 0 {
		config.Validation.DisabledRules = viper.GetStringSlice("validation.disabled_rules")
	}

	applyDefaults(&config, viper.IsSet)

	if result := ValidateConfigWithDetails(&config); result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w", result.Err())
	}

	return &config, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var config Config
	applyDefaults(&config, func(string) bool { return false })
	return &config
}

func applyDefaults(config *Config, isSet func(key string) bool) {
	if len(config.Guide.Paths) == 0 {
		config.Guide.Paths = []string{"."}
	}
	if !isSet("guide.exclude") && len(config.Guide.Exclude) == 0 {
		config.Guide.Exclude = append([]string(nil), DefaultExclude...)
	}
	if config.Validation.Discouraged == nil {
		config.Validation.Discouraged = make(map[string][]string)
	}

	if config.Render.TerminalStyle == "" {
		config.Render.TerminalStyle = DefaultTerminalStyle
	}
	if config.Render.Width == 0 {
		config.Render.Width = DefaultTerminalWidth
	}

	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !isSet("server.port") && config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = DefaultOrigins(config.Server.Host, config.Server.Port)
	}

	if !isSet("watch.debounce") && config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}

	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}
}

// DefaultOrigins returns the websocket origins accepted for a server bound
// to host and port.
func DefaultOrigins(host string, port int) []string {
	p := strconv.Itoa(port)
	origins := []string{"http://" + host + ":" + p}
	for _, h := range []string{"localhost", "127.0.0.1"} {
		if h != host {
			origins = append(origins, "http://"+h+":"+p)
		}
	}
	return origins
}

// Addr returns the listen address of the preview server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

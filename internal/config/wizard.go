package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigWizard asks for the handful of settings most projects change and
// produces a Config from them.
type ConfigWizard struct {
	reader *bufio.Reader
	out    io.Writer
	config *Config
}

// NewConfigWizard creates a wizard reading answers from in and writing
// prompts to out.
func NewConfigWizard(in io.Reader, out io.Writer) *ConfigWizard {
	return &ConfigWizard{
		reader: bufio.NewReader(in),
		out:    out,
		config: Default(),
	}
}

// Run executes the interactive configuration wizard
func (w *ConfigWizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "guidebook configuration")
	fmt.Fprintln(w.out, "=======================")
	fmt.Fprintln(w.out, "Press enter to keep the default shown in brackets.")
	fmt.Fprintln(w.out)

	paths := w.askString("Guide files or directories (comma separated)", strings.Join(w.config.Guide.Paths, ","))
	w.config.Guide.Paths = splitList(paths)

	port, err := w.askInt("Preview server port", w.config.Server.Port, 0, 65535)
	if err != nil {
		return nil, fmt.Errorf("server configuration failed: %w", err)
	}
	w.config.Server.Port = port
	w.config.Server.AllowedOrigins = DefaultOrigins(w.config.Server.Host, port)

	w.config.Validation.FailOnWarning = w.askBool("Fail validation on warnings", w.config.Validation.FailOnWarning)
	w.config.Validation.CheckHTML = w.askBool("Check anchors in the rendered HTML", w.config.Validation.CheckHTML)

	if result := ValidateConfigWithDetails(w.config); result.HasErrors() {
		return nil, fmt.Errorf("configuration validation failed: %w", result.Err())
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "✅ Configuration completed successfully!")
	return w.config, nil
}

func (w *ConfigWizard) askString(prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, defaultValue)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}

	input, err := w.reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" || (err != nil && err != io.EOF) {
		return defaultValue
	}

	return input
}

func (w *ConfigWizard) askInt(prompt string, defaultValue, min, max int) (int, error) {
	for {
		fmt.Fprintf(w.out, "%s [%d]: ", prompt, defaultValue)

		input, err := w.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			return defaultValue, nil
		}

		value, convErr := strconv.Atoi(input)
		switch {
		case convErr != nil:
			fmt.Fprintf(w.out, "❌ Invalid number. Please enter a number between %d and %d.\n", min, max)
		case value < min || value > max:
			fmt.Fprintf(w.out, "❌ Number out of range. Please enter a number between %d and %d.\n", min, max)
		default:
			return value, nil
		}

		if err != nil {
			return 0, fmt.Errorf("no valid answer for %q", prompt)
		}
	}
}

func (w *ConfigWizard) askBool(prompt string, defaultValue bool) bool {
	defaultStr := "n"
	if defaultValue {
		defaultStr = "y"
	}

	fmt.Fprintf(w.out, "%s [%s]: ", prompt, defaultStr)

	input, _ := w.reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return defaultValue
	}

	return input == "y" || input == "yes" || input == "true"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Marshal encodes config as the YAML accepted by Load.
func Marshal(config *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# guidebook configuration\n\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toFile(config)); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fileWatchConfig writes the debounce as a duration string viper can decode.
type fileWatchConfig struct {
	Debounce string `yaml:"debounce"`
}

type fileConfig struct {
	Guide      GuideConfig      `yaml:"guide"`
	Validation ValidationConfig `yaml:"validation"`
	Render     RenderConfig     `yaml:"render"`
	Server     ServerConfig     `yaml:"server"`
	Watch      fileWatchConfig  `yaml:"watch"`
	Log        LogConfig        `yaml:"log"`
}

func toFile(config *Config) fileConfig {
	return fileConfig{
		Guide:      config.Guide,
		Validation: config.Validation,
		Render:     config.Render,
		Server:     config.Server,
		Watch:      fileWatchConfig{Debounce: config.Watch.Debounce.String()},
		Log:        config.Log,
	}
}

// WriteConfigFile writes config to filename. An existing file is only
// replaced when overwrite is set.
func WriteConfigFile(filename string, config *Config, overwrite bool) error {
	if _, err := os.Stat(filename); err == nil && !overwrite {
		return fmt.Errorf("configuration file %s already exists", filename)
	}

	content, err := Marshal(config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

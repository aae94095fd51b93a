package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/renderer"
)

var renderCmd = &cobra.Command{
	Use:   "render [guide]",
	Short: "Render a guide as markdown, text, HTML, terminal output or JSON",
	Long: `Render a guide in one of the supported formats. Every format is built from
the same section blocks, so anchors and exemplars match across formats.

Formats:
  markdown   Canonical markdown with a regenerated table of contents
  text       Plain text with numbered sections
  html       A standalone HTML page
  terminal   Styled output for the terminal
  json       The structural model: sections, anchors and exemplar hashes

Examples:
  guidebook render --format terminal
  guidebook render STYLEGUIDE.md --format html --out guide.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var (
	renderFormat string
	renderOut    string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", string(renderer.FormatTerminal), "Output format (markdown, text, html, terminal, json)")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "Write to this file instead of stdout")
	renderCmd.Flags().String("style", "", "Terminal style (dark, light, notty, ...)")
	renderCmd.Flags().Int("width", 0, "Terminal word wrap width")
	bindFlags(renderCmd, map[string]string{
		"style": "render.terminal_style",
		"width": "render.width",
	})
	AddFlagValidation(renderCmd, "format", func(format string) error {
		_, err := renderer.ParseFormat(format)
		return err
	})
}

func runRender(cmd *cobra.Command, args []string) (err error) {
	format, err := renderer.ParseFormat(renderFormat)
	if err != nil {
		return err
	}

	ws, info, err := loadGuide(cmd, args)
	if err != nil {
		return err
	}
	defer ws.Close()

	var w io.Writer = cmd.OutOrStdout()
	if renderOut != "" {
		f, err := os.Create(renderOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", renderOut, err)
		}
		defer func() {
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
		}()
		w = f
	}

	return ws.Renderer.Render(cmd.Context(), w, info.Document, format)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/guidebook/internal/config"
	"github.com/conneroisu/guidebook/internal/services"
)

var serveCmd = &cobra.Command{
	Use:     "serve [guide...]",
	Aliases: []string{"s"},
	Short:   "Preview guides in the browser with live reload",
	Long: `Start the preview server. Each guide is served as an HTML page that reloads
when the guide changes on disk; a JSON API exposes sections, anchor resolution
and validation issues.

Examples:
  guidebook serve                    # Serve the configured guides
  guidebook serve STYLEGUIDE.md -p 3000 --open`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	serveCmd.Flags().String("host", config.DefaultHost, "Host to bind to")
	serveCmd.Flags().Bool("open", false, "Open the browser once the server is listening")
	AddFlagValidation(serveCmd, "port", ValidatePort)
	bindFlags(serveCmd, map[string]string{
		"port": "server.port",
		"host": "server.host",
		"open": "server.open",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, args)
	if err != nil {
		return err
	}
	defer ws.Close()

	service := services.NewServeService(ws)
	info := service.GetServerInfo()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d target(s) at %s\n", len(info.Targets), info.ServerURL)

	return service.Serve(cmd.Context())
}

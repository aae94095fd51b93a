package services

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/server"
)

// ServeService runs the preview server for a workspace.
type ServeService struct {
	workspace *Workspace
}

// NewServeService creates a new serve service
func NewServeService(ws *Workspace) *ServeService {
	return &ServeService{workspace: ws}
}

// ServerInfo contains information about the server configuration
type ServerInfo struct {
	Host      string   `json:"host" yaml:"host"`
	Port      int      `json:"port" yaml:"port"`
	ServerURL string   `json:"url" yaml:"url"`
	Targets   []string `json:"targets" yaml:"targets"`
}

// GetServerInfo returns information about the server configuration
func (s *ServeService) GetServerInfo() *ServerInfo {
	cfg := s.workspace.Config
	return &ServerInfo{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		ServerURL: "http://" + cfg.Server.Addr(),
		Targets:   s.workspace.Targets(),
	}
}

// Serve runs the preview server until ctx is done or the process receives
// SIGINT or SIGTERM.
func (s *ServeService) Serve(ctx context.Context) error {
	srv, err := server.New(s.workspace.Config, s.workspace.Scanner, s.workspace.Logger)
	if err != nil {
		return guideerrors.NewInternalError(guideerrors.ErrCodeInternalError, "failed to create server", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			s.workspace.Logger.Info(serverCtx, "Shutting down server", "signal", sig.String())
			cancel()
		case <-serverCtx.Done():
		}
	}()

	if err := srv.Start(serverCtx); err != nil {
		return guideerrors.NewInternalError(guideerrors.ErrCodeInternalError,
			fmt.Sprintf("failed to serve on %s", s.workspace.Config.Server.Addr()), err)
	}
	return nil
}

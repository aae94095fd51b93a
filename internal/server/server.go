// Package server serves rendered style guides over HTTP and pushes reload
// notifications to open pages over a websocket when a guide changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/guidebook/internal/config"
	"github.com/conneroisu/guidebook/internal/logging"
	"github.com/conneroisu/guidebook/internal/registry"
	"github.com/conneroisu/guidebook/internal/scanner"
	"github.com/conneroisu/guidebook/internal/watcher"
)

// shutdownTimeout bounds the graceful shutdown after the context passed to
// Start is done.
const shutdownTimeout = 5 * time.Second

// PreviewServer serves guides with live reload.
type PreviewServer struct {
	config   *config.Config
	logger   logging.Logger
	registry *registry.GuideRegistry
	scanner  *scanner.GuideScanner
	watcher  *watcher.FileWatcher
	hub      *Hub

	serverMutex sync.RWMutex
	httpServer  *http.Server
	listenAddr  net.Addr
	ready       chan struct{}

	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a preview server for the guides scan loads.
func New(cfg *config.Config, scan *scanner.GuideScanner, logger logging.Logger) (*PreviewServer, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &PreviewServer{
		config:   cfg,
		logger:   logger,
		registry: scan.GetRegistry(),
		scanner:  scan,
		watcher:  fileWatcher,
		hub:      NewHub(logger),
		ready:    make(chan struct{}),
	}, nil
}

// Targets returns the paths served: the target files when set, the
// configured guide paths otherwise.
func (s *PreviewServer) Targets() []string {
	if len(s.config.TargetFiles) > 0 {
		return s.config.TargetFiles
	}
	return s.config.Guide.Paths
}

// Start scans the guides, starts watching them and serves HTTP until ctx is
// done, then shuts down gracefully.
func (s *PreviewServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.scanner.Scan(ctx, s.Targets()); err != nil {
		s.logger.Warn(ctx, err, "Initial scan reported errors")
	}
	s.logger.Info(ctx, "Initial scan complete", "guides", s.registry.Count())

	if err := s.setupFileWatcher(ctx); err != nil {
		s.logger.Warn(ctx, err, "File watching disabled")
	}

	events := s.registry.Watch()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.forwardRegistryEvents(ctx, events)
	}()
	defer s.registry.UnWatch(events)

	listener, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		cancel()
		_ = s.Shutdown(context.Background())
		s.wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = server
	s.listenAddr = listener.Addr()
	s.serverMutex.Unlock()
	close(s.ready)

	serverURL := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "Preview server listening", "url", serverURL)
	if s.config.Server.Open {
		go s.openBrowser(serverURL)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err = <-serveErr:
		_ = s.Shutdown(context.Background())
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		err = s.Shutdown(shutdownCtx)
		stop()
		if e := <-serveErr; !errors.Is(e, http.ErrServerClosed) && err == nil {
			err = e
		}
	}
	cancel()
	s.wg.Wait()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Ready is closed once the server is listening.
func (s *PreviewServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the address the server listens on, or nil before Start.
func (s *PreviewServer) Addr() net.Addr {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	return s.listenAddr
}

func (s *PreviewServer) setupFileWatcher(ctx context.Context) error {
	s.watcher.AddFilter(watcher.MarkdownFilter)
	s.watcher.AddFilter(watcher.NoEditorTempFilter)
	s.watcher.AddFilter(s.withinTargets)
	s.watcher.AddDirFilter(watcher.NoGitFilter)
	s.watcher.AddDirFilter(watcher.ExcludeFilter(s.config.Guide.Exclude...))
	s.watcher.AddHandler(s.scanner.HandleChanges)

	if err := s.watcher.AddTargets(s.Targets()...); err != nil {
		s.logger.Warn(ctx, err, "Some paths are not watched")
	}

	return s.watcher.Start(ctx)
}

// withinTargets accepts paths equal to a target file or below a target
// directory.
func (s *PreviewServer) withinTargets(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, target := range s.Targets() {
		targetAbs, err := filepath.Abs(target)
		if err != nil {
			continue
		}
		if abs == targetAbs {
			return true
		}
		if info, err := os.Stat(targetAbs); err == nil && info.IsDir() {
			if rel, err := filepath.Rel(targetAbs, abs); err == nil && !strings.HasPrefix(rel, "..") {
				return true
			}
		}
	}
	return false
}

// forwardRegistryEvents broadcasts a reload for every registry change until
// ctx is done or the channel is closed.
func (s *PreviewServer) forwardRegistryEvents(ctx context.Context, events <-chan registry.GuideEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.logger.Debug(ctx, "Guide changed", "path", event.Guide.Path, "type", event.Type.String())
			s.hub.Broadcast(UpdateMessage{
				Type:      "reload",
				Target:    event.Guide.Path,
				Content:   event.Type.String(),
				Timestamp: event.Timestamp,
			})
		}
	}
}

func (s *PreviewServer) openBrowser(target string) {
	time.Sleep(100 * time.Millisecond)

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		s.logger.Warn(context.Background(), err, "Browser open failed due to invalid URL", "url", target)
		return
	}

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", u.String()).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", u.String()).Start()
	case "darwin":
		err = exec.Command("open", u.String()).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		s.logger.Warn(context.Background(), err, "Failed to open browser")
	}
}

// Shutdown stops the watcher, disconnects websocket clients and shuts the
// HTTP server down.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "Stopping file watcher")
		}
		s.hub.CloseAll()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/a-h/templ"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/registry"
	"github.com/conneroisu/guidebook/internal/renderer"
	"github.com/conneroisu/guidebook/internal/version"
)

// GuideSummary describes a registered guide.
type GuideSummary struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	OK       bool   `json:"ok"`
	Sections int    `json:"sections"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Error    string `json:"error,omitempty"`
}

// IssueView is the JSON form of a validation issue.
type IssueView struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Section  string `json:"section,omitempty"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

// Handler returns the HTTP handler with every route and middleware.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /guide", s.handleGuide)
	mux.HandleFunc("GET /api/guides", s.handleGuides)
	mux.HandleFunc("GET /api/sections", s.handleSections)
	mux.HandleFunc("GET /api/resolve", s.handleResolve)
	mux.HandleFunc("GET /api/issues", s.handleIssues)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s.addMiddleware(mux)
}

func summarize(info *registry.GuideInfo) GuideSummary {
	summary := GuideSummary{Path: info.Path, Title: info.Title(), OK: info.OK()}
	if info.Document != nil {
		summary.Sections = info.Document.Len()
	}
	if info.Report != nil {
		summary.Errors = info.Report.Errors
		summary.Warnings = info.Report.Warnings
	}
	if info.Err != nil {
		summary.Error = info.Err.Error()
	}
	return summary
}

func viewIssues(issues []guideerrors.Issue) []IssueView {
	views := make([]IssueView, len(issues))
	for i, issue := range issues {
		views[i] = IssueView{
			Rule:     issue.Rule,
			Severity: issue.Severity.String(),
			Section:  issue.Section,
			File:     issue.File,
			Line:     issue.Line,
			Message:  issue.Message,
		}
	}
	return views
}

// lookupGuide finds the guide named by the "path" query parameter. Without
// the parameter the only registered guide is used.
func (s *PreviewServer) lookupGuide(r *http.Request) (*registry.GuideInfo, int, error) {
	path := r.URL.Query().Get("path")
	if path == "" {
		guides := s.registry.List()
		switch len(guides) {
		case 0:
			return nil, http.StatusNotFound, fmt.Errorf("no guides loaded")
		case 1:
			return guides[0], http.StatusOK, nil
		default:
			return nil, http.StatusBadRequest, fmt.Errorf("path is required when %d guides are loaded", len(guides))
		}
	}

	if info, ok := s.registry.Get(path); ok {
		return info, http.StatusOK, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		if info, ok := s.registry.Get(abs); ok {
			return info, http.StatusOK, nil
		}
	}
	return nil, http.StatusNotFound, fmt.Errorf("guide not found: %s", path)
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	guides := s.registry.List()
	if len(guides) == 1 {
		http.Redirect(w, r, guideURL(guides[0].Path), http.StatusFound)
		return
	}

	summaries := make([]GuideSummary, len(guides))
	for i, info := range guides {
		summaries[i] = summarize(info)
	}
	templ.Handler(IndexPage(summaries)).ServeHTTP(w, r)
}

func (s *PreviewServer) handleGuide(w http.ResponseWriter, r *http.Request) {
	info, status, err := s.lookupGuide(r)
	if err != nil {
		templ.Handler(ErrorPage(http.StatusText(status), err.Error()), templ.WithStatus(status)).ServeHTTP(w, r)
		return
	}
	if info.Document == nil {
		templ.Handler(ErrorPage(info.Title(), info.Err.Error()),
			templ.WithStatus(http.StatusUnprocessableEntity)).ServeHTTP(w, r)
		return
	}

	var issues []string
	if info.Report != nil {
		for i := range info.Report.Issues {
			issues = append(issues, info.Report.Issues[i].Error())
		}
	}
	page := renderer.Page(info.Document, renderer.PageOptions{
		LiveReloadURL: "/ws",
		Issues:        issues,
	})
	templ.Handler(page).ServeHTTP(w, r)
}

func (s *PreviewServer) handleGuides(w http.ResponseWriter, r *http.Request) {
	guides := s.registry.List()
	summaries := make([]GuideSummary, len(guides))
	for i, info := range guides {
		summaries[i] = summarize(info)
	}
	s.writeJSON(w, r, http.StatusOK, summaries)
}

func (s *PreviewServer) handleSections(w http.ResponseWriter, r *http.Request) {
	info, status, err := s.lookupGuide(r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}
	if info.Document == nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, info.Err)
		return
	}

	sections := make([]renderer.SectionView, 0, info.Document.Len())
	for section := range info.Document.ListSections() {
		sections = append(sections, renderer.ViewSection(section))
	}
	s.writeJSON(w, r, http.StatusOK, sections)
}

func (s *PreviewServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("slug is required"))
		return
	}
	info, status, err := s.lookupGuide(r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}
	if info.Document == nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, info.Err)
		return
	}

	section, err := info.Document.ResolveAnchor(slug)
	if err != nil {
		if guideerrors.IsNotFound(err) {
			s.writeError(w, r, http.StatusNotFound, err)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, renderer.ViewSection(section))
}

func (s *PreviewServer) handleIssues(w http.ResponseWriter, r *http.Request) {
	var guides []*registry.GuideInfo
	if r.URL.Query().Get("path") != "" {
		info, status, err := s.lookupGuide(r)
		if err != nil {
			s.writeError(w, r, status, err)
			return
		}
		guides = []*registry.GuideInfo{info}
	} else {
		guides = s.registry.List()
	}

	collector := guideerrors.NewIssueCollector()
	for _, info := range guides {
		for _, issue := range info.Issues() {
			collector.Add(issue)
		}
	}
	if slug := r.URL.Query().Get("slug"); slug != "" {
		s.writeJSON(w, r, http.StatusOK, viewIssues(collector.BySection(guide.NormalizeAnchor(slug))))
		return
	}
	s.writeJSON(w, r, http.StatusOK, viewIssues(collector.Issues()))
}

// handleHealth returns the server health status for health checks
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]interface{}{
			"registry":  map[string]interface{}{"status": "healthy", "guides": s.registry.Count()},
			"websocket": map[string]interface{}{"status": "healthy", "clients": s.hub.Count()},
		},
	}
	s.writeJSON(w, r, http.StatusOK, health)
}

func (s *PreviewServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode response", "path", r.URL.Path)
	}
}

func (s *PreviewServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

func guideURL(path string) string {
	return "/guide?path=" + url.QueryEscape(path)
}

// IndexPage lists the registered guides.
func IndexPage(guides []GuideSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Style guides</title></head><body><main><h1>Style guides</h1>`); err != nil {
			return err
		}
		if len(guides) == 0 {
			if _, err := io.WriteString(w, `<p>No guides loaded.</p>`); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, `<ul>`); err != nil {
				return err
			}
			for _, g := range guides {
				status := "ok"
				if !g.OK {
					status = "issues"
				}
				if _, err := fmt.Fprintf(w, `<li class="%s"><a href="%s">%s</a> <small>%s</small></li>`,
					status, templ.EscapeString(guideURL(g.Path)), templ.EscapeString(g.Title),
					templ.EscapeString(g.Path)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// ErrorPage shows a guide that could not be served.
func ErrorPage(title, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title></head><body><main><h1>%s</h1><pre>%s</pre></main></body></html>`,
			templ.EscapeString(title), templ.EscapeString(title), templ.EscapeString(message))
		return err
	})
}

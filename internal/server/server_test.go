package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/conneroisu/guidebook/internal/config"
	"github.com/conneroisu/guidebook/internal/registry"
	"github.com/conneroisu/guidebook/internal/renderer"
	"github.com/conneroisu/guidebook/internal/scanner"
	"github.com/conneroisu/guidebook/internal/testutils"
	"github.com/conneroisu/guidebook/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	dir    string
	guide  string
	cfg    *config.Config
	scan   *scanner.GuideScanner
	server *PreviewServer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := testutils.CreateReferenceProject(t)
	guide := filepath.Join(dir, testutils.ReferenceGuideName)
	cfg := testutils.CreateTestConfig(dir)

	v, err := validation.NewValidator(validation.Options{})
	require.NoError(t, err)
	scan := scanner.NewGuideScanner(registry.NewGuideRegistry(), scanner.WithValidator(v))
	t.Cleanup(func() { _ = scan.Close() })

	srv, err := New(cfg, scan, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &fixture{dir: dir, guide: guide, cfg: cfg, scan: scan, server: srv}
}

// serve scans the fixture guides and serves the handler with httptest. Scan
// errors are ignored since some tests register broken guides on purpose.
func (f *fixture) serve(t *testing.T) *httptest.Server {
	t.Helper()
	_ = f.scan.Scan(context.Background(), f.cfg.Guide.Paths)
	ts := httptest.NewUnstartedServer(f.server.Handler())
	f.cfg.Server.AllowedOrigins = []string{"http://" + ts.Listener.Addr().String()}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	testutils.WriteFiles(t, f.dir, map[string]string{name: content})
	return filepath.Join(f.dir, name)
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func decode(t *testing.T, body string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v), body)
}

func TestIndex(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)

	t.Run("single guide redirects", func(t *testing.T) {
		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}
		resp, err := client.Get(ts.URL + "/")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, guideURL(f.guide), resp.Header.Get("Location"))
	})

	t.Run("several guides are listed", func(t *testing.T) {
		other := f.write(t, "other.md", "# Team Conventions\n\n## Modules\n\ntext\n")
		require.NoError(t, f.scan.Scan(context.Background(), f.cfg.Guide.Paths))

		resp, body := get(t, ts.URL+"/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Team Conventions")
		assert.Contains(t, body, templ.EscapeString(guideURL(other)))
		assert.Contains(t, body, `class="issues"`)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, _ := get(t, ts.URL+"/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGuidePage(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)

	resp, body := get(t, ts.URL+"/guide")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `id="controlleras-syntax"`)
	assert.Contains(t, body, `href="#oninit"`)
	assert.Contains(t, body, `"/ws"`)
	assert.NotContains(t, body, `class="issues"`)

	resp, _ = get(t, ts.URL+guideURL(f.guide))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = get(t, ts.URL+"/guide?path=missing.md")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "guide not found")
}

func TestGuidePage_ShowsIssuesAndLoadErrors(t *testing.T) {
	f := newFixture(t)
	broken := f.write(t, "broken.md", testutils.BrokenGuide)
	dup := f.write(t, "dup.md", "# Dup\n\n## $onInit\n\ntext\n\n## onInit\n\ntext\n")
	ts := f.serve(t)

	resp, body := get(t, ts.URL+guideURL(broken))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `class="issues"`)
	assert.Contains(t, body, "["+validation.RuleTOCBijection+"]")

	resp, body = get(t, ts.URL+guideURL(dup))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "duplicate anchor")

	resp, body = get(t, ts.URL+"/guide")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "path is required")
}

func TestSectionsAPI(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)

	resp, body := get(t, ts.URL+"/api/sections")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sections []renderer.SectionView
	decode(t, body, &sections)
	require.Len(t, sections, 13)
	assert.Equal(t, "naming-conventions", sections[0].Slug)
	assert.Equal(t, "code-format", sections[12].Slug)
}

func TestResolveAPI(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)

	tests := []struct {
		name    string
		query   string
		status  int
		heading string
		errText string
	}{
		{"slug", "slug=oninit", http.StatusOK, "$onInit", ""},
		{"hash prefix", "slug=%23controlleras-syntax", http.StatusOK, "controllerAs Syntax", ""},
		{"with path", "slug=one-time-binding&path=" + f.guide, http.StatusOK, "One-time Binding", ""},
		{"unknown slug", "slug=missing", http.StatusNotFound, "", "anchor not found"},
		{"missing slug", "", http.StatusBadRequest, "", "slug is required"},
		{"unknown guide", "slug=oninit&path=nope.md", http.StatusNotFound, "", "guide not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts.URL+"/api/resolve?"+tt.query)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.heading != "" {
				var section renderer.SectionView
				decode(t, body, &section)
				assert.Equal(t, tt.heading, section.Heading)
				return
			}
			var e map[string]string
			decode(t, body, &e)
			assert.Contains(t, e["error"], tt.errText)
		})
	}
}

func TestIssuesAndGuidesAPI(t *testing.T) {
	f := newFixture(t)
	broken := f.write(t, "broken.md", testutils.BrokenGuide)
	dup := f.write(t, "dup.md", "# Dup\n\n## A b\n\n## A-B\n")
	ts := f.serve(t)

	resp, body := get(t, ts.URL+"/api/issues")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var issues []IssueView
	decode(t, body, &issues)

	rules := map[string]bool{}
	for _, issue := range issues {
		rules[issue.Rule] = true
		assert.NotEqual(t, f.guide, issue.File, "reference guide has no issues")
	}
	assert.True(t, rules[registry.RuleLoad])
	assert.True(t, rules[validation.RuleTOCBijection])

	resp, body = get(t, ts.URL+"/api/issues?path="+f.guide)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", body)

	resp, body = get(t, ts.URL+"/api/issues?path="+url.QueryEscape(broken)+"&slug="+url.QueryEscape("#modules"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var modules []IssueView
	decode(t, body, &modules)
	require.NotEmpty(t, modules)
	for _, issue := range modules {
		assert.Equal(t, "modules", issue.Section)
		assert.Equal(t, broken, issue.File)
	}

	resp, body = get(t, ts.URL+"/api/issues?slug=ghost")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ghost []IssueView
	decode(t, body, &ghost)
	require.Len(t, ghost, 1)
	assert.Equal(t, validation.RuleTOCBijection, ghost[0].Rule)

	resp, body = get(t, ts.URL+"/api/issues?slug=nowhere")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", body)

	resp, body = get(t, ts.URL+"/api/guides")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var guides []GuideSummary
	decode(t, body, &guides)
	require.Len(t, guides, 3)

	byPath := map[string]GuideSummary{}
	for _, g := range guides {
		byPath[g.Path] = g
	}
	assert.True(t, byPath[f.guide].OK)
	assert.Equal(t, 13, byPath[f.guide].Sections)
	assert.False(t, byPath[broken].OK)
	assert.Positive(t, byPath[broken].Errors)
	assert.NotEmpty(t, byPath[dup].Error)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)

	resp, body := get(t, ts.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	decode(t, body, &health)
	assert.Equal(t, "healthy", health["status"])
	checks := health["checks"].(map[string]interface{})
	assert.EqualValues(t, 1, checks["registry"].(map[string]interface{})["guides"])
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", ts.URL)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, ts.URL, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodOptions, ts.URL+"/api/sections", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func wsURL(base string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/ws"
}

func readMessage(t *testing.T, conn *websocket.Conn) UpdateMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)
	ctx := context.Background()

	t.Run("rejects foreign origins", func(t *testing.T) {
		_, resp, err := websocket.Dial(ctx, wsURL(ts.URL), &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{"http://evil.example"}},
		})
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("rejects missing origin", func(t *testing.T) {
		resp, _ := get(t, ts.URL+"/ws")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("broadcasts reloads", func(t *testing.T) {
		conn, _, err := websocket.Dial(ctx, wsURL(ts.URL), &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{ts.URL}},
		})
		require.NoError(t, err)
		defer conn.CloseNow()

		require.Eventually(t, func() bool { return f.server.hub.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

		f.server.hub.Broadcast(UpdateMessage{Type: "reload", Target: f.guide, Timestamp: time.Now()})
		msg := readMessage(t, conn)
		assert.Equal(t, "reload", msg.Type)
		assert.Equal(t, f.guide, msg.Target)

		conn.Close(websocket.StatusNormalClosure, "")
		require.Eventually(t, func() bool { return f.server.hub.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
	})
}

func TestHub_CloseAllRejectsNewClients(t *testing.T) {
	f := newFixture(t)
	ts := f.serve(t)
	ctx := context.Background()

	conn, _, err := websocket.Dial(ctx, wsURL(ts.URL), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()
	require.Eventually(t, func() bool { return f.server.hub.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	f.server.hub.CloseAll()
	assert.Equal(t, 0, f.server.hub.Count())

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, _, err = conn.Read(readCtx)
	assert.Error(t, err)

	late, _, err := websocket.Dial(ctx, wsURL(ts.URL), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	if err == nil {
		_, _, err = late.Read(readCtx)
		late.CloseNow()
	}
	assert.Error(t, err)
}

func TestStart_ReloadsChangedGuides(t *testing.T) {
	f := newFixture(t)
	f.cfg.Server.Port = freePort(t)
	base := "http://" + f.cfg.Server.Addr()
	f.cfg.Server.AllowedOrigins = []string{base}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.server.Start(ctx) }()

	select {
	case <-f.server.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	require.Equal(t, f.cfg.Server.Addr(), f.server.Addr().String())

	resp, _ := get(t, base+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.Dial(ctx, wsURL(base), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{base}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()
	require.Eventually(t, func() bool { return f.server.hub.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	added := f.write(t, "team.md", "# Team Guide\n\n## Modules\n\ntext\n")
	msg := readMessage(t, conn)
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, added, msg.Target)
	assert.Equal(t, "added", msg.Content)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStart_ListenError(t *testing.T) {
	f := newFixture(t)
	f.cfg.Server.Port = -1

	err := f.server.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestWithinTargets(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.server.withinTargets(f.guide))
	assert.True(t, f.server.withinTargets(filepath.Join(f.dir, "sub", "x.md")))
	assert.False(t, f.server.withinTargets(filepath.Join(filepath.Dir(f.dir), "elsewhere.md")))

	f.cfg.TargetFiles = []string{f.guide}
	assert.True(t, f.server.withinTargets(f.guide))
	assert.False(t, f.server.withinTargets(filepath.Join(f.dir, "other.md")))
}

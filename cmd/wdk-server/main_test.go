package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/EuPathDB/WSF/internal/server"
	"github.com/EuPathDB/WSF/pkg/platform"
)

func TestCorsMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	t.Run("sets CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
			t.Errorf("Allow-Origin = %q, want %q", got, "https://example.com")
		}

		methods := w.Header().Get("Access-Control-Allow-Methods")
		for _, m := range []string{"GET", "POST", "DELETE", "OPTIONS"} {
			if !strings.Contains(methods, m) {
				t.Errorf("Allow-Methods missing %q: %s", m, methods)
			}
		}

		allowHeaders := w.Header().Get("Access-Control-Allow-Headers")
		for _, h := range []string{"Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"} {
			if !strings.Contains(allowHeaders, h) {
				t.Errorf("Allow-Headers missing %q: %s", h, allowHeaders)
			}
		}

		if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Mcp-Session-Id") {
			t.Errorf("Expose-Headers missing Mcp-Session-Id: %s", got)
		}
		if got := w.Header().Get("Vary"); got != "Origin" {
			t.Errorf("Vary = %q, want Origin", got)
		}
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		called := false
		h := corsMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("OPTIONS status = %d, want %d", w.Code, http.StatusOK)
		}
		if called {
			t.Error("preflight reached the wrapped handler")
		}
	})

	t.Run("defaults origin to wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want %q", got, "*")
		}
	})
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-config", "/etc/wdk.yaml", "-transport", "http", "-address", ":9090"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.configPath != "/etc/wdk.yaml" || opts.transport != "http" || opts.address != ":9090" {
		t.Errorf("unexpected options: %+v", opts)
	}

	opts, err = parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.configPath != "wdk.yaml" || opts.transport != "" {
		t.Errorf("unexpected defaults: %+v", opts)
	}

	if _, err := parseFlags([]string{"-bogus"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &platform.Config{}
	cfg.Server.Transport = platform.TransportStdio
	cfg.Server.Address = ":8080"

	applyFlagOverrides(cfg, serverOptions{})
	if cfg.Server.Transport != platform.TransportStdio || cfg.Server.Address != ":8080" {
		t.Errorf("empty flags changed config: %+v", cfg.Server)
	}

	applyFlagOverrides(cfg, serverOptions{transport: platform.TransportHTTP, address: ":9999"})
	if cfg.Server.Transport != platform.TransportHTTP || cfg.Server.Address != ":9999" {
		t.Errorf("flags not applied: %+v", cfg.Server)
	}
}

// TestStreamableHTTP_PlatformInfo drives the platform's MCP endpoint
// through the CORS wrapper with a streamable HTTP client.
func TestStreamableHTTP_PlatformInfo(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "items.sqlite")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE items (id TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	_ = db.Close()

	modelPath := filepath.Join(dir, "model.yaml")
	model := `
name: TestDB
querySets:
  - name: Ids
    queries:
      - name: All
        sql: SELECT id FROM items
        columns:
          - name: id
recordClasses:
  - name: Items.Item
    primaryKey:
      columns: [id]
      text: $$id$$
questions:
  - name: Items.All
    recordClass: Items.Item
    idQuery: Ids.All
`
	if err := os.WriteFile(modelPath, []byte(model), 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}

	cfg, err := platform.ParseConfig([]byte("server:\n  name: streamable-test\n  transport: http\n" +
		"database:\n  platform: sqlite\n  dsn: " + dsn + "\n" +
		"model:\n  path: " + modelPath + "\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	_, p, err := server.New(cfg)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	defer func() { _ = p.Close() }()

	httpServer := httptest.NewServer(corsMiddleware(p.HTTPHandler()))
	defer httpServer.Close()

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: httpServer.URL + "/mcp"}, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer func() { _ = session.Close() }()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "platform_info"})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result.IsError || len(result.Content) == 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	for _, want := range []string{`"streamable-test"`, `"Items.Item"`} {
		if !strings.Contains(tc.Text, want) {
			t.Errorf("platform_info missing %s: %s", want, tc.Text)
		}
	}
}

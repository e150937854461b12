package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/sides/internal/config"
	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/server/endpoints"
	"github.com/jackzampolin/sides/internal/testutil"
	"github.com/jackzampolin/sides/internal/transcript"
)

// newMockServer returns a server whose pipeline talks to a mock provider.
func newMockServer(t *testing.T, mock *providers.MockClient) *Server {
	t.Helper()
	reg := providers.NewRegistry()
	reg.RegisterLLM("mock", mock)
	p, err := transcript.NewPipeline(transcript.PipelineConfig{
		Registry: reg,
		Provider: "mock",
		Logger:   testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	cfg := testutil.NewServerConfig(t)
	srv, err := New(Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Registry: reg,
		Pipeline: p,
		Logger:   cfg.Logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func postExtract(t *testing.T, h http.Handler, req endpoints.ExtractRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pdf/extract", bytes.NewReader(body)))
	return rec
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New(Config{Logger: testutil.DiscardLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Addr() != "127.0.0.1:3000" {
		t.Errorf("Addr() = %q, want 127.0.0.1:3000", srv.Addr())
	}
	if srv.Registry() == nil {
		t.Error("Registry() should not be nil")
	}
	if srv.Pipeline() != nil {
		t.Error("Pipeline() should be nil without config")
	}
	if srv.IsRunning() {
		t.Error("new server should not be running")
	}
}

func TestServer_RequireInit(t *testing.T) {
	srv, err := New(Config{Logger: testutil.DiscardLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := postExtract(t, srv.Handler(), endpoints.ExtractRequest{DataURL: "data:application/pdf;base64,AAAA"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	// Health does not require init.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", rec.Code)
	}
}

func TestServer_Extract(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Respond = func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		text := req.Messages[len(req.Messages)-1].Content
		if strings.Contains(text, "BRODY") {
			return `{"lines":[{"lineId":"L1","order":1,"character":"brody","text":"You're gonna need a bigger boat."}]}`, nil
		}
		return `{"lines":[{"lineId":"L1","order":1,"character":"QUINT","text":"Farewell and adieu."}]}`, nil
	}
	srv := newMockServer(t, mock)

	pdf := testutil.PDF(
		[]string{"BRODY", "You're gonna need a bigger boat."},
		[]string{"QUINT", "Farewell and adieu."},
	)
	rec := postExtract(t, srv.Handler(), endpoints.ExtractRequest{
		DataURL:  endpoints.EncodeDataURL(pdf),
		FileName: "jaws.pdf",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp endpoints.ExtractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FileName != "jaws.pdf" {
		t.Errorf("FileName = %q", resp.FileName)
	}
	if len(resp.Lines) != 2 {
		t.Fatalf("got %d lines, want 2: %+v", len(resp.Lines), resp.Lines)
	}
	if resp.Lines[0].Character != "BRODY" || resp.Lines[0].LineID != "L1" {
		t.Errorf("line 0 = %+v", resp.Lines[0])
	}
	if resp.Lines[1].Character != "QUINT" || resp.Lines[1].Order != 2 {
		t.Errorf("line 1 = %+v", resp.Lines[1])
	}
	if !strings.Contains(resp.ExtractedText, "bigger boat") {
		t.Errorf("ExtractedText = %q", resp.ExtractedText)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("provider calls = %d, want 2", mock.RequestCount())
	}
}

func TestServer_Lifecycle(t *testing.T) {
	mock := providers.NewMockClient()
	srv := newMockServer(t, mock)
	baseURL := "http://" + srv.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	if err := testutil.WaitForServer(baseURL, 10*time.Second); err != nil {
		cancel()
		t.Fatalf("server did not start: %v", err)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	t.Run("double start", func(t *testing.T) {
		if err := srv.Start(context.Background()); err == nil {
			t.Error("expected error starting a running server")
		}
	})

	t.Run("ready", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/ready")
		if err != nil {
			t.Fatalf("ready request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("ready status = %d, want 200", resp.StatusCode)
		}
		var health endpoints.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatal(err)
		}
		if health.Provider != "mock" {
			t.Errorf("Provider = %q, want mock", health.Provider)
		}
	})

	t.Run("swagger", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/swagger.json")
		if err != nil {
			t.Fatalf("swagger request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("swagger status = %d, want 200", resp.StatusCode)
		}
	})

	cancel()
	if err := testutil.WaitForShutdown(done, 10*time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_PortInUse(t *testing.T) {
	mock := providers.NewMockClient()
	first := newMockServer(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- first.Start(ctx) }()
	starter := testutil.StartServer{Cancel: cancel, Done: done}
	t.Cleanup(starter.Stop)

	if err := testutil.WaitForServer("http://"+first.Addr(), 10*time.Second); err != nil {
		t.Fatalf("server did not start: %v", err)
	}

	host, port, _ := strings.Cut(first.Addr(), ":")
	second, err := New(Config{Host: host, Port: port, Logger: testutil.DiscardLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected error binding a port in use")
	}
	if second.IsRunning() {
		t.Error("failed server should not report running")
	}
}

func TestServer_ConfigReload(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENROUTER_API_KEY", "or-test")

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.WriteDefault(cfgFile); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	srv, err := New(Config{ConfigManager: mgr, Logger: testutil.DiscardLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := srv.Pipeline().Provider(); got != "openai" {
		t.Fatalf("Provider() = %q, want openai", got)
	}
	if !srv.Registry().HasLLM("openai") || !srv.Registry().HasLLM("openrouter") {
		t.Fatalf("registered providers = %v", srv.Registry().ListLLM())
	}

	t.Run("applies new defaults", func(t *testing.T) {
		next := config.DefaultConfig()
		next.Defaults.LLMProvider = "openrouter"
		next.LLMProviders = map[string]config.LLMProviderCfg{
			"openrouter": next.LLMProviders["openrouter"],
		}
		srv.reload(next)

		if got := srv.Pipeline().Provider(); got != "openrouter" {
			t.Errorf("Provider() = %q, want openrouter", got)
		}
		if srv.Registry().HasLLM("openai") {
			t.Error("openai should be removed after reload")
		}
	})

	t.Run("keeps pipeline on bad config", func(t *testing.T) {
		before := srv.Pipeline()
		next := config.DefaultConfig()
		next.Extraction.Chunking = "scene"
		srv.reload(next)

		if srv.Pipeline() != before {
			t.Error("pipeline should not change when the new config is invalid")
		}
	})

	t.Run("watch file", func(t *testing.T) {
		mgr.WatchConfig()
		time.Sleep(100 * time.Millisecond)

		data, err := os.ReadFile(cfgFile)
		if err != nil {
			t.Fatal(err)
		}
		updated := strings.Replace(string(data), "llm_provider: openai", "llm_provider: openrouter", 1)
		if updated == string(data) {
			t.Fatalf("default config has no llm_provider line:\n%s", data)
		}
		if err := os.WriteFile(cfgFile, []byte(updated), 0o644); err != nil {
			t.Fatal(err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && srv.Pipeline().Provider() != "openrouter" {
			time.Sleep(50 * time.Millisecond)
		}
		if got := srv.Pipeline().Provider(); got != "openrouter" {
			t.Errorf("Provider() = %q after file change, want openrouter", got)
		}
		if !srv.Registry().HasLLM("openai") {
			t.Error("openai should be registered again from the file")
		}
	})
}

package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/svcctx"
	"github.com/jackzampolin/sides/internal/testutil"
	"github.com/jackzampolin/sides/internal/transcript"
)

func newServices(t *testing.T, mock *providers.MockClient) *svcctx.Services {
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
	return &svcctx.Services{Registry: reg, Pipeline: p, Logger: testutil.DiscardLogger()}
}

// serve runs one request through an endpoint with services in the context.
func serve(ep interface {
	Route() (string, string, http.HandlerFunc)
}, svc *svcctx.Services, req *http.Request) *httptest.ResponseRecorder {
	_, _, h := ep.Route()
	if svc != nil {
		req = req.WithContext(svcctx.WithServices(req.Context(), svc))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func extractRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	var data []byte
	switch b := body.(type) {
	case string:
		data = []byte(b)
	default:
		var err error
		if data, err = json.Marshal(b); err != nil {
			t.Fatal(err)
		}
	}
	return httptest.NewRequest(http.MethodPost, "/pdf/extract", bytes.NewReader(data))
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func dialogueMock() *providers.MockClient {
	mock := providers.NewMockClient()
	mock.Respond = func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		return `{"lines":[{"lineId":"x","order":9,"character":"hamlet","text":"To be, or not to be."}]}`, nil
	}
	return mock
}

func TestExtractEndpoint(t *testing.T) {
	ep := &ExtractEndpoint{}

	t.Run("success", func(t *testing.T) {
		svc := newServices(t, dialogueMock())
		pdf := testutil.PDF([]string{"HAMLET", "To be, or not to be."})

		rec := serve(ep, svc, extractRequest(t, ExtractRequest{
			DataURL:  EncodeDataURL(pdf),
			FileName: "hamlet.pdf",
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp ExtractResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		want := transcript.DialogueLine{LineID: "L1", Order: 1, Character: "HAMLET", Text: "To be, or not to be."}
		if len(resp.Lines) != 1 || resp.Lines[0] != want {
			t.Errorf("Lines = %+v, want [%+v]", resp.Lines, want)
		}
		if resp.RunID == "" {
			t.Error("expected a run id")
		}
		if len(resp.Chunks) != 1 || resp.Chunks[0].Status != transcript.StatusOK {
			t.Errorf("Chunks = %+v", resp.Chunks)
		}
	})

	tests := []struct {
		name    string
		body    any
		want    int
		message string
	}{
		{"invalid json", "{not json", http.StatusBadRequest, ""},
		{"missing dataUrl", ExtractRequest{}, http.StatusBadRequest, "Missing PDF dataUrl"},
		{"bad base64", ExtractRequest{DataURL: "data:application/pdf;base64,@@@"}, http.StatusBadRequest, ""},
		{"empty payload", ExtractRequest{DataURL: "data:application/pdf;base64,"}, http.StatusBadRequest, "Missing PDF dataUrl"},
		{"not a pdf", ExtractRequest{DataURL: EncodeDataURL([]byte("hello"))}, http.StatusBadRequest, ""},
		{"no text", ExtractRequest{DataURL: EncodeDataURL(testutil.PDF([]string{}))}, http.StatusBadRequest, "No text found in PDF"},
		{"bad chunking", ExtractRequest{DataURL: EncodeDataURL(testutil.PDF([]string{"A"})), Chunking: "scene"}, http.StatusBadRequest, ""},
		{"unknown provider", ExtractRequest{DataURL: EncodeDataURL(testutil.PDF([]string{"A"})), Provider: "nope"}, http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := dialogueMock()
			rec := serve(ep, newServices(t, mock), extractRequest(t, tt.body))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body.String())
			}
			msg := errorMessage(t, rec)
			if tt.message != "" && msg != tt.message {
				t.Errorf("error = %q, want %q", msg, tt.message)
			}
			if mock.RequestCount() != 0 {
				t.Errorf("provider called %d times on a rejected request", mock.RequestCount())
			}
		})
	}

	t.Run("body too large", func(t *testing.T) {
		small := &ExtractEndpoint{MaxBodyBytes: 64}
		body := ExtractRequest{DataURL: EncodeDataURL(bytes.Repeat([]byte("x"), 256))}
		rec := serve(small, newServices(t, dialogueMock()), extractRequest(t, body))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("no pipeline", func(t *testing.T) {
		body := ExtractRequest{DataURL: EncodeDataURL(testutil.PDF([]string{"A"}))}
		rec := serve(ep, nil, extractRequest(t, body))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("provider failure keeps 200", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true
		body := ExtractRequest{DataURL: EncodeDataURL(testutil.PDF([]string{"A", "line"}))}
		rec := serve(ep, newServices(t, mock), extractRequest(t, body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp ExtractResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Lines) != 0 {
			t.Errorf("Lines = %+v, want none", resp.Lines)
		}
		if len(resp.Chunks) != 1 || resp.Chunks[0].Status != transcript.StatusFailed || resp.Chunks[0].Kind != transcript.KindCall {
			t.Errorf("Chunks = %+v", resp.Chunks)
		}
	})
}

func TestDecodeDataURL(t *testing.T) {
	pdf := []byte("%PDF-1.4 test")
	encoded := EncodeDataURL(pdf)

	tests := []struct {
		name  string
		input string
	}{
		{"data url", encoded},
		{"bare base64", strings.TrimPrefix(encoded, "data:application/pdf;base64,")},
		{"line wrapped", encoded[:40] + "\n" + encoded[40:]},
		{"unpadded", strings.TrimRight(encoded, "=")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataURL(tt.input)
			if err != nil {
				t.Fatalf("DecodeDataURL() error = %v", err)
			}
			if !bytes.Equal(got, pdf) {
				t.Errorf("got %q, want %q", got, pdf)
			}
		})
	}

	if _, err := DecodeDataURL("data:application/pdf;base64,!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestReadyEndpoint(t *testing.T) {
	ep := &ReadyEndpoint{}

	t.Run("ready", func(t *testing.T) {
		rec := serve(ep, newServices(t, providers.NewMockClient()), httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("default provider missing", func(t *testing.T) {
		svc := newServices(t, providers.NewMockClient())
		svc.Registry.UnregisterLLM("mock")
		rec := serve(ep, svc, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		var resp HealthResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Status != "degraded" || resp.Provider != "mock" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("not initialized", func(t *testing.T) {
		rec := serve(ep, nil, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	rec := serve(&StatusEndpoint{}, newServices(t, providers.NewMockClient()), httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.DefaultProvider != "mock" {
		t.Errorf("DefaultProvider = %q", resp.DefaultProvider)
	}
	if len(resp.Providers) != 1 || resp.Providers[0] != "mock" {
		t.Errorf("Providers = %v", resp.Providers)
	}
	if _, ok := resp.RateLimits["mock"]; !ok {
		t.Errorf("RateLimits = %v", resp.RateLimits)
	}
}

func TestSwaggerEndpoint(t *testing.T) {
	rec := serve(&SwaggerEndpoint{}, nil, httptest.NewRequest(http.MethodGet, "/swagger.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("swagger.json is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/pdf/extract"]; !ok {
		t.Errorf("paths = %v", paths)
	}
}

func TestAll(t *testing.T) {
	seen := map[string]bool{}
	for _, ep := range All(Config{}) {
		method, path, _ := ep.Route()
		key := method + " " + path
		if seen[key] {
			t.Errorf("duplicate route %s", key)
		}
		seen[key] = true
	}
	if !seen["POST /pdf/extract"] {
		t.Error("extract route not registered")
	}
}

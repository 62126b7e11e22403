package swagger

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Title != "Waterflow API" {
		t.Errorf("Title = %s, want Waterflow API", cfg.Title)
	}
	if cfg.BasePath != "/swagger" {
		t.Errorf("BasePath = %s, want /swagger", cfg.BasePath)
	}
	if cfg.SpecPath == "" {
		t.Error("SpecPath should not be empty")
	}
}

func TestHandler_ServeHTTP_UI(t *testing.T) {
	spec := []byte(`{"swagger":"2.0"}`)
	handler := NewHandler(nil, spec)

	for _, path := range []string{"/swagger/", "/swagger/index.html"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %s, want text/html; charset=utf-8", contentType)
			}

			if !strings.Contains(w.Body.String(), "Waterflow API") {
				t.Error("UI page should carry the configured title")
			}
		})
	}
}

func TestHandler_ServeHTTP_Spec(t *testing.T) {
	spec := []byte(`{"swagger":"2.0","info":{"title":"Waterflow API"}}`)
	handler := NewHandler(nil, spec)

	specPaths := []string{
		"/swagger/openapi.json",
		"/swagger/swagger.json",
		"/swagger/api.json",
	}

	for _, path := range specPaths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %s, want application/json; charset=utf-8", contentType)
			}

			if w.Body.String() != string(spec) {
				t.Error("response should match spec")
			}

			if w.Header().Get("ETag") == "" {
				t.Error("ETag header should be set")
			}
		})
	}
}

func TestHandler_ServeHTTP_NotFound(t *testing.T) {
	handler := NewHandler(nil, []byte(`{}`))

	req := httptest.NewRequest("GET", "/swagger/nonexistent", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandler_ServeHTTP_ETagCaching(t *testing.T) {
	handler := NewHandler(nil, []byte(`{"swagger":"2.0"}`))

	req1 := httptest.NewRequest("GET", "/swagger/openapi.json", nil)
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)

	etag := w1.Header().Get("ETag")

	req2 := httptest.NewRequest("GET", "/swagger/openapi.json", nil)
	req2.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	if w2.Code != http.StatusNotModified {
		t.Errorf("status = %d, want %d (Not Modified)", w2.Code, http.StatusNotModified)
	}
}

func TestHandler_CustomConfig(t *testing.T) {
	cfg := &Config{
		Title:                    "Hydraulics Docs",
		BasePath:                 "/api-docs",
		SpecPath:                 "/spec.json",
		DeepLinking:              false,
		DocExpansion:             "none",
		DefaultModelsExpandDepth: 0,
	}
	handler := NewHandler(cfg, []byte(`{}`))

	req := httptest.NewRequest("GET", "/api-docs/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	if !strings.Contains(w.Body.String(), "Hydraulics Docs") {
		t.Error("response should contain custom title")
	}
}

func TestHandler_CORS(t *testing.T) {
	handler := NewHandler(nil, []byte(`{}`))

	req := httptest.NewRequest("GET", "/swagger/openapi.json", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	cors := w.Header().Get("Access-Control-Allow-Origin")
	if cors != "*" {
		t.Errorf("CORS header = %s, want *", cors)
	}
}

func BenchmarkHandler_ServeSpec(b *testing.B) {
	spec := make([]byte, 100000) // 100KB spec
	handler := NewHandler(nil, spec)

	req := httptest.NewRequest("GET", "/swagger/openapi.json", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		io.Copy(io.Discard, w.Body)
	}
}

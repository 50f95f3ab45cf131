package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
)

func redirectTo(srv *httptest.Server) *http.Client {
	return &http.Client{Timeout: time.Second, Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		req.URL.Scheme = "http"
		req.URL.Host = srv.Listener.Addr().String()
		return http.DefaultTransport.RoundTrip(req)
	})}
}

func TestHuggingFace_NoKey(t *testing.T) {
	c := NewHuggingFaceClient("", "https://api-inference.huggingface.co/models/x")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, "hi", config.RuntimeConfig{})
	if err == nil {
		t.Fatalf("expected error with missing key")
	}
	if !errorsx.Is(err, errorsx.BackendError) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestHuggingFace_HTTPFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status_503", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(503)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
		}},
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500); _, _ = w.Write([]byte("oops")) }},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("not-json")) }},
		{"wrong_shape", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(200)
			_, _ = w.Write([]byte(`{"generated_text":"hi"}`))
		}},
		{"empty_list", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(200)
			_, _ = w.Write([]byte(`[]`))
		}},
		{"missing_field", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(200)
			_, _ = w.Write([]byte(`[{"text":"hi"}]`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			c := NewHuggingFaceClient("key", "https://api-inference.huggingface.co/models/x")
			c.HTTPClient = redirectTo(srv)
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			out, err := c.Generate(ctx, "hi", config.RuntimeConfig{Temperature: 0.5})
			if err == nil {
				t.Fatalf("expected error; got nil")
			}
			if !errorsx.Is(err, errorsx.BackendError) {
				t.Fatalf("expected backend error, got %v", err)
			}
			if out != "" {
				t.Fatalf("expected no text on failure, got %q", out)
			}
		})
	}
}

func TestHuggingFace_Success(t *testing.T) {
	const prompt = "User says: 'capital of France'."
	var got hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`[{"generated_text":"User says: 'capital of France'. Paris.</s>"}]`))
	}))
	defer srv.Close()

	c := NewHuggingFaceClient("key", "https://api-inference.huggingface.co/models/x")
	c.HTTPClient = redirectTo(srv)
	out, err := c.Generate(context.Background(), prompt, config.RuntimeConfig{Temperature: 0.7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Paris." {
		t.Fatalf("got %q", out)
	}
	if got.Inputs != prompt || got.Parameters.MaxNewTokens != RemoteMaxNewTokens || got.Parameters.TopP != RemoteTopP {
		t.Fatalf("unexpected payload %+v", got)
	}
	if !got.Parameters.DoSample || got.Parameters.Temperature == nil || *got.Parameters.Temperature != 0.7 {
		t.Fatalf("expected sampling at 0.7, got %+v", got.Parameters)
	}
}

func TestHuggingFace_ZeroTemperatureIsGreedy(t *testing.T) {
	var raw map[string]map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`[{"generated_text":"ok"}]`))
	}))
	defer srv.Close()

	c := NewHuggingFaceClient("key", "https://api-inference.huggingface.co/models/x")
	c.HTTPClient = redirectTo(srv)
	if _, err := c.Generate(context.Background(), "p", config.RuntimeConfig{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raw["parameters"]["temperature"]; ok {
		t.Fatalf("temperature must be omitted when greedy")
	}
	if raw["parameters"]["do_sample"] != false {
		t.Fatalf("expected do_sample=false")
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOllamaClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("OLLAMA_BASE_URL", server.URL)
	t.Setenv("OLLAMA_MODEL", "test-model")
	client, err := NewOllamaClient()
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	return client
}

func TestOllamaGenerate_RequestShape(t *testing.T) {
	var got ollamaGenerateRequest
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:    got.Model,
			Response: `{"plan_version": 1, "ops": []}`,
			Done:     true,
		})
	})

	temp := float32(0.1)
	maxTokens := 4096
	out, err := client.Generate(context.Background(), "system instructions", "add a resistor",
		GenerationParams{Temperature: &temp, MaxTokens: &maxTokens, ForceJSON: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got.Model != "test-model" {
		t.Errorf("model = %q, want test-model", got.Model)
	}
	if got.System != "system instructions" {
		t.Errorf("system = %q", got.System)
	}
	if got.Prompt != "add a resistor" {
		t.Errorf("prompt = %q", got.Prompt)
	}
	if got.Format != "json" {
		t.Errorf("format = %q, want json (ForceJSON)", got.Format)
	}
	if got.Stream {
		t.Error("stream must be false for single-shot generation")
	}
	if got.Options["temperature"] != 0.1 {
		t.Errorf("temperature option = %v, want 0.1", got.Options["temperature"])
	}
	if got.Options["num_predict"] != float64(4096) {
		t.Errorf("num_predict option = %v, want 4096", got.Options["num_predict"])
	}
	if !strings.Contains(out, "plan_version") {
		t.Errorf("response = %q", out)
	}
}

func TestOllamaGenerate_ModelNotFound(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": `model "test-model" not found`})
	})

	_, err := client.Generate(context.Background(), "", "hi", GenerationParams{})
	if err == nil {
		t.Fatal("expected model-not-found error")
	}
	if !strings.Contains(err.Error(), "ollama pull test-model") {
		t.Errorf("error should suggest pulling the model, got: %v", err)
	}
}

func TestOllamaGenerate_ServerError(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	})

	_, err := client.Generate(context.Background(), "", "hi", GenerationParams{})
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error should carry the status, got: %v", err)
	}
}

func TestNewOllamaClient_RequiresBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	if _, err := NewOllamaClient(); err == nil {
		t.Fatal("expected error without OLLAMA_BASE_URL")
	}
}

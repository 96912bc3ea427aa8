// Package testutil holds shared test doubles. Stores are file-backed and
// cheap, so tests use real ones in temp dirs; only the inference server is
// mocked.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"ragchat/internal/ollama"
)

// MockInference is a func-field mock of the chat service's inference
// dependency.
type MockInference struct {
	EmbeddingsFunc func(ctx context.Context, model, prompt string) ([]float64, error)
	GenerateFunc   func(ctx context.Context, model, prompt string) (<-chan ollama.StreamChunk, error)
}

func (m *MockInference) Embeddings(ctx context.Context, model, prompt string) ([]float64, error) {
	if m.EmbeddingsFunc != nil {
		return m.EmbeddingsFunc(ctx, model, prompt)
	}
	return nil, errors.New("not implemented")
}

func (m *MockInference) Generate(ctx context.Context, model, prompt string) (<-chan ollama.StreamChunk, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, model, prompt)
	}
	return nil, errors.New("not implemented")
}

// StaticStream builds a GenerateFunc that replays the given fragments and
// completes cleanly.
func StaticStream(fragments ...string) func(ctx context.Context, model, prompt string) (<-chan ollama.StreamChunk, error) {
	return func(ctx context.Context, model, prompt string) (<-chan ollama.StreamChunk, error) {
		out := make(chan ollama.StreamChunk)
		go func() {
			defer close(out)
			for _, f := range fragments {
				select {
				case out <- ollama.StreamChunk{Content: f}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out, nil
	}
}

// FakeOllama is a canned Ollama-compatible HTTP server for client and
// handler tests.
type FakeOllama struct {
	Models    []string
	Embedding []float64
	// Lines is written verbatim as the /api/generate body, one JSON
	// fragment per line.
	Lines []string

	FailTags       bool
	FailEmbeddings bool
}

// Server starts an httptest server speaking the inference API.
func (f *FakeOllama) Server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		if f.FailTags {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		type model struct {
			Name string `json:"name"`
		}
		models := make([]model, len(f.Models))
		for i, name := range f.Models {
			models[i] = model{Name: name}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"models": models})
	})

	mux.HandleFunc("POST /api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if f.FailEmbeddings {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": f.Embedding})
	})

	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range f.Lines {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	})

	return httptest.NewServer(mux)
}

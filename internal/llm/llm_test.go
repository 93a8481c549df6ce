package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-captions/internal/config"
)

func TestOllamaGeneratorStreams(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, `{"response":"The team ","done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"response":"shipped it.","done":true,"eval_count":5,"prompt_eval_count":40}`)
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL+"/", "distil:latest")
	req := OptionsFromConfig(config.LLMConfig{MaxTokens: 130})
	req.Prompt = "we shipped the release"
	req.System = "summarize"

	var chunks []Chunk
	err := gen.Generate(context.Background(), req, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.Model != "distil:latest" || got.Prompt != "we shipped the release" || !got.Stream {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Options.NumPredict != 130 {
		t.Fatalf("expected num_predict 130, got %d", got.Options.NumPredict)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !chunks[0].Partial || chunks[1].Partial {
		t.Fatalf("expected partial then final, got %+v", chunks)
	}
	if chunks[1].CompletionTokens != 5 || chunks[1].PromptTokens != 40 {
		t.Fatalf("unexpected token counts %+v", chunks[1])
	}
}

func TestCollectJoinsChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":" Budget ","done":false}`)
		fmt.Fprintln(w, `{"response":"approved. ","done":true}`)
	}))
	defer srv.Close()

	text, err := Collect(context.Background(), NewOllamaGenerator(srv.URL, ""), Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if text != "Budget approved." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestOllamaGeneratorStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Collect(context.Background(), NewOllamaGenerator(srv.URL, "missing"), Request{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestExecGenerator(t *testing.T) {
	script := filepath.Join(t.TempDir(), "summarize.sh")
	body := "#!/bin/sh\ncat >/dev/null\necho '{\"content\":\"Short summary.\",\"completion_tokens\":3}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	gen, err := New(config.LLMConfig{Mode: "exec", Command: "/bin/sh " + script})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	text, err := Collect(context.Background(), gen, Request{Prompt: "long transcript"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if text != "Short summary." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestMockGenerator(t *testing.T) {
	text, err := Collect(context.Background(), NewMockGenerator(), Request{Prompt: "alpha beta gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Speaker discussed alpha beta gamma." {
		t.Fatalf("unexpected mock text %q", text)
	}
}

func TestNewUnknownMode(t *testing.T) {
	if _, err := New(config.LLMConfig{Mode: "remote"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

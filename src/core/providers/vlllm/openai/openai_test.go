package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"car-analyzer-go/src/configs"
	"car-analyzer-go/src/core/image"
	"car-analyzer-go/src/core/providers/vlllm"
	"car-analyzer-go/src/core/utils"
)

func testLogger(t *testing.T) *utils.Logger {
	t.Helper()
	config := &configs.Config{}
	config.Log.LogDir = t.TempDir()
	config.Log.LogFile = "test"
	logger, err := utils.NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func chunk(content string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"id":     "chatcmpl-1",
		"object": "chat.completion.chunk",
		"model":  "gpt-4o",
		"choices": []map[string]interface{}{{
			"index": 0,
			"delta": map[string]interface{}{"content": content},
		}},
	})
	return fmt.Sprintf("data: %s\n\n", data)
}

func TestResponseWithImage_CollectsStream(t *testing.T) {
	var request map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&request)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range []string{"<think>", "hmm", "</think>", `{"Car Make":`, `"Fiat"}`} {
			fmt.Fprint(w, chunk(c))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	vc := &configs.VLLMConfig{Type: "openai", ModelName: "gpt-4o", APIKey: "sk-test", BaseURL: server.URL + "/v1"}
	vc.ApplyDefaults()
	provider, err := vlllm.Create(vc, testLogger(t))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := provider.ResponseWithImage(context.Background(), image.ImageData{Data: []byte("png-bytes"), Format: "png"}, "prompt")
	if err != nil {
		t.Fatalf("ResponseWithImage() error = %v", err)
	}
	if got != `{"Car Make":"Fiat"}` {
		t.Errorf("reply = %q", got)
	}

	if request["model"] != "gpt-4o" || request["max_tokens"] != float64(8192) {
		t.Errorf("request = %v", request)
	}
	raw, _ := json.Marshal(request["messages"])
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Errorf("messages missing image data url: %s", raw)
	}
}

func TestResponseWithImage_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	vc := &configs.VLLMConfig{Type: "openai", ModelName: "gpt-4o", APIKey: "sk-bad", BaseURL: server.URL}
	vc.ApplyDefaults()
	provider, err := vlllm.Create(vc, testLogger(t))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := provider.ResponseWithImage(context.Background(), image.ImageData{Data: []byte{1}}, "p"); err == nil {
		t.Error("expected error from upstream 401")
	}
}

func TestNewProvider_Validation(t *testing.T) {
	logger := testLogger(t)
	if _, err := NewProvider(&vlllm.Config{}, logger); err == nil {
		t.Error("expected error without model name")
	}
	p, err := NewProvider(&vlllm.Config{ModelName: "gpt-4o"}, logger)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if err := p.Initialize(); err == nil {
		t.Error("expected error without api key")
	}
}

package configs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadConfigFrom_ExpandsEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret-key")
	path := writeConfig(t, `
web:
  port: 8080
selected_module:
  VLLLM: gemini
VLLLM:
  gemini:
    type: gemini
    model_name: gemini-1.5-flash
    api_key: ${GEMINI_API_KEY}
`)

	config, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}

	name, vc, err := config.SelectedVLLM()
	if err != nil {
		t.Fatalf("SelectedVLLM() error = %v", err)
	}
	if name != "gemini" {
		t.Errorf("name = %q, want gemini", name)
	}
	if vc.APIKey != "secret-key" {
		t.Errorf("APIKey = %q, want secret-key", vc.APIKey)
	}
	if config.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", config.Web.Port)
	}
}

func TestLoadConfigFrom_Defaults(t *testing.T) {
	path := writeConfig(t, `
selected_module:
  VLLLM: local
VLLLM:
  local:
    type: ollama
    model_name: llava
`)

	config, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}

	if config.Web.Port != DefaultPort || config.Web.IP != "0.0.0.0" {
		t.Errorf("web = %s:%d, want 0.0.0.0:%d", config.Web.IP, config.Web.Port, DefaultPort)
	}
	if config.Log.LogDir != "logs" {
		t.Errorf("LogDir = %q, want logs", config.Log.LogDir)
	}

	vc := config.VLLLM["local"]
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"temperature", vc.Temperature, 1.0},
		{"top_p", vc.TopP, 0.95},
		{"top_k", float64(vc.TopK), 64},
		{"max_tokens", float64(vc.MaxTokens), 8192},
		{"max_file_size", float64(vc.Security.MaxFileSize), DefaultMaxFileSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if len(vc.Security.AllowedFormats) != 3 {
		t.Errorf("AllowedFormats = %v, want png/jpg/jpeg", vc.Security.AllowedFormats)
	}
}

func TestSelectedVLLM_Errors(t *testing.T) {
	t.Run("未选择", func(t *testing.T) {
		config := &Config{}
		if _, _, err := config.SelectedVLLM(); err == nil {
			t.Error("expected error when selected_module.VLLLM is empty")
		}
	})

	t.Run("配置缺失", func(t *testing.T) {
		config := &Config{SelectedModule: map[string]string{"VLLLM": "missing"}}
		if _, _, err := config.SelectedVLLM(); err == nil {
			t.Error("expected error for unknown VLLLM name")
		}
	})
}

func TestLoadConfigFrom_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "web: [unclosed")
	if _, err := LoadConfigFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"car-analyzer-go/src/core/image"
	"car-analyzer-go/src/core/providers/vlllm"
	"car-analyzer-go/src/core/utils"
)

const defaultBaseURL = "http://localhost:11434"

// OllamaRequest Ollama API请求结构
type OllamaRequest struct {
	Model    string                 `json:"model"`
	Messages []OllamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// OllamaMessage Ollama消息结构
type OllamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // 纯base64，不需要data URL前缀
}

// OllamaResponse Ollama API流式响应中的一行
type OllamaResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Message   struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Provider Ollama本地视觉模型提供者
type Provider struct {
	config     *vlllm.Config
	logger     *utils.Logger
	httpClient *http.Client
}

// NewProvider 创建Ollama VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Provider{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Initialize Ollama不需要API key，只需要确保有BaseURL
func (p *Provider) Initialize() error {
	if p.config.BaseURL == "" {
		p.config.BaseURL = defaultBaseURL
	}
	if p.config.ModelName == "" {
		return fmt.Errorf("Ollama VLLLM 需要配置 model_name")
	}
	p.logger.Debug("Ollama VLLLM初始化成功", map[string]interface{}{
		"base_url": p.config.BaseURL,
		"model":    p.config.ModelName,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// Name 提供者类型
func (p *Provider) Name() string {
	return "ollama"
}

// ModelName 模型名称
func (p *Provider) ModelName() string {
	return p.config.ModelName
}

// ResponseWithImage 调用 /api/chat 并拼接流式回复
func (p *Provider) ResponseWithImage(ctx context.Context, imageData image.ImageData, text string) (string, error) {
	request := OllamaRequest{
		Model: p.config.ModelName,
		Messages: []OllamaMessage{{
			Role:    "user",
			Content: text,
			Images:  []string{base64.StdEncoding.EncodeToString(imageData.Data)},
		}},
		Stream: true,
		Options: map[string]interface{}{
			"temperature": p.config.Temperature,
			"top_p":       p.config.TopP,
			"top_k":       p.config.TopK,
			"num_predict": p.config.MaxTokens,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("Ollama请求序列化失败: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimSuffix(p.config.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("创建Ollama请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ollama API调用失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("Ollama API返回错误: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result strings.Builder
	filter := &vlllm.ThinkFilter{}
	decoder := json.NewDecoder(resp.Body)
	for {
		var line OllamaResponse
		if err := decoder.Decode(&line); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("解析Ollama响应失败: %w", err)
		}
		if line.Error != "" {
			return "", fmt.Errorf("Ollama返回错误: %s", line.Error)
		}

		result.WriteString(filter.Filter(line.Message.Content))
		if line.Done {
			break
		}
	}

	p.logger.Debug("Ollama Vision API流式回复完成", map[string]interface{}{
		"length": result.Len(),
	})
	return result.String(), nil
}

// init 注册Ollama VLLLM提供者
func init() {
	vlllm.Register("ollama", NewProvider)
}

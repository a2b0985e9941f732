package gemini

import (
	"context"
	"fmt"
	"net/http"

	"car-analyzer-go/src/core/image"
	"car-analyzer-go/src/core/providers/vlllm"
	"car-analyzer-go/src/core/utils"

	"google.golang.org/genai"
)

const defaultModel = "gemini-1.5-flash"

// Provider Gemini 多模态提供者
type Provider struct {
	config *vlllm.Config
	logger *utils.Logger
	client *genai.Client
}

// NewProvider 创建Gemini VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	if config.ModelName == "" {
		config.ModelName = defaultModel
	}
	return &Provider{config: config, logger: logger}, nil
}

// Initialize 创建 genai 客户端
func (p *Provider) Initialize() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("Gemini API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  p.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.config.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = p.config.BaseURL
	}
	if p.config.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: p.config.Timeout}
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("Unable to connect to gemini client: %w", err)
	}
	p.client = client

	p.logger.Debug("Gemini VLLLM初始化成功", map[string]interface{}{
		"model":    p.config.ModelName,
		"base_url": p.config.BaseURL,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Name 提供者类型
func (p *Provider) Name() string {
	return "gemini"
}

// ModelName 模型名称
func (p *Provider) ModelName() string {
	return p.config.ModelName
}

// generationConfig 将配置中的采样参数转换为 genai 格式
func (p *Provider) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.config.Temperature)),
		TopP:            genai.Ptr(float32(p.config.TopP)),
		TopK:            genai.Ptr(float32(p.config.TopK)),
		MaxOutputTokens: int32(p.config.MaxTokens),
	}
}

// ResponseWithImage 发送提示词和图片，返回回复文本
func (p *Provider) ResponseWithImage(ctx context.Context, imageData image.ImageData, text string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("Gemini 客户端未初始化")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(text),
		genai.NewPartFromBytes(imageData.Data, imageData.MimeType()),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	p.logger.Debug("开始调用Gemini多模态API", map[string]interface{}{
		"model":      p.config.ModelName,
		"mime_type":  imageData.MimeType(),
		"image_size": len(imageData.Data),
	})

	resp, err := p.client.Models.GenerateContent(ctx, p.config.ModelName, contents, p.generationConfig())
	if err != nil {
		return "", fmt.Errorf("Gemini API调用失败: %w", err)
	}

	result := resp.Text()
	if result == "" {
		return "", fmt.Errorf("Gemini 返回了空回复")
	}
	return result, nil
}

// init 注册Gemini VLLLM提供者
func init() {
	vlllm.Register("gemini", NewProvider)
}

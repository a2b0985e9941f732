package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"car-analyzer-go/src/core/image"
	"car-analyzer-go/src/core/providers/vlllm"
	"car-analyzer-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI兼容接口的VLLLM提供者（如 gpt-4o、glm-4v-flash）
type Provider struct {
	config *vlllm.Config
	logger *utils.Logger
	client *openai.Client
}

// NewProvider 创建OpenAI VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	if config.ModelName == "" {
		return nil, fmt.Errorf("OpenAI VLLLM 需要配置 model_name")
	}
	return &Provider{config: config, logger: logger}, nil
}

// Initialize 创建 go-openai 客户端
func (p *Provider) Initialize() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(p.config.APIKey)
	if p.config.BaseURL != "" {
		clientConfig.BaseURL = p.config.BaseURL
	}
	if p.config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: p.config.Timeout}
	}
	p.client = openai.NewClientWithConfig(clientConfig)

	p.logger.Debug("OpenAI VLLLM Provider创建成功", map[string]interface{}{
		"model_name": p.config.ModelName,
		"base_url":   p.config.BaseURL,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Name 提供者类型
func (p *Provider) Name() string {
	return "openai"
}

// ModelName 模型名称
func (p *Provider) ModelName() string {
	return p.config.ModelName
}

// ResponseWithImage 使用流式 Chat Completion 发送图片，收集完整回复
func (p *Provider) ResponseWithImage(ctx context.Context, imageData image.ImageData, text string) (string, error) {
	// 构建包含图片的多模态消息
	visionMessage := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: text,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", imageData.MimeType(), base64.StdEncoding.EncodeToString(imageData.Data)),
				},
			},
		},
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.config.ModelName,
		Messages:    []openai.ChatCompletionMessage{visionMessage},
		Stream:      true,
		Temperature: float32(p.config.Temperature),
		TopP:        float32(p.config.TopP),
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		p.logger.Error("OpenAI Vision API调用失败", map[string]interface{}{
			"model": p.config.ModelName,
			"error": err.Error(),
		})
		return "", fmt.Errorf("OpenAI Vision API调用失败: %w", err)
	}
	defer stream.Close()

	var result strings.Builder
	filter := &vlllm.ThinkFilter{}
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("接收OpenAI流式回复失败: %w", err)
		}
		if len(response.Choices) > 0 {
			result.WriteString(filter.Filter(response.Choices[0].Delta.Content))
		}
	}

	p.logger.Debug("OpenAI Vision API流式回复完成", map[string]interface{}{
		"length": result.Len(),
	})
	return result.String(), nil
}

// init 注册OpenAI VLLLM提供者
func init() {
	vlllm.Register("openai", NewProvider)
}

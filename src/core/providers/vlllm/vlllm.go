package vlllm

import (
	"context"
	"time"

	"car-analyzer-go/src/core/image"
	"car-analyzer-go/src/core/providers"
)

// Config VLLLM配置结构
type Config struct {
	Type        string
	ModelName   string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int
	Timeout     time.Duration
	Data        map[string]interface{}
}

// Provider 视觉语言模型提供者：发送一张图片和一段提示词，返回模型的原始文本回复
type Provider interface {
	providers.Provider

	// ResponseWithImage 调用多模态API，阻塞直到拿到完整回复
	ResponseWithImage(ctx context.Context, imageData image.ImageData, text string) (string, error)

	// Name 返回提供者类型，如 gemini
	Name() string

	// ModelName 返回实际使用的模型名称
	ModelName() string
}

// ThinkFilter 过滤流式回复中 <think> ... </think> 之间的内容
type ThinkFilter struct {
	inThink bool
}

// Filter 返回应保留的片段
func (f *ThinkFilter) Filter(content string) string {
	switch content {
	case "":
		return ""
	case "<think>":
		f.inThink = true
		return ""
	case "</think>":
		f.inThink = false
		return ""
	}
	if f.inThink {
		return ""
	}
	return content
}

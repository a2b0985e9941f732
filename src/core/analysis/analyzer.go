package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"car-analyzer-go/src/core/image"
	"car-analyzer-go/src/core/providers/vlllm"
	"car-analyzer-go/src/core/utils"
)

// Upload 一次请求中上传的图片
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Report 成功解析的模型回复
type Report struct {
	Raw      json.RawMessage // 模型回复的原始JSON，原样返回给调用方
	Value    interface{}     // 解码后的值
	Duration time.Duration   // 模型调用耗时
}

// Field 返回顶层字段的字符串形式，不存在时返回空字符串
func (r *Report) Field(key string) string {
	m, ok := r.Value.(map[string]interface{})
	if !ok {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Analyzer 串联验证、解码、模型调用和回复解析
type Analyzer struct {
	provider  vlllm.Provider
	processor *image.ImageProcessor
	logger    *utils.Logger
	prompt    string
}

// NewAnalyzer 创建分析器，provider 由调用方注入
func NewAnalyzer(provider vlllm.Provider, processor *image.ImageProcessor, logger *utils.Logger) *Analyzer {
	return &Analyzer{
		provider:  provider,
		processor: processor,
		logger:    logger,
		prompt:    Prompt,
	}
}

// Analyze 处理一次上传。返回的错误总是 *Failure
func (a *Analyzer) Analyze(ctx context.Context, upload *Upload) (*Report, error) {
	if upload == nil || upload.Body == nil {
		return nil, NewFailure(ErrorNoImage, MessageNoImage, nil)
	}

	if err := a.validate(upload); err != nil {
		return nil, err
	}

	imageData, err := a.decode(upload)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := a.provider.ResponseWithImage(ctx, imageData, a.prompt)
	if err != nil {
		return nil, NewFailure(ErrorAnalysisFailed, err.Error(), err)
	}
	elapsed := time.Since(start)

	a.logger.Debug("模型回复", map[string]interface{}{
		"filename": upload.Filename,
		"provider": a.provider.Name(),
		"elapsed":  elapsed.String(),
		"reply":    reply,
	})

	report, err := interpretReply(reply)
	if err != nil {
		return nil, err
	}
	report.Duration = elapsed
	return report, nil
}

func (a *Analyzer) validate(upload *Upload) error {
	err := a.processor.Validate(upload.Filename, upload.Size)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, image.ErrFileTooLarge):
		return NewFailure(ErrorInvalidFormat, fmt.Sprintf("Image exceeds the maximum size of %d bytes", a.processor.MaxFileSize()), err)
	default:
		return NewFailure(ErrorInvalidFormat, MessageInvalidFormat, err)
	}
}

func (a *Analyzer) decode(upload *Upload) (image.ImageData, error) {
	// 多读一个字节，用于发现实际内容超过声明大小的情况
	limit := a.processor.MaxFileSize()
	reader := upload.Body
	if limit > 0 {
		reader = io.LimitReader(upload.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return image.ImageData{}, NewFailure(ErrorAnalysisFailed, err.Error(), err)
	}

	imageData, err := a.processor.Decode(upload.Filename, data)
	if err != nil {
		if errors.Is(err, image.ErrFileTooLarge) {
			return image.ImageData{}, NewFailure(ErrorInvalidFormat, fmt.Sprintf("Image exceeds the maximum size of %d bytes", limit), err)
		}
		return image.ImageData{}, NewFailure(ErrorAnalysisFailed, err.Error(), err)
	}
	return imageData, nil
}

// IsNotCarReply 回复中出现 "error"（不区分大小写）即视为模型判断图片不是车辆
func IsNotCarReply(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "error")
}

// interpretReply 把模型的原始回复转换为 Report 或 Failure
func interpretReply(reply string) (*Report, error) {
	if IsNotCarReply(reply) {
		return nil, NewFailure(ErrorNotCar, MessageNotCar, nil)
	}

	raw := bytes.TrimSpace([]byte(reply))
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, NewFailure(ErrorInvalidResponse, MessageInvalidResponse, err)
	}
	// 拒绝合法JSON之后还有多余内容的回复
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, NewFailure(ErrorInvalidResponse, MessageInvalidResponse, fmt.Errorf("unexpected data after JSON value"))
	}

	return &Report{Raw: json.RawMessage(raw), Value: value}, nil
}

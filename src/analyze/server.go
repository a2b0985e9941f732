package analyze

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"car-analyzer-go/src/configs"
	"car-analyzer-go/src/core/analysis"
	"car-analyzer-go/src/core/image"
	"car-analyzer-go/src/core/providers/vlllm"
	"car-analyzer-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 上传图片所在的表单字段
const imageField = "image"

var _ AnalyzeService = (*DefaultAnalyzeService)(nil)

type DefaultAnalyzeService struct {
	logger    *utils.Logger
	provider  vlllm.Provider
	processor *image.ImageProcessor
	analyzer  *analysis.Analyzer
}

// NewDefaultAnalyzeService 构造函数，provider 由调用方创建并注入
func NewDefaultAnalyzeService(config *configs.Config, provider vlllm.Provider, logger *utils.Logger) (*DefaultAnalyzeService, error) {
	if provider == nil {
		return nil, fmt.Errorf("没有可用的VLLLM provider")
	}

	_, vlllmConfig, err := config.SelectedVLLM()
	if err != nil {
		return nil, err
	}
	security := vlllmConfig.Security

	processor := image.NewImageProcessor(&security, logger)
	return &DefaultAnalyzeService{
		logger:    logger,
		provider:  provider,
		processor: processor,
		analyzer:  analysis.NewAnalyzer(provider, processor, logger),
	}, nil
}

// Start 实现 AnalyzeService 接口，注册分析相关路由
func (s *DefaultAnalyzeService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	// GET用于状态检查，POST用于图片分析
	apiGroup.GET("/analyze", s.handleGet)
	apiGroup.POST("/analyze", s.handlePost)

	s.logger.Info("Analyze HTTP服务路由注册完成", map[string]interface{}{
		"provider": s.provider.Name(),
		"model":    s.provider.ModelName(),
	})
	return nil
}

// handleGet 处理GET请求（状态检查）
func (s *DefaultAnalyzeService) handleGet(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:   "ok",
		Provider: s.provider.Name(),
		Model:    s.provider.ModelName(),
		Metrics:  s.processor.GetMetrics(),
	})
}

// handlePost 处理POST请求（图片分析）
func (s *DefaultAnalyzeService) handlePost(c *gin.Context) {
	requestID := uuid.NewString()
	c.Header("X-Request-Id", requestID)
	start := time.Now()

	upload, cleanup, err := s.parseUpload(c)
	if err != nil {
		s.respondError(c, requestID, "", start, analysis.AsFailure(err))
		return
	}
	defer cleanup()

	report, err := s.analyzer.Analyze(c.Request.Context(), upload)
	if err != nil {
		s.respondError(c, requestID, upload.Filename, start, analysis.AsFailure(err))
		return
	}

	s.logger.Info("图片分析完成", map[string]interface{}{
		"request_id": requestID,
		"filename":   upload.Filename,
		"status":     http.StatusOK,
		"make":       report.Field(analysis.KeyMake),
		"model":      report.Field(analysis.KeyModel),
		"model_time": report.Duration.String(),
		"elapsed":    time.Since(start).String(),
	})

	c.Data(http.StatusOK, "application/json; charset=utf-8", report.Raw)
}

// parseUpload 读取 multipart 中的 image 字段
func (s *DefaultAnalyzeService) parseUpload(c *gin.Context) (*analysis.Upload, func(), error) {
	header, err := c.FormFile(imageField)
	if err != nil {
		s.logger.Debug("请求中没有图片字段", map[string]interface{}{"error": err.Error()})
		return nil, nil, analysis.NewFailure(analysis.ErrorNoImage, analysis.MessageNoImage, err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, analysis.NewFailure(analysis.ErrorAnalysisFailed, err.Error(), err)
	}

	upload := &analysis.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}
	return upload, func() { _ = file.Close() }, nil
}

// respondError 记录日志并返回错误响应
func (s *DefaultAnalyzeService) respondError(c *gin.Context, requestID, filename string, start time.Time, failure *analysis.Failure) {
	status := failure.Type.Status()
	fields := map[string]interface{}{
		"request_id": requestID,
		"filename":   filename,
		"status":     status,
		"error_type": failure.Type,
		"elapsed":    time.Since(start).String(),
	}
	if failure.Err != nil {
		fields["cause"] = failure.Err.Error()
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("图片分析失败", fields)
	} else {
		s.logger.Warn("图片分析请求被拒绝", fields)
	}

	c.JSON(status, failure.Response())
}

// Cleanup 清理资源
func (s *DefaultAnalyzeService) Cleanup() error {
	if err := s.provider.Cleanup(); err != nil {
		s.logger.Warn("清理VLLLM provider失败", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("Analyze服务清理完成")
	return nil
}

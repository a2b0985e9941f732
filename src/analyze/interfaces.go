package analyze

import (
	"context"

	"github.com/gin-gonic/gin"
)

// AnalyzeService 定义图片分析服务接口
type AnalyzeService interface {
	// 将分析接口的路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
	// Cleanup 释放模型提供者等资源
	Cleanup() error
}

package server

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Service 挂载到 HTTP 引擎上的服务
type Service interface {
	// 将路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

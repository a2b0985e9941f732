package server

import (
	"net/http"
	"strings"
	"time"

	"car-analyzer-go/src/configs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewEngine 创建带 CORS 与健康检查的 gin 引擎
func NewEngine(config *configs.Config) *gin.Engine {
	if strings.EqualFold(config.Log.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}
	router.Use(cors.New(corsConfig(config)))

	router.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// corsConfig 未配置 allow_origins 时允许所有来源
func corsConfig(config *configs.Config) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(config.Web.AllowOrigin) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = config.Web.AllowOrigin
	}
	return cfg
}

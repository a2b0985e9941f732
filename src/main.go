package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"car-analyzer-go/src/analyze"
	"car-analyzer-go/src/configs"
	"car-analyzer-go/src/configs/server"
	"car-analyzer-go/src/core/providers/vlllm"
	"car-analyzer-go/src/core/utils"

	// 导入所有VLLLM providers以确保init函数被调用
	_ "car-analyzer-go/src/core/providers/vlllm/gemini"
	_ "car-analyzer-go/src/core/providers/vlllm/ollama"
	_ "car-analyzer-go/src/core/providers/vlllm/openai"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	// 加载配置,默认使用.config.yaml
	config, configPath, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 初始化日志系统
	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", configPath))

	return config, logger, nil
}

func NewAnalyzeService(config *configs.Config, logger *utils.Logger) (*analyze.DefaultAnalyzeService, error) {
	name, vlllmConfig, err := config.SelectedVLLM()
	if err != nil {
		return nil, err
	}

	provider, err := vlllm.Create(&vlllmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("VLLLM provider %s 初始化失败: %w", name, err)
	}
	logger.Info(fmt.Sprintf("VLLLM provider %s 初始化成功", name), map[string]interface{}{
		"type":  provider.Name(),
		"model": provider.ModelName(),
	})

	return analyze.NewDefaultAnalyzeService(config, provider, logger)
}

func StartHttpServer(config *configs.Config, logger *utils.Logger, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	router := server.NewEngine(config)

	// API路由全部挂载到/api前缀下
	apiGroup := router.Group("/api")

	analyzeService, err := NewAnalyzeService(config, logger)
	if err != nil {
		logger.Error("Analyze 服务初始化失败", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	services := []server.Service{analyzeService}
	for _, svc := range services {
		if err := svc.Start(groupCtx, router, apiGroup); err != nil {
			logger.Error("服务启动失败", map[string]interface{}{"error": err.Error()})
			return nil, err
		}
	}

	// HTTP Server（支持优雅关机）
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Web.IP, strconv.Itoa(config.Web.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s", httpServer.Addr))

		// 在单独的 goroutine 中监听关闭信号
		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP服务关闭失败", map[string]interface{}{"error": err.Error()})
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
			_ = analyzeService.Cleanup()
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", map[string]interface{}{"error": err.Error()})
			return err
		}
		return nil
	})

	return httpServer, nil
}

func GracefulShutdown(cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group) {
	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	// 等待信号，或者服务自行退出（例如端口被占用）
	select {
	case sig := <-sigChan:
		logger.Info(fmt.Sprintf("接收到系统信号: %v，开始优雅关闭服务", sig))
	case err := <-done:
		if err != nil {
			logger.Error("服务异常退出", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		return
	}

	// 取消上下文，通知所有服务开始关闭
	cancel()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("服务关闭过程中出现错误", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		logger.Info("所有服务已优雅关闭")
	case <-time.After(15 * time.Second):
		logger.Error("服务关闭超时，强制退出")
		os.Exit(1)
	}
}

func main() {
	// 加载 .env 文件，配置文件中的 ${VAR} 依赖这些环境变量
	envErr := godotenv.Load()

	// 加载配置和初始化日志系统
	config, logger, err := LoadConfigAndLogger()
	if err != nil {
		fmt.Println("加载配置或初始化日志系统失败:", err)
		os.Exit(1)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	// 创建可取消的上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, groupCtx := errgroup.WithContext(ctx)

	if _, err := StartHttpServer(config, logger, g, groupCtx); err != nil {
		logger.Error("启动服务失败", map[string]interface{}{"error": err.Error()})
		cancel()
		os.Exit(1)
	}

	// 启动优雅关机处理
	GracefulShutdown(cancel, logger, g)

	logger.Info("程序已成功退出")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eos-watcher/internal/watcher"
	"eos-watcher/internal/watcher/config"
	"eos-watcher/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	tp := logger.InitTrace("eos-watcher", "watcher", cfg.Trace.SampleRatio)
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")

	// 创建 root logger 并注入 trace 上下文
	rootLogger, err := logger.NewLogger("watcher", cfg.Log.Options())
	if err != nil {
		panic(err)
	}
	tl := logger.WithTrace(ctx, rootLogger)

	// 启动配置热加载监听
	go config.WatchConfig(&cfg)

	core, err := watcher.New(ctx, cfg, tl)
	if err != nil {
		tl.Fatal("Failed to initialize watcher", zap.Error(err))
	}
	if err := core.Setup(ctx); err != nil {
		core.Close()
		tl.Fatal("Failed to set up watcher", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		tl.Info("Starting eos-watcher...")
		core.Start(ctx)
	}()

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tl.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	core.Stop(stopCtx)

	span.End()
	_ = tp.Shutdown(stopCtx)
	_ = rootLogger.Sync()
}

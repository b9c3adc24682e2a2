package main

import (
	"context"
	"os"
	"time"

	"eos-watcher/internal/watcher"
	"eos-watcher/internal/watcher/config"
	"eos-watcher/pkg/logger"

	"go.uber.org/zap"
)

// 执行一轮同步后退出，失败返回非 0

func main() {
	startTime := time.Now()
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	logger.InitTrace("eos-watcher", "synconce", cfg.Trace.SampleRatio)
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger, err := logger.NewLogger("synconce", cfg.Log.Options())
	if err != nil {
		panic(err)
	}
	tl := logger.WithTrace(ctx, rootLogger)

	core, err := watcher.New(ctx, cfg, tl)
	if err != nil {
		tl.Error("Failed to initialize watcher", zap.Error(err))
		os.Exit(1)
	}
	if err := core.Setup(ctx); err != nil {
		tl.Error("Failed to set up watcher", zap.Error(err))
		core.Close()
		os.Exit(1)
	}

	tl.Info("Running one balance sync cycle...")
	if err := core.RunCycle(ctx); err != nil {
		tl.Error("Balance sync failed", zap.Error(err))
		core.Close()
		os.Exit(1)
	}
	core.Close()
	tl.Info("Task completed successfully", zap.Duration("taken_time", time.Since(startTime)))
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lisuiheng/es8311-go/core"
	"github.com/lisuiheng/es8311-go/logger"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

// 收到信号后等待传输循环退出的最长时间
const shutdownTimeout = 3 * time.Second

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	os.Exit(run(os.Args[1:], sigChan))
}

// run 返回进程退出码。日志文件在所有返回路径上都会关闭
func run(args []string, sigChan <-chan os.Signal) int {
	// 定义命令行参数
	fs := flag.NewFlagSet("es8311-demo", flag.ContinueOnError)
	configPath := fs.String("c", "", "Path to config file (default searches ./config.yaml, ./config/config.yaml, /etc/es8311/config.yaml)")
	debug := fs.Bool("debug", false, "Force debug logging to stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 加载配置
	cfg, err := core.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		return 1
	}

	// 初始化日志
	logCfg := logger.Config{Level: cfg.Logging.Level, Outputs: cfg.Logging.Outputs}
	if *debug {
		logCfg = logger.Config{Level: "debug", Outputs: []string{"stdout"}}
	}
	if err := logger.Init(logCfg); err != nil {
		logger.Error("Failed to initialize logger", "error", err)
		return 1
	}
	defer logger.Close()

	logger.Info("i2s es8311 codec example start",
		"mode", cfg.Mode,
		"board", cfg.Board.Type,
		"backend", cfg.Transport.Backend)

	app, err := core.NewApp(cfg, logger.Logger())
	if err != nil {
		logger.Error("Failed to create app", "error", err)
		return 1
	}

	// 启动阶段的错误全部是致命的
	if err := app.Setup(); err != nil {
		logger.Error("Startup failed", "error", err, "fatal", status.IsFatal(err))
		_ = app.Close()
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 传输循环独占两个通道
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Transfer loop aborted", "error", err, "reason", status.Reason(err))
			_ = app.Close()
			return 1
		}
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", "signal", sig)
		cancel()
		select {
		case err := <-errChan:
			if err != nil {
				logger.Warn("Transfer loop stopped with error", "error", err)
			}
		case <-time.After(shutdownTimeout):
			logger.Warn("Transfer loop did not stop in time")
			logger.Info("Service shutdown completed")
			return 0
		}
	}

	if err := app.Close(); err != nil {
		logger.Error("Failed to close app", "error", err)
	}
	logger.Info("Service shutdown completed")
	return 0
}

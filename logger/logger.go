package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	globalLogger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	files        []*os.File
	mu           sync.Mutex
)

type Config struct {
	Level   string   `json:"level" yaml:"level" mapstructure:"level"`       // debug/info/warn/error/none
	Outputs []string `json:"outputs" yaml:"outputs" mapstructure:"outputs"` // stdout/file path
}

// New 按配置创建 logger，返回需要在退出时关闭的文件
func New(cfg Config) (*slog.Logger, []*os.File, error) {
	// 设置日志级别
	level := slog.LevelInfo
	switch cfg.Level {
	case "", "info":
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "none":
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil
	default:
		return nil, nil, fmt.Errorf("unexpected log level %q", cfg.Level)
	}

	// 创建多个输出writer
	var writers []io.Writer
	var opened []*os.File
	for _, output := range cfg.Outputs {
		switch output {
		case "", "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			// 确保目录存在
			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				closeAll(opened)
				return nil, nil, fmt.Errorf("create log dir: %w", err)
			}

			// 打开或创建日志文件
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				closeAll(opened)
				return nil, nil, fmt.Errorf("open log file: %w", err)
			}
			writers = append(writers, file)
			opened = append(opened, file)
		}
	}

	// 如果没有指定输出，默认使用stdout
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	l := slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	}))
	return l, opened, nil
}

// Init 替换全局 logger
func Init(cfg Config) error {
	l, opened, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	closeAll(files)
	globalLogger = l
	files = opened
	return nil
}

// Close 关闭日志文件
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeAll(files)
	files = nil
}

func closeAll(fs []*os.File) {
	for _, f := range fs {
		_ = f.Close()
	}
}

func Debug(msg string, args ...interface{}) {
	Logger().Debug(msg, args...)
}

func Info(msg string, args ...interface{}) {
	Logger().Info(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger().Warn(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger().Error(msg, args...)
}

func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

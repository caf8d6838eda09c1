package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lisuiheng/es8311-go/pkg/status"
)

// DefaultEchoBufferSize 是一次读取的字节数
const DefaultEchoBufferSize = 2400

// EchoLoop 把接收通道读到的数据原样写回发送通道
type EchoLoop struct {
	rx      Reader
	tx      Writer
	buf     []byte
	timeout time.Duration
	logger  *slog.Logger
}

var _ Loop = (*EchoLoop)(nil)

func NewEchoLoop(rx Reader, tx Writer, bufSize int, timeout time.Duration, logger *slog.Logger) (*EchoLoop, error) {
	if bufSize <= 0 {
		return nil, fmt.Errorf("echo buffer size %d: %w", bufSize, status.ErrNoMem)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EchoLoop{
		rx:      rx,
		tx:      tx,
		buf:     make([]byte, bufSize),
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (e *EchoLoop) Name() string { return string(ModeEcho) }

func (e *EchoLoop) Run(ctx context.Context) error {
	e.logger.Info("[echo] Echo start")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := e.echoOnce(); err != nil {
			return err
		}
	}
}

func (e *EchoLoop) echoOnce() error {
	clear(e.buf)

	read, err := e.rx.Read(e.buf, e.timeout)
	if err != nil {
		e.logger.Error("[echo] i2s read failed", "reason", status.Reason(err))
		return status.NewFatal("echo read", err)
	}

	written, err := e.tx.Write(e.buf, e.timeout)
	if err != nil {
		e.logger.Error("[echo] i2s write failed", "reason", status.Reason(err))
		return status.NewFatal("echo write", err)
	}

	if read != written {
		e.logger.Warn("[echo] read/write size mismatch", "read", read, "written", written)
	}
	return nil
}

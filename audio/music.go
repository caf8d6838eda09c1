package audio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lisuiheng/es8311-go/i2s"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

// ErrShortWrite 表示还有数据时写入返回了 0 字节
var ErrShortWrite = errors.New("write accepted zero bytes")

// MusicLoop 循环播放一段 PCM 数据
type MusicLoop struct {
	tx     TxChannel
	asset  []byte
	delay  time.Duration
	cursor int
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

var _ Loop = (*MusicLoop)(nil)

func NewMusicLoop(tx TxChannel, asset []byte, delay time.Duration, logger *slog.Logger) *MusicLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &MusicLoop{
		tx:     tx,
		asset:  asset,
		delay:  delay,
		logger: logger,
		sleep:  sleepContext,
	}
}

func (m *MusicLoop) Name() string { return string(ModeMusic) }

// Cursor 返回下一次要发送的字节在 asset 中的位置
func (m *MusicLoop) Cursor() int { return m.cursor }

func (m *MusicLoop) Run(ctx context.Context) error {
	if len(m.asset) == 0 {
		return status.NewFatal("music", status.ErrInvalidArg)
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := m.playOnce(); err != nil {
			return err
		}
		if err := m.sleep(ctx, m.delay); err != nil {
			return nil
		}
	}
}

// playOnce 预加载、使能并把 asset 剩余部分全部写出，最后把游标归零
func (m *MusicLoop) playOnce() error {
	if err := m.tx.Disable(); err != nil {
		m.logger.Error("[music] i2s channel disable failed", "reason", status.Reason(err))
		return status.NewFatal("music disable", err)
	}
	n, err := m.tx.Preload(m.asset[m.cursor:])
	if err != nil {
		m.logger.Error("[music] i2s preload failed", "reason", status.Reason(err))
		return status.NewFatal("music preload", err)
	}
	m.cursor += n
	if err := m.tx.Enable(); err != nil {
		m.logger.Error("[music] i2s channel enable failed", "reason", status.Reason(err))
		return status.NewFatal("music enable", err)
	}

	for m.cursor < len(m.asset) {
		n, err := m.tx.Write(m.asset[m.cursor:], i2s.WaitForever)
		if err != nil {
			m.logger.Error("[music] i2s write failed", "reason", status.Reason(err))
			return status.NewFatal("music write", err)
		}
		if n == 0 {
			m.logger.Error("[music] i2s music play failed")
			return status.NewFatal("music write", ErrShortWrite)
		}
		m.cursor += n
	}

	m.logger.Info("[music] i2s music played", "bytes", len(m.asset))
	m.cursor = 0
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

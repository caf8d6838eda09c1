package i2s

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoBackend 通过 miniaudio 双工设备收发数据
type MalgoBackend struct {
	logger *slog.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

var _ Backend = (*MalgoBackend)(nil)

func NewMalgoBackend(logger *slog.Logger) *MalgoBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MalgoBackend{logger: logger}
}

func (b *MalgoBackend) Name() string { return "malgo" }

func malgoFormat(width DataBitWidth) (malgo.FormatType, error) {
	switch width {
	case DataBitWidth16:
		return malgo.FormatS16, nil
	case DataBitWidth24:
		return malgo.FormatS24, nil
	case DataBitWidth32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("unsupported bit width %d", width)
	}
}

func (b *MalgoBackend) Start(cfg StdConfig, dma *DMA) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		// Stop 之后再次使能，设备已存在
		if err := b.device.Start(); err != nil {
			return fmt.Errorf("failed to start audio device: %w", err)
		}
		return nil
	}

	format, err := malgoFormat(cfg.Slot.DataBitWidth)
	if err != nil {
		return err
	}

	// 初始化malgo上下文
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		b.logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	frames := dma.PeriodBytes / cfg.FrameBytes()
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = uint32(cfg.Slot.SlotMode)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(cfg.Slot.SlotMode)
	deviceConfig.SampleRate = uint32(cfg.Clock.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(frames)
	deviceConfig.Periods = uint32(dma.TX.Cap() / dma.PeriodBytes)

	// 双工回调：输出取自发送缓冲区，输入放入接收缓冲区
	onData := func(out, in []byte, _ uint32) {
		dma.FillTX(out)
		dma.PushRX(in)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to initialize audio device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start audio device: %w", err)
	}

	b.ctx, b.device = ctx, device
	b.logger.Info("Audio device started",
		"backend", "malgo",
		"sample_rate", cfg.Clock.SampleRate,
		"channels", cfg.Slot.SlotMode,
		"period_frames", frames)
	return nil
}

func (b *MalgoBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return nil
	}
	if err := b.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio device: %w", err)
	}
	return nil
}

func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		b.device.Uninit()
		b.device = nil
	}
	if b.ctx != nil {
		err := b.ctx.Uninit()
		b.ctx.Free()
		b.ctx = nil
		if err != nil {
			return fmt.Errorf("failed to uninit audio context: %w", err)
		}
	}
	return nil
}

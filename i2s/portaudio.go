package i2s

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend 使用 PortAudio 阻塞流收发 16 位数据
type PortAudioBackend struct {
	logger *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	in     []int16
	out    []int16
	stop   chan struct{}
	done   chan struct{}
}

var _ Backend = (*PortAudioBackend)(nil)

func NewPortAudioBackend(logger *slog.Logger) *PortAudioBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioBackend{logger: logger}
}

func (b *PortAudioBackend) Name() string { return "portaudio" }

func (b *PortAudioBackend) Start(cfg StdConfig, dma *DMA) error {
	if cfg.Slot.DataBitWidth != DataBitWidth16 {
		return fmt.Errorf("portaudio backend supports 16 bit only, got %d", cfg.Slot.DataBitWidth)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream == nil {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}

		channels := int(cfg.Slot.SlotMode)
		frames := dma.PeriodBytes / cfg.FrameBytes()
		b.in = make([]int16, frames*channels)
		b.out = make([]int16, frames*channels)

		stream, err := portaudio.OpenDefaultStream(
			channels,
			channels,
			float64(cfg.Clock.SampleRate),
			frames,
			b.in,
			b.out,
		)
		if err != nil {
			portaudio.Terminate()
			return fmt.Errorf("failed to open audio stream: %w", err)
		}
		b.stream = stream
	}

	if err := b.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.pump(dma, b.stop, b.done)

	b.logger.Info("Audio device started",
		"backend", "portaudio",
		"sample_rate", cfg.Clock.SampleRate,
		"channels", cfg.Slot.SlotMode,
		"period_frames", len(b.out)/int(cfg.Slot.SlotMode))
	return nil
}

// pump 按周期交替读写阻塞流
func (b *PortAudioBackend) pump(dma *DMA, stop, done chan struct{}) {
	defer close(done)

	inBytes := make([]byte, len(b.in)*2)
	outBytes := make([]byte, len(b.out)*2)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := b.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			b.logger.Error("portaudio read failed", "error", err)
			return
		}
		for i, s := range b.in {
			binary.LittleEndian.PutUint16(inBytes[i*2:], uint16(s))
		}
		dma.PushRX(inBytes)

		dma.FillTX(outBytes)
		for i := range b.out {
			b.out[i] = int16(binary.LittleEndian.Uint16(outBytes[i*2:]))
		}
		if err := b.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			b.logger.Error("portaudio write failed", "error", err)
			return
		}
	}
}

func (b *PortAudioBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil || b.stop == nil {
		return nil
	}
	close(b.stop)
	<-b.done
	b.stop, b.done = nil, nil
	if err := b.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio stream: %w", err)
	}
	return nil
}

func (b *PortAudioBackend) Close() error {
	if err := b.Stop(); err != nil {
		b.logger.Error("failed to stop audio stream", "error", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return nil
	}
	if err := b.stream.Close(); err != nil {
		b.logger.Error("failed to close audio stream", "error", err)
	}
	b.stream = nil
	return portaudio.Terminate()
}

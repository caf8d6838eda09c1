package core

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lisuiheng/es8311-go/audio"
	"github.com/lisuiheng/es8311-go/i2s"
)

// newBackend 按配置创建 I2S 后端，sink 不为 nil 时需要在退出时关闭
func newBackend(cfg Config, logger *slog.Logger) (i2s.Backend, io.Closer, error) {
	switch cfg.Transport.Backend {
	case "sim":
		sim := &i2s.SimBackend{}
		if cfg.Transport.SimSource == "tone" {
			sim.Source = &i2s.ToneSource{
				SampleRate: cfg.Audio.SampleRate,
				Frequency:  cfg.Transport.SimToneHz,
				Amplitude:  0.5,
			}
		}
		var sink io.Closer
		if cfg.Transport.SimSink != "" {
			w, err := audio.NewWAVSink(cfg.Transport.SimSink, cfg.Audio.SampleRate, 2)
			if err != nil {
				return nil, nil, err
			}
			sim.Sink = w
			sink = w
			logger.Info("Recording transmitted audio", "file", cfg.Transport.SimSink)
		}
		return sim, sink, nil
	case "malgo":
		return i2s.NewMalgoBackend(logger), nil, nil
	case "portaudio":
		return i2s.NewPortAudioBackend(logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("backend %q: %w", cfg.Transport.Backend, ErrUnsupportedBackend)
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lisuiheng/es8311-go/audio"
	"github.com/lisuiheng/es8311-go/board"
	"github.com/lisuiheng/es8311-go/codec/es8311"
	"github.com/lisuiheng/es8311-go/hal"
	"github.com/lisuiheng/es8311-go/i2s"
	"github.com/lisuiheng/es8311-go/pkg/status"
	"periph.io/x/conn/v3/physic"
)

// App 持有板子、I2S 通道、编解码器和选定的传输循环
type App struct {
	config  Config
	logger  *slog.Logger
	hw      *board.SimHardware
	board   board.Board
	backend i2s.Backend
	sink    io.Closer
	open    es8311.Opener

	tx    *i2s.Channel
	rx    *i2s.Channel
	codec es8311.Codec
	loop  audio.Loop
}

// NewApp 创建应用，此时还没有触碰任何硬件
func NewApp(cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hw := board.NewSimHardware(cfg.I2C.Address)

	var b board.Board
	switch cfg.Board.Type {
	case "direct":
		b = board.NewDirect(cfg.Board.Pins, hw.Hardware, log)
	case "bsp":
		bsp, err := board.NewBSP(cfg.Board.Name, hw.Hardware, log)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedBoard, err)
		}
		b = bsp
	default:
		return nil, fmt.Errorf("board type %q: %w", cfg.Board.Type, ErrUnsupportedBoard)
	}

	backend, sink, err := newBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	return &App{
		config:  cfg,
		logger:  log,
		hw:      hw,
		board:   b,
		backend: backend,
		sink:    sink,
	}, nil
}

// Setup 依次完成功放上电、I2S 初始化、编解码器配置，并创建传输循环。
// 返回的错误都是 Fatal 级别
func (a *App) Setup() error {
	cfg := a.config

	a.board.PowerUp()

	std := i2s.StdConfig{
		Clock: i2s.ClockConfig{SampleRate: cfg.Audio.SampleRate, MCLKMultiple: cfg.Audio.MCLKMultiple},
		Slot:  i2s.PhilipsSlotDefault(i2s.DataBitWidth16, i2s.SlotModeStereo),
	}
	chanCfg := i2s.ChanConfig{
		ID:          0,
		Role:        i2s.RoleMaster,
		DMADescNum:  cfg.Transport.DMADescNum,
		DMAFrameNum: cfg.Transport.DMAFrameNum,
		AutoClear:   true,
	}
	tx, rx, err := a.board.InitAudio(std, chanCfg, a.backend)
	if err != nil {
		a.logger.Error("i2s driver init failed", "error", err)
		return status.NewFatal("i2s driver init failed", err)
	}
	a.tx, a.rx = tx, rx

	codec, err := a.setupCodec()
	if err != nil {
		a.logger.Error("es8311 codec init failed", "error", err)
		return status.NewFatal("es8311 codec init failed", err)
	}
	a.codec = codec
	if d, ok := codec.(*es8311.Device); ok {
		d.DumpRegisters()
	}

	loop, err := a.newLoop()
	if err != nil {
		return status.NewFatal("create "+string(cfg.Mode)+" loop", err)
	}
	a.loop = loop

	a.logger.Info("Audio pipeline ready",
		"board", a.board.Name(),
		"backend", a.backend.Name(),
		"mode", cfg.Mode)
	return nil
}

func (a *App) setupCodec() (es8311.Codec, error) {
	cfg := a.config
	pins := a.board.Pins()

	setupCfg := es8311.SetupConfig{
		Bus: hal.BusConfig{
			Port:      cfg.I2C.Port,
			SDA:       pins.I2CSDA,
			SCL:       pins.I2CSCL,
			PullUp:    true,
			Frequency: physic.Frequency(cfg.I2C.Frequency) * physic.Hertz,
		},
		Address:      cfg.I2C.Address,
		SampleRate:   cfg.Audio.SampleRate,
		MCLKMultiple: cfg.Audio.MCLKMultiple,
		Volume:       cfg.Audio.Volume,
		DigitalMic:   cfg.Audio.DigitalMic,
	}
	// 只有回声模式需要设置麦克风增益
	if cfg.Mode == audio.ModeEcho {
		gain, err := es8311.MicGainFromDB(cfg.Audio.MicGainDB)
		if err != nil {
			return nil, err
		}
		setupCfg.MicGain = &gain
	}

	if a.open != nil {
		return es8311.SetupWith(a.board.Bus(), setupCfg, a.logger, a.open)
	}
	return es8311.Setup(a.board.Bus(), setupCfg, a.logger)
}

func (a *App) newLoop() (audio.Loop, error) {
	cfg := a.config
	switch cfg.Mode {
	case audio.ModeMusic:
		asset, err := audio.LoadAsset(cfg.Music.File, cfg.Audio.SampleRate, 2)
		if err != nil {
			return nil, err
		}
		return audio.NewMusicLoop(a.tx, asset, cfg.Music.Delay, a.logger), nil
	case audio.ModeEcho:
		echo, err := audio.NewEchoLoop(a.rx, a.tx, cfg.Echo.BufferSize, cfg.Echo.Timeout, a.logger)
		if err != nil {
			return nil, err
		}
		return echo, nil
	default:
		return nil, fmt.Errorf("mode %q: %w", cfg.Mode, ErrUnsupportedMode)
	}
}

// Run 运行传输循环，只在 ctx 取消或出现致命错误时返回
func (a *App) Run(ctx context.Context) error {
	if a.loop == nil {
		return status.NewFatal("run", status.ErrInvalidState)
	}
	a.logger.Info("Starting transfer loop", "loop", a.loop.Name())
	return a.loop.Run(ctx)
}

// Close 停止并释放通道。必须在 Run 返回之后调用
func (a *App) Close() error {
	var errs []error
	for _, ch := range []*i2s.Channel{a.tx, a.rx} {
		if ch == nil {
			continue
		}
		if err := ch.Disable(); err != nil && !errors.Is(err, status.ErrInvalidState) {
			errs = append(errs, err)
		}
		if err := ch.Delete(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.tx == nil && a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	return errors.Join(errs...)
}

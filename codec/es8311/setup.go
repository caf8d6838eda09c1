package es8311

import (
	"fmt"
	"log/slog"

	"github.com/lisuiheng/es8311-go/hal"
	"github.com/lisuiheng/es8311-go/pkg/status"
	"periph.io/x/conn/v3/i2c"
)

// Codec 是启动流程需要的编解码器操作
type Codec interface {
	Init(clk ClockConfig, resIn, resOut Resolution) error
	SampleFrequencyConfig(mclk, rate int) error
	SetVolume(volume int) (int, error)
	ConfigureMicrophone(digital bool) error
	SetMicrophoneGain(gain MicGain) error
}

var _ Codec = (*Device)(nil)

// Opener 在总线上创建编解码器上下文
type Opener func(bus i2c.Bus, addr uint16, logger *slog.Logger) (Codec, error)

func openDevice(bus i2c.Bus, addr uint16, logger *slog.Logger) (Codec, error) {
	return New(bus, addr, logger)
}

// Step 启动流程中的一步
type Step int

const (
	StepBus Step = iota
	StepCreate
	StepInit
	StepFrequency
	StepVolume
	StepMicrophone
	StepMicGain
)

func (s Step) String() string {
	switch s {
	case StepBus:
		return "config i2c"
	case StepCreate:
		return "es8311 create"
	case StepInit:
		return "es8311 init"
	case StepFrequency:
		return "set es8311 sample frequency"
	case StepVolume:
		return "set es8311 volume"
	case StepMicrophone:
		return "set es8311 microphone"
	case StepMicGain:
		return "set es8311 microphone gain"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Severity 返回该步骤失败时的严重级别
func (s Step) Severity() status.Severity {
	switch s {
	case StepCreate, StepInit:
		return status.Fatal
	default:
		return status.Recoverable
	}
}

// SetupConfig 编解码器启动参数
type SetupConfig struct {
	Bus          hal.BusConfig
	Address      uint16
	SampleRate   int
	MCLKMultiple int
	Volume       int
	DigitalMic   bool
	// MicGain 为 nil 时不设置麦克风增益
	MicGain *MicGain
}

// Setup 按顺序初始化总线和编解码器
func Setup(bus hal.Bus, cfg SetupConfig, logger *slog.Logger) (Codec, error) {
	return setup(bus, cfg, logger, openDevice)
}

// SetupWith 与 Setup 相同，但使用 open 创建编解码器上下文
func SetupWith(bus hal.Bus, cfg SetupConfig, logger *slog.Logger, open Opener) (Codec, error) {
	return setup(bus, cfg, logger, open)
}

func setup(bus hal.Bus, cfg SetupConfig, logger *slog.Logger, open Opener) (Codec, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fail := func(step Step, err error) error {
		logger.Error(step.String()+" failed", "error", err, "severity", step.Severity())
		return &status.Error{Op: step.String(), Severity: step.Severity(), Err: err}
	}

	if err := bus.Configure(cfg.Bus); err != nil {
		return nil, fail(StepBus, err)
	}

	codec, err := open(bus, cfg.Address, logger)
	if err != nil {
		return nil, fail(StepCreate, err)
	}
	if codec == nil {
		return nil, fail(StepCreate, status.ErrNoMem)
	}

	mclk := cfg.SampleRate * cfg.MCLKMultiple
	clk := ClockConfig{
		MCLKFromMCLKPin: true,
		MCLKFrequency:   mclk,
		SampleFrequency: cfg.SampleRate,
	}
	if err := codec.Init(clk, Resolution16, Resolution16); err != nil {
		return nil, fail(StepInit, err)
	}

	if err := codec.SampleFrequencyConfig(mclk, cfg.SampleRate); err != nil {
		return nil, fail(StepFrequency, err)
	}

	volume, err := codec.SetVolume(cfg.Volume)
	if err != nil {
		return nil, fail(StepVolume, err)
	}

	if err := codec.ConfigureMicrophone(cfg.DigitalMic); err != nil {
		return nil, fail(StepMicrophone, err)
	}

	if cfg.MicGain != nil {
		if err := codec.SetMicrophoneGain(*cfg.MicGain); err != nil {
			return nil, fail(StepMicGain, err)
		}
	}

	logger.Info("es8311 configured",
		"sample_rate", cfg.SampleRate,
		"mclk", mclk,
		"volume", volume,
		"mic_gain", cfg.MicGain != nil)
	return codec, nil
}

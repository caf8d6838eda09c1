// Package board 负责板级初始化：功放使能、I2S 通道分配和引脚映射
package board

import (
	"fmt"
	"log/slog"

	"github.com/lisuiheng/es8311-go/hal"
	"github.com/lisuiheng/es8311-go/i2s"
	"periph.io/x/conn/v3/gpio"
)

// Pins 板上音频相关的引脚
type Pins struct {
	PA     int `mapstructure:"pa"`
	I2CSDA int `mapstructure:"i2c_sda"`
	I2CSCL int `mapstructure:"i2c_scl"`
	MCLK   int `mapstructure:"mclk"`
	BCLK   int `mapstructure:"bclk"`
	WS     int `mapstructure:"ws"`
	DOUT   int `mapstructure:"dout"`
	DIN    int `mapstructure:"din"`
}

// GPIO 返回 I2S 引脚配置，时钟线均不反相
func (p Pins) GPIO() i2s.GPIOConfig {
	return i2s.GPIOConfig{
		MCLK: p.MCLK,
		BCLK: p.BCLK,
		WS:   p.WS,
		DOUT: p.DOUT,
		DIN:  p.DIN,
	}
}

// Hardware 是板子底层的引脚和总线
type Hardware struct {
	Pin func(num int) gpio.PinIO
	Bus hal.Bus
}

// Board 把引脚、控制总线和 I2S 通道组合在一起
type Board interface {
	Name() string
	Pins() Pins
	Bus() hal.Bus
	// PowerUp 在通道分配之前执行的板级上电，直接控制时打开功放
	PowerUp()
	// InitAudio 分配、配置并使能一对 I2S 通道
	InitAudio(std i2s.StdConfig, chanCfg i2s.ChanConfig, backend i2s.Backend) (tx, rx *i2s.Channel, err error)
}

// EnableAmplifier 把 pin 切成输出并拉高，上下拉保持不变。
// 失败不影响启动，只记一条 debug 日志
func EnableAmplifier(pin gpio.PinIO, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := pin.Out(gpio.High); err != nil {
		logger.Debug("amplifier pin configure failed", "pin", pin.String(), "error", err)
	}
}

// initChannels 分配通道，两个方向使用同一配置并依次使能
func initChannels(std i2s.StdConfig, chanCfg i2s.ChanConfig, backend i2s.Backend, logger *slog.Logger) (*i2s.Channel, *i2s.Channel, error) {
	tx, rx, err := i2s.NewChannelPair(chanCfg, backend, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("new channel: %w", err)
	}
	if err := tx.InitStdMode(std); err != nil {
		return nil, nil, fmt.Errorf("init tx std mode: %w", err)
	}
	if err := rx.InitStdMode(std); err != nil {
		return nil, nil, fmt.Errorf("init rx std mode: %w", err)
	}
	if err := tx.Enable(); err != nil {
		return nil, nil, fmt.Errorf("enable tx: %w", err)
	}
	if err := rx.Enable(); err != nil {
		return nil, nil, fmt.Errorf("enable rx: %w", err)
	}
	return tx, rx, nil
}

// Direct 使用配置中给出的引脚，功放由独立 GPIO 控制
type Direct struct {
	pins   Pins
	hw     Hardware
	logger *slog.Logger
}

var _ Board = (*Direct)(nil)

func NewDirect(pins Pins, hw Hardware, logger *slog.Logger) *Direct {
	if logger == nil {
		logger = slog.Default()
	}
	return &Direct{pins: pins, hw: hw, logger: logger}
}

func (d *Direct) Name() string { return "direct" }
func (d *Direct) Pins() Pins   { return d.pins }
func (d *Direct) Bus() hal.Bus { return d.hw.Bus }

func (d *Direct) PowerUp() {
	EnableAmplifier(d.hw.Pin(d.pins.PA), d.logger)
}

func (d *Direct) InitAudio(std i2s.StdConfig, chanCfg i2s.ChanConfig, backend i2s.Backend) (*i2s.Channel, *i2s.Channel, error) {
	std.GPIO = d.pins.GPIO()
	return initChannels(std, chanCfg, backend, d.logger)
}

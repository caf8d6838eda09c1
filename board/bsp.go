package board

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/lisuiheng/es8311-go/hal"
	"github.com/lisuiheng/es8311-go/i2s"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

// 已知开发板的引脚表
var presets = map[string]Pins{
	"esp32-s3-korvo-2": {PA: 48, I2CSDA: 17, I2CSCL: 18, MCLK: 16, BCLK: 9, WS: 45, DOUT: 8, DIN: 10},
	"esp32-s3-box":     {PA: 46, I2CSDA: 8, I2CSCL: 18, MCLK: 2, BCLK: 17, WS: 47, DOUT: 15, DIN: 16},
	"esp32-c3-lyra":    {PA: 18, I2CSDA: 8, I2CSCL: 9, MCLK: 2, BCLK: 3, WS: 4, DOUT: 5, DIN: 6},
}

// Presets 返回已知开发板名称
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BSP 使用开发板预设的引脚，使能通道后由板级逻辑打开功放
type BSP struct {
	name   string
	pins   Pins
	hw     Hardware
	logger *slog.Logger
}

var _ Board = (*BSP)(nil)

func NewBSP(name string, hw Hardware, logger *slog.Logger) (*BSP, error) {
	pins, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown board %q: %w", name, status.ErrInvalidArg)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BSP{name: name, pins: pins, hw: hw, logger: logger}, nil
}

func (b *BSP) Name() string { return b.name }
func (b *BSP) Pins() Pins   { return b.pins }
func (b *BSP) Bus() hal.Bus { return b.hw.Bus }

// PowerUp 不做任何事，功放在 InitAudio 中打开
func (b *BSP) PowerUp() {}

func (b *BSP) InitAudio(std i2s.StdConfig, chanCfg i2s.ChanConfig, backend i2s.Backend) (*i2s.Channel, *i2s.Channel, error) {
	b.logger.Info("Using BSP for HW configuration", "board", b.name)
	std.GPIO = b.pins.GPIO()
	tx, rx, err := initChannels(std, chanCfg, backend, b.logger)
	if err != nil {
		return nil, nil, err
	}
	EnableAmplifier(b.hw.Pin(b.pins.PA), b.logger)
	return tx, rx, nil
}

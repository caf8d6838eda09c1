// Package i2s 提供双向 I2S 通道：一个发送通道和一个接收通道共享时钟，
// 由可替换的后端把 DMA 缓冲区里的数据送到真实或模拟的音频设备。
package i2s

import (
	"fmt"

	"github.com/lisuiheng/es8311-go/pkg/status"
)

// Role 时钟主从角色
type Role uint8

const (
	RoleMaster Role = iota
	RoleSlave
)

func (r Role) String() string {
	if r == RoleSlave {
		return "slave"
	}
	return "master"
}

// ChanConfig 通道分配参数
type ChanConfig struct {
	ID          int
	Role        Role
	DMADescNum  int
	DMAFrameNum int
	// AutoClear 为 true 时发送欠载输出静音
	AutoClear bool
}

// DefaultChanConfig 返回 6 个描述符、每个 240 帧的默认配置
func DefaultChanConfig(id int, role Role) ChanConfig {
	return ChanConfig{
		ID:          id,
		Role:        role,
		DMADescNum:  6,
		DMAFrameNum: 240,
	}
}

// Standard 帧格式
type Standard uint8

const (
	StandardPhilips Standard = iota
	StandardMSB
	StandardPCM
)

func (s Standard) String() string {
	switch s {
	case StandardPhilips:
		return "philips"
	case StandardMSB:
		return "msb"
	case StandardPCM:
		return "pcm"
	default:
		return fmt.Sprintf("standard(%d)", int(s))
	}
}

// DataBitWidth 每个采样的位宽
type DataBitWidth uint8

const (
	DataBitWidth16 DataBitWidth = 16
	DataBitWidth24 DataBitWidth = 24
	DataBitWidth32 DataBitWidth = 32
)

// SlotMode 声道模式
type SlotMode uint8

const (
	SlotModeMono   SlotMode = 1
	SlotModeStereo SlotMode = 2
)

type ClockConfig struct {
	SampleRate   int
	MCLKMultiple int
}

// MCLK 返回主时钟频率
func (c ClockConfig) MCLK() int {
	return c.SampleRate * c.MCLKMultiple
}

// DefaultClockConfig 返回 256 倍主时钟的配置
func DefaultClockConfig(rate int) ClockConfig {
	return ClockConfig{SampleRate: rate, MCLKMultiple: 256}
}

type SlotConfig struct {
	Standard     Standard
	DataBitWidth DataBitWidth
	SlotMode     SlotMode
}

// PhilipsSlotDefault 返回 Philips 标准的声道配置
func PhilipsSlotDefault(width DataBitWidth, mode SlotMode) SlotConfig {
	return SlotConfig{Standard: StandardPhilips, DataBitWidth: width, SlotMode: mode}
}

// GPIOConfig 引脚分配，未使用的引脚为 -1
type GPIOConfig struct {
	MCLK int
	BCLK int
	WS   int
	DOUT int
	DIN  int

	InvertMCLK bool
	InvertBCLK bool
	InvertWS   bool
}

// StdConfig 标准模式配置
type StdConfig struct {
	Clock ClockConfig
	Slot  SlotConfig
	GPIO  GPIOConfig
}

// FrameBytes 返回一帧（所有声道）的字节数
func (c StdConfig) FrameBytes() int {
	return int(c.Slot.DataBitWidth) / 8 * int(c.Slot.SlotMode)
}

func (c StdConfig) Validate() error {
	switch {
	case c.Clock.SampleRate <= 0:
		return fmt.Errorf("i2s: sample rate %d: %w", c.Clock.SampleRate, status.ErrInvalidArg)
	case c.Clock.MCLKMultiple <= 0 || c.Clock.MCLKMultiple%128 != 0:
		return fmt.Errorf("i2s: mclk multiple %d: %w", c.Clock.MCLKMultiple, status.ErrInvalidArg)
	}
	switch c.Slot.DataBitWidth {
	case DataBitWidth16, DataBitWidth24, DataBitWidth32:
	default:
		return fmt.Errorf("i2s: data bit width %d: %w", c.Slot.DataBitWidth, status.ErrInvalidArg)
	}
	if c.Slot.SlotMode != SlotModeMono && c.Slot.SlotMode != SlotModeStereo {
		return fmt.Errorf("i2s: slot mode %d: %w", c.Slot.SlotMode, status.ErrInvalidArg)
	}
	if c.GPIO.BCLK < 0 || c.GPIO.WS < 0 {
		return fmt.Errorf("i2s: bclk and ws pins are required: %w", status.ErrInvalidArg)
	}
	if c.GPIO.DOUT < 0 && c.GPIO.DIN < 0 {
		return fmt.Errorf("i2s: no data pin: %w", status.ErrInvalidArg)
	}
	return nil
}

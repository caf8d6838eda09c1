// Package es8311 是 ES8311 单声道音频编解码芯片的 I2C 控制驱动
package es8311

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lisuiheng/es8311-go/hal"
	"github.com/lisuiheng/es8311-go/pkg/status"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
)

// Resolution 串口数据位宽
type Resolution uint8

const (
	Resolution16 Resolution = 16
	Resolution18 Resolution = 18
	Resolution20 Resolution = 20
	Resolution24 Resolution = 24
	Resolution32 Resolution = 32
)

// sdpBits 把位宽编码为 reg09/reg0A 的 [4:2]
func (r Resolution) sdpBits() (uint8, error) {
	switch r {
	case Resolution16:
		return 3 << 2, nil
	case Resolution18:
		return 2 << 2, nil
	case Resolution20:
		return 1 << 2, nil
	case Resolution24:
		return 0, nil
	case Resolution32:
		return 4 << 2, nil
	default:
		return 0, fmt.Errorf("resolution %d: %w", r, status.ErrInvalidArg)
	}
}

// MicGain 麦克风数字增益，6 dB 一档
type MicGain uint8

const (
	MicGain0dB MicGain = iota
	MicGain6dB
	MicGain12dB
	MicGain18dB
	MicGain24dB
	MicGain30dB
	MicGain36dB
	MicGain42dB
)

// MicGainFromDB 把 dB 值换算为档位，向下取整
func MicGainFromDB(db int) (MicGain, error) {
	if db < 0 || db > 42 {
		return 0, fmt.Errorf("mic gain %d dB: %w", db, status.ErrInvalidArg)
	}
	return MicGain(db / 6), nil
}

// ClockConfig 时钟配置
type ClockConfig struct {
	MCLKInverted    bool
	SCLKInverted    bool
	MCLKFromMCLKPin bool // false 表示 MCLK 由 SCLK 派生
	MCLKFrequency   int  // MCLK 来自 MCLK 引脚时有效
	SampleFrequency int
}

const (
	minSampleRate = 8000
	maxSampleRate = 96000
)

// Device 是一个已探测到的 ES8311
type Device struct {
	mu     sync.Mutex
	regs   *mmr.Dev8
	addr   uint16
	mclk   int
	rate   int
	logger *slog.Logger
}

// New 在 bus 的 addr 上创建设备上下文，读取芯片 ID 确认设备存在
func New(bus i2c.Bus, addr uint16, logger *slog.Logger) (*Device, error) {
	if bus == nil {
		return nil, fmt.Errorf("es8311: nil bus: %w", status.ErrInvalidArg)
	}
	if addr != Address0 && addr != Address1 {
		return nil, fmt.Errorf("es8311: address 0x%02x: %w", addr, status.ErrInvalidArg)
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Device{regs: hal.Registers(bus, addr), addr: addr, logger: logger}
	id1, err := d.read(regChipID1)
	if err != nil {
		return nil, fmt.Errorf("es8311: read chip id: %w", err)
	}
	id2, err := d.read(regChipID2)
	if err != nil {
		return nil, fmt.Errorf("es8311: read chip id: %w", err)
	}
	if id1 != chipID1 || id2 != chipID2 {
		return nil, fmt.Errorf("es8311: unexpected chip id %02x%02x: %w", id1, id2, status.ErrNotFound)
	}

	logger.Debug("es8311 detected", "address", fmt.Sprintf("0x%02x", addr))
	return d, nil
}

func (d *Device) read(reg uint8) (uint8, error) {
	return d.regs.ReadUint8(reg)
}

func (d *Device) write(reg, val uint8) error {
	if err := d.regs.WriteUint8(reg, val); err != nil {
		return fmt.Errorf("es8311: write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// update 读-改-写
func (d *Device) update(reg, mask, val uint8) error {
	cur, err := d.read(reg)
	if err != nil {
		return fmt.Errorf("es8311: read reg 0x%02x: %w", reg, err)
	}
	return d.write(reg, (cur&^mask)|(val&mask))
}

// Init 复位芯片，配置时钟、串口格式并打开模拟通路
func (d *Device) Init(clk ClockConfig, resIn, resOut Resolution) error {
	if clk.SampleFrequency < minSampleRate || clk.SampleFrequency > maxSampleRate {
		return fmt.Errorf("es8311: sample rate %d: %w", clk.SampleFrequency, status.ErrInvalidArg)
	}
	if !clk.MCLKFromMCLKPin && resIn != resOut {
		return fmt.Errorf("es8311: mclk from sclk needs equal resolutions: %w", status.ErrInvalidArg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write(regReset, 0x1F); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	if err := d.write(regReset, 0x00); err != nil {
		return err
	}
	if err := d.write(regReset, 0x80); err != nil {
		return err
	}
	for _, w := range powerUpSequence {
		if err := d.write(w.reg, w.val); err != nil {
			return err
		}
	}

	if err := d.configureClock(clk, resOut); err != nil {
		return err
	}
	if err := d.configureFormat(resIn, resOut); err != nil {
		return err
	}

	for _, w := range enableSequence {
		if err := d.write(w.reg, w.val); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) configureClock(clk ClockConfig, res Resolution) error {
	reg01 := uint8(0x3F) // 打开全部时钟
	mclk := clk.MCLKFrequency
	if !clk.MCLKFromMCLKPin {
		reg01 |= clkMCLKFromSCLK
		mclk = clk.SampleFrequency * int(res) * 2
	}
	if clk.MCLKInverted {
		reg01 |= clkMCLKInvert
	}
	if err := d.write(regClkManager, reg01); err != nil {
		return err
	}

	var reg06 uint8
	if clk.SCLKInverted {
		reg06 = bclkInvert
	}
	if err := d.update(regClkBCLK, bclkInvert, reg06); err != nil {
		return err
	}

	return d.sampleFrequencyConfig(mclk, clk.SampleFrequency)
}

func (d *Device) configureFormat(resIn, resOut Resolution) error {
	// 从模式
	if err := d.update(regReset, resetMasterMode, 0); err != nil {
		return err
	}
	in, err := resIn.sdpBits()
	if err != nil {
		return err
	}
	out, err := resOut.sdpBits()
	if err != nil {
		return err
	}
	if err := d.write(regSDPIn, in); err != nil {
		return err
	}
	return d.write(regSDPOut, out)
}

// SampleFrequencyConfig 按 (MCLK, 采样率) 写入分频寄存器
func (d *Device) SampleFrequencyConfig(mclk, rate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sampleFrequencyConfig(mclk, rate)
}

func (d *Device) sampleFrequencyConfig(mclk, rate int) error {
	c, ok := lookupCoeff(mclk, rate)
	if !ok {
		return fmt.Errorf("es8311: no clock coefficients for mclk %d rate %d: %w", mclk, rate, status.ErrInvalidArg)
	}

	if err := d.update(regClkDiv, 0xF8, ((c.preDiv-1)<<5)|(preMultiBits(c.preMulti)<<3)); err != nil {
		return err
	}
	if err := d.write(regClkADCOSR, (c.fsMode<<6)|c.adcOSR); err != nil {
		return err
	}
	if err := d.write(regClkDACOSR, c.dacOSR); err != nil {
		return err
	}
	if err := d.write(regClkADCDAC, ((c.adcDiv-1)<<4)|(c.dacDiv-1)); err != nil {
		return err
	}

	bclk := c.bclkDiv
	if bclk < 19 {
		bclk--
	}
	if err := d.update(regClkBCLK, 0x1F, bclk); err != nil {
		return err
	}
	if err := d.update(regClkLRCKH, 0x0F, c.lrckH); err != nil {
		return err
	}
	if err := d.write(regClkLRCKL, c.lrckL); err != nil {
		return err
	}

	d.mclk, d.rate = mclk, rate
	return nil
}

// Clock 返回最后一次生效的 MCLK 和采样率
func (d *Device) Clock() (mclk, rate int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mclk, d.rate
}

// SetVolume 设置输出音量 (0..100)，返回寄存器换算回来的实际值
func (d *Device) SetVolume(volume int) (int, error) {
	if volume < 0 || volume > 100 {
		return 0, fmt.Errorf("es8311: volume %d: %w", volume, status.ErrInvalidArg)
	}
	reg := 0
	if volume > 0 {
		reg = volume*256/100 - 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write(regDAC32, uint8(reg)); err != nil {
		return 0, err
	}
	return volumeFromReg(uint8(reg)), nil
}

// Volume 读回当前输出音量
func (d *Device) Volume() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, err := d.read(regDAC32)
	if err != nil {
		return 0, fmt.Errorf("es8311: read volume: %w", err)
	}
	return volumeFromReg(reg), nil
}

func volumeFromReg(reg uint8) int {
	if reg == 0 {
		return 0
	}
	return (int(reg) + 1) * 100 / 256
}

// Mute 静音或取消静音 DAC
func (d *Device) Mute(mute bool) error {
	var v uint8
	if mute {
		v = dacMuteMask
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.update(regDAC31, dacMuteMask, v)
}

// ConfigureMicrophone 选择模拟或数字麦克风并设置 ADC 音量
func (d *Device) ConfigureMicrophone(digital bool) error {
	reg14 := uint8(0x1A) // 模拟 MIC1P，PGA 最大
	if digital {
		reg14 |= micDigital
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write(regADC17, 0xC8); err != nil {
		return err
	}
	return d.write(regSystem14, reg14)
}

// SetMicrophoneGain 设置麦克风数字增益
func (d *Device) SetMicrophoneGain(gain MicGain) error {
	if gain > MicGain42dB {
		return fmt.Errorf("es8311: mic gain %d: %w", gain, status.ErrInvalidArg)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(regADC16, uint8(gain))
}

// DumpRegisters 以 debug 级别打印 0x00..0x4A 的寄存器
func (d *Device) DumpRegisters() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for reg := 0; reg <= 0x4A; reg++ {
		v, err := d.read(uint8(reg))
		if err != nil {
			d.logger.Error("es8311 register dump failed", "reg", reg, "error", err)
			return
		}
		d.logger.Debug("es8311 register", "reg", fmt.Sprintf("0x%02x", reg), "value", fmt.Sprintf("0x%02x", v))
	}
}

package hal

import (
	"fmt"
	"sync"

	"github.com/lisuiheng/es8311-go/pkg/status"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// SimBus 是模拟的 I2C 总线，挂载若干寄存器型从设备
type SimBus struct {
	mu         sync.Mutex
	cfg        BusConfig
	configured bool
	devices    map[uint16]*SimDevice
}

var _ Bus = (*SimBus)(nil)

func NewSimBus() *SimBus {
	return &SimBus{devices: make(map[uint16]*SimDevice)}
}

func (b *SimBus) String() string { return "sim-i2c" }

// Attach 在 addr 上挂载一个设备
func (b *SimBus) Attach(addr uint16, dev *SimDevice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[addr] = dev
}

func (b *SimBus) Configure(cfg BusConfig) error {
	if cfg.SDA < 0 || cfg.SCL < 0 || cfg.SDA == cfg.SCL {
		return fmt.Errorf("configure i2c: sda %d scl %d: %w", cfg.SDA, cfg.SCL, status.ErrInvalidArg)
	}
	b.mu.Lock()
	b.cfg = cfg
	b.mu.Unlock()

	if err := b.SetSpeed(cfg.Frequency); err != nil {
		return err
	}

	b.mu.Lock()
	b.configured = true
	b.mu.Unlock()
	return nil
}

func (b *SimBus) SetSpeed(f physic.Frequency) error {
	if f <= 0 || f > physic.MegaHertz {
		return fmt.Errorf("i2c speed %s: %w", f, status.ErrInvalidArg)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Frequency = f
	return nil
}

// Config 返回总线配置
func (b *SimBus) Config() BusConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func (b *SimBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	if !b.configured {
		b.mu.Unlock()
		return fmt.Errorf("i2c tx: %w", status.ErrInvalidState)
	}
	dev, ok := b.devices[addr]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("i2c tx 0x%02x: %w", addr, status.ErrNotFound)
	}
	return dev.Tx(addr, w, r)
}

// SimDevice 是一个 8 位地址、8 位数据的寄存器文件。
// 它本身也是一个 i2c.Bus，忽略地址，可以直接交给驱动或 i2ctest.Record
type SimDevice struct {
	mu     sync.Mutex
	regs   [256]uint8
	writes []RegWrite
}

var _ i2c.Bus = (*SimDevice)(nil)

// RegWrite 记录一次寄存器写入
type RegWrite struct {
	Reg   uint8
	Value uint8
}

// NewSimDevice 用给定的上电默认值创建设备
func NewSimDevice(defaults map[uint8]uint8) *SimDevice {
	d := &SimDevice{}
	for reg, v := range defaults {
		d.regs[reg] = v
	}
	return d
}

func (d *SimDevice) String() string { return "sim-regfile" }

func (d *SimDevice) SetSpeed(physic.Frequency) error { return nil }

// Tx 第一个写入字节是寄存器地址，之后的字节依次写入，读取从同一地址开始
func (d *SimDevice) Tx(_ uint16, w, r []byte) error {
	if len(w) == 0 {
		return fmt.Errorf("i2c tx: empty write: %w", status.ErrInvalidArg)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	reg := w[0]
	for i, v := range w[1:] {
		d.regs[reg+uint8(i)] = v
		d.writes = append(d.writes, RegWrite{Reg: reg + uint8(i), Value: v})
	}
	for i := range r {
		r[i] = d.regs[reg+uint8(i)]
	}
	return nil
}

// Register 返回寄存器当前值
func (d *SimDevice) Register(reg uint8) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg]
}

// Writes 返回写入历史的副本
func (d *SimDevice) Writes() []RegWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RegWrite(nil), d.writes...)
}

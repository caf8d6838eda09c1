package i2s

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lisuiheng/es8311-go/pkg/status"
)

// Direction 通道方向
type Direction uint8

const (
	DirTX Direction = iota
	DirRX
)

func (d Direction) String() string {
	if d == DirRX {
		return "rx"
	}
	return "tx"
}

type chanState uint8

const (
	stateRegistered chanState = iota // 已分配，未配置
	stateReady                       // 已配置，未使能
	stateRunning                     // 已使能
	stateDeleted
)

// Backend 负责按采样时钟搬运 DMA 缓冲区中的数据
type Backend interface {
	Name() string
	Start(cfg StdConfig, dma *DMA) error
	Stop() error
	Close() error
}

// DMA 是发送和接收两个方向的暂存缓冲区
type DMA struct {
	TX          *Ring
	RX          *Ring
	PeriodBytes int
	AutoClear   bool

	txEnabled atomic.Bool
	rxEnabled atomic.Bool
	underruns atomic.Uint64
	overruns  atomic.Uint64
}

// FillTX 用发送缓冲区的数据填充 out；通道未使能或欠载时按 AutoClear 补静音
func (d *DMA) FillTX(out []byte) {
	n := 0
	if d.txEnabled.Load() {
		n = d.TX.TryRead(out)
		if n < len(out) {
			d.underruns.Add(1)
		}
	}
	if n < len(out) && (d.AutoClear || !d.txEnabled.Load()) {
		clear(out[n:])
	}
}

// PushRX 把采集到的数据放入接收缓冲区，放不下的部分丢弃
func (d *DMA) PushRX(in []byte) {
	if !d.rxEnabled.Load() {
		return
	}
	if n := d.RX.TryWrite(in); n < len(in) {
		d.overruns.Add(1)
	}
}

// Stats 返回欠载和溢出次数
func (d *DMA) Stats() (underruns, overruns uint64) {
	return d.underruns.Load(), d.overruns.Load()
}

// controller 是一对通道共享的状态
type controller struct {
	mu      sync.Mutex
	cfg     ChanConfig
	std     *StdConfig
	backend Backend
	dma     *DMA
	started bool
	logger  *slog.Logger
	chans   [2]*Channel
}

// Channel 是一个 I2S 发送或接收通道
type Channel struct {
	ctrl  *controller
	dir   Direction
	state chanState
}

// NewChannelPair 分配一对共享时钟的发送/接收通道
func NewChannelPair(cfg ChanConfig, backend Backend, logger *slog.Logger) (tx, rx *Channel, err error) {
	if backend == nil {
		return nil, nil, fmt.Errorf("i2s: nil backend: %w", status.ErrInvalidArg)
	}
	if cfg.DMADescNum <= 0 || cfg.DMAFrameNum <= 0 {
		return nil, nil, fmt.Errorf("i2s: dma %d x %d: %w", cfg.DMADescNum, cfg.DMAFrameNum, status.ErrInvalidArg)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctrl := &controller{cfg: cfg, backend: backend, logger: logger}
	tx = &Channel{ctrl: ctrl, dir: DirTX}
	rx = &Channel{ctrl: ctrl, dir: DirRX}
	ctrl.chans = [2]*Channel{tx, rx}

	logger.Debug("i2s channel pair allocated",
		"id", cfg.ID,
		"role", cfg.Role,
		"backend", backend.Name(),
		"auto_clear", cfg.AutoClear)
	return tx, rx, nil
}

func (c *Channel) Direction() Direction { return c.dir }

// InitStdMode 以标准模式配置通道。两个通道必须使用相同的时钟和声道配置
func (c *Channel) InitStdMode(std StdConfig) error {
	if err := std.Validate(); err != nil {
		return err
	}

	ctrl := c.ctrl
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if c.state != stateRegistered {
		return fmt.Errorf("i2s %s: init in state %d: %w", c.dir, c.state, status.ErrInvalidState)
	}
	if ctrl.std != nil {
		if ctrl.std.Clock != std.Clock || ctrl.std.Slot != std.Slot {
			return fmt.Errorf("i2s %s: config differs from sibling channel: %w", c.dir, status.ErrInvalidArg)
		}
	} else {
		cp := std
		ctrl.std = &cp
		period := ctrl.cfg.DMAFrameNum * std.FrameBytes()
		size := ctrl.cfg.DMADescNum * period
		ctrl.dma = &DMA{
			TX:          NewRing(size),
			RX:          NewRing(size),
			PeriodBytes: period,
			AutoClear:   ctrl.cfg.AutoClear,
		}
	}

	c.state = stateReady
	ctrl.logger.Debug("i2s channel configured",
		"dir", c.dir,
		"standard", std.Slot.Standard,
		"sample_rate", std.Clock.SampleRate,
		"mclk", std.Clock.MCLK(),
		"bits", std.Slot.DataBitWidth,
		"slots", std.Slot.SlotMode)
	return nil
}

// Enable 使能通道，第一个使能的通道启动后端
func (c *Channel) Enable() error {
	ctrl := c.ctrl
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if c.state != stateReady {
		return fmt.Errorf("i2s %s: enable in state %d: %w", c.dir, c.state, status.ErrInvalidState)
	}
	if !ctrl.started {
		if err := ctrl.backend.Start(*ctrl.std, ctrl.dma); err != nil {
			return fmt.Errorf("i2s %s: start %s backend: %w", c.dir, ctrl.backend.Name(), err)
		}
		ctrl.started = true
	}

	c.state = stateRunning
	c.flag().Store(true)
	return nil
}

// Disable 停止通道。发送通道停止时丢弃未发送的数据
func (c *Channel) Disable() error {
	ctrl := c.ctrl
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if c.state != stateRunning {
		return fmt.Errorf("i2s %s: disable in state %d: %w", c.dir, c.state, status.ErrInvalidState)
	}
	c.flag().Store(false)
	c.state = stateReady
	c.ring().Reset()

	if !ctrl.anyRunning() && ctrl.started {
		ctrl.started = false
		if err := ctrl.backend.Stop(); err != nil {
			return fmt.Errorf("i2s %s: stop %s backend: %w", c.dir, ctrl.backend.Name(), err)
		}
	}
	return nil
}

// Delete 释放通道，两个通道都释放后关闭后端
func (c *Channel) Delete() error {
	ctrl := c.ctrl
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if c.state == stateRunning {
		return fmt.Errorf("i2s %s: delete running channel: %w", c.dir, status.ErrInvalidState)
	}
	c.state = stateDeleted
	for _, ch := range ctrl.chans {
		if ch.state != stateDeleted {
			return nil
		}
	}
	return ctrl.backend.Close()
}

// Preload 在发送通道使能前写入 DMA 缓冲区，返回实际装入的字节数
func (c *Channel) Preload(p []byte) (int, error) {
	ctrl := c.ctrl
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if c.dir != DirTX || c.state != stateReady {
		return 0, fmt.Errorf("i2s %s: preload in state %d: %w", c.dir, c.state, status.ErrInvalidState)
	}
	return ctrl.dma.TX.TryWrite(p), nil
}

// Write 阻塞写入 p。timeout 为 WaitForever 时一直等待
func (c *Channel) Write(p []byte, timeout time.Duration) (int, error) {
	if c.dir != DirTX {
		return 0, fmt.Errorf("i2s rx: write: %w", status.ErrInvalidArg)
	}
	if p == nil {
		return 0, fmt.Errorf("i2s tx: write nil buffer: %w", status.ErrInvalidArg)
	}
	ring, err := c.runningRing()
	if err != nil {
		return 0, err
	}
	return ring.Write(p, timeout)
}

// Read 阻塞读取直到 p 被填满。timeout 为 WaitForever 时一直等待
func (c *Channel) Read(p []byte, timeout time.Duration) (int, error) {
	if c.dir != DirRX {
		return 0, fmt.Errorf("i2s tx: read: %w", status.ErrInvalidArg)
	}
	if p == nil {
		return 0, fmt.Errorf("i2s rx: read nil buffer: %w", status.ErrInvalidArg)
	}
	ring, err := c.runningRing()
	if err != nil {
		return 0, err
	}
	return ring.Read(p, timeout)
}

// Stats 返回后端统计的欠载/溢出次数
func (c *Channel) Stats() (underruns, overruns uint64) {
	c.ctrl.mu.Lock()
	dma := c.ctrl.dma
	c.ctrl.mu.Unlock()
	if dma == nil {
		return 0, 0
	}
	return dma.Stats()
}

func (c *Channel) runningRing() (*Ring, error) {
	c.ctrl.mu.Lock()
	defer c.ctrl.mu.Unlock()
	if c.state != stateRunning {
		return nil, fmt.Errorf("i2s %s: channel not enabled: %w", c.dir, status.ErrInvalidState)
	}
	return c.ring(), nil
}

func (c *Channel) ring() *Ring {
	if c.dir == DirTX {
		return c.ctrl.dma.TX
	}
	return c.ctrl.dma.RX
}

func (c *Channel) flag() *atomic.Bool {
	if c.dir == DirTX {
		return &c.ctrl.dma.txEnabled
	}
	return &c.ctrl.dma.rxEnabled
}

func (ctrl *controller) anyRunning() bool {
	for _, ch := range ctrl.chans {
		if ch.state == stateRunning {
			return true
		}
	}
	return false
}

package i2s

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"time"
)

// SimBackend 是内存中的后端：发送数据写入 Sink，接收数据来自 Source。
// Manual 为 true 时不启动时钟，由调用方通过 Tick 推进
type SimBackend struct {
	Source io.Reader
	Sink   io.Writer
	Manual bool

	mu      sync.Mutex
	dma     *DMA
	period  time.Duration
	stop    chan struct{}
	done    chan struct{}
	starts  int
	txBuf   []byte
	rxBuf   []byte
	running bool
}

var _ Backend = (*SimBackend)(nil)

func (s *SimBackend) Name() string { return "sim" }

func (s *SimBackend) Start(cfg StdConfig, dma *DMA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dma = dma
	s.txBuf = make([]byte, dma.PeriodBytes)
	s.rxBuf = make([]byte, dma.PeriodBytes)
	frames := dma.PeriodBytes / cfg.FrameBytes()
	s.period = time.Duration(frames) * time.Second / time.Duration(cfg.Clock.SampleRate)
	s.starts++
	s.running = true

	if s.Manual {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.clock(s.stop, s.done, s.period)
	return nil
}

func (s *SimBackend) clock(stop, done chan struct{}, period time.Duration) {
	defer close(done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick 推进一个 DMA 周期：发出一个周期的数据并采集一个周期的数据
func (s *SimBackend) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.dma.FillTX(s.txBuf)
	if s.Sink != nil {
		_, _ = s.Sink.Write(s.txBuf)
	}

	clear(s.rxBuf)
	if s.Source != nil {
		if _, err := io.ReadFull(s.Source, s.rxBuf); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return
		}
	}
	s.dma.PushRX(s.rxBuf)
}

func (s *SimBackend) Stop() error {
	s.mu.Lock()
	s.running = false
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (s *SimBackend) Close() error {
	return s.Stop()
}

// Starts 返回后端被启动的次数
func (s *SimBackend) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// ToneSource 生成 16 位小端立体声正弦波
type ToneSource struct {
	SampleRate int
	Frequency  float64
	Amplitude  float64 // 0..1
	n          int
}

func (t *ToneSource) Read(p []byte) (int, error) {
	frames := len(p) / 4
	for i := 0; i < frames; i++ {
		v := t.Amplitude * math.Sin(2*math.Pi*t.Frequency*float64(t.n)/float64(t.SampleRate))
		sample := uint16(int16(v * math.MaxInt16))
		binary.LittleEndian.PutUint16(p[i*4:], sample)
		binary.LittleEndian.PutUint16(p[i*4+2:], sample)
		t.n++
	}
	clear(p[frames*4:])
	return len(p), nil
}

package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/lisuiheng/es8311-go/i2s"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTx 模拟发送通道：预加载最多 preloadCap 字节，每次写入最多 chunk 字节
type fakeTx struct {
	preloadCap int
	chunk      int
	enabled    bool
	ops        []string
	writes     int
	got        bytes.Buffer
	// failWrite 返回非 nil 时该次写入失败
	failWrite func(n int) (int, error)
}

func (f *fakeTx) Enable() error {
	f.ops = append(f.ops, "enable")
	f.enabled = true
	return nil
}

func (f *fakeTx) Disable() error {
	f.ops = append(f.ops, "disable")
	f.enabled = false
	return nil
}

func (f *fakeTx) Preload(p []byte) (int, error) {
	f.ops = append(f.ops, "preload")
	if f.enabled {
		return 0, status.ErrInvalidState
	}
	n := min(len(p), f.preloadCap)
	f.got.Write(p[:n])
	return n, nil
}

func (f *fakeTx) Write(p []byte, timeout time.Duration) (int, error) {
	f.ops = append(f.ops, "write")
	f.writes++
	if f.failWrite != nil {
		if n, err := f.failWrite(f.writes); err != nil || n >= 0 {
			return n, err
		}
	}
	n := min(len(p), f.chunk)
	f.got.Write(p[:n])
	return n, nil
}

func testAsset(size int) []byte {
	asset := make([]byte, size)
	for i := range asset {
		asset[i] = byte(i)
	}
	return asset
}

func TestMusicCursorResetsAfterEachCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		size       int
		preloadCap int
		chunk      int
	}{
		{"chunked", 50, 10, 7},
		{"fits preload", 8, 32, 4},
		{"single write", 64, 16, 1024},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			asset := testAsset(tt.size)
			tx := &fakeTx{preloadCap: tt.preloadCap, chunk: tt.chunk}
			m := NewMusicLoop(tx, asset, 0, quietLogger())

			for cycle := 0; cycle < 3; cycle++ {
				if err := m.playOnce(); err != nil {
					t.Fatalf("cycle %d: %v", cycle, err)
				}
				if m.Cursor() != 0 {
					t.Fatalf("cycle %d: cursor = %d, want 0", cycle, m.Cursor())
				}
			}

			want := bytes.Repeat(asset, 3)
			if !bytes.Equal(tx.got.Bytes(), want) {
				t.Errorf("sent %d bytes, want %d in order", tx.got.Len(), len(want))
			}
		})
	}
}

func TestMusicStepOrder(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{preloadCap: 10, chunk: 20}
	m := NewMusicLoop(tx, testAsset(50), 0, quietLogger())
	if err := m.playOnce(); err != nil {
		t.Fatal(err)
	}

	want := "disable preload enable write write"
	if got := strings.Join(tx.ops, " "); got != want {
		t.Errorf("ops = %q, want %q", got, want)
	}
}

func TestMusicWriteErrorIsFatal(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{preloadCap: 4, chunk: 8}
	tx.failWrite = func(n int) (int, error) {
		if n == 5 {
			return 0, status.ErrTimeout
		}
		return -1, nil
	}
	m := NewMusicLoop(tx, testAsset(20), 0, quietLogger())

	err := m.Run(context.Background())
	if !status.IsFatal(err) || !errors.Is(err, status.ErrTimeout) {
		t.Fatalf("Run() error = %v, want fatal timeout", err)
	}
	if tx.writes != 5 {
		t.Errorf("writes = %d, want 5 (no retry)", tx.writes)
	}
}

func TestMusicZeroWriteIsFatal(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{preloadCap: 4, chunk: 8}
	tx.failWrite = func(int) (int, error) { return 0, nil }
	m := NewMusicLoop(tx, testAsset(20), 0, quietLogger())

	err := m.Run(context.Background())
	if !status.IsFatal(err) || !errors.Is(err, ErrShortWrite) {
		t.Fatalf("Run() error = %v, want fatal ErrShortWrite", err)
	}
	if tx.writes != 1 {
		t.Errorf("writes = %d, want 1", tx.writes)
	}
}

func TestMusicSleepsBetweenCycles(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{preloadCap: 4, chunk: 8}
	m := NewMusicLoop(tx, testAsset(20), time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var slept []time.Duration
	m.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		if len(slept) == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(slept) != 3 || slept[0] != time.Second {
		t.Errorf("slept = %v", slept)
	}
	if got := tx.got.Len(); got != 60 {
		t.Errorf("sent %d bytes, want 60", got)
	}
}

func TestMusicEmptyAsset(t *testing.T) {
	t.Parallel()

	m := NewMusicLoop(&fakeTx{}, nil, 0, quietLogger())
	if err := m.Run(context.Background()); !status.IsFatal(err) {
		t.Errorf("Run() error = %v, want fatal", err)
	}
}

func TestMusicOverSimulatedChannel(t *testing.T) {
	t.Parallel()

	sink := &bytes.Buffer{}
	backend := &i2s.SimBackend{Manual: true, Sink: sink}
	cfg := i2s.ChanConfig{Role: i2s.RoleMaster, DMADescNum: 2, DMAFrameNum: 4, AutoClear: true}
	tx, rx, err := i2s.NewChannelPair(cfg, backend, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	std := i2s.StdConfig{
		Clock: i2s.ClockConfig{SampleRate: 16000, MCLKMultiple: 384},
		Slot:  i2s.PhilipsSlotDefault(i2s.DataBitWidth16, i2s.SlotModeStereo),
		GPIO:  i2s.GPIOConfig{MCLK: 1, BCLK: 2, WS: 3, DOUT: 4, DIN: 5},
	}
	for _, ch := range []*i2s.Channel{tx, rx} {
		if err := ch.InitStdMode(std); err != nil {
			t.Fatal(err)
		}
		if err := ch.Enable(); err != nil {
			t.Fatal(err)
		}
	}

	// 后端在另一个 goroutine 中推进时钟
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				backend.Tick()
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	m := NewMusicLoop(tx, testAsset(96), 0, quietLogger())
	if err := m.playOnce(); err != nil {
		t.Fatal(err)
	}
	if m.Cursor() != 0 {
		t.Errorf("cursor = %d", m.Cursor())
	}
}

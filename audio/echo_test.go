package audio

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/lisuiheng/es8311-go/pkg/status"
)

// fakeRx 按 readFn 填充缓冲区；每次读之前检查缓冲区是否全零
type fakeRx struct {
	reads     int
	dirty     int // 读之前缓冲区非零的次数
	readFn    func(n int, p []byte) (int, error)
	afterRead func(n int)
}

func (f *fakeRx) Read(p []byte, timeout time.Duration) (int, error) {
	f.reads++
	if !bytes.Equal(p, make([]byte, len(p))) {
		f.dirty++
	}
	n, err := f.readFn(f.reads, p)
	if f.afterRead != nil {
		f.afterRead(f.reads)
	}
	return n, err
}

type fakeWriter struct {
	writes  int
	timeout time.Duration
	writeFn func(n int, p []byte) (int, error)
}

func (f *fakeWriter) Write(p []byte, timeout time.Duration) (int, error) {
	f.writes++
	f.timeout = timeout
	if f.writeFn == nil {
		return len(p), nil
	}
	return f.writeFn(f.writes, p)
}

func fillAll(_ int, p []byte) (int, error) {
	for i := range p {
		p[i] = 0xFF
	}
	return len(p), nil
}

func TestEchoBufferZeroedEveryIteration(t *testing.T) {
	t.Parallel()

	for _, iterations := range []int{0, 1, 5} {
		ctx, cancel := context.WithCancel(context.Background())
		rx := &fakeRx{readFn: fillAll}
		rx.afterRead = func(n int) {
			if n >= iterations {
				cancel()
			}
		}
		if iterations == 0 {
			cancel()
		}

		e, err := NewEchoLoop(rx, &fakeWriter{}, 64, time.Second, quietLogger())
		if err != nil {
			t.Fatal(err)
		}
		if err := e.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if rx.reads != iterations {
			t.Errorf("reads = %d, want %d", rx.reads, iterations)
		}
		if rx.dirty != 0 {
			t.Errorf("iterations=%d: buffer not zeroed before %d reads", iterations, rx.dirty)
		}
		cancel()
	}
}

func TestEchoMismatchWarnsAndContinues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		read     int
		written  int
		wantWarn bool
	}{
		{"mismatch", 100, 50, true},
		{"equal", 128, 128, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logBuf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			rx := &fakeRx{readFn: func(int, []byte) (int, error) { return tt.read, nil }}
			tx := &fakeWriter{writeFn: func(n int, _ []byte) (int, error) {
				if n == 3 {
					cancel()
				}
				return tt.written, nil
			}}

			e, err := NewEchoLoop(rx, tx, 128, time.Second, logger)
			if err != nil {
				t.Fatal(err)
			}
			if err := e.Run(ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if tx.writes != 3 {
				t.Errorf("writes = %d, want 3", tx.writes)
			}

			warned := strings.Contains(logBuf.String(), "level=WARN")
			if warned != tt.wantWarn {
				t.Errorf("warned = %v, want %v; log:\n%s", warned, tt.wantWarn, logBuf.String())
			}
		})
	}
}

func TestEchoFatalStopsTransfers(t *testing.T) {
	t.Parallel()

	t.Run("read timeout on iteration 3", func(t *testing.T) {
		t.Parallel()

		rx := &fakeRx{readFn: func(n int, p []byte) (int, error) {
			if n == 3 {
				return 10, status.ErrTimeout
			}
			return fillAll(n, p)
		}}
		tx := &fakeWriter{}
		e, _ := NewEchoLoop(rx, tx, 32, time.Second, quietLogger())

		err := e.Run(context.Background())
		if !status.IsFatal(err) || !errors.Is(err, status.ErrTimeout) {
			t.Fatalf("Run() error = %v, want fatal timeout", err)
		}
		if rx.reads != 3 {
			t.Errorf("reads = %d, iteration 4 must never run", rx.reads)
		}
		if tx.writes != 2 {
			t.Errorf("writes = %d, want 2", tx.writes)
		}
	})

	t.Run("write invalid arg", func(t *testing.T) {
		t.Parallel()

		rx := &fakeRx{readFn: fillAll}
		tx := &fakeWriter{writeFn: func(n int, p []byte) (int, error) {
			if n == 2 {
				return 0, status.ErrInvalidArg
			}
			return len(p), nil
		}}
		e, _ := NewEchoLoop(rx, tx, 32, time.Second, quietLogger())

		err := e.Run(context.Background())
		if !status.IsFatal(err) || !errors.Is(err, status.ErrInvalidArg) {
			t.Fatalf("Run() error = %v, want fatal invalid arg", err)
		}
		if rx.reads != 2 || tx.writes != 2 {
			t.Errorf("reads = %d, writes = %d; want 2, 2", rx.reads, tx.writes)
		}
	})
}

func TestEchoWritesWholeBufferWithTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rx := &fakeRx{readFn: func(_ int, p []byte) (int, error) {
		p[0] = 0x42
		return 1, nil
	}}
	var got []byte
	tx := &fakeWriter{writeFn: func(_ int, p []byte) (int, error) {
		got = append([]byte(nil), p...)
		cancel()
		return len(p), nil
	}}

	e, _ := NewEchoLoop(rx, tx, 16, 1000*time.Millisecond, quietLogger())
	if err := e.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(got) != 16 || got[0] != 0x42 {
		t.Errorf("written = %v", got)
	}
	if tx.timeout != time.Second {
		t.Errorf("write timeout = %v", tx.timeout)
	}
}

func TestNewEchoLoopRejectsEmptyBuffer(t *testing.T) {
	t.Parallel()

	if _, err := NewEchoLoop(&fakeRx{}, &fakeWriter{}, 0, time.Second, nil); !errors.Is(err, status.ErrNoMem) {
		t.Errorf("NewEchoLoop(0) error = %v, want ErrNoMem", err)
	}
}

package i2s

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/lisuiheng/es8311-go/pkg/status"
)

func TestRingWrapAround(t *testing.T) {
	t.Parallel()

	r := NewRing(8)
	if n := r.TryWrite([]byte{1, 2, 3, 4, 5, 6}); n != 6 {
		t.Fatalf("TryWrite() = %d, want 6", n)
	}
	out := make([]byte, 4)
	if n := r.TryRead(out); n != 4 || !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Fatalf("TryRead() = %d %v", n, out)
	}
	// 写入跨过缓冲区末尾
	if n := r.TryWrite([]byte{7, 8, 9, 10, 11, 12, 13}); n != 6 {
		t.Fatalf("TryWrite() = %d, want 6 (free space)", n)
	}
	all := make([]byte, 16)
	n := r.TryRead(all)
	if want := []byte{5, 6, 7, 8, 9, 10, 11, 12}; !bytes.Equal(all[:n], want) {
		t.Errorf("TryRead() = %v, want %v", all[:n], want)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after drain", r.Len())
	}
}

func TestRingReadTimeout(t *testing.T) {
	t.Parallel()

	r := NewRing(16)
	r.TryWrite([]byte{1, 2})

	buf := make([]byte, 4)
	n, err := r.Read(buf, 10*time.Millisecond)
	if !errors.Is(err, status.ErrTimeout) {
		t.Fatalf("Read() error = %v, want ErrTimeout", err)
	}
	if n != 2 {
		t.Errorf("Read() = %d, want 2 partial bytes", n)
	}
}

func TestRingBlockingWriteUnblocksOnRead(t *testing.T) {
	t.Parallel()

	r := NewRing(4)
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	got := make(chan []byte)
	go func() {
		var collected []byte
		buf := make([]byte, 3)
		for len(collected) < len(payload) {
			n, _ := r.Read(buf[:min(3, len(payload)-len(collected))], time.Second)
			collected = append(collected, buf[:n]...)
		}
		got <- collected
	}()

	n, err := r.Write(payload, WaitForever)
	if err != nil || n != len(payload) {
		t.Fatalf("Write() = %d, %v", n, err)
	}

	select {
	case c := <-got:
		if !bytes.Equal(c, payload) {
			t.Errorf("reader got %v, want %v", c, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not finish")
	}
}

func TestRingResetWakesWriter(t *testing.T) {
	t.Parallel()

	r := NewRing(2)
	r.TryWrite([]byte{1, 2})

	done := make(chan error, 1)
	go func() {
		_, err := r.Write([]byte{3}, time.Second)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	r.Reset()
	if err := <-done; err != nil {
		t.Errorf("Write() after Reset error = %v", err)
	}
}

func TestRingWriteTimeoutPerCall(t *testing.T) {
	t.Parallel()

	r := NewRing(4)
	if r.Cap() != 4 {
		t.Fatalf("Cap() = %d, want 4", r.Cap())
	}

	// 同一个缓冲区上，每次调用用自己的超时
	start := time.Now()
	n, err := r.Write([]byte{1, 2, 3, 4, 5, 6}, 20*time.Millisecond)
	if !errors.Is(err, status.ErrTimeout) || n != 4 {
		t.Fatalf("Write() = %d, %v; want 4, ErrTimeout", n, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Write() returned before its timeout")
	}

	n, err = r.Write([]byte{7}, 0)
	if !errors.Is(err, status.ErrTimeout) || n != 0 {
		t.Fatalf("Write(timeout 0) = %d, %v; want 0, ErrTimeout", n, err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.TryRead(make([]byte, 2))
	}()
	n, err = r.Write([]byte{7, 8}, WaitForever)
	if err != nil || n != 2 {
		t.Fatalf("Write(WaitForever) = %d, %v", n, err)
	}

	out := make([]byte, 4)
	if n := r.TryRead(out); n != 4 || !bytes.Equal(out, []byte{3, 4, 7, 8}) {
		t.Errorf("TryRead() = %d %v, want [3 4 7 8]", n, out)
	}
}

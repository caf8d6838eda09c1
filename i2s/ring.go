package i2s

import (
	"sync"
	"time"

	"github.com/lisuiheng/es8311-go/pkg/status"
	"github.com/smallnest/ringbuffer"
)

// WaitForever 表示阻塞调用没有超时
const WaitForever time.Duration = -1

// Ring 是一个定长字节环形缓冲区，读写两端可以各自阻塞等待。
// 数据存放在非阻塞模式的 ringbuffer 里，超时按每次调用单独计算
type Ring struct {
	mu      sync.Mutex
	rb      *ringbuffer.RingBuffer
	changed chan struct{}
}

func NewRing(size int) *Ring {
	return &Ring{
		rb:      ringbuffer.New(size),
		changed: make(chan struct{}),
	}
}

// signal 唤醒所有等待者，调用方持有锁
func (r *Ring) signal() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Ring) Cap() int { return r.rb.Capacity() }

func (r *Ring) Len() int { return r.rb.Length() }

// Reset 丢弃所有缓存数据
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rb.Reset()
	r.signal()
}

// tryWrite 写满为止。满或放不下只是暂时状态，返回的字节数就是结果
func (r *Ring) tryWrite(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	n, _ := r.rb.Write(p)
	if n > 0 {
		r.signal()
	}
	return n
}

// tryRead 读空为止，空缓冲区返回 0
func (r *Ring) tryRead(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	n, _ := r.rb.Read(p)
	if n > 0 {
		r.signal()
	}
	return n
}

// TryWrite 写入尽可能多的字节，不阻塞
func (r *Ring) TryWrite(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tryWrite(p)
}

// TryRead 读出尽可能多的字节，不阻塞
func (r *Ring) TryRead(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tryRead(p)
}

// Write 阻塞直到 p 全部写入或超时。超时返回已写入字节数和 ErrTimeout
func (r *Ring) Write(p []byte, timeout time.Duration) (int, error) {
	return r.transfer(p, timeout, r.tryWrite)
}

// Read 阻塞直到 p 被填满或超时。超时返回已读字节数和 ErrTimeout
func (r *Ring) Read(p []byte, timeout time.Duration) (int, error) {
	return r.transfer(p, timeout, r.tryRead)
}

func (r *Ring) transfer(p []byte, timeout time.Duration, step func([]byte) int) (int, error) {
	var deadline <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	done := 0
	for {
		r.mu.Lock()
		done += step(p[done:])
		if done == len(p) {
			r.mu.Unlock()
			return done, nil
		}
		wait := r.changed
		r.mu.Unlock()

		select {
		case <-wait:
		case <-deadline:
			r.mu.Lock()
			done += step(p[done:])
			r.mu.Unlock()
			if done == len(p) {
				return done, nil
			}
			return done, status.ErrTimeout
		}
	}
}

package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

// WAVSink 把 16 位小端 PCM 字节流写成 WAV 文件
type WAVSink struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *wav.Encoder
	format   *goaudio.Format
	pending  []byte
	samples  []int
	written  int
	channels int
}

func NewWAVSink(path string, sampleRate, channels int) (*WAVSink, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("wav sink %d Hz %d ch: %w", sampleRate, channels, status.ErrInvalidArg)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav sink: %w", err)
	}
	return &WAVSink{
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, 16, channels, 1),
		format:   &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		channels: channels,
	}, nil
}

// Write 只编码完整的帧，不足一帧的字节留到下一次。
// 编码器按帧计数，半帧写进去会让文件头里的长度偏短
func (s *WAVSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, p...)
	frames := len(s.pending) / (2 * s.channels)
	if frames == 0 {
		return len(p), nil
	}
	n := frames * s.channels

	s.samples = s.samples[:0]
	for i := 0; i < n; i++ {
		s.samples = append(s.samples, int(int16(binary.LittleEndian.Uint16(s.pending[i*2:]))))
	}
	buf := &goaudio.IntBuffer{
		Format:         s.format,
		Data:           s.samples,
		SourceBitDepth: 16,
	}
	if err := s.encoder.Write(buf); err != nil {
		return 0, fmt.Errorf("encode wav: %w", err)
	}
	s.written += n
	s.pending = append(s.pending[:0], s.pending[n*2:]...)
	return len(p), nil
}

// Frames 返回已写入的帧数
func (s *WAVSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written / s.channels
}

func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return s.file.Close()
}

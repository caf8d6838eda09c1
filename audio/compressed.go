package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

// LoadMP3 解码 MP3 文件。解码器总是输出 16 位立体声，channels 为 1 时取左声道
func LoadMP3(path string, sampleRate, channels int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	defer f.Close()

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("invalid mp3 file %s: %w: %v", path, status.ErrInvalidArg, err)
	}
	if dec.SampleRate() != sampleRate {
		return nil, fmt.Errorf("mp3 sample rate %d, want %d: %w", dec.SampleRate(), sampleRate, status.ErrInvalidArg)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	if channels == 2 {
		return raw[:len(raw)/4*4], nil
	}

	samples := make([]int, len(raw)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	return interleave(samples, 2, channels), nil
}

// LoadOgg 解码 Ogg Vorbis 文件，浮点采样截断到 16 位
func LoadOgg(path string, sampleRate, channels int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ogg: %w", err)
	}
	defer f.Close()

	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("invalid ogg file %s: %w: %v", path, status.ErrInvalidArg, err)
	}
	if format.SampleRate != sampleRate {
		return nil, fmt.Errorf("ogg sample rate %d, want %d: %w", format.SampleRate, sampleRate, status.ErrInvalidArg)
	}
	src := format.Channels
	if src != channels && !(src == 1 && channels == 2) {
		return nil, fmt.Errorf("ogg has %d channels, want %d: %w", src, channels, status.ErrInvalidArg)
	}

	samples := make([]int, len(data))
	for i, v := range data {
		samples[i] = int(floatToPCM16(v))
	}
	return interleave(samples, src, channels), nil
}

func floatToPCM16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(x * 32767)
}

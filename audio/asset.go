package audio

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

// 16 kHz、16 位小端、立体声
//
//go:embed assets/canon.pcm
var canonPCM []byte

// DefaultAssetSampleRate 是内置音频的采样率
const DefaultAssetSampleRate = 16000

// DefaultAsset 返回内置的 PCM 数据，调用方不得修改
func DefaultAsset() []byte {
	return canonPCM
}

// LoadAsset 按扩展名解码 path 指向的音频文件（wav/mp3/ogg/opus）；path 为空时返回内置数据
func LoadAsset(path string, sampleRate, channels int) ([]byte, error) {
	if path == "" {
		if sampleRate != DefaultAssetSampleRate || channels != 2 {
			return nil, fmt.Errorf("built-in asset is %d Hz stereo, configured %d Hz x %d: %w",
				DefaultAssetSampleRate, sampleRate, channels, status.ErrInvalidArg)
		}
		return DefaultAsset(), nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return LoadWAV(path, sampleRate, channels)
	case ".mp3":
		return LoadMP3(path, sampleRate, channels)
	case ".ogg", ".oga":
		return LoadOgg(path, sampleRate, channels)
	case ".opus":
		return LoadOpus(path, sampleRate, channels)
	default:
		return nil, fmt.Errorf("unsupported audio file %s: %w", path, status.ErrInvalidArg)
	}
}

// LoadWAV 解码 16 位 PCM WAV 文件，返回交错的小端 PCM 数据。
// 单声道文件在 channels 为 2 时复制到两个声道
func LoadWAV(path string, sampleRate, channels int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file %s: %w", path, errors.Join(status.ErrInvalidArg, decoder.Err()))
	}
	if decoder.BitDepth != 16 {
		return nil, fmt.Errorf("wav bit depth %d, want 16: %w", decoder.BitDepth, status.ErrInvalidArg)
	}
	if int(decoder.SampleRate) != sampleRate {
		return nil, fmt.Errorf("wav sample rate %d, want %d: %w", decoder.SampleRate, sampleRate, status.ErrInvalidArg)
	}

	src := int(decoder.NumChans)
	if src != channels && !(src == 1 && channels == 2) {
		return nil, fmt.Errorf("wav has %d channels, want %d: %w", src, channels, status.ErrInvalidArg)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	return interleave(buf.Data, src, channels), nil
}

// interleave 把 src 声道的采样排成 channels 声道的小端 PCM，单声道复制到所有声道
func interleave(samples []int, src, channels int) []byte {
	frames := len(samples) / src
	out := make([]byte, frames*channels*2)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			sample := samples[i*src+min(ch, src-1)]
			binary.LittleEndian.PutUint16(out[(i*channels+ch)*2:], uint16(int16(sample)))
		}
	}
	return out
}

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hraban/opus"
	"github.com/lisuiheng/es8311-go/pkg/status"
)

const (
	// opusfile 总是以 48 kHz 输出
	opusSampleRate = 48000
	// 单个 Opus 包最多 120ms
	opusMaxFrameSize = 5760
)

var opusHeadMagic = []byte("OpusHead")

// LoadOpus 解码 Ogg Opus 文件为 16 位小端 PCM
func LoadOpus(path string, sampleRate, channels int) ([]byte, error) {
	if sampleRate != opusSampleRate {
		return nil, fmt.Errorf("opus decodes at %d Hz, want %d: %w", opusSampleRate, sampleRate, status.ErrInvalidArg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open opus: %w", err)
	}
	src, err := opusChannels(data)
	if err != nil {
		return nil, fmt.Errorf("invalid opus file %s: %w", path, err)
	}
	if src != channels && !(src == 1 && channels == 2) {
		return nil, fmt.Errorf("opus has %d channels, want %d: %w", src, channels, status.ErrInvalidArg)
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid opus file %s: %w: %v", path, status.ErrInvalidArg, err)
	}
	defer stream.Close()

	pcm := make([]int16, opusMaxFrameSize*src)
	var samples []int
	for {
		n, err := stream.Read(pcm)
		for _, v := range pcm[:n*src] {
			samples = append(samples, int(v))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode opus: %w", err)
		}
	}
	return interleave(samples, src, channels), nil
}

// opusChannels 从第一页的 OpusHead 包里取声道数
func opusChannels(data []byte) (int, error) {
	i := bytes.Index(data, opusHeadMagic)
	if i < 0 || i+len(opusHeadMagic)+2 > len(data) {
		return 0, fmt.Errorf("no OpusHead: %w", status.ErrInvalidArg)
	}
	// 魔数之后依次是版本号和声道数
	ch := int(data[i+len(opusHeadMagic)+1])
	if ch == 0 || ch > 2 {
		return 0, fmt.Errorf("opus channel count %d: %w", ch, status.ErrInvalidArg)
	}
	return ch, nil
}

package audio

import (
	"context"
	"time"
)

// Loop 是一个常驻的音频传输循环，只在出错或 ctx 取消时返回
type Loop interface {
	Name() string
	Run(ctx context.Context) error
}

// Reader 定义接收通道的阻塞读
type Reader interface {
	Read(p []byte, timeout time.Duration) (int, error)
}

// Writer 定义发送通道的阻塞写
type Writer interface {
	Write(p []byte, timeout time.Duration) (int, error)
}

// TxChannel 定义音乐模式需要的发送通道操作
type TxChannel interface {
	Writer
	Enable() error
	Disable() error
	Preload(p []byte) (int, error)
}

// Mode 选择传输循环
type Mode string

const (
	ModeMusic Mode = "music"
	ModeEcho  Mode = "echo"
)

func (m Mode) Valid() bool {
	return m == ModeMusic || m == ModeEcho
}

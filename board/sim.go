package board

import (
	"fmt"
	"sync"

	"github.com/lisuiheng/es8311-go/codec/es8311"
	"github.com/lisuiheng/es8311-go/hal"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// SimHardware 是模拟的板子：引脚是 gpiotest.Pin，总线上挂着一个 ES8311
type SimHardware struct {
	Hardware
	Codec *hal.SimDevice

	mu   sync.Mutex
	pins map[int]*gpiotest.Pin
}

func NewSimHardware(codecAddr uint16) *SimHardware {
	bus := hal.NewSimBus()
	codec := hal.NewSimDevice(es8311.SimDefaults())
	bus.Attach(codecAddr, codec)

	s := &SimHardware{Codec: codec, pins: make(map[int]*gpiotest.Pin)}
	s.Hardware = Hardware{Pin: s.pin, Bus: bus}
	return s
}

// 未连接的引脚是 gpio.INVALID，所有操作都会失败
func (s *SimHardware) pin(num int) gpio.PinIO {
	if num < 0 {
		return hal.NewSimPin(num)
	}
	return s.SimPin(num)
}

// SimPin 返回编号为 num 的模拟引脚，同一编号总是返回同一个对象
func (s *SimHardware) SimPin(num int) *gpiotest.Pin {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pins[num]
	if !ok {
		p = &gpiotest.Pin{N: fmt.Sprintf("GPIO%d", num), Num: num}
		s.pins[num] = p
	}
	return p
}

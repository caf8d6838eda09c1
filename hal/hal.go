// Package hal 把板级硬件接到 periph 的 conn 接口上：GPIO 用 gpio.PinIO，
// 控制总线用 i2c.Bus
package hal

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
	"periph.io/x/conn/v3/physic"
)

// NoPin 表示未连接的引脚
const NoPin = -1

// BusConfig I2C 主机配置
type BusConfig struct {
	Port      int
	SDA       int
	SCL       int
	PullUp    bool
	Frequency physic.Frequency
}

// DefaultBusFrequency 控制总线的默认时钟
const DefaultBusFrequency = 100 * physic.KiloHertz

// Bus 是需要先配置引脚和时钟才能传输的 I2C 主机
type Bus interface {
	i2c.Bus
	Configure(cfg BusConfig) error
}

// Registers 返回 addr 上 8 位地址、8 位数据的寄存器访问器
func Registers(bus i2c.Bus, addr uint16) *mmr.Dev8 {
	return &mmr.Dev8{
		Conn:  &i2c.Dev{Bus: bus, Addr: addr},
		Order: binary.BigEndian,
	}
}

// NewSimPin 返回编号为 num 的模拟引脚，负数返回 gpio.INVALID
func NewSimPin(num int) gpio.PinIO {
	if num < 0 {
		return gpio.INVALID
	}
	return &gpiotest.Pin{N: fmt.Sprintf("GPIO%d", num), Num: num}
}

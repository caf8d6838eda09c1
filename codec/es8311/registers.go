package es8311

// I2C 地址，取决于 CE 引脚电平
const (
	Address0 uint16 = 0x18
	Address1 uint16 = 0x19
)

// 寄存器
const (
	regReset      = 0x00 // 复位/主从模式
	regClkManager = 0x01 // 时钟源与使能
	regClkDiv     = 0x02 // pre_div / pre_multi
	regClkADCOSR  = 0x03 // fs_mode / adc_osr
	regClkDACOSR  = 0x04
	regClkADCDAC  = 0x05 // adc_div / dac_div
	regClkBCLK    = 0x06 // sclk 反相 / bclk_div
	regClkLRCKH   = 0x07
	regClkLRCKL   = 0x08
	regSDPIn      = 0x09 // DAC 串口格式
	regSDPOut     = 0x0A // ADC 串口格式
	regSystem0B   = 0x0B
	regSystem0C   = 0x0C
	regSystem0D   = 0x0D // 模拟电源
	regSystem0E   = 0x0E // PGA / ADC 调制器
	regSystem10   = 0x10
	regSystem11   = 0x11
	regSystem12   = 0x12 // DAC 电源
	regSystem13   = 0x13 // 耳机驱动
	regSystem14   = 0x14 // 麦克风选择与 PGA 增益
	regADC16      = 0x16 // 麦克风数字增益
	regADC17      = 0x17 // ADC 音量
	regADC1C      = 0x1C // ADC 均衡器
	regDAC31      = 0x31 // DAC 静音
	regDAC32      = 0x32 // DAC 音量
	regDAC37      = 0x37 // DAC 均衡器
	regGPIO44     = 0x44
	regChipID1    = 0xFD
	regChipID2    = 0xFE
	regChipVer    = 0xFF
)

const (
	chipID1 = 0x83
	chipID2 = 0x11
)

const (
	resetMasterMode = 1 << 6
	clkMCLKFromSCLK = 1 << 7
	clkMCLKInvert   = 1 << 6
	bclkInvert      = 1 << 5
	micDigital      = 1 << 6
	dacMuteMask     = 0x60
)

// 复位后写入的默认寄存器值，顺序有意义
var powerUpSequence = []struct{ reg, val uint8 }{
	{regGPIO44, 0x08}, // 两次写入以抵抗 I2C 噪声
	{regGPIO44, 0x08},
	{regClkManager, 0x30},
	{regClkDiv, 0x00},
	{regClkADCOSR, 0x10},
	{regADC16, 0x24},
	{regClkDACOSR, 0x10},
	{regClkADCDAC, 0x00},
	{regSystem0B, 0x00},
	{regSystem0C, 0x00},
	{regSystem10, 0x1F},
	{regSystem11, 0x7F},
}

// 音频通路上电
var enableSequence = []struct{ reg, val uint8 }{
	{regSystem0D, 0x01},
	{regSystem0E, 0x02},
	{regSystem12, 0x00},
	{regSystem13, 0x10},
	{regADC1C, 0x6A},
	{regDAC37, 0x08},
}

// SimDefaults 是上电后的寄存器值，用于模拟器
func SimDefaults() map[uint8]uint8 {
	return map[uint8]uint8{
		regReset:   0x1F,
		regChipID1: chipID1,
		regChipID2: chipID2,
		regChipVer: 0x00,
	}
}

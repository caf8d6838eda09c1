package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lisuiheng/es8311-go/audio"
	"github.com/lisuiheng/es8311-go/board"
	"github.com/spf13/viper"
)

// Config 对应 config.yaml 的结构
type Config struct {
	Mode audio.Mode `mapstructure:"mode"`

	Board struct {
		Type string     `mapstructure:"type"` // direct/bsp
		Name string     `mapstructure:"name"`
		Pins board.Pins `mapstructure:"pins"`
	} `mapstructure:"board"`

	I2C struct {
		Port      int    `mapstructure:"port"`
		Address   uint16 `mapstructure:"address"`
		Frequency uint32 `mapstructure:"frequency"`
	} `mapstructure:"i2c"`

	Audio struct {
		SampleRate   int  `mapstructure:"sample_rate"`
		MCLKMultiple int  `mapstructure:"mclk_multiple"`
		Volume       int  `mapstructure:"volume"`
		MicGainDB    int  `mapstructure:"mic_gain_db"`
		DigitalMic   bool `mapstructure:"digital_mic"`
	} `mapstructure:"audio"`

	Transport struct {
		Backend     string  `mapstructure:"backend"` // sim/malgo/portaudio
		DMADescNum  int     `mapstructure:"dma_desc_num"`
		DMAFrameNum int     `mapstructure:"dma_frame_num"`
		SimSource   string  `mapstructure:"sim_source"` // silence/tone
		SimToneHz   float64 `mapstructure:"sim_tone_hz"`
		SimSink     string  `mapstructure:"sim_sink"` // 为空时丢弃发送数据
	} `mapstructure:"transport"`

	Music struct {
		File  string        `mapstructure:"file"`
		Delay time.Duration `mapstructure:"delay"`
	} `mapstructure:"music"`

	Echo struct {
		BufferSize int           `mapstructure:"buffer_size"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"echo"`

	Logging struct {
		Level   string   `mapstructure:"level"`
		Outputs []string `mapstructure:"outputs"`
	} `mapstructure:"logging"`
}

// SetDefaults 注册所有配置项的默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(audio.ModeMusic))

	v.SetDefault("board.type", "direct")
	v.SetDefault("board.name", "esp32-s3-korvo-2")
	v.SetDefault("board.pins.pa", 48)
	v.SetDefault("board.pins.i2c_sda", 15)
	v.SetDefault("board.pins.i2c_scl", 16)
	v.SetDefault("board.pins.mclk", 38)
	v.SetDefault("board.pins.bclk", 14)
	v.SetDefault("board.pins.ws", 13)
	v.SetDefault("board.pins.dout", 45)
	v.SetDefault("board.pins.din", 12)

	v.SetDefault("i2c.port", 0)
	v.SetDefault("i2c.address", 0x18)
	v.SetDefault("i2c.frequency", 100000)

	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.mclk_multiple", 384)
	v.SetDefault("audio.volume", 60)
	v.SetDefault("audio.mic_gain_db", 30)
	v.SetDefault("audio.digital_mic", false)

	v.SetDefault("transport.backend", "sim")
	v.SetDefault("transport.dma_desc_num", 6)
	v.SetDefault("transport.dma_frame_num", 240)
	v.SetDefault("transport.sim_source", "tone")
	v.SetDefault("transport.sim_tone_hz", 440.0)
	v.SetDefault("transport.sim_sink", "")

	v.SetDefault("music.file", "")
	v.SetDefault("music.delay", "1s")

	v.SetDefault("echo.buffer_size", 2400)
	v.SetDefault("echo.timeout", "1000ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.outputs", []string{"stdout"})
}

// Load 读取配置。path 为空时按默认路径搜索，找不到配置文件时使用默认值
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ES8311")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		// 使用命令行指定的路径
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		// 默认多路径搜索
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/es8311")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查在启动前就能发现的配置错误
func (c Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("mode %q: %w", c.Mode, ErrUnsupportedMode)
	}
	switch c.Board.Type {
	case "direct", "bsp":
	default:
		return fmt.Errorf("board type %q: %w", c.Board.Type, ErrUnsupportedBoard)
	}
	switch c.Transport.Backend {
	case "sim", "malgo", "portaudio":
	default:
		return fmt.Errorf("backend %q: %w", c.Transport.Backend, ErrUnsupportedBackend)
	}
	switch c.Transport.SimSource {
	case "silence", "tone":
	default:
		return fmt.Errorf("sim source %q: %w", c.Transport.SimSource, ErrInvalidConfig)
	}
	if c.I2C.Frequency == 0 {
		return fmt.Errorf("i2c frequency %d: %w", c.I2C.Frequency, ErrInvalidConfig)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("sample rate %d: %w", c.Audio.SampleRate, ErrInvalidConfig)
	}
	if c.Transport.DMADescNum <= 0 || c.Transport.DMAFrameNum <= 0 {
		return fmt.Errorf("dma geometry %dx%d: %w", c.Transport.DMADescNum, c.Transport.DMAFrameNum, ErrInvalidConfig)
	}
	if c.Echo.Timeout <= 0 {
		return fmt.Errorf("echo timeout %v: %w", c.Echo.Timeout, ErrInvalidConfig)
	}
	if c.Music.Delay < 0 {
		return fmt.Errorf("music delay %v: %w", c.Music.Delay, ErrInvalidConfig)
	}
	return nil
}

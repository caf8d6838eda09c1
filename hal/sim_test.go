package hal

import (
	"errors"
	"testing"

	"github.com/lisuiheng/es8311-go/pkg/status"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func TestSimBusRequiresConfigure(t *testing.T) {
	t.Parallel()

	bus := NewSimBus()
	bus.Attach(0x18, NewSimDevice(nil))

	if err := Registers(bus, 0x18).WriteUint8(0x01, 0x3f); !errors.Is(err, status.ErrInvalidState) {
		t.Fatalf("WriteUint8 before Configure: got %v, want ErrInvalidState", err)
	}
}

func TestSimBusConfigure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     BusConfig
		wantErr bool
	}{
		{"ok", BusConfig{SDA: 1, SCL: 2, Frequency: DefaultBusFrequency}, false},
		{"fast mode", BusConfig{SDA: 1, SCL: 2, Frequency: 400 * physic.KiloHertz}, false},
		{"zero frequency", BusConfig{SDA: 1, SCL: 2}, true},
		{"too fast", BusConfig{SDA: 1, SCL: 2, Frequency: 2 * physic.MegaHertz}, true},
		{"same pins", BusConfig{SDA: 3, SCL: 3, Frequency: DefaultBusFrequency}, true},
		{"no sda", BusConfig{SDA: NoPin, SCL: 2, Frequency: DefaultBusFrequency}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bus := NewSimBus()
			err := bus.Configure(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Configure() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && bus.Config().Frequency != tt.cfg.Frequency {
				t.Errorf("Config().Frequency = %s, want %s", bus.Config().Frequency, tt.cfg.Frequency)
			}
		})
	}
}

func TestSimDeviceReadWrite(t *testing.T) {
	t.Parallel()

	bus := NewSimBus()
	dev := NewSimDevice(map[uint8]uint8{0xfd: 0x83})
	bus.Attach(0x18, dev)
	if err := bus.Configure(BusConfig{SDA: 1, SCL: 2, Frequency: DefaultBusFrequency}); err != nil {
		t.Fatal(err)
	}
	regs := Registers(bus, 0x18)

	v, err := regs.ReadUint8(0xfd)
	if err != nil || v != 0x83 {
		t.Fatalf("ReadUint8() = %#x, %v; want 0x83, nil", v, err)
	}

	if err := regs.WriteUint8(0x32, 0xbf); err != nil {
		t.Fatal(err)
	}
	if got := dev.Register(0x32); got != 0xbf {
		t.Errorf("register 0x32 = %#x, want 0xbf", got)
	}
	if w := dev.Writes(); len(w) != 1 || w[0] != (RegWrite{Reg: 0x32, Value: 0xbf}) {
		t.Errorf("Writes() = %v", w)
	}

	if _, err := Registers(bus, 0x19).ReadUint8(0x00); !errors.Is(err, status.ErrNotFound) {
		t.Errorf("read from empty address: got %v, want ErrNotFound", err)
	}
}

func TestSimDeviceRecordedTransactions(t *testing.T) {
	t.Parallel()

	rec := &i2ctest.Record{Bus: NewSimDevice(map[uint8]uint8{0xfe: 0x11})}
	regs := Registers(rec, 0x18)

	if err := regs.WriteUint8(0x00, 0x80); err != nil {
		t.Fatal(err)
	}
	if v, err := regs.ReadUint8(0xfe); err != nil || v != 0x11 {
		t.Fatalf("ReadUint8() = %#x, %v", v, err)
	}

	want := []i2ctest.IO{
		{Addr: 0x18, W: []byte{0x00, 0x80}},
		{Addr: 0x18, W: []byte{0xfe}, R: []byte{0x11}},
	}
	if len(rec.Ops) != len(want) {
		t.Fatalf("recorded %d ops, want %d", len(rec.Ops), len(want))
	}
	for i, op := range rec.Ops {
		if op.Addr != want[i].Addr || string(op.W) != string(want[i].W) || string(op.R) != string(want[i].R) {
			t.Errorf("op %d = %+v, want %+v", i, op, want[i])
		}
	}
}

func TestNewSimPin(t *testing.T) {
	t.Parallel()

	p := NewSimPin(48)
	if p.Number() != 48 || p.Name() != "GPIO48" {
		t.Errorf("pin = %s #%d", p.Name(), p.Number())
	}
	if err := p.Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if p.Read() != gpio.High {
		t.Error("Read() = Low after Out(High)")
	}

	if err := NewSimPin(NoPin).Out(gpio.High); err == nil {
		t.Error("Out on NoPin should fail")
	}
}

package nes

import (
	"errors"
	"testing"

	"gones/internal/cartridge"
	"gones/internal/input"
)

// buildROM assembles a minimal iNES image: prgBanks*16KB of PRG ROM filled
// with NOP ($EA), chrBanks*8KB of CHR ROM, and the given mapper/battery
// flags in header byte 6.
func buildROM(prgBanks, chrBanks int, mapperID uint8, battery bool) []byte {
	header := make([]byte, 16)
	copy(header, []byte("NES\x1A"))
	header[4] = byte(prgBanks)
	header[5] = byte(chrBanks)
	header[6] = (mapperID & 0x0F) << 4
	if battery {
		header[6] |= 0x02
	}
	header[7] = mapperID & 0xF0

	prg := make([]byte, prgBanks*16384)
	for i := range prg {
		prg[i] = 0xEA
	}
	// Reset vector at the top of the last bank points back to $8000.
	prg[len(prg)-4] = 0x00
	prg[len(prg)-3] = 0x80

	chr := make([]byte, chrBanks*8192)

	rom := append([]byte{}, header...)
	rom = append(rom, prg...)
	rom = append(rom, chr...)
	return rom
}

func TestNew_ValidROM_ShouldConstructCore(t *testing.T) {
	rom := buildROM(2, 1, 0, false)

	core, err := New(rom, 44100)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if core == nil {
		t.Fatal("New returned nil core with nil error")
	}
}

func TestNew_BadMagic_ShouldReturnInvalidHeaderError(t *testing.T) {
	rom := buildROM(1, 1, 0, false)
	rom[0] = 'X'

	_, err := New(rom, 44100)
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	if !errors.Is(err, cartridge.ErrInvalidHeader) {
		t.Errorf("expected ErrInvalidHeader in chain, got: %v", err)
	}
}

func TestNew_TruncatedROM_ShouldReturnRomTruncatedError(t *testing.T) {
	rom := buildROM(2, 1, 0, false)
	rom = rom[:20] // header plus a few PRG bytes only

	_, err := New(rom, 44100)
	if err == nil {
		t.Fatal("expected error for truncated ROM")
	}
	if !errors.Is(err, cartridge.ErrRomTruncated) {
		t.Errorf("expected ErrRomTruncated in chain, got: %v", err)
	}
}

func TestCore_Step_ShouldEventuallyCompleteAFrame(t *testing.T) {
	rom := buildROM(2, 1, 0, false)
	core, err := New(rom, 44100)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	sawFrame := false
	for i := 0; i < 400000 && !sawFrame; i++ {
		if core.Step() == RunUntilFrame {
			sawFrame = true
		}
		if err := core.Err(); err != nil {
			t.Fatalf("core halted unexpectedly: %v", err)
		}
	}
	if !sawFrame {
		t.Fatal("Step never reported a completed frame")
	}
}

func TestCore_TakeFrame_ShouldReturnFullSizeImage(t *testing.T) {
	rom := buildROM(2, 1, 0, false)
	core, err := New(rom, 44100)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	frame := core.TakeFrame()
	if frame == nil {
		t.Fatal("TakeFrame returned nil")
	}
	if len(frame) != 256*240 {
		t.Fatalf("expected %d pixels, got %d", 256*240, len(frame))
	}
	for _, px := range frame {
		if px.A != 0xFF {
			t.Fatal("expected fully opaque alpha on every pixel")
		}
	}
}

func TestCore_DrainAudio_ShouldClearBufferBetweenCalls(t *testing.T) {
	rom := buildROM(2, 1, 0, false)
	core, err := New(rom, 44100)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	for i := 0; i < 2000; i++ {
		core.Step()
	}

	first := core.DrainAudio()
	second := core.DrainAudio()
	if len(second) != 0 {
		t.Errorf("expected drained buffer to stay empty until more samples accumulate, got %d samples", len(second))
	}
	_ = first
}

func TestCore_SetController_ShouldReachInputState(t *testing.T) {
	rom := buildROM(2, 1, 0, false)
	core, err := New(rom, 44100)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	core.SetController(1, input.ButtonA|input.ButtonStart)

	if !core.bus.GetInputState().Controller1.IsPressed(input.ButtonA) {
		t.Error("expected ButtonA pressed on controller 1")
	}
	if !core.bus.GetInputState().Controller1.IsPressed(input.ButtonStart) {
		t.Error("expected ButtonStart pressed on controller 1")
	}
	if core.bus.GetInputState().Controller1.IsPressed(input.ButtonB) {
		t.Error("expected ButtonB not pressed on controller 1")
	}
}

func TestCore_SaveRAM_NoBattery_ShouldReturnNil(t *testing.T) {
	rom := buildROM(2, 1, 0, false)
	core, err := New(rom, 44100)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if got := core.SaveRAM(); got != nil {
		t.Errorf("expected nil SaveRAM for non-battery cartridge, got %d bytes", len(got))
	}
}

func TestCore_SaveRAM_WithBattery_ShouldRoundTrip(t *testing.T) {
	rom := buildROM(2, 1, 0, true)
	core, err := New(rom, 44100)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	saved := core.SaveRAM()
	if saved == nil {
		t.Fatal("expected non-nil SaveRAM for battery-backed cartridge")
	}
	for i := range saved {
		saved[i] = uint8(i)
	}

	core.LoadRAM(saved)
	reloaded := core.SaveRAM()
	for i := range reloaded {
		if reloaded[i] != uint8(i) {
			t.Fatalf("PRG-RAM byte %d did not round-trip: got %d", i, reloaded[i])
		}
	}
}

func TestNewWithSeed_SamesSeedShouldProduceIdenticalPowerUpState(t *testing.T) {
	rom := buildROM(2, 1, 0, false)

	a, err := NewWithSeed(rom, 44100, 12345)
	if err != nil {
		t.Fatalf("NewWithSeed returned error: %v", err)
	}
	b, err := NewWithSeed(rom, 44100, 12345)
	if err != nil {
		t.Fatalf("NewWithSeed returned error: %v", err)
	}

	if a.TakeFrame() == nil || b.TakeFrame() == nil {
		t.Fatal("expected non-nil frames")
	}
}

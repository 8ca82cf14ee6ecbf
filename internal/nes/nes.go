// Package nes presents the whole emulator as a single facade: feed it an
// iNES ROM image, step it, and pull out video/audio/save data. It owns no
// emulation logic of its own, it only sequences the bus.
package nes

import (
	"bytes"
	"fmt"
	"image/color"
	"math/rand"

	"gones/internal/bus"
	"gones/internal/cartridge"
	"gones/internal/input"
)

// defaultSeed seeds the power-up randomizer when New is used instead of
// NewWithSeed, so test runs stay reproducible without callers having to
// think about it.
const defaultSeed = 0x6502

// StepResult reports which condition ended a Step call.
type StepResult int

const (
	// RunUntilFrame means Step stopped because a new video frame completed.
	RunUntilFrame StepResult = iota
	// RunUntilAudio means Step stopped because the audio buffer reached
	// the per-frame sample threshold before the next video frame did.
	RunUntilAudio
)

// audioChunkDivisor sets how many sample-buffer fills happen per video
// frame before DrainAudio has something worth returning; 60 keeps roughly
// one NTSC frame of audio per RunUntilAudio stop.
const audioChunkDivisor = 60

// Core is the emulator: one cartridge, one bus, one frame/audio cadence.
type Core struct {
	bus  *bus.Bus
	cart *cartridge.Cartridge

	rng *rand.Rand

	audioThreshold int
}

// New loads rom and returns a Core producing audio at sampleRate samples
// per second. Power-up RAM is randomized from a fixed default seed.
func New(rom []byte, sampleRate int) (*Core, error) {
	return NewWithSeed(rom, sampleRate, defaultSeed)
}

// NewWithSeed is New with an explicit power-up randomization seed, for
// callers that want a different (but still reproducible) power-up state.
func NewWithSeed(rom []byte, sampleRate int, seed int64) (*Core, error) {
	cart, err := cartridge.LoadFromReader(bytes.NewReader(rom))
	if err != nil {
		return nil, fmt.Errorf("nes: load cartridge: %w", err)
	}

	b := bus.New()
	b.SetAudioSampleRate(sampleRate)
	b.LoadCartridge(cart)

	threshold := sampleRate / audioChunkDivisor
	if threshold < 1 {
		threshold = 1
	}

	c := &Core{
		bus:            b,
		cart:           cart,
		rng:            rand.New(rand.NewSource(seed)),
		audioThreshold: threshold,
	}
	c.randomizePowerUpState()

	return c, nil
}

// randomizePowerUpState fills palette RAM and CPU/PRG work RAM with the
// Core's seeded randomizer rather than the all-zero (or hardcoded pattern)
// state Reset otherwise leaves behind, matching real hardware's
// unspecified power-up contents.
func (c *Core) randomizePowerUpState() {
	c.bus.Memory.RandomizeRAM(c.rng)
	c.bus.PPU.RandomizePaletteRAM(c.rng)
}

// Reset pulls the reset line: CPU/PPU/APU/input state reinitializes, but
// PRG-RAM, palette RAM and the cartridge itself are untouched.
func (c *Core) Reset() {
	c.bus.Reset()
}

// Step runs the bus forward until either the PPU finishes a video frame or
// the APU accumulates a frame's worth of audio samples, whichever comes
// first, and reports which one happened.
func (c *Core) Step() StepResult {
	startFrame := c.bus.GetFrameCount()

	if c.bus.CPU.Halted {
		return RunUntilFrame
	}

	for {
		c.bus.Step()

		if c.bus.CPU.Halted {
			return RunUntilFrame
		}

		if c.bus.GetFrameCount() != startFrame {
			return RunUntilFrame
		}

		if len(c.bus.APU.PeekSamples()) >= c.audioThreshold {
			return RunUntilAudio
		}
	}
}

// Err returns the error that halted the CPU on an illegal opcode, or nil
// if it is still running. Once set it never clears; callers should stop
// calling Step.
func (c *Core) Err() error {
	return c.bus.CPU.Err
}

// TakeFrame converts the PPU's packed 0x00RRGGBB frame buffer into an RGBA
// image snapshot.
func (c *Core) TakeFrame() *[256 * 240]color.RGBA {
	packed := c.bus.GetFrameBuffer()

	var frame [256 * 240]color.RGBA
	for i, px := range packed {
		frame[i] = color.RGBA{
			R: uint8(px >> 16),
			G: uint8(px >> 8),
			B: uint8(px),
			A: 0xFF,
		}
	}
	return &frame
}

// DrainAudio returns and clears the samples accumulated since the last
// call.
func (c *Core) DrainAudio() []float32 {
	return c.bus.GetAudioSamples()
}

// SetController sets a player's full button state from a bitmask (bit 0 =
// A through bit 7 = Right, per input.Button's ordering).
func (c *Core) SetController(player int, mask input.Button) {
	var buttons [8]bool
	for i := range buttons {
		buttons[i] = mask&input.Button(1<<i) != 0
	}
	c.bus.SetControllerButtons(player, buttons)
}

// SaveRAM returns a copy of the cartridge's battery-backed PRG-RAM, or nil
// if the cartridge has none.
func (c *Core) SaveRAM() []byte {
	return c.cart.SaveRAM()
}

// LoadRAM restores previously saved PRG-RAM, ignored if the cartridge has
// no battery backup.
func (c *Core) LoadRAM(data []byte) {
	c.cart.LoadRAM(data)
}

package ppu

import (
	"testing"

	"gones/internal/memory"
)

// MockCartridge implements a simple cartridge for testing
type MockCartridge struct {
	chrData [0x2000]uint8 // 8KB CHR ROM/RAM
}

func NewMockCartridge() *MockCartridge {
	return &MockCartridge{}
}

func (m *MockCartridge) ReadPRG(address uint16) uint8         { return 0 }
func (m *MockCartridge) WritePRG(address uint16, value uint8) {}

func (m *MockCartridge) ReadCHR(address uint16) uint8 {
	return m.chrData[address&0x1FFF]
}

func (m *MockCartridge) WriteCHR(address uint16, value uint8) {
	m.chrData[address&0x1FFF] = value
}

func (m *MockCartridge) SetCHRByte(address uint16, value uint8) {
	m.chrData[address&0x1FFF] = value
}

func (m *MockCartridge) NotifyA12(address uint16, ppuDot int) {}
func (m *MockCartridge) IRQLine() bool                        { return false }

// newTestPPU returns a PPU wired to a fresh mock cartridge through the
// standard horizontal-mirrored nametable layout.
func newTestPPU() (*PPU, *MockCartridge) {
	cart := NewMockCartridge()
	mem := memory.NewPPUMemory(cart, memory.MirrorHorizontal)
	p := New()
	p.SetBus(mem)
	return p, cart
}

func TestPPUCreation(t *testing.T) {
	p := New()

	if p.scanline != -1 {
		t.Errorf("expected initial scanline -1, got %d", p.scanline)
	}
	if p.cycle != 0 {
		t.Errorf("expected initial cycle 0, got %d", p.cycle)
	}
	if p.frameCount != 0 {
		t.Errorf("expected initial frame count 0, got %d", p.frameCount)
	}
	if p.oddFrame {
		t.Error("expected initial odd frame false")
	}
	if p.paletteRAM[0] != 0x0F {
		t.Errorf("expected backdrop palette entry seeded to $0F, got $%02X", p.paletteRAM[0])
	}
}

func TestPPUReset(t *testing.T) {
	p, _ := newTestPPU()

	p.ppuCtrl = 0xFF
	p.ppuMask = 0xFF
	p.oamAddr = 0x80
	p.scanline = 100
	p.cycle = 200
	p.frameCount = 5
	p.v = 0x2000
	p.t = 0x1000
	p.x = 7
	p.w = true
	p.warmedUp = true

	p.Reset()

	if p.ppuCtrl != 0 || p.ppuMask != 0 || p.oamAddr != 0 {
		t.Errorf("expected registers cleared after reset, got ctrl=%02X mask=%02X oamAddr=%02X",
			p.ppuCtrl, p.ppuMask, p.oamAddr)
	}
	if p.scanline != -1 || p.cycle != 0 {
		t.Errorf("expected dot counters reset to (-1, 0), got (%d, %d)", p.scanline, p.cycle)
	}
	if p.v != 0 || p.t != 0 || p.x != 0 || p.w {
		t.Error("expected scroll state cleared after reset")
	}
	if p.warmedUp {
		t.Error("expected warm-up flag cleared after reset")
	}
	if p.ppuStatus != 0xA0 {
		t.Errorf("expected power-up PPUSTATUS $A0, got $%02X", p.ppuStatus)
	}
}

func TestRegisterWritesIgnoredBeforeWarmup(t *testing.T) {
	p, _ := newTestPPU()

	p.WriteRegister(0x2000, 0x80)
	if p.ppuCtrl != 0 {
		t.Error("PPUCTRL write before warm-up should be ignored")
	}

	p.WriteRegister(0x2001, 0x1E)
	if p.ppuMask != 0 {
		t.Error("PPUMASK write before warm-up should be ignored")
	}

	// Run the first pre-render dot where warm-up completes (Step processes
	// the dot at the current position, then advances).
	p.scanline, p.cycle = -1, 1
	p.Step()
	if !p.warmedUp {
		t.Fatal("expected warm-up to complete at (-1, 1)")
	}

	p.WriteRegister(0x2000, 0x80)
	if p.ppuCtrl != 0x80 {
		t.Errorf("expected PPUCTRL write to take effect after warm-up, got $%02X", p.ppuCtrl)
	}
}

func TestPPUStatusReadClearsVBlankAndLatch(t *testing.T) {
	p, _ := newTestPPU()
	p.ppuStatus = 0x80
	p.w = true

	status := p.ReadRegister(0x2002)

	if status&0x80 == 0 {
		t.Error("expected VBlank bit set in the returned status")
	}
	if p.ppuStatus&0x80 != 0 {
		t.Error("expected VBlank flag cleared by reading PPUSTATUS")
	}
	if p.w {
		t.Error("expected write toggle cleared by reading PPUSTATUS")
	}
}

func TestOAMReadWrite(t *testing.T) {
	p, _ := newTestPPU()

	p.WriteRegister(0x2003, 0x10) // OAMADDR
	p.WriteRegister(0x2004, 0x42) // OAMDATA

	if p.oam[0x10] != 0x42 {
		t.Errorf("expected OAM[$10] = $42, got $%02X", p.oam[0x10])
	}
	if p.oamAddr != 0x11 {
		t.Errorf("expected OAMADDR to auto-increment to $11, got $%02X", p.oamAddr)
	}

	p.WriteOAM(0x20, 0x55)
	p.WriteRegister(0x2003, 0x20)
	if p.ReadRegister(0x2004) != 0x55 {
		t.Error("expected DMA-written OAM byte visible through OAMDATA read")
	}
}

func TestScrollLatchSequence(t *testing.T) {
	p, _ := newTestPPU()

	p.WriteRegister(0x2005, 0x7D) // X scroll: coarse $0F, fine 5
	if !p.w {
		t.Fatal("expected write toggle set after first scroll write")
	}
	if p.x != 5 {
		t.Errorf("expected fine X 5, got %d", p.x)
	}

	p.WriteRegister(0x2005, 0x5E) // Y scroll
	if p.w {
		t.Error("expected write toggle cleared after second scroll write")
	}
}

func TestAddrLatchSequence(t *testing.T) {
	p, _ := newTestPPU()

	p.WriteRegister(0x2006, 0x21)
	p.WriteRegister(0x2006, 0x08)

	if p.v != 0x2108 {
		t.Errorf("expected v=$2108 after two-byte address write, got $%04X", p.v)
	}
}

func TestPPUDataBufferedRead(t *testing.T) {
	p, _ := newTestPPU()
	mem := p.bus.(*memory.PPUMemory)
	mem.Write(0x2005, 0xAB)

	p.v = 0x2005
	first := p.ReadRegister(0x2007)
	if first == 0xAB {
		t.Error("expected first PPUDATA read to return stale buffer contents, not the fresh byte")
	}

	second := p.ReadRegister(0x2007)
	if second != 0xAB {
		t.Errorf("expected second PPUDATA read to return buffered $AB, got $%02X", second)
	}
}

func TestPPUDataPaletteReadIsUnbuffered(t *testing.T) {
	p, _ := newTestPPU()
	p.paletteRAM[0x05] = 0x2C

	p.v = 0x3F05
	value := p.ReadRegister(0x2007)
	if value != 0x2C {
		t.Errorf("expected immediate palette read $2C, got $%02X", value)
	}
}

func TestPaletteMirroring(t *testing.T) {
	p, _ := newTestPPU()

	p.v = 0x3F00
	p.WriteRegister(0x2007, 0x20)

	if p.readPalette(0x3F10) != 0x20 {
		t.Errorf("expected $3F10 to alias $3F00, got $3F10=$%02X", p.readPalette(0x3F10))
	}
}

func TestVRAMAddressIncrement(t *testing.T) {
	p, _ := newTestPPU()

	p.v = 0x2000
	p.ppuCtrl = 0 // horizontal increment (+1)
	p.WriteRegister(0x2007, 0)
	if p.v != 0x2001 {
		t.Errorf("expected +1 increment, got v=$%04X", p.v)
	}

	p.v = 0x2000
	p.ppuCtrl = 0x04 // vertical increment (+32)
	p.WriteRegister(0x2007, 0)
	if p.v != 0x2020 {
		t.Errorf("expected +32 increment, got v=$%04X", p.v)
	}
}

func TestVBlankSetsNMI(t *testing.T) {
	p, _ := newTestPPU()
	p.ppuCtrl = 0x80

	fired := false
	p.SetNMICallback(func() { fired = true })

	p.scanline, p.cycle = 241, 1
	p.Step()

	if p.ppuStatus&0x80 == 0 {
		t.Error("expected VBlank flag set at scanline 241 cycle 1")
	}
	if !fired {
		t.Error("expected NMI callback invoked when NMI-enable is set at VBlank start")
	}
}

func TestOddFrameDotSkip(t *testing.T) {
	p, _ := newTestPPU()
	p.renderingEnabled = true
	p.oddFrame = true
	p.scanline, p.cycle = -1, 339

	p.Step()

	if p.scanline != 0 || p.cycle != 0 {
		t.Errorf("expected odd-frame skip to jump from (-1, 339) to (0, 0), got (%d, %d)", p.scanline, p.cycle)
	}
}

func TestBackgroundFetchReloadsShifters(t *testing.T) {
	p, cart := newTestPPU()
	p.renderingEnabled = true
	p.backgroundEnabled = true

	mem := p.bus.(*memory.PPUMemory)
	mem.Write(0x2000, 0x01) // nametable byte -> tile 1
	cart.SetCHRByte(0x0010, 0xFF)
	cart.SetCHRByte(0x0018, 0x0F)

	p.v = 0x0000 // nametable 0, coarse X/Y 0, fine Y 0
	p.scanline = 0
	for c := 1; c <= 9; c++ {
		p.cycle = c
		p.fetchBackgroundByte()
	}

	if p.bgPatternLo&0xFF != 0xFF {
		t.Errorf("expected reloaded shifter low byte $FF, got $%02X", p.bgPatternLo&0xFF)
	}
	if p.bgPatternHi&0xFF != 0x0F {
		t.Errorf("expected reloaded shifter high byte $0F, got $%02X", p.bgPatternHi&0xFF)
	}
}

func TestSpriteEvaluationFindsInRangeSprites(t *testing.T) {
	p, _ := newTestPPU()
	p.oam[0] = 10 // Y
	p.oam[1] = 1  // tile
	p.oam[2] = 0  // attr
	p.oam[3] = 20 // X

	p.scanline = 9 // targetLine = 10, matches sprite Y
	p.evaluateSprites()

	if p.spriteCount != 1 {
		t.Fatalf("expected one sprite in range, got %d", p.spriteCount)
	}
	if !p.sprite0InRange {
		t.Error("expected sprite 0 flagged in range")
	}
}

func TestSpriteOverflowBugSetsFlagPastEighth(t *testing.T) {
	p, _ := newTestPPU()

	for i := 0; i < 9; i++ {
		p.oam[i*4] = 5 // all in range on scanline 4
		p.oam[i*4+3] = uint8(i * 8)
	}

	p.scanline = 4
	p.evaluateSprites()

	if p.spriteCount != 8 {
		t.Errorf("expected evaluation to cap at 8 sprites, got %d", p.spriteCount)
	}
	if !p.spriteOverflow {
		t.Error("expected sprite overflow flag set with a 9th in-range sprite")
	}
	if p.ppuStatus&0x20 == 0 {
		t.Error("expected PPUSTATUS overflow bit set")
	}
}

func TestSprite0HitRequiresOpaquePixelsAndEnabledRendering(t *testing.T) {
	p, _ := newTestPPU()
	p.backgroundEnabled = true
	p.spritesEnabled = true
	p.ppuMask = 0x18 // left-edge clipping active (bits 1-2 clear)

	p.bgPatternLo = 0x8000 // opaque background pixel at x=0
	p.x = 0

	p.spriteIndex[0] = 0
	p.spriteCount = 1
	p.spriteX[0] = 8
	p.spritePatLo[0] = 0x80
	p.spriteAttr[0] = 0

	p.scanline = 0
	p.composePixel(8, 0)

	if !p.sprite0Hit {
		t.Error("expected sprite-0 hit at x=8 with opaque background and sprite pixels")
	}
}

func TestSprite0HitExcludedAtX255(t *testing.T) {
	p, _ := newTestPPU()
	p.backgroundEnabled = true
	p.spritesEnabled = true

	p.bgPatternLo = 0x8000
	p.spriteIndex[0] = 0
	p.spriteCount = 1
	p.spriteX[0] = 255
	p.spritePatLo[0] = 0x80
	p.spriteAttr[0] = 0

	p.scanline = 0
	p.composePixel(255, 0)

	if p.sprite0Hit {
		t.Error("expected x=255 excluded from sprite-0 hit detection per hardware quirk")
	}
}

func TestReverseBitsForSpriteHorizontalFlip(t *testing.T) {
	if got := reverseBits(0b10000001); got != 0b10000001 {
		t.Errorf("expected palindromic byte unchanged, got %08b", got)
	}
	if got := reverseBits(0b00000001); got != 0b10000000 {
		t.Errorf("expected single low bit to flip to the high bit, got %08b", got)
	}
}

func TestNESColorToRGBOutOfRangeIsZero(t *testing.T) {
	if NESColorToRGB(64) != 0 {
		t.Error("expected out-of-range color index to return 0")
	}
	if NESColorToRGB(0) == 0 {
		t.Error("expected color index 0 to map to a real palette entry")
	}
}

// Package memory implements memory management and mappers for the NES.
package memory

import "math/rand"

// Memory represents the NES memory map
type Memory struct {
	// Internal RAM (2KB, mirrored to 8KB)
	ram [0x800]uint8

	// PPU registers (mirrored)
	ppuRegisters PPUInterface

	// APU and I/O registers
	apuRegisters APUInterface

	// Input system
	inputSystem InputInterface

	// Cartridge
	cartridge CartridgeInterface

	// DMA callback
	dmaCallback func(uint8)

	// Open bus - last value read from bus (for unmapped areas)
	openBusValue uint8
}

// PPUMemory backs the PPU's pattern-table and nametable address space.
// Palette RAM lives inside the PPU itself and is never routed through here.
type PPUMemory struct {
	vram      [0x1000]uint8 // 4KB VRAM (nametables)
	cartridge CartridgeInterface
	mirroring MirrorMode
}

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

// PPUInterface defines the interface for PPU register access
type PPUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// APUInterface defines the interface for APU register access
type APUInterface interface {
	WriteRegister(address uint16, value uint8)
	ReadStatus() uint8
}

// InputInterface defines the interface for input system access
type InputInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CartridgeInterface defines the interface for cartridge access
type CartridgeInterface interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)

	// NotifyA12 reports a PPU pattern-table fetch so mappers that derive
	// an IRQ from address-line 12 transitions (MMC3) can track it.
	NotifyA12(address uint16, ppuDot int)

	// IRQLine reports whether the mapper's IRQ line is currently asserted.
	IRQLine() bool
}

// New creates a new Memory instance
func New(ppu PPUInterface, apu APUInterface, cart CartridgeInterface) *Memory {
	mem := &Memory{
		ppuRegisters: ppu,
		apuRegisters: apu,
		cartridge:    cart,
	}

	mem.initializePowerUpRAM()

	return mem
}

// SetInputSystem sets the input system for controller access
func (m *Memory) SetInputSystem(input InputInterface) {
	m.inputSystem = input
}

// SetDMACallback sets the DMA callback function
// MapperIRQLine reports whether the cartridge mapper's IRQ line is asserted.
func (m *Memory) MapperIRQLine() bool {
	if m.cartridge == nil {
		return false
	}
	return m.cartridge.IRQLine()
}

func (m *Memory) SetDMACallback(callback func(uint8)) {
	m.dmaCallback = callback
}

// initializePowerUpRAM seeds RAM with the semi-random pattern real NES RAM
// powers up with, rather than all zeros. The exact bit pattern is
// unspecified by hardware and varies by console; a seeded PRNG gives
// deterministic-but-non-trivial startup state instead of one tuned to a
// single game.
func (m *Memory) initializePowerUpRAM() {
	rng := rand.New(rand.NewSource(0xC0FFEE))
	m.RandomizeRAM(rng)
}

// RandomizeRAM overwrites internal RAM with values drawn from rng. Exposed
// so a caller managing its own seed (internal/nes.Core) can reseed RAM
// after construction instead of relying on the fixed default.
func (m *Memory) RandomizeRAM(rng *rand.Rand) {
	for i := range m.ram {
		m.ram[i] = uint8(rng.Intn(256))
	}
}

// Read reads a byte from the given address
func (m *Memory) Read(address uint16) uint8 {
	var value uint8

	switch {
	case address < 0x2000:
		// Internal RAM (mirrored)
		realAddr := address & 0x07FF
		value = m.ram[realAddr]

	case address < 0x4000:
		// PPU registers (mirrored every 8 bytes)
		value = m.ppuRegisters.ReadRegister(0x2000 + (address & 0x0007))

	case address < 0x4020:
		// APU and I/O registers
		if address == 0x4015 {
			value = m.apuRegisters.ReadStatus()
		} else if address == 0x4016 || address == 0x4017 {
			if m.inputSystem != nil {
				value = m.inputSystem.Read(address)
			} else {
				value = 0
			}
		} else {
			// Other APU/I/O registers are write-only, return open bus
			value = m.openBusValue
		}

	case address >= 0x6000 && address < 0x8000:
		// PRG RAM/SRAM ($6000-$7FFF)
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}

	case address < 0x8000:
		// Cartridge expansion area ($4020-$5FFF) - unmapped, reads as 0
		value = 0

	default:
		// PRG ROM ($8000-$FFFF)
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}
	}

	// Simulates the last value on the bus lingering for unmapped reads.
	m.openBusValue = value
	return value
}

// Write writes a byte to the given address
func (m *Memory) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		// Internal RAM (mirrored)
		realAddr := address & 0x07FF
		m.ram[realAddr] = value

	case address < 0x4000:
		// PPU registers (mirrored every 8 bytes)
		m.ppuRegisters.WriteRegister(0x2000+(address&0x0007), value)

	case address < 0x4020:
		if address == 0x4014 {
			// OAM DMA - trigger through callback if available
			if m.dmaCallback != nil {
				m.dmaCallback(value)
			} else {
				m.performOAMDMA(value)
			}
		} else if address == 0x4016 {
			if m.inputSystem != nil {
				m.inputSystem.Write(address, value)
			}
		} else if address >= 0x4000 && address <= 0x4013 {
			m.apuRegisters.WriteRegister(address, value)
		} else if address == 0x4015 {
			m.apuRegisters.WriteRegister(address, value)
		} else if address == 0x4017 {
			m.apuRegisters.WriteRegister(address, value)
		}
		// Test mode registers ($4018-$401F) are ignored

	case address >= 0x6000 && address < 0x8000:
		// PRG RAM/SRAM ($6000-$7FFF)
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}

	case address < 0x8000:
		// Cartridge expansion area ($4020-$5FFF) - unmapped, ignore writes

	default:
		// PRG ROM ($8000-$FFFF) (some mappers allow writes)
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}
	}
}

// performOAMDMA performs an immediate OAM DMA transfer, used when no DMA
// callback has been wired (the bus normally intercepts $4014 itself to
// apply the correct 513/514-cycle stall).
func (m *Memory) performOAMDMA(page uint8) {
	baseAddress := uint16(page) << 8
	for i := uint16(0); i < 256; i++ {
		value := m.Read(baseAddress + i)
		m.ppuRegisters.WriteRegister(0x2004, value)
	}
}

// NewPPUMemory creates a new PPU memory instance
func NewPPUMemory(cart CartridgeInterface, mirroring MirrorMode) *PPUMemory {
	return &PPUMemory{
		cartridge: cart,
		mirroring: mirroring,
	}
}

// Read reads from PPU address space ($0000-$2FFF and mirrors through $3EFF).
// Palette addresses ($3F00+) are handled by the PPU before it ever calls
// this, so they never reach here in practice.
func (pm *PPUMemory) Read(address uint16) uint8 {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		return pm.cartridge.ReadCHR(address)

	case address < 0x3000:
		return pm.readNametable(address)

	default:
		return pm.readNametable(address - 0x1000)
	}
}

// NotifyA12 forwards a pattern-table fetch address to the cartridge mapper.
func (pm *PPUMemory) NotifyA12(address uint16, ppuDot int) {
	if pm.cartridge == nil {
		return
	}
	pm.cartridge.NotifyA12(address&0x1FFF, ppuDot)
}

// Write writes to PPU address space ($0000-$2FFF and mirrors through $3EFF).
func (pm *PPUMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		pm.cartridge.WriteCHR(address, value)

	case address < 0x3000:
		pm.writeNametable(address, value)

	default:
		pm.writeNametable(address-0x1000, value)
	}
}

// readNametable reads from nametable with mirroring
func (pm *PPUMemory) readNametable(address uint16) uint8 {
	index := pm.getNametableIndex(address)
	return pm.vram[index]
}

// writeNametable writes to nametable with mirroring
func (pm *PPUMemory) writeNametable(address uint16, value uint8) {
	index := pm.getNametableIndex(address)
	pm.vram[index] = value
}

// getNametableIndex calculates the actual VRAM index based on mirroring mode
func (pm *PPUMemory) getNametableIndex(address uint16) uint16 {
	address &= 0x0FFF                // Keep only nametable bits
	nametable := (address >> 10) & 3 // Which nametable (0-3)
	offset := address & 0x3FF        // Offset within nametable

	switch pm.mirroring {
	case MirrorHorizontal:
		if nametable >= 2 {
			return 0x400 + offset
		}
		return offset

	case MirrorVertical:
		if nametable == 1 || nametable == 3 {
			return 0x400 + offset
		}
		return offset

	case MirrorSingleScreen0:
		return offset

	case MirrorSingleScreen1:
		return 0x400 + offset

	case MirrorFourScreen:
		return uint16(nametable)*0x400 + offset

	default:
		return offset
	}
}

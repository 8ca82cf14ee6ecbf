package cartridge

// Mapper004 implements iNES Mapper 4 (MMC3): Super Mario Bros. 2/3, Mega
// Man 3-6, and roughly a quarter of licensed NES games. Two independent
// PRG windows are bank-switchable, two more are hardwired; CHR splits
// into a 2KB+2KB+1KB*4 arrangement whose layout flips with chrMode.
//
// The scanline IRQ counter is clocked by transitions of PPU address-line
// 12, not by a scanline callback: NotifyA12 is fed every pattern-table
// fetch address the PPU makes, and a rising edge only clocks the counter
// if A12 was low for at least 9 PPU dots beforehand (the real hardware's
// M2 filter, which rejects the brief A12 toggles sprite pattern fetches
// cause within a single fetch group).
type Mapper004 struct {
	prgROM []uint8
	chrMem []uint8
	prgRAM [0x2000]uint8

	prgBanks uint8
	chrIsRAM bool

	bankSelect uint8
	prgMode    uint8
	chrMode    uint8
	registers  [8]uint8

	mirroring MirrorMode

	prgRAMEnabled      bool
	prgRAMWriteProtect bool

	irqLatch      uint8
	irqCounter    uint8
	irqEnabled    bool
	irqPending    bool
	irqReloadFlag bool

	haveA12     bool
	a12High     bool
	a12LowSince int
}

// NewMapper004 creates an MMC3 mapper from the cartridge's raw PRG/CHR data.
func NewMapper004(prgROM, chrROM []uint8, hasCHRRAM bool, mirroring MirrorMode) *Mapper004 {
	m := &Mapper004{
		prgROM:        append([]uint8(nil), prgROM...),
		prgBanks:      uint8(len(prgROM) / 0x2000),
		mirroring:     mirroring,
		prgRAMEnabled: true,
	}

	if hasCHRRAM || len(chrROM) == 0 {
		m.chrMem = make([]uint8, 0x2000)
		m.chrIsRAM = true
	} else {
		m.chrMem = append([]uint8(nil), chrROM...)
		m.chrIsRAM = false
	}

	return m
}

// ReadPRG reads PRG-RAM or one of the four 8KB PRG windows, two of which
// swap position depending on prgMode.
func (m *Mapper004) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.prgRAM[address-0x6000]
		}
		return 0

	case address >= 0x8000 && address < 0xA000:
		var bank uint8
		if m.prgMode == 0 {
			bank = m.registers[6]
		} else {
			bank = m.prgBanks - 2
		}
		return m.readPRGBank(bank, address-0x8000)

	case address >= 0xA000 && address < 0xC000:
		return m.readPRGBank(m.registers[7], address-0xA000)

	case address >= 0xC000 && address < 0xE000:
		var bank uint8
		if m.prgMode == 0 {
			bank = m.prgBanks - 2
		} else {
			bank = m.registers[6]
		}
		return m.readPRGBank(bank, address-0xC000)

	default:
		return m.readPRGBank(m.prgBanks-1, address-0xE000)
	}
}

func (m *Mapper004) readPRGBank(bank uint8, offsetInBank uint16) uint8 {
	offset := uint32(bank)*0x2000 + uint32(offsetInBank)
	if int(offset) < len(m.prgROM) {
		return m.prgROM[offset]
	}
	return 0
}

// WritePRG dispatches to PRG-RAM or one of the four even/odd register
// pairs mapped across $8000-$FFFF.
func (m *Mapper004) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled && !m.prgRAMWriteProtect {
			m.prgRAM[address-0x6000] = value
		}

	case address >= 0x8000 && address < 0xA000:
		if address&1 == 0 {
			m.bankSelect = value & 0x07
			m.prgMode = (value >> 6) & 0x01
			m.chrMode = (value >> 7) & 0x01
		} else {
			m.registers[m.bankSelect] = value
		}

	case address >= 0xA000 && address < 0xC000:
		if address&1 == 0 {
			if value&1 == 0 {
				m.mirroring = MirrorVertical
			} else {
				m.mirroring = MirrorHorizontal
			}
		} else {
			m.prgRAMWriteProtect = (value & 0x40) != 0
			m.prgRAMEnabled = (value & 0x80) != 0
		}

	case address >= 0xC000 && address < 0xE000:
		if address&1 == 0 {
			m.irqLatch = value
		} else {
			m.irqCounter = 0
			m.irqReloadFlag = true
		}

	default:
		if address&1 == 0 {
			m.irqEnabled = false
			m.irqPending = false
		} else {
			m.irqEnabled = true
		}
	}
}

// chrOffset maps a PPU CHR address through the active chrMode arrangement:
// mode 0 puts the 2KB banks (R0/R1) at $0000 and the 1KB banks (R2-R5) at
// $1000; mode 1 flips the two halves.
func (m *Mapper004) chrOffset(address uint16) uint32 {
	if m.chrMode == 0 {
		switch {
		case address < 0x0800:
			return uint32(m.registers[0]&0xFE)*0x400 + uint32(address)
		case address < 0x1000:
			return uint32(m.registers[1]&0xFE)*0x400 + uint32(address-0x0800)
		case address < 0x1400:
			return uint32(m.registers[2])*0x400 + uint32(address-0x1000)
		case address < 0x1800:
			return uint32(m.registers[3])*0x400 + uint32(address-0x1400)
		case address < 0x1C00:
			return uint32(m.registers[4])*0x400 + uint32(address-0x1800)
		default:
			return uint32(m.registers[5])*0x400 + uint32(address-0x1C00)
		}
	}

	switch {
	case address < 0x0400:
		return uint32(m.registers[2])*0x400 + uint32(address)
	case address < 0x0800:
		return uint32(m.registers[3])*0x400 + uint32(address-0x0400)
	case address < 0x0C00:
		return uint32(m.registers[4])*0x400 + uint32(address-0x0800)
	case address < 0x1000:
		return uint32(m.registers[5])*0x400 + uint32(address-0x0C00)
	case address < 0x1800:
		return uint32(m.registers[0]&0xFE)*0x400 + uint32(address-0x1000)
	default:
		return uint32(m.registers[1]&0xFE)*0x400 + uint32(address-0x1800)
	}
}

// ReadCHR reads the currently banked CHR byte.
func (m *Mapper004) ReadCHR(address uint16) uint8 {
	offset := m.chrOffset(address)
	if int(offset) < len(m.chrMem) {
		return m.chrMem[offset]
	}
	return 0
}

// WriteCHR writes CHR-RAM; CHR-ROM cartridges ignore it.
func (m *Mapper004) WriteCHR(address uint16, value uint8) {
	if !m.chrIsRAM {
		return
	}
	offset := m.chrOffset(address)
	if int(offset) < len(m.chrMem) {
		m.chrMem[offset] = value
	}
}

// Mirroring returns the mirroring mode selected by the last $A000 write.
func (m *Mapper004) Mirroring() MirrorMode {
	return m.mirroring
}

// IRQLine reports the counter's pending IRQ; it stays asserted until
// cleared by an $E000 (even) write, matching real MMC3 behavior.
func (m *Mapper004) IRQLine() bool {
	return m.irqPending
}

// NotifyA12 tracks address-line 12 transitions and clocks the scanline
// counter on a rising edge that followed at least 9 PPU dots of A12 low.
func (m *Mapper004) NotifyA12(address uint16, ppuDot int) {
	high := address&0x1000 != 0

	if !m.haveA12 {
		m.haveA12 = true
		m.a12High = high
		if !high {
			m.a12LowSince = ppuDot
		}
		return
	}

	if high == m.a12High {
		return
	}

	if high {
		if ppuDot-m.a12LowSince >= 9 {
			m.clockCounter()
		}
	} else {
		m.a12LowSince = ppuDot
	}
	m.a12High = high
}

// PRGRAM returns MMC3's 8KB PRG-RAM.
func (m *Mapper004) PRGRAM() []uint8 {
	return m.prgRAM[:]
}

func (m *Mapper004) clockCounter() {
	if m.irqCounter == 0 || m.irqReloadFlag {
		m.irqCounter = m.irqLatch
		m.irqReloadFlag = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		m.irqPending = true
	}
}

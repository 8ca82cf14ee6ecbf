package cartridge

// Mapper001 implements iNES Mapper 1 (MMC1): The Legend of Zelda, Metroid,
// Mega Man 2, Kid Icarus and roughly a quarter of licensed NES games.
//
// All control writes go through a 5-bit serial shift register loaded one
// bit per write (LSB first); the fifth write copies the accumulated value
// into one of four internal registers selected by the target address.
// Writing with bit 7 set resets the shift register and forces PRG mode 3
// regardless of shift progress.
type Mapper001 struct {
	prgROM []uint8
	chrMem []uint8
	prgRAM [0x2000]uint8

	prgBanks uint8
	chrBanks uint8
	chrIsRAM bool

	shiftRegister uint8
	shiftCount    uint8

	mirroring MirrorMode
	prgMode   uint8 // 0/1: 32KB; 2: fix first bank; 3: fix last bank
	chrMode   uint8 // 0: 8KB; 1: 4KB

	chrBank0 uint8
	chrBank1 uint8
	prgBank  uint8

	prgRAMEnabled bool
}

// NewMapper001 creates an MMC1 mapper from the cartridge's raw PRG/CHR data.
func NewMapper001(prgROM, chrROM []uint8, hasCHRRAM bool, mirroring MirrorMode) *Mapper001 {
	m := &Mapper001{
		prgROM:        append([]uint8(nil), prgROM...),
		prgBanks:      uint8(len(prgROM) / 0x4000),
		shiftRegister: 0x10,
		prgMode:       3,
		mirroring:     mirroring,
		prgRAMEnabled: true,
	}

	if hasCHRRAM || len(chrROM) == 0 {
		m.chrMem = make([]uint8, 0x2000)
		m.chrBanks = 2
		m.chrIsRAM = true
	} else {
		m.chrMem = append([]uint8(nil), chrROM...)
		m.chrBanks = uint8(len(chrROM) / 0x1000)
		m.chrIsRAM = false
	}

	return m
}

// ReadPRG reads PRG-RAM ($6000-$7FFF) or the currently banked PRG-ROM
// windows ($8000-$BFFF, $C000-$FFFF) per the active prgMode.
func (m *Mapper001) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.prgRAM[address-0x6000]
		}
		return 0

	case address >= 0x8000 && address < 0xC000:
		var bank uint8
		switch m.prgMode {
		case 0, 1:
			bank = m.prgBank &^ 1
		case 2:
			bank = 0
		case 3:
			bank = m.prgBank
		}
		offset := uint32(bank)*0x4000 + uint32(address-0x8000)
		if int(offset) < len(m.prgROM) {
			return m.prgROM[offset]
		}

	case address >= 0xC000:
		var bank uint8
		switch m.prgMode {
		case 0, 1:
			bank = m.prgBank | 1
		case 2:
			bank = m.prgBank
		case 3:
			bank = m.prgBanks - 1
		}
		offset := uint32(bank)*0x4000 + uint32(address-0xC000)
		if int(offset) < len(m.prgROM) {
			return m.prgROM[offset]
		}
	}

	return 0
}

// WritePRG feeds the serial shift register; on the fifth write the
// accumulated 5-bit value commits to the register selected by address
// bits 13-14.
func (m *Mapper001) WritePRG(address uint16, value uint8) {
	if address >= 0x6000 && address < 0x8000 {
		if m.prgRAMEnabled {
			m.prgRAM[address-0x6000] = value
		}
		return
	}
	if address < 0x8000 {
		return
	}

	if value&0x80 != 0 {
		m.shiftRegister = 0x10
		m.shiftCount = 0
		m.prgMode = 3
		return
	}

	m.shiftRegister = (m.shiftRegister >> 1) | ((value & 1) << 4)
	m.shiftCount++

	if m.shiftCount == 5 {
		m.writeRegister(address, m.shiftRegister)
		m.shiftRegister = 0x10
		m.shiftCount = 0
	}
}

func (m *Mapper001) writeRegister(address uint16, value uint8) {
	switch {
	case address < 0xA000:
		switch value & 0x03 {
		case 0:
			m.mirroring = MirrorSingleScreen0
		case 1:
			m.mirroring = MirrorSingleScreen1
		case 2:
			m.mirroring = MirrorVertical
		case 3:
			m.mirroring = MirrorHorizontal
		}
		m.prgMode = (value >> 2) & 0x03
		m.chrMode = (value >> 4) & 0x01

	case address < 0xC000:
		m.chrBank0 = value & 0x1F

	case address < 0xE000:
		m.chrBank1 = value & 0x1F

	default:
		m.prgBank = value & 0x0F
		m.prgRAMEnabled = (value & 0x10) == 0
	}
}

func (m *Mapper001) chrOffset(address uint16) uint32 {
	if m.chrMode == 0 {
		bank := m.chrBank0 &^ 1
		if address >= 0x1000 {
			bank |= 1
		}
		return uint32(bank)*0x1000 + uint32(address&0x0FFF)
	}
	if address < 0x1000 {
		return uint32(m.chrBank0)*0x1000 + uint32(address)
	}
	return uint32(m.chrBank1)*0x1000 + uint32(address-0x1000)
}

// ReadCHR reads the currently banked 4KB or 8KB CHR window.
func (m *Mapper001) ReadCHR(address uint16) uint8 {
	offset := m.chrOffset(address)
	if int(offset) < len(m.chrMem) {
		return m.chrMem[offset]
	}
	return 0
}

// WriteCHR writes CHR-RAM; CHR-ROM cartridges ignore it.
func (m *Mapper001) WriteCHR(address uint16, value uint8) {
	if !m.chrIsRAM {
		return
	}
	offset := m.chrOffset(address)
	if int(offset) < len(m.chrMem) {
		m.chrMem[offset] = value
	}
}

// Mirroring returns the mirroring mode currently selected by the control
// register; MMC1 can switch it at runtime.
func (m *Mapper001) Mirroring() MirrorMode {
	return m.mirroring
}

// IRQLine always reports false: MMC1 has no IRQ hardware.
func (m *Mapper001) IRQLine() bool {
	return false
}

// NotifyA12 is a no-op: MMC1 doesn't derive anything from address-line 12.
func (m *Mapper001) NotifyA12(address uint16, ppuDot int) {}

// PRGRAM returns MMC1's 8KB PRG-RAM.
func (m *Mapper001) PRGRAM() []uint8 {
	return m.prgRAM[:]
}

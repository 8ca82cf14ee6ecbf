package cartridge

import "testing"

func makeCNROMCHR(banks int) []uint8 {
	chr := make([]uint8, banks*0x2000)
	for b := 0; b < banks; b++ {
		chr[b*0x2000] = uint8(b)
	}
	return chr
}

func TestMapper003_CHRBankSelectedByAnyPRGWrite(t *testing.T) {
	m := NewMapper003(make([]uint8, 0x8000), makeCNROMCHR(4), MirrorHorizontal)

	m.WritePRG(0xC123, 2)
	if got := m.ReadCHR(0x0000); got != 2 {
		t.Errorf("expected CHR bank 2 selected, got %d", got)
	}
}

func TestMapper003_WriteCHRIsIgnored(t *testing.T) {
	m := NewMapper003(make([]uint8, 0x8000), makeCNROMCHR(1), MirrorHorizontal)
	m.WriteCHR(0x0000, 0xFF)
	if got := m.ReadCHR(0x0000); got == 0xFF {
		t.Error("CNROM CHR-ROM should reject writes")
	}
}

func TestMapper003_16KBPRGMirrors(t *testing.T) {
	prg := make([]uint8, 0x4000)
	prg[0x123] = 0x42
	m := NewMapper003(prg, makeCNROMCHR(1), MirrorHorizontal)

	if got := m.ReadPRG(0xC123); got != 0x42 {
		t.Errorf("expected mirrored 16KB ROM value, got 0x%02X", got)
	}
}

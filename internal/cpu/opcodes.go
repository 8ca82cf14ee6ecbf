package cpu

// readPenalty marks read-family opcodes that pay an extra cycle when their
// indexed addressing mode crosses a page boundary. Stores and read-modify-
// write instructions always pay the full indexed cost and are absent here.
var readPenalty = map[uint8]bool{
	0xBD: true, 0xB9: true, 0xB1: true, // LDA abs,X / abs,Y / (zp),Y
	0xBE: true, 0xBC: true, // LDX abs,Y / LDY abs,X
	0x7D: true, 0x79: true, 0x71: true, // ADC
	0x3D: true, 0x39: true, 0x31: true, // AND
	0x1D: true, 0x19: true, 0x11: true, // ORA
	0x5D: true, 0x59: true, 0x51: true, // EOR
	0xDD: true, 0xD9: true, 0xD1: true, // CMP
}

// execute dispatches the official opcode to its operation and returns extra
// cycles (beyond the instruction's base count) it incurred. Branch extra
// cycles are folded in here rather than added by the caller.
func (c *CPU) execute(opcode uint8, address uint16, pageCrossed bool) uint8 {
	switch opcode {
	// Load/Store
	case 0xA9, 0xA5, 0xB5, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1:
		return c.lda(address)
	case 0xA2, 0xA6, 0xB6, 0xAE, 0xBE:
		return c.ldx(address)
	case 0xA0, 0xA4, 0xB4, 0xAC, 0xBC:
		return c.ldy(address)
	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91:
		return c.sta(address)
	case 0x86, 0x96, 0x8E:
		return c.stx(address)
	case 0x84, 0x94, 0x8C:
		return c.sty(address)

	// Arithmetic
	case 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71:
		return c.adc(address)
	case 0xE9, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1:
		return c.sbc(address)

	// Logical
	case 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31:
		return c.and(address)
	case 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11:
		return c.ora(address)
	case 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51:
		return c.eor(address)

	// Shifts and rotates
	case 0x0A:
		c.C = (c.A & 0x80) != 0
		c.A <<= 1
		c.setZN(c.A)
		return 0
	case 0x06, 0x16, 0x0E, 0x1E:
		return c.asl(address)
	case 0x4A:
		c.C = (c.A & 0x01) != 0
		c.A >>= 1
		c.setZN(c.A)
		return 0
	case 0x46, 0x56, 0x4E, 0x5E:
		return c.lsr(address)
	case 0x2A:
		oldCarry := c.C
		c.C = (c.A & 0x80) != 0
		c.A <<= 1
		if oldCarry {
			c.A |= 0x01
		}
		c.setZN(c.A)
		return 0
	case 0x26, 0x36, 0x2E, 0x3E:
		return c.rol(address)
	case 0x6A:
		oldCarry := c.C
		c.C = (c.A & 0x01) != 0
		c.A >>= 1
		if oldCarry {
			c.A |= 0x80
		}
		c.setZN(c.A)
		return 0
	case 0x66, 0x76, 0x6E, 0x7E:
		return c.ror(address)

	// Compare
	case 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1:
		return c.cmp(address)
	case 0xE0, 0xE4, 0xEC:
		return c.cpx(address)
	case 0xC0, 0xC4, 0xCC:
		return c.cpy(address)

	// Inc/Dec
	case 0xE6, 0xF6, 0xEE, 0xFE:
		return c.inc(address)
	case 0xC6, 0xD6, 0xCE, 0xDE:
		return c.dec(address)
	case 0xE8:
		c.X++
		c.setZN(c.X)
		return 0
	case 0xCA:
		c.X--
		c.setZN(c.X)
		return 0
	case 0xC8:
		c.Y++
		c.setZN(c.Y)
		return 0
	case 0x88:
		c.Y--
		c.setZN(c.Y)
		return 0

	// Transfers
	case 0xAA:
		c.X = c.A
		c.setZN(c.X)
		return 0
	case 0x8A:
		c.A = c.X
		c.setZN(c.A)
		return 0
	case 0xA8:
		c.Y = c.A
		c.setZN(c.Y)
		return 0
	case 0x98:
		c.A = c.Y
		c.setZN(c.A)
		return 0
	case 0xBA:
		c.X = c.SP
		c.setZN(c.X)
		return 0
	case 0x9A:
		c.SP = c.X
		return 0

	// Stack
	case 0x48:
		c.push(c.A)
		return 0
	case 0x68:
		c.A = c.pop()
		c.setZN(c.A)
		return 0
	case 0x08:
		c.push(c.GetStatusByte() | bFlagMask)
		return 0
	case 0x28:
		c.SetStatusByte(c.pop())
		return 0

	// Flags
	case 0x18:
		c.C = false
		return 0
	case 0x38:
		c.C = true
		return 0
	case 0x58:
		c.I = false
		return 0
	case 0x78:
		c.I = true
		return 0
	case 0xB8:
		c.V = false
		return 0
	case 0xD8:
		c.D = false
		return 0
	case 0xF8:
		c.D = true
		return 0

	// Control flow
	case 0x4C, 0x6C:
		c.PC = address
		return 0
	case 0x20:
		c.pushWord(c.PC - 1)
		c.PC = address
		return 0
	case 0x60:
		c.PC = c.popWord() + 1
		return 0
	case 0x40:
		c.SetStatusByte(c.pop())
		c.PC = c.popWord()
		return 0

	// Branches
	case 0x90:
		return c.branch(!c.C, address, pageCrossed)
	case 0xB0:
		return c.branch(c.C, address, pageCrossed)
	case 0xD0:
		return c.branch(!c.Z, address, pageCrossed)
	case 0xF0:
		return c.branch(c.Z, address, pageCrossed)
	case 0x10:
		return c.branch(!c.N, address, pageCrossed)
	case 0x30:
		return c.branch(c.N, address, pageCrossed)
	case 0x50:
		return c.branch(!c.V, address, pageCrossed)
	case 0x70:
		return c.branch(c.V, address, pageCrossed)

	// Misc
	case 0x24, 0x2C:
		return c.bit(address)
	case 0xEA:
		return 0
	case 0x00:
		return c.brk()

	default:
		return 0
	}
}

func (c *CPU) lda(address uint16) uint8 {
	c.A = c.memory.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) ldx(address uint16) uint8 {
	c.X = c.memory.Read(address)
	c.setZN(c.X)
	return 0
}

func (c *CPU) ldy(address uint16) uint8 {
	c.Y = c.memory.Read(address)
	c.setZN(c.Y)
	return 0
}

func (c *CPU) sta(address uint16) uint8 {
	c.memory.Write(address, c.A)
	return 0
}

func (c *CPU) stx(address uint16) uint8 {
	c.memory.Write(address, c.X)
	return 0
}

func (c *CPU) sty(address uint16) uint8 {
	c.memory.Write(address, c.Y)
	return 0
}

// adc implements A' = A + M + C with the standard two's-complement overflow
// test: V is set when the operands share a sign but the result's sign differs.
func (c *CPU) adc(address uint16) uint8 {
	value := c.memory.Read(address)
	carry := uint8(0)
	if c.C {
		carry = 1
	}
	result := uint16(c.A) + uint16(value) + uint16(carry)
	c.V = ((c.A^uint8(result))&0x80) != 0 && ((c.A^value)&0x80) == 0
	c.C = result > 0xFF
	c.A = uint8(result)
	c.setZN(c.A)
	return 0
}

// sbc implements subtraction as ADC with the operand's bits inverted.
func (c *CPU) sbc(address uint16) uint8 {
	value := c.memory.Read(address) ^ 0xFF
	carry := uint8(0)
	if c.C {
		carry = 1
	}
	result := uint16(c.A) + uint16(value) + uint16(carry)
	c.V = ((c.A^uint8(result))&0x80) != 0 && ((c.A^value)&0x80) == 0
	c.C = result > 0xFF
	c.A = uint8(result)
	c.setZN(c.A)
	return 0
}

func (c *CPU) and(address uint16) uint8 {
	c.A &= c.memory.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) ora(address uint16) uint8 {
	c.A |= c.memory.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) eor(address uint16) uint8 {
	c.A ^= c.memory.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) asl(address uint16) uint8 {
	value := c.memory.Read(address)
	c.C = (value & 0x80) != 0
	value <<= 1
	c.memory.Write(address, value)
	c.setZN(value)
	return 0
}

func (c *CPU) lsr(address uint16) uint8 {
	value := c.memory.Read(address)
	c.C = (value & 0x01) != 0
	value >>= 1
	c.memory.Write(address, value)
	c.setZN(value)
	return 0
}

func (c *CPU) rol(address uint16) uint8 {
	value := c.memory.Read(address)
	oldCarry := c.C
	c.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	c.memory.Write(address, value)
	c.setZN(value)
	return 0
}

func (c *CPU) ror(address uint16) uint8 {
	value := c.memory.Read(address)
	oldCarry := c.C
	c.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	c.memory.Write(address, value)
	c.setZN(value)
	return 0
}

func (c *CPU) cmp(address uint16) uint8 {
	value := c.memory.Read(address)
	c.C = c.A >= value
	c.setZN(c.A - value)
	return 0
}

func (c *CPU) cpx(address uint16) uint8 {
	value := c.memory.Read(address)
	c.C = c.X >= value
	c.setZN(c.X - value)
	return 0
}

func (c *CPU) cpy(address uint16) uint8 {
	value := c.memory.Read(address)
	c.C = c.Y >= value
	c.setZN(c.Y - value)
	return 0
}

func (c *CPU) inc(address uint16) uint8 {
	value := c.memory.Read(address) + 1
	c.memory.Write(address, value)
	c.setZN(value)
	return 0
}

func (c *CPU) dec(address uint16) uint8 {
	value := c.memory.Read(address) - 1
	c.memory.Write(address, value)
	c.setZN(value)
	return 0
}

func (c *CPU) bit(address uint16) uint8 {
	value := c.memory.Read(address)
	c.N = (value & nFlagMask) != 0
	c.V = (value & vFlagMask) != 0
	c.Z = (c.A & value) == 0
	return 0
}

// branch applies the common taken/not-taken/page-cross cycle accounting shared
// by all eight conditional branches.
func (c *CPU) branch(taken bool, address uint16, pageCrossed bool) uint8 {
	if !taken {
		return 0
	}
	c.PC = address
	if pageCrossed {
		return 2
	}
	return 1
}

// brk pushes PC+2 (the opcode byte plus its padding byte), then flags with
// B=1, and loads the IRQ vector.
func (c *CPU) brk() uint8 {
	c.PC++
	c.pushWord(c.PC)
	c.push(c.GetStatusByte() | bFlagMask)
	c.I = true
	low := uint16(c.memory.Read(irqVector))
	high := uint16(c.memory.Read(irqVector + 1))
	c.PC = (high << 8) | low
	return 0
}

// initInstructions populates the 256-entry opcode table. Slots left nil
// resolve to IllegalOpcodeError in Step.
func (c *CPU) initInstructions() {
	add := func(op uint8, name string, bytes, cycles uint8, mode AddressingMode) {
		c.instructions[op] = &Instruction{Name: name, Opcode: op, Bytes: bytes, Cycles: cycles, Mode: mode}
	}

	add(0xA9, "LDA", 2, 2, Immediate)
	add(0xA5, "LDA", 2, 3, ZeroPage)
	add(0xB5, "LDA", 2, 4, ZeroPageX)
	add(0xAD, "LDA", 3, 4, Absolute)
	add(0xBD, "LDA", 3, 4, AbsoluteX)
	add(0xB9, "LDA", 3, 4, AbsoluteY)
	add(0xA1, "LDA", 2, 6, IndexedIndirect)
	add(0xB1, "LDA", 2, 5, IndirectIndexed)

	add(0xA2, "LDX", 2, 2, Immediate)
	add(0xA6, "LDX", 2, 3, ZeroPage)
	add(0xB6, "LDX", 2, 4, ZeroPageY)
	add(0xAE, "LDX", 3, 4, Absolute)
	add(0xBE, "LDX", 3, 4, AbsoluteY)

	add(0xA0, "LDY", 2, 2, Immediate)
	add(0xA4, "LDY", 2, 3, ZeroPage)
	add(0xB4, "LDY", 2, 4, ZeroPageX)
	add(0xAC, "LDY", 3, 4, Absolute)
	add(0xBC, "LDY", 3, 4, AbsoluteX)

	add(0x85, "STA", 2, 3, ZeroPage)
	add(0x95, "STA", 2, 4, ZeroPageX)
	add(0x8D, "STA", 3, 4, Absolute)
	add(0x9D, "STA", 3, 5, AbsoluteX)
	add(0x99, "STA", 3, 5, AbsoluteY)
	add(0x81, "STA", 2, 6, IndexedIndirect)
	add(0x91, "STA", 2, 6, IndirectIndexed)

	add(0x86, "STX", 2, 3, ZeroPage)
	add(0x96, "STX", 2, 4, ZeroPageY)
	add(0x8E, "STX", 3, 4, Absolute)

	add(0x84, "STY", 2, 3, ZeroPage)
	add(0x94, "STY", 2, 4, ZeroPageX)
	add(0x8C, "STY", 3, 4, Absolute)

	add(0x69, "ADC", 2, 2, Immediate)
	add(0x65, "ADC", 2, 3, ZeroPage)
	add(0x75, "ADC", 2, 4, ZeroPageX)
	add(0x6D, "ADC", 3, 4, Absolute)
	add(0x7D, "ADC", 3, 4, AbsoluteX)
	add(0x79, "ADC", 3, 4, AbsoluteY)
	add(0x61, "ADC", 2, 6, IndexedIndirect)
	add(0x71, "ADC", 2, 5, IndirectIndexed)

	add(0xE9, "SBC", 2, 2, Immediate)
	add(0xE5, "SBC", 2, 3, ZeroPage)
	add(0xF5, "SBC", 2, 4, ZeroPageX)
	add(0xED, "SBC", 3, 4, Absolute)
	add(0xFD, "SBC", 3, 4, AbsoluteX)
	add(0xF9, "SBC", 3, 4, AbsoluteY)
	add(0xE1, "SBC", 2, 6, IndexedIndirect)
	add(0xF1, "SBC", 2, 5, IndirectIndexed)

	add(0x29, "AND", 2, 2, Immediate)
	add(0x25, "AND", 2, 3, ZeroPage)
	add(0x35, "AND", 2, 4, ZeroPageX)
	add(0x2D, "AND", 3, 4, Absolute)
	add(0x3D, "AND", 3, 4, AbsoluteX)
	add(0x39, "AND", 3, 4, AbsoluteY)
	add(0x21, "AND", 2, 6, IndexedIndirect)
	add(0x31, "AND", 2, 5, IndirectIndexed)

	add(0x09, "ORA", 2, 2, Immediate)
	add(0x05, "ORA", 2, 3, ZeroPage)
	add(0x15, "ORA", 2, 4, ZeroPageX)
	add(0x0D, "ORA", 3, 4, Absolute)
	add(0x1D, "ORA", 3, 4, AbsoluteX)
	add(0x19, "ORA", 3, 4, AbsoluteY)
	add(0x01, "ORA", 2, 6, IndexedIndirect)
	add(0x11, "ORA", 2, 5, IndirectIndexed)

	add(0x49, "EOR", 2, 2, Immediate)
	add(0x45, "EOR", 2, 3, ZeroPage)
	add(0x55, "EOR", 2, 4, ZeroPageX)
	add(0x4D, "EOR", 3, 4, Absolute)
	add(0x5D, "EOR", 3, 4, AbsoluteX)
	add(0x59, "EOR", 3, 4, AbsoluteY)
	add(0x41, "EOR", 2, 6, IndexedIndirect)
	add(0x51, "EOR", 2, 5, IndirectIndexed)

	add(0x0A, "ASL", 1, 2, Accumulator)
	add(0x06, "ASL", 2, 5, ZeroPage)
	add(0x16, "ASL", 2, 6, ZeroPageX)
	add(0x0E, "ASL", 3, 6, Absolute)
	add(0x1E, "ASL", 3, 7, AbsoluteX)

	add(0x4A, "LSR", 1, 2, Accumulator)
	add(0x46, "LSR", 2, 5, ZeroPage)
	add(0x56, "LSR", 2, 6, ZeroPageX)
	add(0x4E, "LSR", 3, 6, Absolute)
	add(0x5E, "LSR", 3, 7, AbsoluteX)

	add(0x2A, "ROL", 1, 2, Accumulator)
	add(0x26, "ROL", 2, 5, ZeroPage)
	add(0x36, "ROL", 2, 6, ZeroPageX)
	add(0x2E, "ROL", 3, 6, Absolute)
	add(0x3E, "ROL", 3, 7, AbsoluteX)

	add(0x6A, "ROR", 1, 2, Accumulator)
	add(0x66, "ROR", 2, 5, ZeroPage)
	add(0x76, "ROR", 2, 6, ZeroPageX)
	add(0x6E, "ROR", 3, 6, Absolute)
	add(0x7E, "ROR", 3, 7, AbsoluteX)

	add(0xC9, "CMP", 2, 2, Immediate)
	add(0xC5, "CMP", 2, 3, ZeroPage)
	add(0xD5, "CMP", 2, 4, ZeroPageX)
	add(0xCD, "CMP", 3, 4, Absolute)
	add(0xDD, "CMP", 3, 4, AbsoluteX)
	add(0xD9, "CMP", 3, 4, AbsoluteY)
	add(0xC1, "CMP", 2, 6, IndexedIndirect)
	add(0xD1, "CMP", 2, 5, IndirectIndexed)

	add(0xE0, "CPX", 2, 2, Immediate)
	add(0xE4, "CPX", 2, 3, ZeroPage)
	add(0xEC, "CPX", 3, 4, Absolute)

	add(0xC0, "CPY", 2, 2, Immediate)
	add(0xC4, "CPY", 2, 3, ZeroPage)
	add(0xCC, "CPY", 3, 4, Absolute)

	add(0xE6, "INC", 2, 5, ZeroPage)
	add(0xF6, "INC", 2, 6, ZeroPageX)
	add(0xEE, "INC", 3, 6, Absolute)
	add(0xFE, "INC", 3, 7, AbsoluteX)

	add(0xC6, "DEC", 2, 5, ZeroPage)
	add(0xD6, "DEC", 2, 6, ZeroPageX)
	add(0xCE, "DEC", 3, 6, Absolute)
	add(0xDE, "DEC", 3, 7, AbsoluteX)

	add(0xE8, "INX", 1, 2, Implied)
	add(0xCA, "DEX", 1, 2, Implied)
	add(0xC8, "INY", 1, 2, Implied)
	add(0x88, "DEY", 1, 2, Implied)

	add(0xAA, "TAX", 1, 2, Implied)
	add(0x8A, "TXA", 1, 2, Implied)
	add(0xA8, "TAY", 1, 2, Implied)
	add(0x98, "TYA", 1, 2, Implied)
	add(0xBA, "TSX", 1, 2, Implied)
	add(0x9A, "TXS", 1, 2, Implied)

	add(0x48, "PHA", 1, 3, Implied)
	add(0x68, "PLA", 1, 4, Implied)
	add(0x08, "PHP", 1, 3, Implied)
	add(0x28, "PLP", 1, 4, Implied)

	add(0x18, "CLC", 1, 2, Implied)
	add(0x38, "SEC", 1, 2, Implied)
	add(0x58, "CLI", 1, 2, Implied)
	add(0x78, "SEI", 1, 2, Implied)
	add(0xB8, "CLV", 1, 2, Implied)
	add(0xD8, "CLD", 1, 2, Implied)
	add(0xF8, "SED", 1, 2, Implied)

	add(0x4C, "JMP", 3, 3, Absolute)
	add(0x6C, "JMP", 3, 5, Indirect)
	add(0x20, "JSR", 3, 6, Absolute)
	add(0x60, "RTS", 1, 6, Implied)
	add(0x40, "RTI", 1, 6, Implied)

	add(0x90, "BCC", 2, 2, Relative)
	add(0xB0, "BCS", 2, 2, Relative)
	add(0xD0, "BNE", 2, 2, Relative)
	add(0xF0, "BEQ", 2, 2, Relative)
	add(0x10, "BPL", 2, 2, Relative)
	add(0x30, "BMI", 2, 2, Relative)
	add(0x50, "BVC", 2, 2, Relative)
	add(0x70, "BVS", 2, 2, Relative)

	add(0x24, "BIT", 2, 3, ZeroPage)
	add(0x2C, "BIT", 3, 4, Absolute)
	add(0xEA, "NOP", 1, 2, Implied)
	add(0x00, "BRK", 1, 7, Implied)
}

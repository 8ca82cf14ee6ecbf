// Package cpu implements the 6502 CPU interpreter used by the NES.
package cpu

import "fmt"

// AddressingMode identifies how an instruction computes its operand address.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	zeroPageMask = 0xFF
	pageMask     = 0xFF00

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// Instruction is a single entry of the 256-slot opcode dispatch table.
type Instruction struct {
	Name   string
	Opcode uint8
	Bytes  uint8
	Cycles uint8
	Mode   AddressingMode
}

// MemoryInterface is the bus surface the CPU drives. Implementations never hand
// the CPU a reference back to themselves beyond this narrow interface, so the
// CPU<->Bus cycle is broken at the call boundary rather than via back-pointers.
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// IllegalOpcodeError is raised when the instruction stream hits a byte with no
// official 6502 meaning. The core halts rather than guessing at unofficial
// behavior.
type IllegalOpcodeError struct {
	PC     uint16
	Opcode uint8
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X at PC=$%04X", e.Opcode, e.PC)
}

// CPU is the 6502 register file plus interrupt/dispatch state.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16

	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal (modeled, never consulted by ADC/SBC)
	B bool // Break (push-only)
	V bool // Overflow
	N bool // Negative

	memory MemoryInterface

	cycles uint64

	instructions [256]*Instruction

	nmiLine     bool
	nmiPrevious bool
	nmiPending  bool
	irqLine     bool

	// iPrevious shadows I as it was before the instruction that just ran
	// changed it, giving CLI/SEI/PLP the 6502's one-instruction IRQ delay.
	iPrevious bool

	// Halted is set once an illegal opcode is fetched; Step becomes a no-op.
	Halted bool
	Err    error
}

// New creates a CPU wired to the given bus.
func New(memory MemoryInterface) *CPU {
	c := &CPU{
		memory: memory,
		SP:     0xFD,
	}
	c.initInstructions()
	return c
}

// Reset performs the 6502 reset sequence: 7 bus cycles culminating in PC being
// loaded from the reset vector and SP effectively decremented by three.
func (c *CPU) Reset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD

	c.C, c.Z, c.V, c.N, c.D = false, false, false, false, false
	c.I = true
	c.B = true
	c.iPrevious = true

	for i := 0; i < 5; i++ {
		c.memory.Read(c.PC)
		c.cycles++
	}

	low := uint16(c.memory.Read(resetVector))
	high := uint16(c.memory.Read(resetVector + 1))
	c.PC = (high << 8) | low
	c.cycles += 2

	c.Halted = false
	c.Err = nil
	c.nmiPending = false
	c.nmiPrevious = false
}

// SetNMI latches the NMI line; the interrupt fires on the falling edge, matching
// real hardware's edge-triggered behavior.
func (c *CPU) SetNMI(asserted bool) {
	if c.nmiPrevious && !asserted {
		c.nmiPending = true
	}
	c.nmiPrevious = asserted
	c.nmiLine = asserted
}

// SetIRQ sets the level-sensitive IRQ line state.
func (c *CPU) SetIRQ(asserted bool) {
	c.irqLine = asserted
}

// Cycles returns the running total of CPU cycles consumed since construction.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// Step executes exactly one instruction (or one interrupt-service sequence)
// and returns the number of CPU cycles it consumed. If the CPU is halted on
// an illegal opcode, Step is a no-op returning 0.
func (c *CPU) Step() uint64 {
	if c.Halted {
		return 0
	}

	if serviced, cycles := c.serviceInterrupt(); serviced {
		return cycles
	}

	pc := c.PC
	opcode := c.memory.Read(c.PC)
	instruction := c.instructions[opcode]

	if instruction == nil {
		c.Halted = true
		c.Err = &IllegalOpcodeError{PC: pc, Opcode: opcode}
		return 0
	}

	address, pageCrossed := c.getOperandAddress(instruction.Mode)
	extraCycles := c.execute(opcode, address, pageCrossed)

	if pageCrossed && readPenalty[opcode] {
		extraCycles++
	}

	total := uint64(instruction.Cycles) + uint64(extraCycles)
	c.cycles += total
	c.iPrevious = c.I
	return total
}

// serviceInterrupt checks NMI (edge-latched, always serviced) then IRQ (level,
// gated by I as it stood before the last instruction ran — the delayed-I
// shadow) and runs the 7-cycle service sequence if either fires.
func (c *CPU) serviceInterrupt() (bool, uint64) {
	if c.nmiPending {
		c.nmiPending = false
		c.pushWord(c.PC)
		status := (c.GetStatusByte() &^ bFlagMask) | unusedMask
		c.push(status)
		c.I = true
		c.iPrevious = true
		low := uint16(c.memory.Read(nmiVector))
		high := uint16(c.memory.Read(nmiVector + 1))
		c.PC = (high << 8) | low
		c.cycles += 7
		return true, 7
	}

	if c.irqLine && !c.iPrevious {
		c.pushWord(c.PC)
		status := (c.GetStatusByte() &^ bFlagMask) | unusedMask
		c.push(status)
		c.I = true
		c.iPrevious = true
		low := uint16(c.memory.Read(irqVector))
		high := uint16(c.memory.Read(irqVector + 1))
		c.PC = (high << 8) | low
		c.cycles += 7
		return true, 7
	}

	return false, 0
}

// getOperandAddress advances PC past the instruction's operand bytes and
// returns the effective address plus whether an indexed fetch crossed a page.
func (c *CPU) getOperandAddress(mode AddressingMode) (uint16, bool) {
	switch mode {
	case Implied, Accumulator:
		c.PC++
		return 0, false

	case Immediate:
		address := c.PC + 1
		c.PC += 2
		return address, false

	case ZeroPage:
		address := uint16(c.memory.Read(c.PC + 1))
		c.PC += 2
		return address, false

	case ZeroPageX:
		base := c.memory.Read(c.PC + 1)
		address := uint16((base + c.X) & zeroPageMask)
		c.PC += 2
		return address, false

	case ZeroPageY:
		base := c.memory.Read(c.PC + 1)
		address := uint16((base + c.Y) & zeroPageMask)
		c.PC += 2
		return address, false

	case Relative:
		offset := int8(c.memory.Read(c.PC + 1))
		oldPC := c.PC + 2
		newPC := uint16(int32(oldPC) + int32(offset))
		c.PC = oldPC
		pageCrossed := (oldPC & pageMask) != (newPC & pageMask)
		return newPC, pageCrossed

	case Absolute:
		low := uint16(c.memory.Read(c.PC + 1))
		high := uint16(c.memory.Read(c.PC + 2))
		address := (high << 8) | low
		c.PC += 3
		return address, false

	case AbsoluteX:
		low := uint16(c.memory.Read(c.PC + 1))
		high := uint16(c.memory.Read(c.PC + 2))
		base := (high << 8) | low
		address := base + uint16(c.X)
		c.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case AbsoluteY:
		low := uint16(c.memory.Read(c.PC + 1))
		high := uint16(c.memory.Read(c.PC + 2))
		base := (high << 8) | low
		address := base + uint16(c.Y)
		c.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case Indirect: // JMP only; reproduces the page-wrap bug
		lowPtr := uint16(c.memory.Read(c.PC + 1))
		highPtr := uint16(c.memory.Read(c.PC + 2))
		ptr := (highPtr << 8) | lowPtr

		var address uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			low := uint16(c.memory.Read(ptr))
			high := uint16(c.memory.Read(ptr & pageMask))
			address = (high << 8) | low
		} else {
			low := uint16(c.memory.Read(ptr))
			high := uint16(c.memory.Read(ptr + 1))
			address = (high << 8) | low
		}
		c.PC += 3
		return address, false

	case IndexedIndirect: // (zp,X)
		base := c.memory.Read(c.PC + 1)
		ptr := (base + c.X) & zeroPageMask
		low := uint16(c.memory.Read(uint16(ptr)))
		high := uint16(c.memory.Read(uint16((ptr + 1) & zeroPageMask)))
		address := (high << 8) | low
		c.PC += 2
		return address, false

	case IndirectIndexed: // (zp),Y
		ptr := uint16(c.memory.Read(c.PC + 1))
		low := uint16(c.memory.Read(ptr))
		high := uint16(c.memory.Read((ptr + 1) & zeroPageMask))
		base := (high << 8) | low
		address := base + uint16(c.Y)
		c.PC += 2
		return address, (base & pageMask) != (address & pageMask)

	default:
		return 0, false
	}
}

func (c *CPU) push(value uint8) {
	c.memory.Write(stackBase+uint16(c.SP), value)
	c.SP--
}

func (c *CPU) pop() uint8 {
	c.SP++
	return c.memory.Read(stackBase + uint16(c.SP))
}

func (c *CPU) pushWord(value uint16) {
	c.push(uint8(value >> 8))
	c.push(uint8(value & 0xFF))
}

func (c *CPU) popWord() uint16 {
	low := uint16(c.pop())
	high := uint16(c.pop())
	return (high << 8) | low
}

func (c *CPU) setZN(value uint8) {
	c.Z = value == 0
	c.N = (value & nFlagMask) != 0
}

// GetStatusByte packs the eight named flag booleans into a status byte, bit 5
// (unused) always set.
func (c *CPU) GetStatusByte() uint8 {
	var status uint8
	if c.N {
		status |= nFlagMask
	}
	if c.V {
		status |= vFlagMask
	}
	status |= unusedMask
	if c.B {
		status |= bFlagMask
	}
	if c.D {
		status |= dFlagMask
	}
	if c.I {
		status |= iFlagMask
	}
	if c.Z {
		status |= zFlagMask
	}
	if c.C {
		status |= cFlagMask
	}
	return status
}

// SetStatusByte unpacks a status byte into the flag booleans.
func (c *CPU) SetStatusByte(status uint8) {
	c.N = (status & nFlagMask) != 0
	c.V = (status & vFlagMask) != 0
	c.B = (status & bFlagMask) != 0
	c.D = (status & dFlagMask) != 0
	c.I = (status & iFlagMask) != 0
	c.Z = (status & zFlagMask) != 0
	c.C = (status & cFlagMask) != 0
}

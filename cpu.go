package main

import (
	"fmt"
	"io"
)

// Opcodes understood by the CPU, a small subset of the 6502.
const (
	OPBRK    = 0x00 // halt
	OPSTA    = 0x8D
	OPADC    = 0x6D
	OPTXA    = 0x8A
	OPTYA    = 0x98
	OPLDAIMM = 0xA9
	OPLDA    = 0xAD
	OPLDXIMM = 0xA2
	OPLDX    = 0xAE
	OPLDYIMM = 0xA0
	OPLDY    = 0xAC
	OPTAX    = 0xAA
	OPTAY    = 0xA8
	OPNOP    = 0xEA
	OPBNE    = 0xD0
	OPCPX    = 0xEC
	OPINC    = 0xEE
	OPSYS    = 0xFF
)

// System calls, selected by the X register.
const (
	SYSPRINTINT = 0x01 // print Y as hex
	SYSPRINTSTR = 0x02 // print the string at Y
	SYSPRINTOP  = 0x03 // print the string at the operand address
)

// CPU executes one instruction per cycle on behalf of the process it was
// last loaded from. PC is relative to that process's segment.
type CPU struct {
	PC  uint16
	ACC byte
	X   byte
	Y   byte
	Z   byte
	IR  byte

	Executing bool
	Cycles    int // clock count since boot

	mem   *Memory
	acc   *MemAccessor
	mm    *MemoryManager
	sched *Scheduler
	out   io.Writer
	raise func(interrupt)
}

func (c *CPU) init() {
	c.PC = 0
	c.ACC = 0
	c.X = 0
	c.Y = 0
	c.Z = 0
	c.IR = 0
	c.Executing = false
}

// restore loads the live registers from p.
func (c *CPU) restore(p *PCB) {
	c.PC = p.Regs.PC
	c.ACC = p.Regs.ACC
	c.X = p.Regs.X
	c.Y = p.Regs.Y
	c.Z = p.Regs.Z
	c.IR = p.Regs.IR
}

// save mirrors the live registers into p.
func (c *CPU) save(p *PCB) {
	p.Regs = registers{PC: c.PC, ACC: c.ACC, X: c.X, Y: c.Y, Z: c.Z, IR: c.IR}
}

// Cycle fetches, decodes and executes one instruction of p. Faults panic
// with a trap value.
func (c *CPU) Cycle(p *PCB) {
	if !c.Executing {
		panic("cpu: cycle while not executing")
	}
	c.Cycles++
	defer c.save(p)

	seg := p.Segment
	c.IR = c.fetch(seg)

	switch c.IR {
	case OPLDAIMM: // A9: load the accumulator with a constant
		c.ACC = c.fetch(seg)
	case OPLDA: // AD: load the accumulator from memory
		c.operand(seg)
		c.ACC = c.acc.read(seg)
	case OPSTA: // 8D: store the accumulator in memory
		c.operand(seg)
		c.mem.MDR = c.ACC
		c.acc.write(seg)
	case OPADC: // 6D: add memory to the accumulator, 8 bits wide
		c.operand(seg)
		c.ACC += c.acc.read(seg)
	case OPLDXIMM: // A2: load X with a constant
		c.X = c.fetch(seg)
	case OPLDX: // AE: load X from memory
		c.operand(seg)
		c.X = c.acc.read(seg)
	case OPLDYIMM: // A0: load Y with a constant
		c.Y = c.fetch(seg)
	case OPLDY: // AC: load Y from memory
		c.operand(seg)
		c.Y = c.acc.read(seg)
	case OPTXA: // 8A
		c.ACC = c.X
	case OPTYA: // 98
		c.ACC = c.Y
	case OPTAX: // AA
		c.X = c.ACC
	case OPTAY: // A8
		c.Y = c.ACC
	case OPNOP: // EA
	case OPBNE: // D0: branch if Z is clear
		off := c.fetch(seg)
		if c.Z == 0 {
			c.branch(seg, off)
		}
	case OPCPX: // EC: compare memory with X
		c.operand(seg)
		if c.acc.read(seg) == c.X {
			c.Z = 1
		} else {
			c.Z = 0
		}
	case OPINC: // EE: increment memory
		c.operand(seg)
		c.ACC = c.acc.read(seg) + 1
		c.mem.MDR = c.ACC
		c.acc.write(seg)
	case OPSYS: // FF
		c.syscall(seg)
	case OPBRK: // 00
		c.Executing = false
		c.raise(interrupt{irq: IRQHALT, pid: p.PID})
		return
	default:
		panic(trap{FAULTOPCODE, addr(c.IR)})
	}

	c.sched.quantumSurveillance(p)
}

// fetch reads the byte at PC and advances PC.
func (c *CPU) fetch(seg *Segment) byte {
	v := c.acc.readAt(seg, seg.Base+addr(c.PC))
	c.PC++
	return v
}

// operand decodes the two byte address at PC into MAR and skips it.
func (c *CPU) operand(seg *Segment) addr {
	a := c.mm.calcMAR(seg, c.PC)
	c.PC += 2
	return a
}

// branch moves PC by the two's complement offset, wrapping within the
// segment.
func (c *CPU) branch(seg *Segment, off byte) {
	size := seg.Size()
	pc := (int(c.PC) + int(int8(off))) % size
	if pc < 0 {
		pc += size
	}
	c.PC = uint16(pc)
}

func (c *CPU) syscall(seg *Segment) {
	switch c.X {
	case SYSPRINTINT:
		fmt.Fprintf(c.out, "%x", c.Y)
	case SYSPRINTSTR:
		c.puts(seg, seg.Base+addr(c.Y))
	case SYSPRINTOP:
		c.puts(seg, c.operand(seg))
	}
}

// puts prints the zero terminated string at a.
func (c *CPU) puts(seg *Segment, a addr) {
	var buf []byte
	for ; ; a++ {
		b := c.acc.readAt(seg, a)
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	c.out.Write(buf)
}

// printstate writes the live registers and the next instruction of p.
func (c *CPU) printstate(w io.Writer, p *PCB) {
	fmt.Fprintf(w, "PC %02X IR %02X ACC %02X X %02X Y %02X Z %d", c.PC, c.IR, c.ACC, c.X, c.Y, c.Z)
	if p != nil && p.Segment != nil {
		seg := p.Segment
		code := c.acc.dump(seg.Base+addr(c.PC), 3)
		if line, _ := disasm(code, c.PC); line != "" {
			fmt.Fprintf(w, "\t%s", line)
		}
	}
	fmt.Fprintln(w)
}

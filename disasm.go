package main

import (
	"fmt"
	"strings"
)

// operand modes
const (
	IMPL = iota // no operand
	IMM         // #$nn
	ABS         // $nnnn, little endian
	REL         // signed branch offset
)

type D struct {
	ins  byte
	msg  string
	mode uint8
}

var (
	disamtable = [...]D{
		{OPBRK, "BRK", IMPL},
		{OPSTA, "STA", ABS},
		{OPADC, "ADC", ABS},
		{OPTXA, "TXA", IMPL},
		{OPTYA, "TYA", IMPL},
		{OPLDAIMM, "LDA", IMM},
		{OPLDA, "LDA", ABS},
		{OPLDXIMM, "LDX", IMM},
		{OPLDX, "LDX", ABS},
		{OPLDYIMM, "LDY", IMM},
		{OPLDY, "LDY", ABS},
		{OPTAX, "TAX", IMPL},
		{OPTAY, "TAY", IMPL},
		{OPNOP, "NOP", IMPL},
		{OPBNE, "BNE", REL},
		{OPCPX, "CPX", ABS},
		{OPINC, "INC", ABS},
		{OPSYS, "SYS", IMPL},
	}
)

func lookup(ins byte) (D, bool) {
	for _, l := range disamtable {
		if l.ins == ins {
			return l, true
		}
	}
	return D{}, false
}

// width returns the encoded length of an instruction in mode.
func width(mode uint8) int {
	switch mode {
	case IMM, REL:
		return 2
	case ABS:
		return 3
	default:
		return 1
	}
}

// disasm decodes the instruction at the start of code, located at pc, and
// returns its listing and length. An empty code slice yields no line.
func disasm(code []byte, pc uint16) (string, int) {
	if len(code) == 0 {
		return "", 0
	}
	var sb strings.Builder
	l, ok := lookup(code[0])
	if !ok {
		fmt.Fprintf(&sb, "%04X  %02X        ???", pc, code[0])
		return sb.String(), 1
	}
	n := width(l.mode)
	if n > len(code) {
		// operand runs off the end
		fmt.Fprintf(&sb, "%04X  %02X        %s ???", pc, code[0], l.msg)
		return sb.String(), len(code)
	}

	var raw strings.Builder
	for _, b := range code[:n] {
		fmt.Fprintf(&raw, "%02X ", b)
	}
	fmt.Fprintf(&sb, "%04X  %-9s %s", pc, raw.String(), l.msg)

	switch l.mode {
	case IMM:
		fmt.Fprintf(&sb, " #$%02X", code[1])
	case ABS:
		fmt.Fprintf(&sb, " $%04X", uint16(code[1])|uint16(code[2])<<8)
	case REL:
		o := int8(code[1])
		if o < 0 {
			fmt.Fprintf(&sb, " -%d", -int(o))
		} else {
			fmt.Fprintf(&sb, " +%d", o)
		}
	}
	return sb.String(), n
}

// disassemble lists every instruction in program up to the first BRK that
// is followed only by zero bytes.
func disassemble(program []byte) []string {
	var lines []string
	for pc := 0; pc < len(program); {
		line, n := disasm(program[pc:], uint16(pc))
		lines = append(lines, line)
		if program[pc] == OPBRK && zero(program[pc+1:]) {
			break
		}
		pc += n
	}
	return lines
}

func zero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

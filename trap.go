package main

import "fmt"

// fault identifies why a process was torn down.
type fault uint8

const (
	FAULTNONE fault = iota
	FAULTBOUNDS
	FAULTOPCODE
	FAULTSWAP
	FAULTKILL
)

func (f fault) String() string {
	switch f {
	case FAULTNONE:
		return "none"
	case FAULTBOUNDS:
		return "memory bounds violation"
	case FAULTOPCODE:
		return "invalid opcode"
	case FAULTSWAP:
		return "swap failure"
	case FAULTKILL:
		return "killed"
	default:
		return fmt.Sprintf("fault(%d)", uint8(f))
	}
}

// trap is a process fatal condition raised inside a CPU cycle. It travels
// as a panic value up to the instruction boundary in Kernel.cycle.
type trap struct {
	fault fault
	addr  addr // offending address or opcode
}

func (t trap) String() string {
	switch t.fault {
	case FAULTOPCODE:
		return fmt.Sprintf("trap: %s %02X", t.fault, uint32(t.addr))
	default:
		return fmt.Sprintf("trap: %s at $%04X", t.fault, uint32(t.addr))
	}
}

// irq is the kind of a kernel interrupt.
type irq uint8

const (
	IRQSWITCH irq = iota + 1 // context switch requested
	IRQHALT                  // running process executed BRK
	IRQFAULT                 // running process trapped
)

// interrupt is a pending kernel event, serviced between instructions.
type interrupt struct {
	irq  irq
	pid  int
	trap trap
}

func (i interrupt) String() string {
	switch i.irq {
	case IRQSWITCH:
		return fmt.Sprintf("interrupt: context switch, next pid %d", i.pid)
	case IRQHALT:
		return fmt.Sprintf("interrupt: halt, pid %d", i.pid)
	case IRQFAULT:
		return fmt.Sprintf("interrupt: %s, pid %d", i.trap, i.pid)
	default:
		return fmt.Sprintf("interrupt: %d, pid %d", i.irq, i.pid)
	}
}

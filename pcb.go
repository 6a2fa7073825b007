package main

import "fmt"

// state is the scheduling state of a process.
type state uint8

const (
	RESIDENT state = iota
	READY
	RUNNING
	TERMINATED
)

func (s state) String() string {
	switch s {
	case RESIDENT:
		return "resident"
	case READY:
		return "ready"
	case RUNNING:
		return "running"
	case TERMINATED:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// residency records where a process image lives.
type residency uint8

const (
	MEMORY residency = iota
	DISK
)

func (r residency) String() string {
	if r == DISK {
		return "disk"
	}
	return "memory"
}

// registers is the CPU register set saved in a PCB.
type registers struct {
	PC  uint16
	ACC byte
	X   byte
	Y   byte
	Z   byte
	IR  byte
}

// PCB is a process control block.
type PCB struct {
	PID       int
	State     state
	Regs      registers
	Segment   *Segment
	Residency residency

	Waiting    int // cycles spent in the ready queue
	Turnaround int // cycles from first queued to termination
	Cycles     int // cycles executed
	Fault      fault
}

// swapFile is the disk file holding the image of a swapped out process.
func (p *PCB) swapFile() string {
	return fmt.Sprintf("%s%d", swapPrefix, p.PID)
}

// ProcessInfo is a snapshot of a PCB for display.
type ProcessInfo struct {
	PID        int
	State      string
	Segment    int // -1 when not in memory
	Residency  string
	Regs       registers
	Waiting    int
	Turnaround int
	Cycles     int
	Fault      string
}

func (p *PCB) info() ProcessInfo {
	seg := -1
	if p.Segment != nil {
		seg = p.Segment.ID
	}
	var f string
	if p.Fault != FAULTNONE {
		f = p.Fault.String()
	}
	return ProcessInfo{
		PID:        p.PID,
		State:      p.State.String(),
		Segment:    seg,
		Residency:  p.Residency.String(),
		Regs:       p.Regs,
		Waiting:    p.Waiting,
		Turnaround: p.Turnaround,
		Cycles:     p.Cycles,
		Fault:      f,
	}
}

// processTable is every PCB created since the last clearps.
type processTable struct {
	pcbs    []*PCB
	nextPID int
}

func (pt *processTable) add(p *PCB) {
	pt.pcbs = append(pt.pcbs, p)
	pt.nextPID++
}

func (pt *processTable) find(pid int) *PCB {
	for _, p := range pt.pcbs {
		if p.PID == pid {
			return p
		}
	}
	return nil
}

// owner returns the live process holding seg.
func (pt *processTable) owner(seg *Segment) *PCB {
	for _, p := range pt.pcbs {
		if p.Segment == seg && p.State != TERMINATED {
			return p
		}
	}
	return nil
}

// prune drops terminated processes.
func (pt *processTable) prune() int {
	live := pt.pcbs[:0]
	n := 0
	for _, p := range pt.pcbs {
		if p.State == TERMINATED {
			n++
			continue
		}
		live = append(live, p)
	}
	for i := len(live); i < len(pt.pcbs); i++ {
		pt.pcbs[i] = nil
	}
	pt.pcbs = live
	return n
}

package main

import (
	"fmt"
	"log"
)

// swapSegment is the segment whose owner is rolled out when a disk
// resident process is dispatched into full memory.
const swapSegment = 0

// Dispatcher performs context switches. It is the only writer of the
// running process pointer and of the PCB and CPU register copies.
type Dispatcher struct {
	running *PCB

	cpu     *CPU
	sched   *Scheduler
	mm      *MemoryManager
	swapper *Swapper
	procs   *processTable
	log     *log.Logger
}

// contextSwitch preempts the running process, if any, and dispatches the
// head of the ready queue. It returns the process now running. With an
// empty ready queue the running process, if any, carries on. On error the
// returned process is the one that could not be swapped in; it is off the
// ready queue and nothing is running.
func (d *Dispatcher) contextSwitch() (*PCB, error) {
	d.sched.quanta = 0
	if prev := d.running; prev != nil {
		if len(d.sched.ready) == 0 {
			return prev, nil
		}
		d.cpu.save(prev)
		d.sched.enqueue(prev)
		d.running = nil
	}

	next := d.sched.dequeue()
	if next == nil {
		d.running = nil
		return nil, nil
	}
	if next.Residency == DISK {
		if err := d.swapIn(next); err != nil {
			d.cpu.init()
			return next, err
		}
	}

	d.running = next
	next.State = RUNNING
	d.cpu.init()
	d.cpu.restore(next)
	d.cpu.Executing = true
	return next, nil
}

// swapIn finds a segment for the disk resident p, rolling out the owner
// of the swap segment if memory is full, and rolls p in.
func (d *Dispatcher) swapIn(p *PCB) error {
	seg := d.mm.free()
	if seg == nil {
		seg = d.mm.segments[swapSegment]
		victim := d.procs.owner(seg)
		if victim == nil {
			panic(fmt.Sprintf("dispatcher: segment %d active without an owner", seg.ID))
		}
		d.log.Printf("swap: rolling out pid %d from segment %d", victim.PID, seg.ID)
		if err := d.swapper.rollOut(victim); err != nil {
			return err
		}
	}
	d.log.Printf("swap: rolling in pid %d to segment %d", p.PID, seg.ID)
	return d.swapper.rollIn(p, seg)
}

// clear forgets the running process and stops the CPU.
func (d *Dispatcher) clear() {
	d.running = nil
	d.cpu.init()
}

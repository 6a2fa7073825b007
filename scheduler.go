package main

import (
	"fmt"
	"io"
	"strings"
)

// algorithm is a short term scheduling policy.
type algorithm uint8

const (
	RR algorithm = iota // round robin, preempted every quantum
	FCFS                // first come first served, never preempted
)

func (a algorithm) String() string {
	switch a {
	case RR:
		return "rr"
	case FCFS:
		return "fcfs"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

func parseAlgorithm(name string) (algorithm, error) {
	switch strings.ToLower(name) {
	case "rr", "roundrobin", "round-robin":
		return RR, nil
	case "fcfs", "fifo":
		return FCFS, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Scheduler owns the ready queue.
type Scheduler struct {
	ready     []*PCB
	algorithm algorithm
	quantum   int
	quanta    int // cycles since the last context switch

	finished []*PCB // terminated since the last completion report

	raise func(interrupt)
	out   io.Writer
}

func (s *Scheduler) enqueue(p *PCB) {
	p.State = READY
	s.ready = append(s.ready, p)
}

func (s *Scheduler) dequeue() *PCB {
	if len(s.ready) == 0 {
		return nil
	}
	p := s.ready[0]
	s.ready[0] = nil
	s.ready = s.ready[1:]
	return p
}

// remove drops p from the ready queue, reporting whether it was queued.
func (s *Scheduler) remove(p *PCB) bool {
	for i, q := range s.ready {
		if q == p {
			s.ready = append(s.ready[:i], s.ready[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scheduler) reset() {
	s.ready = nil
	s.quanta = 0
}

// schedule requests a switch to the head of the ready queue, or reports
// completion when nothing is left to run.
func (s *Scheduler) schedule() {
	if len(s.ready) > 0 {
		s.raise(interrupt{irq: IRQSWITCH, pid: s.ready[0].PID})
		return
	}
	s.report()
}

// report prints the completion message and the average wait and
// turnaround of the processes finished since the previous report.
func (s *Scheduler) report() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Execution completed.")
	if n := len(s.finished); n > 0 {
		var wait, turnaround int
		for _, p := range s.finished {
			wait += p.Waiting
			turnaround += p.Turnaround
		}
		fmt.Fprintf(s.out, "Processes: %d  Avg wait: %.2f cycles  Avg turnaround: %.2f cycles\n",
			n, float64(wait)/float64(n), float64(turnaround)/float64(n))
	}
	s.finished = nil
}

// finish records p for the next completion report.
func (s *Scheduler) finish(p *PCB) {
	s.finished = append(s.finished, p)
}

// quantumSurveillance counts one cycle of running. Under round robin the
// quantum expiring raises a context switch, if anyone is waiting.
func (s *Scheduler) quantumSurveillance(running *PCB) {
	s.quanta++
	if s.algorithm != RR || s.quanta < s.quantum {
		return
	}
	s.quanta = 0
	if len(s.ready) > 0 {
		s.raise(interrupt{irq: IRQSWITCH, pid: s.ready[0].PID})
	}
}

// account charges one cycle to the running process and to everyone
// waiting behind it.
func (s *Scheduler) account(running *PCB) {
	for _, p := range s.ready {
		p.Waiting++
		p.Turnaround++
	}
	if running != nil {
		running.Turnaround++
		running.Cycles++
	}
}

func (s *Scheduler) setQuantum(q int) error {
	if q <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantum, q)
	}
	s.quantum = q
	return nil
}

// setAlgorithm switches policy and restarts the quantum.
func (s *Scheduler) setAlgorithm(a algorithm) {
	s.algorithm = a
	s.quanta = 0
}

// Queue returns the pids in the ready queue, head first.
func (s *Scheduler) Queue() []int {
	pids := make([]int, len(s.ready))
	for i, p := range s.ready {
		pids[i] = p.PID
	}
	return pids
}

package main

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Config sizes a Kernel.
type Config struct {
	Segments    int
	SegmentSize int
	Quantum     int
	Algorithm   string

	Out   io.Writer // program and status output
	Trace io.Writer // kernel trace, nil to discard
}

// DefaultConfig is three 256 byte segments scheduled round robin with a
// quantum of six cycles.
var DefaultConfig = Config{
	Segments:    3,
	SegmentSize: 0x100,
	Quantum:     6,
	Algorithm:   "rr",
}

// Kernel is the single owner of all machine and process state. Every
// method must be called from the same goroutine.
type Kernel struct {
	mem     *Memory
	acc     *MemAccessor
	mm      *MemoryManager
	disk    *Disk
	swapper *Swapper
	cpu     *CPU
	sched   *Scheduler
	disp    *Dispatcher
	procs   *processTable

	pending []interrupt

	singleStep bool
	stepping   bool // a step has been requested

	out   io.Writer
	trace io.Writer
	log   *log.Logger
}

// NewKernel boots a kernel with memory partitioned per cfg and an
// unformatted disk.
func NewKernel(cfg Config) (*Kernel, error) {
	if cfg.Segments <= 0 || cfg.SegmentSize <= 0 || cfg.SegmentSize > 1<<16 {
		return nil, fmt.Errorf("%w: %d segments of %d bytes", ErrInvalidConfig, cfg.Segments, cfg.SegmentSize)
	}
	alg, err := parseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}

	k := &Kernel{
		out:   cfg.Out,
		procs: &processTable{},
	}
	k.setTrace(cfg.Trace)
	k.mem = newMemory(cfg.Segments * cfg.SegmentSize)
	k.acc = &MemAccessor{mem: k.mem}
	k.mm = &MemoryManager{mem: k.mem, acc: k.acc}
	k.mm.segmentsInit(cfg.SegmentSize)
	k.disk = newDisk(TRACKS, SECTORS, BLOCKS)
	k.swapper = &Swapper{disk: k.disk, mm: k.mm, acc: k.acc}
	k.sched = &Scheduler{algorithm: alg, raise: k.raise, out: k.out}
	if err := k.sched.setQuantum(cfg.Quantum); err != nil {
		return nil, err
	}
	k.cpu = &CPU{mem: k.mem, acc: k.acc, mm: k.mm, sched: k.sched, out: k.out, raise: k.raise}
	k.disp = &Dispatcher{
		cpu:     k.cpu,
		sched:   k.sched,
		mm:      k.mm,
		swapper: k.swapper,
		procs:   k.procs,
		log:     k.log,
	}
	k.log.Printf("boot: %d segments of %d bytes, %s quantum %d", cfg.Segments, cfg.SegmentSize, alg, cfg.Quantum)
	return k, nil
}

func (k *Kernel) setTrace(w io.Writer) {
	k.trace = w
	if w == nil {
		w = io.Discard
	}
	if k.log == nil {
		k.log = log.New(w, "kernsim: ", 0)
		return
	}
	k.log.SetOutput(w)
}

// raise queues an interrupt for the next instruction boundary. A context
// switch already pending absorbs another.
func (k *Kernel) raise(i interrupt) {
	if i.irq == IRQSWITCH {
		for _, p := range k.pending {
			if p.irq == IRQSWITCH {
				return
			}
		}
	}
	k.log.Print(i)
	k.pending = append(k.pending, i)
}

// Tick is one clock pulse: pending interrupts are serviced, then the CPU
// runs one cycle if it has work.
func (k *Kernel) Tick() {
	k.service()
	if !k.cpu.Executing || k.disp.running == nil {
		return
	}
	if k.singleStep {
		if !k.stepping {
			return
		}
		k.stepping = false
	}
	k.cycle()
}

func (k *Kernel) service() {
	for len(k.pending) > 0 {
		i := k.pending[0]
		k.pending = k.pending[1:]
		k.handle(i)
	}
}

func (k *Kernel) handle(i interrupt) {
	switch i.irq {
	case IRQSWITCH:
		k.dispatch()
	case IRQHALT:
		p := k.procs.find(i.pid)
		if p == nil || p.State == TERMINATED {
			return
		}
		k.teardown(p, FAULTNONE)
	case IRQFAULT:
		p := k.procs.find(i.pid)
		if p == nil || p.State == TERMINATED {
			return
		}
		fmt.Fprintf(k.out, "\nProcess %d: %s\n", p.PID, i.trap)
		k.singleStep = false
		k.stepping = false
		k.teardown(p, i.trap.fault)
	}
}

func (k *Kernel) dispatch() {
	prev := k.disp.running
	next, err := k.disp.contextSwitch()
	if err != nil {
		fmt.Fprintf(k.out, "\nProcess %d: %v\n", next.PID, err)
		k.terminate(next, FAULTSWAP)
		k.sched.schedule()
		return
	}
	switch {
	case next == nil:
		k.log.Print("dispatch: ready queue empty")
	case next != prev:
		if prev != nil {
			k.log.Printf("dispatch: pid %d -> pid %d", prev.PID, next.PID)
		} else {
			k.log.Printf("dispatch: pid %d", next.PID)
		}
	}
}

// cycle runs one instruction of the running process, turning a trap into
// a fault interrupt.
func (k *Kernel) cycle() {
	p := k.disp.running
	defer func() {
		if r := recover(); r != nil {
			t, ok := r.(trap)
			if !ok {
				panic(r)
			}
			k.cpu.Executing = false
			k.raise(interrupt{irq: IRQFAULT, pid: p.PID, trap: t})
		}
	}()
	k.sched.account(p)
	k.cpu.Cycle(p)
}

// terminate ends p and releases everything it holds.
func (k *Kernel) terminate(p *PCB, f fault) {
	if p == k.disp.running {
		k.disp.clear()
	}
	k.sched.remove(p)
	if p.Residency == DISK {
		if err := k.swapper.discard(p); err != nil {
			k.log.Printf("terminate: pid %d: %v", p.PID, err)
		}
	}
	k.mm.release(p)
	if p.State != RESIDENT {
		k.sched.finish(p)
	}
	p.State = TERMINATED
	p.Fault = f
	k.log.Printf("terminate: pid %d (%s)", p.PID, f)
}

// teardown terminates p; if p was running the next ready process is
// scheduled. Faults, kills and halts all end up here.
func (k *Kernel) teardown(p *PCB, f fault) {
	running := p == k.disp.running
	k.terminate(p, f)
	if running {
		k.sched.schedule()
	}
}

// Load creates a resident process for program. When memory is full the
// program goes straight to the swap area on disk.
func (k *Kernel) Load(program []byte) (*PCB, error) {
	if len(program) == 0 {
		return nil, ErrEmptyProgram
	}
	p := &PCB{PID: k.procs.nextPID, State: RESIDENT}
	k.mm.clearInactiveSegments() // scrub what finished processes left behind
	if err := k.mm.load(p, program); err != nil {
		return nil, err
	}
	if p.Residency == DISK {
		if !k.disk.Formatted() {
			return nil, ErrMemoryFull
		}
		if err := k.swapper.store(p, program); err != nil {
			return nil, err
		}
	}
	k.procs.add(p)
	k.log.Printf("load: pid %d, %d bytes, %s", p.PID, len(program), p.Residency)
	return p, nil
}

func (k *Kernel) lookup(pid int) (*PCB, error) {
	p := k.procs.find(pid)
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchProcess, pid)
	}
	if p.State == TERMINATED {
		return nil, fmt.Errorf("%w: %d", ErrTerminated, pid)
	}
	return p, nil
}

// Run queues a resident process.
func (k *Kernel) Run(pid int) error {
	p, err := k.lookup(pid)
	if err != nil {
		return err
	}
	if p.State != RESIDENT {
		return fmt.Errorf("%w: %d", ErrAlreadyQueued, pid)
	}
	k.sched.enqueue(p)
	if k.disp.running == nil {
		k.sched.schedule()
	}
	return nil
}

// RunAll queues every resident process in pid order.
func (k *Kernel) RunAll() error {
	n := 0
	for _, p := range k.procs.pcbs {
		if p.State == RESIDENT {
			k.sched.enqueue(p)
			n++
		}
	}
	if n == 0 {
		return ErrNoProcesses
	}
	if k.disp.running == nil {
		k.sched.schedule()
	}
	return nil
}

// Kill terminates a process.
func (k *Kernel) Kill(pid int) error {
	p, err := k.lookup(pid)
	if err != nil {
		return err
	}
	k.teardown(p, FAULTKILL)
	return nil
}

// KillAll terminates every live process.
func (k *Kernel) KillAll() error {
	n := k.terminateAll()
	if n == 0 {
		return ErrNoProcesses
	}
	return nil
}

func (k *Kernel) terminateAll() int {
	n := 0
	for _, p := range k.procs.pcbs {
		if p.State != TERMINATED {
			k.terminate(p, FAULTKILL)
			n++
		}
	}
	k.pending = nil
	k.sched.reset()
	k.sched.finished = nil
	k.disp.clear()
	k.mm.resetSegments()
	return n
}

// ClearMem terminates every process and zeroes memory.
func (k *Kernel) ClearMem() {
	k.terminateAll()
	k.mem.reset()
}

// ClearPS forgets terminated processes and returns how many.
func (k *Kernel) ClearPS() int {
	return k.procs.prune()
}

func (k *Kernel) SetQuantum(q int) error { return k.sched.setQuantum(q) }

func (k *Kernel) Quantum() int { return k.sched.quantum }

func (k *Kernel) SetSchedule(name string) error {
	alg, err := parseAlgorithm(name)
	if err != nil {
		return err
	}
	k.sched.setAlgorithm(alg)
	return nil
}

func (k *Kernel) Schedule() string { return k.sched.algorithm.String() }

// SetSingleStep toggles single step mode.
func (k *Kernel) SetSingleStep(on bool) {
	k.singleStep = on
	k.stepping = false
}

func (k *Kernel) SingleStep() bool { return k.singleStep }

// Step lets the next Tick execute one cycle in single step mode.
func (k *Kernel) Step() error {
	if !k.singleStep {
		return ErrNotStepping
	}
	k.stepping = true
	return nil
}

// SetTrace redirects the kernel trace; nil silences it.
func (k *Kernel) SetTrace(w io.Writer) { k.setTrace(w) }

func (k *Kernel) Tracing() bool { return k.trace != nil }

// Idle reports whether nothing is running or waiting to run.
func (k *Kernel) Idle() bool {
	return k.disp.running == nil && len(k.pending) == 0 && len(k.sched.ready) == 0
}

// Format formats the disk. It refuses while processes live on disk.
func (k *Kernel) Format() error {
	for _, p := range k.procs.pcbs {
		if p.State != TERMINATED && p.Residency == DISK {
			return fmt.Errorf("%w: pid %d", ErrSwapInUse, p.PID)
		}
	}
	k.disk.format()
	k.log.Print("disk: formatted")
	return nil
}

// Mount loads a disk image.
func (k *Kernel) Mount(path string) error {
	for _, p := range k.procs.pcbs {
		if p.State != TERMINATED && p.Residency == DISK {
			return fmt.Errorf("%w: pid %d", ErrSwapInUse, p.PID)
		}
	}
	if err := k.disk.Mount(path); err != nil {
		return err
	}
	k.log.Printf("disk: mounted %s", path)
	return nil
}

// SaveDisk writes the disk image to path.
func (k *Kernel) SaveDisk(path string) error { return k.disk.Save(path) }

func userFile(name string) error {
	if strings.HasPrefix(name, swapPrefix) {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	return nil
}

func (k *Kernel) CreateFile(name string) error {
	if err := userFile(name); err != nil {
		return err
	}
	return k.disk.createFile(name)
}

func (k *Kernel) WriteFile(name string, data []byte) error {
	if err := userFile(name); err != nil {
		return err
	}
	return k.disk.writeFile(name, data)
}

func (k *Kernel) ReadFile(name string) ([]byte, error) { return k.disk.readFile(name) }

func (k *Kernel) DeleteFile(name string) error {
	if err := userFile(name); err != nil {
		return err
	}
	return k.disk.deleteFile(name)
}

func (k *Kernel) DeepDeleteFile(name string) error {
	if err := userFile(name); err != nil {
		return err
	}
	return k.disk.deepDeleteFile(name)
}

func (k *Kernel) CopyFile(src, dst string) error {
	if err := userFile(dst); err != nil {
		return err
	}
	return k.disk.copyFile(src, dst)
}

func (k *Kernel) RenameFile(from, to string) error {
	if err := userFile(from); err != nil {
		return err
	}
	if err := userFile(to); err != nil {
		return err
	}
	return k.disk.renameFile(from, to)
}

// Files lists the directory; hidden names (leading dot) only when all
// is set.
func (k *Kernel) Files(all bool) ([]string, error) {
	if !k.disk.Formatted() {
		return nil, ErrNotFormatted
	}
	var names []string
	for _, n := range k.disk.files() {
		if all || !strings.HasPrefix(n, ".") {
			names = append(names, n)
		}
	}
	return names, nil
}

// Processes returns a snapshot of the process table.
func (k *Kernel) Processes() []ProcessInfo {
	out := make([]ProcessInfo, len(k.procs.pcbs))
	for i, p := range k.procs.pcbs {
		out[i] = p.info()
	}
	return out
}

// ReadyQueue returns the ready queue, head first.
func (k *Kernel) ReadyQueue() []int { return k.sched.Queue() }

// Running returns the pid of the running process.
func (k *Kernel) Running() (int, bool) {
	if k.disp.running == nil {
		return 0, false
	}
	return k.disp.running.PID, true
}

// MemoryDump returns n bytes of core from a.
func (k *Kernel) MemoryDump(a, n int) []byte {
	if a < 0 || n <= 0 {
		return nil
	}
	return k.acc.dump(addr(a), n)
}

// MemorySize returns the size of core in bytes.
func (k *Kernel) MemorySize() int { return k.mem.Size() }

func (k *Kernel) Segments() []Segment { return k.mm.Segments() }

func (k *Kernel) Blocks() []BlockInfo { return k.disk.Blocks() }

// Program returns the segment image of a process in memory.
func (k *Kernel) Program(pid int) ([]byte, error) {
	p := k.procs.find(pid)
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchProcess, pid)
	}
	if p.Segment == nil {
		return nil, fmt.Errorf("process %d is not in memory", pid)
	}
	return k.acc.dump(p.Segment.Base, p.Segment.Size()), nil
}

// PrintState writes the live CPU registers and the next instruction.
func (k *Kernel) PrintState(w io.Writer) {
	k.cpu.printstate(w, k.disp.running)
}

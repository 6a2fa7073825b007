package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"
)

const version = "kernsim 0.3"

// errShutdown ends the shell loop.
var errShutdown = errors.New("shutdown")

type command struct {
	name  string
	usage string
	help  string
	run   func(sh *shell, args []string) error
}

// usageError is reported with the command's usage line.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{fmt.Sprintf(format, args...)}
}

var commands []command

func init() {
	commands = []command{
		{"ver", "", "display the version", (*shell).ver},
		{"help", "", "list the commands", (*shell).help},
		{"man", "<command>", "describe a command", (*shell).man},
		{"load", "<hex>", "load a program, hex pairs separated by optional spaces", (*shell).load},
		{"run", "<pid>", "run a loaded process", (*shell).run},
		{"runall", "", "run every loaded process", (*shell).runall},
		{"ps", "", "list processes", (*shell).ps},
		{"kill", "<pid>", "kill a process", (*shell).kill},
		{"killall", "", "kill every process", (*shell).killall},
		{"clearmem", "", "kill every process and clear memory", (*shell).clearmem},
		{"clearps", "", "forget terminated processes", (*shell).clearps},
		{"quantum", "[<cycles>]", "show or set the round robin quantum", (*shell).quantum},
		{"getschedule", "", "show the scheduling algorithm", (*shell).getschedule},
		{"setschedule", "<rr|fcfs>", "set the scheduling algorithm", (*shell).setschedule},
		{"format", "", "format the disk", (*shell).format},
		{"create", "<file>", "create an empty file", (*shell).create},
		{"write", "<file> \"<text>\"", "replace the contents of a file", (*shell).write},
		{"read", "<file>", "print a file", (*shell).read},
		{"delete", "[-d] <file>", "delete a file, -d also zeroes its blocks", (*shell).delete},
		{"copy", "<from> <to>", "copy a file", (*shell).copy},
		{"rename", "<from> <to>", "rename a file", (*shell).rename},
		{"ls", "[-a]", "list files, -a includes hidden files", (*shell).ls},
		{"blocks", "", "list the disk blocks in use", (*shell).blocks},
		{"memdump", "[<addr> [<len>]]", "dump memory and the segment table", (*shell).memdump},
		{"disasm", "<pid>", "disassemble a process in memory", (*shell).disasm},
		{"step", "[on|off]", "toggle single step mode, or execute one cycle", (*shell).step},
		{"trace", "<on|off>", "toggle the kernel trace", (*shell).trace},
		{"status", "", "show the CPU and the ready queue", (*shell).status},
		{"shutdown", "", "stop the simulator", (*shell).shutdown},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// shell interprets operator commands against a kernel.
type shell struct {
	k   *Kernel
	out io.Writer
}

func newShell(k *Kernel, out io.Writer) *shell {
	return &shell{k: k, out: out}
}

// exec runs one command line. Errors are reported to the operator; only
// errShutdown is returned.
func (sh *shell) exec(line string) error {
	fields := splitArgs(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	c, ok := lookupCommand(name)
	if !ok {
		fmt.Fprintf(sh.out, "%s: unknown command, try help\n", fields[0])
		return nil
	}
	err := c.run(sh, fields[1:])
	switch {
	case err == nil:
	case errors.Is(err, errShutdown):
		return err
	case errors.As(err, new(usageError)):
		fmt.Fprintf(sh.out, "%s: %v\nusage: %s %s\n", c.name, err, c.name, c.usage)
	default:
		fmt.Fprintf(sh.out, "%s: %v\n", c.name, err)
	}
	return nil
}

// splitArgs splits line at white space outside double quotes. A quoted
// run keeps its quotes and inner spacing.
func splitArgs(line string) []string {
	var args []string
	var cur strings.Builder
	quoted, started := false, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
			cur.WriteRune(r)
		case unicode.IsSpace(r) && !quoted:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			started = true
			cur.WriteRune(r)
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}

// serve runs the kernel off ticks and commands off lines until shutdown,
// ctx is cancelled, or input ends and the kernel has nothing left to do.
func (sh *shell) serve(ctx context.Context, lines <-chan string, ticks <-chan time.Time) error {
	eof := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			sh.k.Tick()
			if eof && sh.k.Idle() {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				eof = true
				continue
			}
			if err := sh.exec(line); err != nil {
				return err
			}
		}
	}
}

func pidArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, usagef("expected a process id")
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil || pid < 0 {
		return 0, usagef("invalid process id %q", args[0])
	}
	return pid, nil
}

func nameArg(args []string, n int) error {
	if len(args) != n {
		return usagef("expected %d file name(s)", n)
	}
	return nil
}

func (sh *shell) ver(args []string) error {
	fmt.Fprintln(sh.out, version)
	return nil
}

func (sh *shell) help(args []string) error {
	w := tabwriter.NewWriter(sh.out, 0, 8, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(w, "%s %s\t%s\n", c.name, c.usage, c.help)
	}
	return w.Flush()
}

func (sh *shell) man(args []string) error {
	if len(args) != 1 {
		return usagef("expected a command")
	}
	c, ok := lookupCommand(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("no manual entry for %s", args[0])
	}
	fmt.Fprintf(sh.out, "%s %s\n\t%s\n", c.name, c.usage, c.help)
	return nil
}

func (sh *shell) load(args []string) error {
	program, err := parseProgram(strings.Join(args, ""))
	if err != nil {
		return err
	}
	p, err := sh.k.Load(program)
	if err != nil {
		return err
	}
	if p.Residency == DISK {
		fmt.Fprintf(sh.out, "Process %d loaded to disk\n", p.PID)
		return nil
	}
	fmt.Fprintf(sh.out, "Process %d loaded into segment %d\n", p.PID, p.Segment.ID)
	return nil
}

func (sh *shell) run(args []string) error {
	pid, err := pidArg(args)
	if err != nil {
		return err
	}
	return sh.k.Run(pid)
}

func (sh *shell) runall(args []string) error {
	return sh.k.RunAll()
}

func (sh *shell) ps(args []string) error {
	procs := sh.k.Processes()
	if len(procs) == 0 {
		fmt.Fprintln(sh.out, "No processes.")
		return nil
	}
	w := tabwriter.NewWriter(sh.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tSTATE\tWHERE\tPC\tACC\tX\tY\tZ\tWAIT\tTURNAROUND\tFAULT")
	for _, p := range procs {
		where := p.Residency
		if p.Segment >= 0 {
			where = fmt.Sprintf("seg %d", p.Segment)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%02X\t%02X\t%02X\t%02X\t%d\t%d\t%d\t%s\n",
			p.PID, p.State, where, p.Regs.PC, p.Regs.ACC, p.Regs.X, p.Regs.Y, p.Regs.Z,
			p.Waiting, p.Turnaround, p.Fault)
	}
	return w.Flush()
}

func (sh *shell) kill(args []string) error {
	pid, err := pidArg(args)
	if err != nil {
		return err
	}
	if err := sh.k.Kill(pid); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Process %d killed\n", pid)
	return nil
}

func (sh *shell) killall(args []string) error {
	return sh.k.KillAll()
}

func (sh *shell) clearmem(args []string) error {
	sh.k.ClearMem()
	fmt.Fprintln(sh.out, "Memory cleared")
	return nil
}

func (sh *shell) clearps(args []string) error {
	n := sh.k.ClearPS()
	fmt.Fprintf(sh.out, "%d terminated process(es) removed\n", n)
	return nil
}

func (sh *shell) quantum(args []string) error {
	switch len(args) {
	case 0:
		fmt.Fprintf(sh.out, "Quantum is %d cycles\n", sh.k.Quantum())
		return nil
	case 1:
		q, err := strconv.Atoi(args[0])
		if err != nil {
			return usagef("invalid quantum %q", args[0])
		}
		old := sh.k.Quantum()
		if err := sh.k.SetQuantum(q); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Quantum changed from %d to %d\n", old, q)
		return nil
	default:
		return usagef("too many arguments")
	}
}

func (sh *shell) getschedule(args []string) error {
	fmt.Fprintf(sh.out, "Scheduling is %s\n", sh.k.Schedule())
	return nil
}

func (sh *shell) setschedule(args []string) error {
	if len(args) != 1 {
		return usagef("expected an algorithm")
	}
	if err := sh.k.SetSchedule(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Scheduling is %s\n", sh.k.Schedule())
	return nil
}

func (sh *shell) format(args []string) error {
	if err := sh.k.Format(); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "Disk formatted")
	return nil
}

func (sh *shell) create(args []string) error {
	if err := nameArg(args, 1); err != nil {
		return err
	}
	if err := sh.k.CreateFile(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Created %s\n", args[0])
	return nil
}

// write takes the quoted remainder of the line as the contents, with the
// surrounding double quotes removed.
func (sh *shell) write(args []string) error {
	if len(args) < 2 {
		return usagef("expected a file name and text")
	}
	text := strings.Join(args[1:], " ")
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return usagef("text must be quoted")
	}
	if err := sh.k.WriteFile(args[0], []byte(text[1:len(text)-1])); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Wrote %s\n", args[0])
	return nil
}

func (sh *shell) read(args []string) error {
	if err := nameArg(args, 1); err != nil {
		return err
	}
	data, err := sh.k.ReadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s\n", data)
	return nil
}

func (sh *shell) delete(args []string) error {
	deep := len(args) > 0 && args[0] == "-d"
	if deep {
		args = args[1:]
	}
	if err := nameArg(args, 1); err != nil {
		return err
	}
	del := sh.k.DeleteFile
	if deep {
		del = sh.k.DeepDeleteFile
	}
	if err := del(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Deleted %s\n", args[0])
	return nil
}

func (sh *shell) copy(args []string) error {
	if err := nameArg(args, 2); err != nil {
		return err
	}
	if err := sh.k.CopyFile(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Copied %s to %s\n", args[0], args[1])
	return nil
}

func (sh *shell) rename(args []string) error {
	if err := nameArg(args, 2); err != nil {
		return err
	}
	if err := sh.k.RenameFile(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Renamed %s to %s\n", args[0], args[1])
	return nil
}

func (sh *shell) ls(args []string) error {
	all := len(args) == 1 && args[0] == "-a"
	if len(args) > 1 || (len(args) == 1 && !all) {
		return usagef("unknown flag")
	}
	names, err := sh.k.Files(all)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(sh.out, n)
	}
	return nil
}

func (sh *shell) blocks(args []string) error {
	if !sh.k.disk.Formatted() {
		return ErrNotFormatted
	}
	w := tabwriter.NewWriter(sh.out, 0, 8, 1, ' ', 0)
	fmt.Fprintln(w, "TSB\tNEXT\tDATA")
	for _, b := range sh.k.Blocks() {
		if !b.InUse {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%X\n", b.TSB, b.Next, trimZeros(b.Data))
	}
	return w.Flush()
}

func trimZeros(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}

func (sh *shell) memdump(args []string) error {
	start, n := 0, sh.k.MemorySize()
	if len(args) > 2 {
		return usagef("too many arguments")
	}
	if len(args) > 0 {
		v, err := strconv.ParseInt(args[0], 0, 32)
		if err != nil || v < 0 || int(v) >= sh.k.MemorySize() {
			return usagef("invalid address %q", args[0])
		}
		start, n = int(v), sh.k.MemorySize()-int(v)
	}
	if len(args) > 1 {
		v, err := strconv.ParseInt(args[1], 0, 32)
		if err != nil || v <= 0 {
			return usagef("invalid length %q", args[1])
		}
		n = int(v)
	}
	hexdump(sh.out, start, sh.k.MemoryDump(start, n))
	for _, s := range sh.k.Segments() {
		owner := "free"
		if s.Active {
			owner = "active"
		}
		fmt.Fprintf(sh.out, "segment %d  $%04X-$%04X  %s\n", s.ID, uint32(s.Base), uint32(s.Limit), owner)
	}
	return nil
}

// hexdump prints 16 bytes per line, each line labelled with its address.
func hexdump(w io.Writer, base int, data []byte) {
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(w, "%04X ", base+i)
		for _, b := range data[i:end] {
			fmt.Fprintf(w, " %02X", b)
		}
		fmt.Fprintln(w)
	}
}

func (sh *shell) disasm(args []string) error {
	pid, err := pidArg(args)
	if err != nil {
		return err
	}
	program, err := sh.k.Program(pid)
	if err != nil {
		return err
	}
	for _, line := range disassemble(program) {
		fmt.Fprintln(sh.out, line)
	}
	return nil
}

func (sh *shell) step(args []string) error {
	switch {
	case len(args) == 0:
		return sh.k.Step()
	case len(args) == 1 && args[0] == "on":
		sh.k.SetSingleStep(true)
		fmt.Fprintln(sh.out, "Single step on")
	case len(args) == 1 && args[0] == "off":
		sh.k.SetSingleStep(false)
		fmt.Fprintln(sh.out, "Single step off")
	default:
		return usagef("expected on or off")
	}
	return nil
}

func (sh *shell) trace(args []string) error {
	if len(args) != 1 {
		return usagef("expected on or off")
	}
	switch args[0] {
	case "on":
		sh.k.SetTrace(sh.out)
	case "off":
		sh.k.SetTrace(nil)
	default:
		return usagef("expected on or off")
	}
	return nil
}

func (sh *shell) status(args []string) error {
	if pid, ok := sh.k.Running(); ok {
		fmt.Fprintf(sh.out, "running  pid %d\n", pid)
	} else {
		fmt.Fprintln(sh.out, "running  none")
	}
	fmt.Fprintf(sh.out, "ready    %v\n", sh.k.ReadyQueue())
	fmt.Fprintf(sh.out, "schedule %s quantum %d", sh.k.Schedule(), sh.k.Quantum())
	if sh.k.SingleStep() {
		fmt.Fprint(sh.out, " single step")
	}
	fmt.Fprintln(sh.out)
	sh.k.PrintState(sh.out)
	return nil
}

func (sh *shell) shutdown(args []string) error {
	sh.k.KillAll()
	fmt.Fprintln(sh.out, "Shutting down")
	return errShutdown
}

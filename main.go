// kernsim is a teaching kernel: a small 6502 style CPU, fixed segment
// memory, a round robin scheduler and a swapping block disk.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
)

func main() {
	var cli struct {
		Config kong.ConfigFlag `help:"load flags from a JSON file" placeholder:"FILE"`

		Shell  shellCmd  `cmd:"" default:"withargs" help:"boot the kernel and attach a shell"`
		Disasm disasmCmd `cmd:"" help:"disassemble a program"`
	}

	ctx := kong.Parse(&cli,
		kong.Name("kernsim"),
		kong.Description("An educational kernel simulator."),
		kong.Configuration(kong.JSON, "~/.kernsim.json", ".kernsim.json"),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

type shellCmd struct {
	Segments    int           `default:"3" env:"KERNSIM_SEGMENTS" help:"number of memory segments"`
	SegmentSize int           `name:"segment-size" default:"256" env:"KERNSIM_SEGMENT_SIZE" help:"bytes per segment"`
	Quantum     int           `default:"6" env:"KERNSIM_QUANTUM" help:"round robin quantum in cycles"`
	Schedule    string        `default:"rr" enum:"rr,fcfs" env:"KERNSIM_SCHEDULE" help:"scheduling algorithm (rr, fcfs)"`
	Clock       time.Duration `default:"10ms" env:"KERNSIM_CLOCK" help:"clock period, one cycle per tick"`
	Disk        string        `type:"path" env:"KERNSIM_DISK" help:"disk image, mounted if present and saved on exit"`
	Format      bool          `help:"format the disk at boot"`
	Script      string        `type:"existingfile" help:"read commands from a file instead of the terminal"`
	Trace       bool          `env:"KERNSIM_TRACE" help:"write the kernel trace to the console"`
}

func (c *shellCmd) Run() error {
	var con *console
	if c.Script != "" {
		f, err := os.Open(c.Script)
		if err != nil {
			return err
		}
		defer f.Close()
		con = newLineConsole(f, os.Stdout)
	} else {
		var err error
		con, err = newConsole(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
	}
	defer con.close()

	cfg := Config{
		Segments:    c.Segments,
		SegmentSize: c.SegmentSize,
		Quantum:     c.Quantum,
		Algorithm:   c.Schedule,
		Out:         con.out,
	}
	if c.Trace {
		cfg.Trace = con.out
	}
	k, err := NewKernel(cfg)
	if err != nil {
		return err
	}
	if err := c.boot(k); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clock := newLineClock(c.Clock)
	defer clock.stop()

	fmt.Fprintln(con.out, version)
	err = newShell(k, con.out).serve(ctx, con.lines, clock.ticks)
	if errors.Is(err, errShutdown) || errors.Is(err, context.Canceled) {
		err = nil
	}
	if c.Disk != "" && k.disk.Formatted() {
		if serr := k.SaveDisk(c.Disk); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// boot mounts or formats the disk.
func (c *shellCmd) boot(k *Kernel) error {
	if c.Disk != "" {
		err := k.Mount(c.Disk)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
		default:
			return err
		}
	}
	if c.Format {
		return k.Format()
	}
	return nil
}

type disasmCmd struct {
	Program []string `arg:"" optional:"" help:"program as hex pairs, read from stdin when absent"`
}

func (d *disasmCmd) Run() error {
	text := strings.Join(d.Program, "")
	if len(d.Program) == 0 {
		buf, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = string(buf)
	}
	program, err := parseProgram(text)
	if err != nil {
		return err
	}
	for _, line := range disassemble(program) {
		fmt.Println(line)
	}
	return nil
}

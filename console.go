package main

import (
	"bufio"
	"io"
	"os"

	"golang.org/x/term"
)

const prompt = "> "

// console is the operator's terminal. Lines typed are delivered on
// lines, which is closed at end of input; output goes to out.
type console struct {
	lines <-chan string
	out   io.Writer

	raw *rawTerm
}

// newConsole attaches to stdin and stdout. A terminal gets raw mode and
// line editing, anything else is read a line at a time.
func newConsole(in *os.File, out *os.File) (*console, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return newLineConsole(in, out), nil
	}
	raw, err := enterRawTerm(in.Fd())
	if err != nil {
		return nil, err
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, prompt)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := t.ReadLine()
			if err != nil {
				return
			}
			lines <- line
		}
	}()
	return &console{lines: lines, out: t, raw: raw}, nil
}

// newLineConsole reads lines from r, a pipe or script file.
func newLineConsole(r io.Reader, w io.Writer) *console {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &console{lines: lines, out: w}
}

func (c *console) close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.restore()
}

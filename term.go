package main

import (
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// rawTerm holds a terminal in raw mode and the attributes to put back.
type rawTerm struct {
	fd    uintptr
	saved unix.Termios
}

func enterRawTerm(fd uintptr) (*rawTerm, error) {
	t := &rawTerm{fd: fd}
	if err := termios.Tcgetattr(fd, &t.saved); err != nil {
		return nil, err
	}
	raw := t.saved
	termios.Cfmakeraw(&raw)
	if err := termios.Tcsetattr(fd, termios.TCSANOW, &raw); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *rawTerm) restore() error {
	return termios.Tcsetattr(t.fd, termios.TCSANOW, &t.saved)
}

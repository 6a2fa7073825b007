package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// parseProgram decodes a program typed as hex pairs. Whitespace anywhere
// is ignored, so "A9 03 8D" and "A9038D" are the same program.
func parseProgram(text string) ([]byte, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if s == "" {
		return nil, ErrEmptyProgram
	}
	program, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	return program, nil
}

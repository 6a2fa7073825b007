package main

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestPrograms(t *testing.T) {
	tests := []struct {
		name    string
		program string
		output  string
		acc     byte
	}{
		{"add and print", progPrint4, "4", 4},
		{
			name: "powers of two",
			program: "A9 01 8D 40 00 AC 40 00 A2 01 FF 6D 40 00 A2 10" +
				"8D 40 00 EC 40 00 D0 EA 00",
			output: "1248",
			acc:    16,
		},
		{
			name:    "count to five",
			program: "EE 40 00 AC 40 00 A2 01 FF A2 05 EC 40 00 D0 F0 00",
			output:  "12345",
			acc:     5,
		},
		{"print string at Y", "A2 02 A0 06 FF 00 48 49 00", "HI", 0},
		{"print string at operand", "A2 03 FF 07 00 00 00 4F 4B 00", "OK", 0},
		{"unknown syscall", "A2 09 FF 00", "", 0},
		{"transfers", "A2 07 8A A8 A9 00 98 AA 00", "", 7},
		{"add wraps at 8 bits", "A9 F0 8D 20 00 6D 20 00 00", "", 0xE0},
		{"increment wraps at 8 bits", "A9 FF 8D 20 00 EE 20 00 AD 20 00 00", "", 0},
		{"load absolute", "AE 08 00 AC 09 00 8A 00 2A 2B", "", 0x2A},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			k, out := testKernel(t, DefaultConfig)
			p := mustLoad(t, k, tt.program)
			is.NoErr(k.Run(p.PID))
			runUntilIdle(t, k, 1000)

			is.Equal(p.Fault, FAULTNONE)
			is.Equal(p.Regs.ACC, tt.acc)
			got, _, _ := strings.Cut(out.String(), "\nExecution completed.")
			is.Equal(got, tt.output)
		})
	}
}

func TestTransferRegisters(t *testing.T) {
	is := is.New(t)
	k, _ := testKernel(t, DefaultConfig)
	p := mustLoad(t, k, "A2 07 8A A8 A9 00 98 AA 00")
	is.NoErr(k.Run(p.PID))
	runUntilIdle(t, k, 100)
	is.Equal(p.Regs.X, byte(7))
	is.Equal(p.Regs.Y, byte(7))
	is.Equal(p.Regs.ACC, byte(7))
}

func TestCPX(t *testing.T) {
	is := is.New(t)
	k, _ := testKernel(t, DefaultConfig)
	p := mustLoad(t, k, "A2 05 EC 06 00 00 05")
	is.NoErr(k.Run(p.PID))
	runUntilIdle(t, k, 100)
	is.Equal(p.Regs.Z, byte(1))

	q := mustLoad(t, k, "A2 04 EC 06 00 00 05")
	is.NoErr(k.Run(q.PID))
	runUntilIdle(t, k, 100)
	is.Equal(q.Regs.Z, byte(0))
}

func TestBNEWrapsWithinSegment(t *testing.T) {
	tests := []struct {
		program string
		pc      uint16
	}{
		{"D0 80", 0x82},    // 2 - 128 wraps to the top of the segment
		{"D0 7F", 0x81},    // forward
		{"D0 FE", 0x00},    // back onto itself
		{"EA D0 FC", 0xFF}, // 3 - 4 wraps to the last byte
	}
	for _, tt := range tests {
		is := is.New(t)
		k, _ := testKernel(t, DefaultConfig)
		p := mustLoad(t, k, tt.program)
		is.NoErr(k.Run(p.PID))
		k.Tick()
		if tt.program[0] == 'E' {
			k.Tick()
		}
		is.Equal(p.Regs.PC, tt.pc) // tt.program
	}
}

func TestBNENotTakenWhenZSet(t *testing.T) {
	is := is.New(t)
	k, _ := testKernel(t, DefaultConfig)
	// CPX sets Z, so the branch falls through to BRK
	p := mustLoad(t, k, "A2 00 EC 10 00 D0 FE 00")
	is.NoErr(k.Run(p.PID))
	runUntilIdle(t, k, 100)
	is.Equal(p.Fault, FAULTNONE)
	is.Equal(p.Cycles, 4)
}

func TestRegistersMirroredOnFault(t *testing.T) {
	is := is.New(t)
	k, _ := testKernel(t, DefaultConfig)
	p := mustLoad(t, k, "A9 42 A2 03 02")
	is.NoErr(k.Run(p.PID))
	runUntilIdle(t, k, 100)
	is.Equal(p.Fault, FAULTOPCODE)
	is.Equal(p.Regs.ACC, byte(0x42))
	is.Equal(p.Regs.X, byte(0x03))
	is.Equal(p.Regs.IR, byte(0x02))
	is.Equal(p.Regs.PC, uint16(5))
}

func TestCycleWhileHaltedPanics(t *testing.T) {
	is := is.New(t)
	k, _ := testKernel(t, DefaultConfig)
	p := mustLoad(t, k, progNop)
	defer func() {
		is.True(recover() != nil)
	}()
	k.cpu.Cycle(p)
}

func TestPrintState(t *testing.T) {
	is := is.New(t)
	k, _ := testKernel(t, DefaultConfig)
	p := mustLoad(t, k, "A9 02 8D 14 00 00")
	is.NoErr(k.Run(p.PID))
	k.Tick()

	var sb strings.Builder
	k.PrintState(&sb)
	is.Equal(sb.String(), "PC 02 IR A9 ACC 02 X 00 Y 00 Z 0\t0002  8D 14 00  STA $0014\n")
}

func BenchmarkCycle(b *testing.B) {
	k, _ := testKernel(b, DefaultConfig)
	p := mustLoad(b, k, "EE 40 00 D0 FB")
	if err := k.Run(p.PID); err != nil {
		b.Fatal(err)
	}
	k.Tick()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k.Tick()
	}
}

package main

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func testMMU(segments, size int) *MemoryManager {
	mem := newMemory(segments * size)
	acc := &MemAccessor{mem: mem}
	mm := &MemoryManager{mem: mem, acc: acc}
	mm.segmentsInit(size)
	return mm
}

// trapped runs fn and returns the trap it panicked with.
func trapped(fn func()) (t trap, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = r.(trap)
			if !ok {
				panic(r)
			}
		}
	}()
	fn()
	return trap{}, false
}

func TestSegmentsInit(t *testing.T) {
	is := is.New(t)
	mm := testMMU(3, 0x100)
	segs := mm.Segments()
	is.Equal(len(segs), 3)
	for i, s := range segs {
		is.Equal(s.ID, i)
		is.Equal(s.Base, addr(i*0x100))
		is.Equal(s.Limit, addr(i*0x100+0xFF))
		is.Equal(s.Size(), 0x100)
		is.True(!s.Active)
	}

	defer func() { is.True(recover() != nil) }()
	mm.segmentsInit(0x100)
}

func TestSegmentsInitRequired(t *testing.T) {
	is := is.New(t)
	mm := &MemoryManager{mem: newMemory(16)}
	defer func() { is.True(recover() != nil) }()
	mm.free()
}

func TestLoadFirstFit(t *testing.T) {
	is := is.New(t)
	mm := testMMU(3, 8)

	var pcbs []*PCB
	for i := 0; i < 3; i++ {
		p := &PCB{PID: i}
		is.NoErr(mm.load(p, []byte{byte(i + 1), 0xEA}))
		is.Equal(p.Segment.ID, i)
		is.Equal(p.Residency, MEMORY)
		pcbs = append(pcbs, p)
	}
	is.Equal(mm.acc.dump(8, 8), []byte{2, 0xEA, 0, 0, 0, 0, 0, 0})

	full := &PCB{PID: 3}
	is.NoErr(mm.load(full, []byte{0xFF}))
	is.Equal(full.Residency, DISK)
	is.Equal(full.Segment, nil)

	mm.release(pcbs[1])
	is.Equal(pcbs[1].Segment, nil)
	is.Equal(mm.free().ID, 1)

	// a reload zero fills the rest of the segment
	p := &PCB{PID: 4}
	is.NoErr(mm.load(p, []byte{0xAA}))
	is.Equal(p.Segment.ID, 1)
	is.Equal(mm.acc.dump(8, 8), []byte{0xAA, 0, 0, 0, 0, 0, 0, 0})
}

func TestLoadTooLarge(t *testing.T) {
	is := is.New(t)
	mm := testMMU(2, 4)
	p := &PCB{}
	err := mm.load(p, make([]byte, 5))
	is.True(errors.Is(err, ErrProgramTooLarge))
	is.Equal(p.Segment, nil)
	is.True(!mm.segments[0].Active)
}

func TestCalcMAR(t *testing.T) {
	is := is.New(t)
	mm := testMMU(2, 0x100)
	p := &PCB{}
	mm.segments[0].Active = true
	is.NoErr(mm.load(p, []byte{0xAD, 0x34, 0x00}))
	is.Equal(p.Segment.ID, 1)
	is.Equal(mm.calcMAR(p.Segment, 1), addr(0x134))
	is.Equal(mm.mem.MAR, addr(0x134))
}

func TestAccessorBounds(t *testing.T) {
	mm := testMMU(2, 0x10)
	seg := mm.segments[1]
	tests := []struct {
		name string
		mar  addr
		ok   bool
	}{
		{"base", 0x10, true},
		{"limit", 0x1F, true},
		{"below base", 0x0F, false},
		{"past limit", 0x20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			tr, trappedRead := trapped(func() { mm.acc.readAt(seg, tt.mar) })
			_, trappedWrite := trapped(func() { mm.acc.writeAt(seg, tt.mar, 0x55) })
			is.Equal(trappedRead, !tt.ok)
			is.Equal(trappedWrite, !tt.ok)
			if !tt.ok {
				is.Equal(tr, trap{FAULTBOUNDS, tt.mar})
			}
		})
	}

	is := is.New(t)
	is.Equal(mm.acc.dump(0, 0x10), make([]byte, 0x10)) // segment 0 untouched
	_, ok := trapped(func() { mm.acc.readAt(nil, 0) })
	is.True(ok)
}

func TestSegmentData(t *testing.T) {
	is := is.New(t)
	mm := testMMU(2, 4)
	p := &PCB{}
	is.NoErr(mm.load(p, []byte{1, 2, 3}))
	is.Equal(mm.acc.segmentData(p.Segment), []byte{1, 2, 3, 0})

	mm.clearSegment(p.Segment)
	is.Equal(mm.acc.segmentData(p.Segment), []byte{0, 0, 0, 0})
}

func TestClearInactiveSegments(t *testing.T) {
	is := is.New(t)
	mm := testMMU(2, 4)
	a, b := &PCB{}, &PCB{}
	is.NoErr(mm.load(a, []byte{1, 1}))
	is.NoErr(mm.load(b, []byte{2, 2}))
	mm.release(a)
	mm.clearInactiveSegments()
	is.Equal(mm.acc.dump(0, 8), []byte{0, 0, 0, 0, 2, 2, 0, 0})

	mm.resetSegments()
	is.Equal(mm.free().ID, 0)
}

func TestDumpClipped(t *testing.T) {
	is := is.New(t)
	mm := testMMU(1, 4)
	is.Equal(len(mm.acc.dump(2, 10)), 2)
	is.Equal(mm.acc.dump(4, 1), nil)
}

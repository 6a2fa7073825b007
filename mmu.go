package main

import "fmt"

// Segment is a fixed partition of core. Limit is inclusive.
type Segment struct {
	ID     int
	Base   addr
	Limit  addr
	Active bool
}

// Size returns the number of bytes spanned by the segment.
func (s *Segment) Size() int { return int(s.Limit-s.Base) + 1 }

// MemoryManager hands fixed segments of core to processes. There is no
// paging; a segment maps process relative addresses by adding its base.
type MemoryManager struct {
	mem      *Memory
	acc      *MemAccessor
	segments []*Segment
}

// segmentsInit partitions core into consecutive segments of size bytes.
// A trailing remainder shorter than size is left unused.
func (mm *MemoryManager) segmentsInit(size int) {
	if mm.segments != nil {
		panic("memory manager: segments already initialised")
	}
	for base := 0; base+size <= mm.mem.Size(); base += size {
		mm.segments = append(mm.segments, &Segment{
			ID:    len(mm.segments),
			Base:  addr(base),
			Limit: addr(base + size - 1),
		})
	}
}

// segmentSize returns the size every segment shares.
func (mm *MemoryManager) segmentSize() int {
	if len(mm.segments) == 0 {
		panic("memory manager: no segments")
	}
	return mm.segments[0].Size()
}

// free returns the first inactive segment, or nil if memory is full.
func (mm *MemoryManager) free() *Segment {
	if len(mm.segments) == 0 {
		panic("memory manager: no segments")
	}
	for _, s := range mm.segments {
		if !s.Active {
			return s
		}
	}
	return nil
}

// load places program into the first free segment and assigns that
// segment to p. If no segment is free p is marked disk resident and
// memory is left untouched; storing the image is the swapper's job.
func (mm *MemoryManager) load(p *PCB, program []byte) error {
	if len(program) > mm.segmentSize() {
		return fmt.Errorf("%w: %d bytes, segment holds %d", ErrProgramTooLarge, len(program), mm.segmentSize())
	}
	seg := mm.free()
	if seg == nil {
		p.Residency = DISK
		return nil
	}
	return mm.loadInto(p, program, seg)
}

// loadInto places program into seg and assigns seg to p.
func (mm *MemoryManager) loadInto(p *PCB, program []byte, seg *Segment) error {
	if len(program) > seg.Size() {
		return fmt.Errorf("%w: %d bytes, segment holds %d", ErrProgramTooLarge, len(program), seg.Size())
	}
	if seg.Active {
		panic(fmt.Sprintf("memory manager: segment %d is already active", seg.ID))
	}
	mm.acc.fill(seg, program)
	seg.Active = true
	p.Segment = seg
	p.Residency = MEMORY
	return nil
}

// calcMAR converts the little endian operand at pc, pc+1 into an
// absolute address within seg and leaves it in MAR.
func (mm *MemoryManager) calcMAR(seg *Segment, pc uint16) addr {
	lo := mm.acc.readAt(seg, seg.Base+addr(pc))
	hi := mm.acc.readAt(seg, seg.Base+addr(pc)+1)
	mm.mem.MAR = seg.Base + addr(lo) + addr(hi)<<8
	return mm.mem.MAR
}

// release deactivates and detaches the segment held by p, if any.
func (mm *MemoryManager) release(p *PCB) {
	if p.Segment == nil {
		return
	}
	p.Segment.Active = false
	p.Segment = nil
}

// clearSegment zeroes every byte in seg.
func (mm *MemoryManager) clearSegment(seg *Segment) {
	mm.acc.fill(seg, nil)
}

// resetSegments marks every segment inactive.
func (mm *MemoryManager) resetSegments() {
	for _, s := range mm.segments {
		s.Active = false
	}
}

// clearInactiveSegments zeroes memory belonging to no process.
func (mm *MemoryManager) clearInactiveSegments() {
	for _, s := range mm.segments {
		if !s.Active {
			mm.clearSegment(s)
		}
	}
}

// Segments returns a copy of the segment table.
func (mm *MemoryManager) Segments() []Segment {
	out := make([]Segment, len(mm.segments))
	for i, s := range mm.segments {
		out[i] = *s
	}
	return out
}

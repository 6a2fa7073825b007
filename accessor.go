package main

// MemAccessor is the only path into core. Each access is checked against
// the segment of the process on whose behalf it is made.
type MemAccessor struct {
	mem *Memory
}

// check panics with a bounds trap if MAR lies outside seg.
func (ma *MemAccessor) check(seg *Segment) {
	mar := ma.mem.MAR
	if seg == nil || mar < seg.Base || mar > seg.Limit || int(mar) >= len(ma.mem.core) {
		panic(trap{FAULTBOUNDS, mar})
	}
}

// read loads core[MAR] into MDR.
func (ma *MemAccessor) read(seg *Segment) byte {
	ma.check(seg)
	ma.mem.MDR = ma.mem.core[ma.mem.MAR]
	return ma.mem.MDR
}

// write stores MDR into core[MAR].
func (ma *MemAccessor) write(seg *Segment) {
	ma.check(seg)
	ma.mem.core[ma.mem.MAR] = ma.mem.MDR
}

// readAt is read with MAR set to a.
func (ma *MemAccessor) readAt(seg *Segment, a addr) byte {
	ma.mem.MAR = a
	return ma.read(seg)
}

// writeAt is write with MAR set to a and MDR to v.
func (ma *MemAccessor) writeAt(seg *Segment, a addr, v byte) {
	ma.mem.MAR = a
	ma.mem.MDR = v
	ma.write(seg)
}

// segmentData returns a copy of every byte in seg.
func (ma *MemAccessor) segmentData(seg *Segment) []byte {
	data := make([]byte, 0, seg.Size())
	for a := seg.Base; a <= seg.Limit; a++ {
		data = append(data, ma.readAt(seg, a))
	}
	return data
}

// fill writes data from the base of seg and zeroes the remainder.
func (ma *MemAccessor) fill(seg *Segment, data []byte) {
	for i := 0; i < seg.Size(); i++ {
		var v byte
		if i < len(data) {
			v = data[i]
		}
		ma.writeAt(seg, seg.Base+addr(i), v)
	}
}

// dump returns n bytes of core from a, clipped to the end of core. It
// bypasses the registers so it can be called at any time.
func (ma *MemAccessor) dump(a addr, n int) []byte {
	if int(a) >= len(ma.mem.core) {
		return nil
	}
	end := int(a) + n
	if end > len(ma.mem.core) {
		end = len(ma.mem.core)
	}
	out := make([]byte, end-int(a))
	copy(out, ma.mem.core[a:end])
	return out
}

package main

// addr is an absolute physical memory address.
type addr uint32

// Memory is the machine's core store. Every transfer in or out of core
// goes through MAR and MDR.
type Memory struct {
	core []byte

	MAR addr // memory address register
	MDR byte // memory data register
}

func newMemory(size int) *Memory {
	return &Memory{core: make([]byte, size)}
}

// Size returns the number of bytes of core.
func (m *Memory) Size() int { return len(m.core) }

// reset zeroes core and both registers.
func (m *Memory) reset() {
	for i := range m.core {
		m.core[i] = 0
	}
	m.MAR = 0
	m.MDR = 0
}

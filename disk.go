package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Disk geometry.
const (
	TRACKS    = 4
	SECTORS   = 8
	BLOCKS    = 8
	BLOCKSIZE = 64
	HEADER    = 4 // in use, next track, next sector, next block
	PAYLOAD   = BLOCKSIZE - HEADER
)

// noBlock terminates a block chain.
const noBlock = -1

// terminal is the on image encoding of noBlock in each header byte.
const terminal = 0xFF

type block struct {
	inUse bool
	next  int
	data  [PAYLOAD]byte
}

func (b *block) clear() {
	*b = block{next: noBlock}
}

// Disk is a track/sector/block addressed store. Track 0 holds the
// directory, one file per block; the remaining tracks hold data blocks
// chained through their headers. Block 0:0:0 is the master boot record
// and is never allocated.
type Disk struct {
	tracks, sectors, blocks int

	arena     []block
	formatted bool
}

func newDisk(tracks, sectors, blocks int) *Disk {
	d := &Disk{
		tracks:  tracks,
		sectors: sectors,
		blocks:  blocks,
		arena:   make([]block, tracks*sectors*blocks),
	}
	for i := range d.arena {
		d.arena[i].clear()
	}
	return d
}

func (d *Disk) index(t, s, b int) int { return (t*d.sectors+s)*d.blocks + b }

func (d *Disk) tsb(i int) (t, s, b int) {
	return i / (d.sectors * d.blocks), (i / d.blocks) % d.sectors, i % d.blocks
}

func (d *Disk) label(i int) string {
	if i == noBlock {
		return "---"
	}
	t, s, b := d.tsb(i)
	return fmt.Sprintf("%d:%d:%d", t, s, b)
}

// dirBlocks is the number of blocks on the directory track.
func (d *Disk) dirBlocks() int { return d.sectors * d.blocks }

// Formatted reports whether the disk has been formatted.
func (d *Disk) Formatted() bool { return d.formatted }

// format empties every block.
func (d *Disk) format() {
	for i := range d.arena {
		d.arena[i].clear()
	}
	d.formatted = true
}

func (d *Disk) alloc(from, to int) int {
	for i := from; i < to; i++ {
		if !d.arena[i].inUse {
			d.arena[i].clear()
			d.arena[i].inUse = true
			return i
		}
	}
	return noBlock
}

// allocDir claims a free directory block, skipping the MBR.
func (d *Disk) allocDir() int { return d.alloc(1, d.dirBlocks()) }

// allocData claims a free data block.
func (d *Disk) allocData() int { return d.alloc(d.dirBlocks(), len(d.arena)) }

// freeChain releases every block from i to the terminal; scrub also
// zeroes their payloads.
func (d *Disk) freeChain(i int, scrub bool) {
	for steps := 0; i != noBlock && steps < len(d.arena); steps++ {
		next := d.arena[i].next
		if scrub {
			d.arena[i].clear()
		} else {
			d.arena[i].inUse = false
			d.arena[i].next = noBlock
		}
		i = next
	}
}

func (d *Disk) checkName(name string) error {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrFileNameInvalid, name)
	}
	if len(name) > PAYLOAD {
		return fmt.Errorf("%w: %q", ErrFileNameTooLong, name)
	}
	return nil
}

// findFile returns the directory block and the first data block of name.
func (d *Disk) findFile(name string) (dir, first int, ok bool) {
	for i := 1; i < d.dirBlocks(); i++ {
		b := &d.arena[i]
		if b.inUse && string(bytes.TrimRight(b.data[:], "\x00")) == name {
			return i, b.next, true
		}
	}
	return noBlock, noBlock, false
}

// createFile adds an empty file called name.
func (d *Disk) createFile(name string) error {
	if !d.formatted {
		return ErrNotFormatted
	}
	if err := d.checkName(name); err != nil {
		return err
	}
	if _, _, ok := d.findFile(name); ok {
		return fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	dir := d.allocDir()
	if dir == noBlock {
		return ErrDirectoryFull
	}
	first := d.allocData()
	if first == noBlock {
		d.arena[dir].clear()
		return ErrDiskFull
	}
	copy(d.arena[dir].data[:], name)
	d.arena[dir].next = first
	return nil
}

// writeFile replaces the contents of name with data, chaining as many
// blocks as needed. If data does not fit the file is left as it was.
func (d *Disk) writeFile(name string, data []byte) error {
	if !d.formatted {
		return ErrNotFormatted
	}
	_, first, ok := d.findFile(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	need := (len(data) + PAYLOAD - 1) / PAYLOAD
	if need == 0 {
		need = 1
	}
	if have := d.chainLen(first) + d.freeData(); need > have {
		return fmt.Errorf("%w: writing %s needs %d blocks, %d available", ErrDiskFull, name, need, have)
	}

	// drop the old tail so no stale blocks survive a shorter write
	d.freeChain(d.arena[first].next, true)
	d.arena[first].clear()
	d.arena[first].inUse = true

	cur := first
	for len(data) > 0 {
		n := copy(d.arena[cur].data[:], data)
		data = data[n:]
		if len(data) == 0 {
			break
		}
		next := d.allocData()
		if next == noBlock {
			// only reachable through a corrupt chain
			d.freeChain(d.arena[first].next, true)
			d.arena[first].clear()
			d.arena[first].inUse = true
			return fmt.Errorf("%w: %s", ErrCorruptChain, name)
		}
		d.arena[cur].next = next
		cur = next
	}
	return nil
}

// chainLen counts the blocks from i to the terminal.
func (d *Disk) chainLen(i int) int {
	n := 0
	for ; i != noBlock && n < len(d.arena); n++ {
		i = d.arena[i].next
	}
	return n
}

// freeData counts the unused data blocks.
func (d *Disk) freeData() int {
	n := 0
	for i := d.dirBlocks(); i < len(d.arena); i++ {
		if !d.arena[i].inUse {
			n++
		}
	}
	return n
}

// readFile returns the contents of name without trailing zero padding.
func (d *Disk) readFile(name string) ([]byte, error) {
	if !d.formatted {
		return nil, ErrNotFormatted
	}
	_, i, ok := d.findFile(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	var buf []byte
	for steps := 0; i != noBlock; steps++ {
		if steps >= len(d.arena) {
			return nil, fmt.Errorf("%w: %s", ErrCorruptChain, name)
		}
		buf = append(buf, d.arena[i].data[:]...)
		i = d.arena[i].next
	}
	return bytes.TrimRight(buf, "\x00"), nil
}

// deleteFile removes the directory entry of name and releases its
// blocks without scrubbing them.
func (d *Disk) deleteFile(name string) error {
	return d.remove(name, false)
}

// deepDeleteFile removes name and zeroes every block it occupied.
func (d *Disk) deepDeleteFile(name string) error {
	return d.remove(name, true)
}

func (d *Disk) remove(name string, scrub bool) error {
	if !d.formatted {
		return ErrNotFormatted
	}
	dir, first, ok := d.findFile(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	d.freeChain(first, scrub)
	d.arena[dir].clear()
	return nil
}

// copyFile duplicates src as dst.
func (d *Disk) copyFile(src, dst string) error {
	data, err := d.readFile(src)
	if err != nil {
		return err
	}
	if err := d.createFile(dst); err != nil {
		return err
	}
	if err := d.writeFile(dst, data); err != nil {
		d.deepDeleteFile(dst)
		return err
	}
	return nil
}

// renameFile changes the name of a file in place.
func (d *Disk) renameFile(from, to string) error {
	if !d.formatted {
		return ErrNotFormatted
	}
	if err := d.checkName(to); err != nil {
		return err
	}
	dir, _, ok := d.findFile(from)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, from)
	}
	if _, _, ok := d.findFile(to); ok {
		return fmt.Errorf("%w: %s", ErrFileExists, to)
	}
	b := &d.arena[dir]
	b.data = [PAYLOAD]byte{}
	copy(b.data[:], to)
	return nil
}

// files returns every file name in directory order.
func (d *Disk) files() []string {
	var names []string
	if !d.formatted {
		return names
	}
	for i := 1; i < d.dirBlocks(); i++ {
		b := &d.arena[i]
		if b.inUse {
			names = append(names, string(bytes.TrimRight(b.data[:], "\x00")))
		}
	}
	return names
}

// BlockInfo is a snapshot of one block for display.
type BlockInfo struct {
	TSB   string
	InUse bool
	Next  string
	Data  []byte
}

// Blocks returns a snapshot of every block.
func (d *Disk) Blocks() []BlockInfo {
	out := make([]BlockInfo, len(d.arena))
	for i := range d.arena {
		b := &d.arena[i]
		out[i] = BlockInfo{
			TSB:   d.label(i),
			InUse: b.inUse,
			Next:  d.label(b.next),
			Data:  append([]byte(nil), b.data[:]...),
		}
	}
	return out
}

// Mount loads a disk image previously written by Save. The image must
// match the disk geometry.
func (d *Disk) Mount(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return d.unmarshal(buf)
}

// Save writes the disk image to path.
func (d *Disk) Save(path string) error {
	if !d.formatted {
		return ErrNotFormatted
	}
	return os.WriteFile(path, d.marshal(), 0644)
}

func (d *Disk) marshal() []byte {
	buf := make([]byte, 0, len(d.arena)*BLOCKSIZE)
	for i := range d.arena {
		b := &d.arena[i]
		var hdr [HEADER]byte
		if b.inUse {
			hdr[0] = 1
		}
		if b.next == noBlock {
			hdr[1], hdr[2], hdr[3] = terminal, terminal, terminal
		} else {
			t, s, blk := d.tsb(b.next)
			hdr[1], hdr[2], hdr[3] = byte(t), byte(s), byte(blk)
		}
		buf = append(buf, hdr[:]...)
		buf = append(buf, b.data[:]...)
	}
	return buf
}

func (d *Disk) unmarshal(buf []byte) error {
	if len(buf) != len(d.arena)*BLOCKSIZE {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidDiskImage, len(buf), len(d.arena)*BLOCKSIZE)
	}
	arena := make([]block, len(d.arena))
	for i := range arena {
		raw := buf[i*BLOCKSIZE : (i+1)*BLOCKSIZE]
		b := &arena[i]
		b.inUse = raw[0] == 1
		b.next = noBlock
		if raw[1] != terminal {
			t, s, blk := int(raw[1]), int(raw[2]), int(raw[3])
			if t >= d.tracks || s >= d.sectors || blk >= d.blocks {
				return fmt.Errorf("%w: block %s links to %d:%d:%d", ErrInvalidDiskImage, d.label(i), t, s, blk)
			}
			b.next = d.index(t, s, blk)
		}
		copy(b.data[:], raw[HEADER:])
	}
	if err := d.checkLinks(arena); err != nil {
		return err
	}
	d.arena = arena
	d.formatted = true
	return nil
}

// checkLinks rejects an arena whose in use blocks link anywhere but an
// in use data block. Every directory entry must own a first data block.
func (d *Disk) checkLinks(arena []block) error {
	for i := 1; i < len(arena); i++ {
		b := &arena[i]
		if !b.inUse {
			continue
		}
		switch {
		case b.next == noBlock && i < d.dirBlocks():
			return fmt.Errorf("%w: directory block %s has no data block", ErrInvalidDiskImage, d.label(i))
		case b.next == noBlock:
		case b.next < d.dirBlocks() || !arena[b.next].inUse:
			return fmt.Errorf("%w: block %s links to %s", ErrInvalidDiskImage, d.label(i), d.label(b.next))
		}
	}
	return nil
}

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// swapPrefix names the disk file holding a swapped out process.
const swapPrefix = ".swap"

// Swapper moves process images between memory segments and swap files.
// Images are stored hex encoded so trailing zero bytes survive the disk's
// padding trim.
type Swapper struct {
	disk *Disk
	mm   *MemoryManager
	acc  *MemAccessor
}

// store writes the image of a process that was never given a segment.
func (sw *Swapper) store(p *PCB, program []byte) error {
	image := make([]byte, sw.mm.segmentSize())
	copy(image, program)
	if err := sw.write(p, image); err != nil {
		return err
	}
	p.Residency = DISK
	return nil
}

func (sw *Swapper) write(p *PCB, image []byte) error {
	name := p.swapFile()
	if _, _, ok := sw.disk.findFile(name); ok {
		if err := sw.disk.deepDeleteFile(name); err != nil {
			return err
		}
	}
	if err := sw.disk.createFile(name); err != nil {
		return fmt.Errorf("swap out pid %d: %w", p.PID, err)
	}
	if err := sw.disk.writeFile(name, []byte(hex.EncodeToString(image))); err != nil {
		sw.disk.deepDeleteFile(name)
		return fmt.Errorf("swap out pid %d: %w", p.PID, err)
	}
	return nil
}

// rollOut copies the segment of p to its swap file, then zeroes and
// frees the segment. On error p keeps its segment.
func (sw *Swapper) rollOut(p *PCB) error {
	seg := p.Segment
	if seg == nil {
		panic(fmt.Sprintf("swapper: roll out of pid %d without a segment", p.PID))
	}
	if err := sw.write(p, sw.acc.segmentData(seg)); err != nil {
		return err
	}
	p.Residency = DISK
	sw.mm.clearSegment(seg)
	sw.mm.release(p)
	return nil
}

// rollIn loads the swap file of p into seg and deletes the file.
func (sw *Swapper) rollIn(p *PCB, seg *Segment) error {
	name := p.swapFile()
	text, err := sw.disk.readFile(name)
	if err != nil {
		return fmt.Errorf("swap in pid %d: %w", p.PID, err)
	}
	image, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("swap in pid %d: %w: %v", p.PID, ErrCorruptChain, err)
	}
	if err := sw.mm.loadInto(p, image, seg); err != nil {
		return fmt.Errorf("swap in pid %d: %w", p.PID, err)
	}
	return sw.disk.deepDeleteFile(name)
}

// discard deletes the swap file of p, if there is one.
func (sw *Swapper) discard(p *PCB) error {
	if !sw.disk.Formatted() {
		return nil
	}
	err := sw.disk.deepDeleteFile(p.swapFile())
	if errors.Is(err, ErrFileNotFound) {
		return nil
	}
	return err
}

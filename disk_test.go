package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func formattedDisk() *Disk {
	d := newDisk(TRACKS, SECTORS, BLOCKS)
	d.format()
	return d
}

// inUse counts used blocks on the data tracks.
func inUse(d *Disk) int {
	n := 0
	for i := d.dirBlocks(); i < len(d.arena); i++ {
		if d.arena[i].inUse {
			n++
		}
	}
	return n
}

func TestUnformatted(t *testing.T) {
	is := is.New(t)
	d := newDisk(TRACKS, SECTORS, BLOCKS)
	is.True(errors.Is(d.createFile("a"), ErrNotFormatted))
	is.True(errors.Is(d.writeFile("a", nil), ErrNotFormatted))
	_, err := d.readFile("a")
	is.True(errors.Is(err, ErrNotFormatted))
	is.True(errors.Is(d.deleteFile("a"), ErrNotFormatted))
	is.True(errors.Is(d.renameFile("a", "b"), ErrNotFormatted))
	is.True(errors.Is(d.Save(filepath.Join(t.TempDir(), "disk")), ErrNotFormatted))
	is.Equal(len(d.files()), 0)
}

func TestFileRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		blocks int
	}{
		{"empty", nil, 1},
		{"short", []byte("hello"), 1},
		{"one block", bytes.Repeat([]byte{'x'}, PAYLOAD), 1},
		{"spans blocks", bytes.Repeat([]byte("abcdefghij"), 13), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			d := formattedDisk()
			is.NoErr(d.createFile("f"))
			is.NoErr(d.writeFile("f", tt.data))
			got, err := d.readFile("f")
			is.NoErr(err)
			is.Equal(string(got), string(tt.data))
			is.Equal(inUse(d), tt.blocks)
		})
	}
}

func TestOverwriteReleasesTail(t *testing.T) {
	is := is.New(t)
	d := formattedDisk()
	is.NoErr(d.createFile("f"))
	is.NoErr(d.writeFile("f", bytes.Repeat([]byte{'a'}, 200)))
	is.Equal(inUse(d), 4)
	is.NoErr(d.writeFile("f", []byte("hi")))
	is.Equal(inUse(d), 1)
	got, err := d.readFile("f")
	is.NoErr(err)
	is.Equal(string(got), "hi")
}

func TestCreateErrors(t *testing.T) {
	is := is.New(t)
	d := formattedDisk()
	is.NoErr(d.createFile("notes"))
	is.True(errors.Is(d.createFile("notes"), ErrFileExists))
	is.True(errors.Is(d.createFile(""), ErrFileNameInvalid))
	is.True(errors.Is(d.createFile(string(bytes.Repeat([]byte{'n'}, PAYLOAD+1))), ErrFileNameTooLong))
	is.True(errors.Is(d.writeFile("missing", nil), ErrFileNotFound))
	_, err := d.readFile("missing")
	is.True(errors.Is(err, ErrFileNotFound))
	is.Equal(d.files(), []string{"notes"})
}

func TestDirectoryFull(t *testing.T) {
	is := is.New(t)
	d := newDisk(2, 1, 4)
	d.format()
	// block 0:0:0 is the boot record, leaving three entries
	for _, n := range []string{"a", "b", "c"} {
		is.NoErr(d.createFile(n))
	}
	is.True(errors.Is(d.createFile("d"), ErrDirectoryFull))
	is.Equal(d.Blocks()[0].InUse, false)
}

func TestDiskFull(t *testing.T) {
	is := is.New(t)
	d := newDisk(2, 1, 4)
	d.format()
	is.NoErr(d.createFile("a"))
	is.NoErr(d.writeFile("a", []byte("hello")))
	is.NoErr(d.createFile("b"))
	is.NoErr(d.writeFile("b", []byte("keep")))

	err := d.writeFile("a", bytes.Repeat([]byte{'z'}, 4*PAYLOAD))
	is.True(errors.Is(err, ErrDiskFull))
	got, err := d.readFile("a")
	is.NoErr(err)
	is.Equal(string(got), "hello") // a failed write changes nothing
	got, err = d.readFile("b")
	is.NoErr(err)
	is.Equal(string(got), "keep")
	is.Equal(inUse(d), 2)

	// the file's own blocks count towards the space available
	is.NoErr(d.writeFile("a", bytes.Repeat([]byte{'y'}, 3*PAYLOAD)))
	is.Equal(inUse(d), 4)
	is.True(errors.Is(d.createFile("c"), ErrDiskFull))
	is.NoErr(d.writeFile("a", nil))
	is.NoErr(d.createFile("c")) // the released blocks are reusable
}

func TestCreateWithoutDataBlock(t *testing.T) {
	is := is.New(t)
	d := newDisk(2, 1, 4)
	d.format()
	is.NoErr(d.createFile("a"))
	is.NoErr(d.writeFile("a", bytes.Repeat([]byte{'z'}, 4*PAYLOAD)))
	is.True(errors.Is(d.createFile("b"), ErrDiskFull))
	is.Equal(d.files(), []string{"a"}) // directory entry rolled back
}

func TestDelete(t *testing.T) {
	is := is.New(t)
	d := formattedDisk()
	is.NoErr(d.createFile("shallow"))
	is.NoErr(d.writeFile("shallow", []byte("ghost")))
	_, first, _ := d.findFile("shallow")
	is.NoErr(d.deleteFile("shallow"))
	is.True(!d.arena[first].inUse)
	is.Equal(string(d.arena[first].data[:5]), "ghost") // still readable on the platter

	is.NoErr(d.createFile("deep"))
	is.NoErr(d.writeFile("deep", bytes.Repeat([]byte{'d'}, 100)))
	_, first, _ = d.findFile("deep")
	second := d.arena[first].next
	is.NoErr(d.deepDeleteFile("deep"))
	is.Equal(d.arena[first].data, [PAYLOAD]byte{})
	is.Equal(d.arena[second].data, [PAYLOAD]byte{})
	is.Equal(inUse(d), 0)
	is.Equal(len(d.files()), 0)
	is.True(errors.Is(d.deleteFile("deep"), ErrFileNotFound))
}

func TestCopyRename(t *testing.T) {
	is := is.New(t)
	d := formattedDisk()
	is.NoErr(d.createFile("src"))
	is.NoErr(d.writeFile("src", []byte("payload")))
	is.NoErr(d.copyFile("src", "dst"))
	is.True(errors.Is(d.copyFile("src", "dst"), ErrFileExists))
	is.True(errors.Is(d.copyFile("nope", "dst2"), ErrFileNotFound))

	is.NoErr(d.renameFile("src", "moved"))
	is.True(errors.Is(d.renameFile("moved", "dst"), ErrFileExists))
	is.True(errors.Is(d.renameFile("src", "x"), ErrFileNotFound))
	is.Equal(d.files(), []string{"moved", "dst"})

	for _, n := range []string{"moved", "dst"} {
		got, err := d.readFile(n)
		is.NoErr(err)
		is.Equal(string(got), "payload")
	}
}

func TestCorruptChain(t *testing.T) {
	is := is.New(t)
	d := formattedDisk()
	is.NoErr(d.createFile("loop"))
	is.NoErr(d.writeFile("loop", bytes.Repeat([]byte{'l'}, 100)))
	_, first, _ := d.findFile("loop")
	d.arena[d.arena[first].next].next = first
	_, err := d.readFile("loop")
	is.True(errors.Is(err, ErrCorruptChain))
}

func TestBlocksSnapshot(t *testing.T) {
	is := is.New(t)
	d := formattedDisk()
	is.NoErr(d.createFile("f"))
	is.NoErr(d.writeFile("f", bytes.Repeat([]byte{'q'}, 70)))
	blocks := d.Blocks()
	is.Equal(len(blocks), TRACKS*SECTORS*BLOCKS)
	is.Equal(blocks[1].TSB, "0:0:1")
	is.Equal(blocks[1].Next, "1:0:0")
	is.Equal(blocks[d.dirBlocks()].Next, "1:0:1")
	is.Equal(blocks[d.dirBlocks()+1].Next, "---")

	blocks[1].Data[0] = 'X'
	is.Equal(d.files(), []string{"f"}) // snapshot is a copy
}

func TestMountSave(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "disk.img")
	d := formattedDisk()
	is.NoErr(d.createFile("a"))
	is.NoErr(d.writeFile("a", bytes.Repeat([]byte("0123456789"), 20)))
	is.NoErr(d.createFile("b"))
	is.NoErr(d.Save(path))

	fi, err := os.Stat(path)
	is.NoErr(err)
	is.Equal(fi.Size(), int64(TRACKS*SECTORS*BLOCKS*BLOCKSIZE))

	m := newDisk(TRACKS, SECTORS, BLOCKS)
	is.NoErr(m.Mount(path))
	is.True(m.Formatted())
	is.Equal(m.files(), []string{"a", "b"})
	got, err := m.readFile("a")
	is.NoErr(err)
	is.Equal(string(got), string(bytes.Repeat([]byte("0123456789"), 20)))
	is.Equal(m.Blocks(), d.Blocks())
}

func TestMountInvalid(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	short := filepath.Join(dir, "short")
	is.NoErr(os.WriteFile(short, make([]byte, 10), 0644))
	d := newDisk(TRACKS, SECTORS, BLOCKS)
	is.True(errors.Is(d.Mount(short), ErrInvalidDiskImage))
	is.True(!d.Formatted())

	corrupt := func(name string, mutate func(img []byte)) string {
		src := formattedDisk()
		is.NoErr(src.createFile("f"))
		img := src.marshal()
		mutate(img)
		path := filepath.Join(dir, name)
		is.NoErr(os.WriteFile(path, img, 0644))
		return path
	}
	for _, path := range []string{
		corrupt("past last track", func(img []byte) { img[1] = 9 }),
		corrupt("dir entry without data", func(img []byte) {
			copy(img[BLOCKSIZE+1:], []byte{terminal, terminal, terminal})
		}),
		corrupt("dir entry into directory", func(img []byte) {
			copy(img[BLOCKSIZE+1:], []byte{0, 0, 2})
		}),
		corrupt("free data block", func(img []byte) {
			img[formattedDisk().dirBlocks()*BLOCKSIZE] = 0
		}),
	} {
		is.True(errors.Is(d.Mount(path), ErrInvalidDiskImage)) // path
		is.True(!d.Formatted())
	}

	is.True(errors.Is(d.Mount(filepath.Join(dir, "missing")), os.ErrNotExist))
}

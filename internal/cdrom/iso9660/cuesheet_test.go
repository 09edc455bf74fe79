package iso9660

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadCueParsesTracksAndIndexes(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "game.bin")
	if err := os.WriteFile(binPath, make([]byte, rawSectorSize*4), 0o644); err != nil {
		t.Fatal(err)
	}
	cueContents := `FILE "game.bin" BINARY
  TRACK 01 MODE2/2352
    INDEX 01 00:00:00
TRACK 02 MODE2/2352
  PREGAP 00:02:00
  INDEX 01 00:04:00
`
	cuePath := filepath.Join(dir, "game.cue")
	if err := os.WriteFile(cuePath, []byte(cueContents), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := ReadCue(cuePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 FILE entry, got %d", len(files))
	}
	if len(files[0].Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(files[0].Tracks))
	}
	tr2 := files[0].Tracks[1]
	if tr2.Pregap != (Position{MM: 0, SS: 2, FF: 0}) {
		t.Fatalf("track 2 pregap = %+v", tr2.Pregap)
	}
	if tr2.Indexes[1] != (Position{MM: 0, SS: 4, FF: 0}) {
		t.Fatalf("track 2 index 1 = %+v", tr2.Indexes[1])
	}
}

func TestReadCueMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	cuePath := filepath.Join(dir, "game.cue")
	os.WriteFile(cuePath, []byte(`FILE "missing.bin" BINARY
TRACK 01 MODE2/2352
  INDEX 01 00:00:00
`), 0o644)
	if _, err := ReadCue(cuePath); err == nil {
		t.Fatal("expected error for missing referenced file")
	}
}

func TestOpenCueComputesTrackStarts(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "game.bin")
	os.WriteFile(binPath, make([]byte, rawSectorSize*200), 0o644)
	cueContents := `FILE "game.bin" BINARY
TRACK 01 MODE2/2352
  INDEX 01 00:00:00
TRACK 02 MODE2/2352
  INDEX 01 00:02:00
`
	cuePath := filepath.Join(dir, "game.cue")
	os.WriteFile(cuePath, []byte(cueContents), 0o644)

	cb, err := OpenCue(cuePath)
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Close()
	if cb.TrackCount() != 2 {
		t.Fatalf("TrackCount = %d, want 2", cb.TrackCount())
	}
	if cb.trackStartLBA[1] != 150 { // 00:02:00 = 2*75 = 150
		t.Fatalf("track 2 start LBA = %d, want 150", cb.trackStartLBA[1])
	}
}

package moca

import "fmt"

// FMRStartIndex is the first word of the per-peer entries in an FMR dump
const FMRStartIndex = 10

// FMR payload versions with 2.x packing
const (
	Version20 = 0x20
	Version25 = 0x25
)

// FMREntry holds the raw gap and OFDM symbol fields for one peer
type FMREntry struct {
	GapN    uint32
	GapVL   uint32
	OfdmbN  uint32
	OfdmbVL uint32
}

// FMRScanner is the read position inside one node's FMR dump. Entries are
// packed back to back and alternate between the high and low halves of a word,
// so the position is a (cursor, aligned) pair rather than a plain index.
type FMRScanner struct {
	Cursor  int
	Aligned bool
}

// NewFMRScanner returns a scanner positioned on the first entry.
func NewFMRScanner() FMRScanner {
	return FMRScanner{Cursor: FMRStartIndex, Aligned: true}
}

// Is2x reports whether a payload version uses the MoCA 2.x entry layout.
func Is2x(version uint32) bool {
	return version == Version20 || version == Version25
}

// Next returns the scanner position after one entry of the given version.
// It depends only on the current position and the version, never on word contents.
func (s FMRScanner) Next(version uint32) FMRScanner {
	next := FMRScanner{Cursor: s.Cursor, Aligned: !s.Aligned}
	switch {
	case Is2x(version) && s.Aligned:
		next.Cursor++
	case Is2x(version):
		next.Cursor += 2
	case !s.Aligned:
		next.Cursor++
	}
	return next
}

// Step decodes the entry at the current position and returns it along with
// the next position. The next position is returned even when decoding fails,
// so one bad word cannot shift the entries of the peers that follow it.
func (s FMRScanner) Step(words []string, version uint32) (FMREntry, FMRScanner, error) {
	next := s.Next(version)

	if Is2x(version) {
		w0, err := wordAt(words, "FmrInfo", s.Cursor)
		if err != nil {
			return FMREntry{}, next, err
		}
		w1, err := wordAt(words, "FmrInfo", s.Cursor+1)
		if err != nil {
			return FMREntry{}, next, err
		}
		if s.Aligned {
			return FMREntry{
				GapN:    (w0 >> 24) & 0xFF,
				GapVL:   (w0 >> 16) & 0xFF,
				OfdmbN:  w0 & 0xFFFF,
				OfdmbVL: (w1 >> 16) & 0xFFFF,
			}, next, nil
		}
		return FMREntry{
			GapN:    (w0 >> 8) & 0xFF,
			GapVL:   w0 & 0xFF,
			OfdmbN:  (w1 >> 16) & 0xFFFF,
			OfdmbVL: w1 & 0xFFFF,
		}, next, nil
	}

	w, err := wordAt(words, "FmrInfo", s.Cursor)
	if err != nil {
		return FMREntry{}, next, err
	}
	if s.Aligned {
		return FMREntry{
			GapN:   (w & 0xF8000000) >> 27,
			OfdmbN: (w & 0x07FF0000) >> 16,
		}, next, nil
	}
	return FMREntry{
		GapN:   (w & 0x0000F800) >> 11,
		OfdmbN: w & 0x000007FF,
	}, next, nil
}

func (s FMRScanner) String() string {
	half := "low"
	if s.Aligned {
		half = "high"
	}
	return fmt.Sprintf("word %d (%s)", s.Cursor, half)
}

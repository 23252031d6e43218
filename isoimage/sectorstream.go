package isoimage

import (
	"fmt"
	"io"
)

// SectorOutStream wraps an io.Writer with sector-granular accounting,
// grounded on the original SectorOutStream (sectorstream.hh): writes are
// tracked in bytes, and callers can query the current sector, how many
// bytes remain to fill it, and force-pad to the next boundary.
type SectorOutStream struct {
	w          io.Writer
	sectorSize int
	written    uint64
	zeroBuf    []byte
}

// NewSectorOutStream wraps w for sector-accounted writing.
func NewSectorOutStream(w io.Writer, sectorSize int) *SectorOutStream {
	return &SectorOutStream{w: w, sectorSize: sectorSize}
}

// Write writes buf in full, advancing the byte counter. It never pads.
func (s *SectorOutStream) Write(buf []byte) (int, error) {
	n, err := s.w.Write(buf)
	s.written += uint64(n)
	if err != nil {
		return n, fmt.Errorf("sector stream write: %w", err)
	}
	return n, nil
}

// GetSector returns the zero-based sector the next byte written would land
// in, assuming sector 0 begins at byte offset 0 of this stream.
func (s *SectorOutStream) GetSector() uint64 {
	return s.written / uint64(s.sectorSize)
}

// GetAllocated returns how many bytes of the current sector have been
// written so far (0 when sector-aligned), mirroring the original
// written_ % sector_size_ accounting.
func (s *SectorOutStream) GetAllocated() uint64 {
	return s.written % uint64(s.sectorSize)
}

// GetRemaining returns how many bytes remain before the current sector is
// full. Zero when exactly sector-aligned.
func (s *SectorOutStream) GetRemaining() uint64 {
	rem := s.written % uint64(s.sectorSize)
	if rem == 0 {
		return 0
	}
	return uint64(s.sectorSize) - rem
}

// PadSector writes zero bytes until the stream is sector-aligned. It is a
// no-op when already aligned.
func (s *SectorOutStream) PadSector() error {
	remaining := s.GetRemaining()
	if remaining == 0 {
		return nil
	}
	return s.padBytes(remaining)
}

// PadToSectors writes zero bytes until GetSector() == target, assuming the
// stream is already sector-aligned. It is an error to call this when
// already past target.
func (s *SectorOutStream) PadToSectors(target uint64) error {
	if err := s.PadSector(); err != nil {
		return err
	}
	current := s.GetSector()
	if current > target {
		return fmt.Errorf("sector stream: already past target sector %d (at %d)", target, current)
	}
	return s.padBytes((target - current) * uint64(s.sectorSize))
}

func (s *SectorOutStream) padBytes(n uint64) error {
	if cap(s.zeroBuf) < s.sectorSize {
		s.zeroBuf = make([]byte, s.sectorSize)
	}
	for n > 0 {
		chunk := uint64(len(s.zeroBuf))
		if chunk > n {
			chunk = n
		}
		if _, err := s.Write(s.zeroBuf[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

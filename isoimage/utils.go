package isoimage

import (
	"fmt"
	"time"
)

// sectorsToContainBytes returns the number of whole sectors needed to hold
// byteSize bytes of data, rounding up. Zero bytes need zero sectors.
func sectorsToContainBytes(byteSize uint64) uint64 {
	if byteSize == 0 {
		return 0
	}
	return (byteSize + SectorSize - 1) / SectorSize
}

// sectorsToContainFileBytes is sectorsToContainBytes, except a zero-length
// file still reserves one sector: its Directory Record's Location of
// Extent must point somewhere even though Data Length reads 0
// (ECMA-119 9.1.4).
func sectorsToContainFileBytes(fileDataSizeBytes uint64) uint32 {
	if fileDataSizeBytes == 0 {
		return 1
	}
	return uint32(sectorsToContainBytes(fileDataSizeBytes))
}

// padString pads or truncates s with trailing spaces (0x20) to exactly
// length bytes, as used by the fixed d-character/a-character fields of
// ECMA-119 volume descriptors.
func padString(s string, length int) []byte {
	b := make([]byte, length)
	for i := range b {
		b[i] = ' '
	}
	n := len(s)
	if n > length {
		n = length
	}
	copy(b, s[:n])
	return b
}

// formatTimestamp renders the 17-byte volume descriptor timestamp form
// (ECMA-119 8.4.26.1): "YYYYMMDDHHMMSScc" as ASCII digits plus a trailing
// GMT-offset byte. A zero time produces the "not specified" form (sixteen
// '0' digits, zero offset).
func formatTimestamp(t time.Time) []byte {
	out := make([]byte, 17)
	if t.IsZero() {
		for i := 0; i < 16; i++ {
			out[i] = '0'
		}
		return out
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	str := fmt.Sprintf("%04d%02d%02d%02d%02d%02d00", y, int(mo), d, h, mi, s)
	copy(out, str)
	out[16] = 0
	return out
}

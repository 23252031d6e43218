package isoimage

import (
	"bytes"
	"encoding/binary"
	"time"
)

// directoryRecordFields holds the fixed 33-byte part of a Directory Record
// (ECMA-119 9.1), before the variable-length identifier and its padding.
type directoryRecordFields struct {
	ExtendedAttributeRecordLength byte
	LocationExtent                uint32
	DataLength                    uint32
	RecordingTime                 recordingTimestamp
	FileFlags                     byte
	FileUnitSize                  byte
	InterleaveGapSize             byte
	VolumeSequenceNumber          uint16
}

// marshalDirectoryRecord renders fields and identifier into the full
// Directory Record byte form, bi-endian fields per ECMA-119 7.3.3, padded
// to an even length.
func marshalDirectoryRecord(fields *directoryRecordFields, identifier []byte) []byte {
	recordLen := drFixedPartSize + len(identifier)
	if recordLen%2 != 0 {
		recordLen++
	}

	buf := make([]byte, recordLen)
	buf[0] = byte(recordLen)
	buf[1] = fields.ExtendedAttributeRecordLength

	binary.LittleEndian.PutUint32(buf[2:6], fields.LocationExtent)
	binary.BigEndian.PutUint32(buf[6:10], fields.LocationExtent)
	binary.LittleEndian.PutUint32(buf[10:14], fields.DataLength)
	binary.BigEndian.PutUint32(buf[14:18], fields.DataLength)

	copy(buf[18:25], fields.RecordingTime[:])
	buf[25] = fields.FileFlags
	buf[26] = fields.FileUnitSize
	buf[27] = fields.InterleaveGapSize

	binary.LittleEndian.PutUint16(buf[28:30], fields.VolumeSequenceNumber)
	binary.BigEndian.PutUint16(buf[30:32], fields.VolumeSequenceNumber)

	buf[32] = byte(len(identifier))
	copy(buf[33:], identifier)
	return buf
}

// drIdentifier returns the on-disc identifier bytes for name within ns,
// handling the "." (0x00) and ".." (0x01) special cases of ECMA-119 9.1.11.
func drIdentifier(name string, ns Namespace) []byte {
	switch name {
	case ".", "\x00":
		return []byte{0x00}
	case "..":
		return []byte{0x01}
	}
	if ns == NamespaceJoliet {
		return []byte(mustUCS2BE(name))
	}
	return []byte(name)
}

func mustUCS2BE(s string) string {
	b, err := encodeUCS2BE(s)
	if err != nil {
		return s
	}
	return string(b)
}

// directoryRecordSize returns the marshalled byte length (including even
// padding) a Directory Record for name will occupy.
func directoryRecordSize(name string, ns Namespace) int {
	length := drFixedPartSize + len(drIdentifier(name, ns))
	if length%2 != 0 {
		length++
	}
	return length
}

// recordSource describes one entry to emit into a directory listing: self
// (".") the parent ("..") or a child, already resolved to its on-disc
// location/size in the given namespace. imported is non-nil for a node
// carried forward from a prior disc session, whose directory record is
// copied verbatim from ImportedInfo rather than built fresh.
type recordSource struct {
	name     string
	location uint32
	length   uint32
	flags    byte
	when     time.Time
	imported *ImportedInfo
}

func buildRecordFields(src recordSource, volSeq uint16) *directoryRecordFields {
	if src.imported != nil {
		imp := src.imported
		return &directoryRecordFields{
			LocationExtent:       imp.ExtentLocation,
			DataLength:           imp.ExtentLengthBytes,
			RecordingTime:        imp.Timestamp,
			FileFlags:            imp.FileFlags,
			FileUnitSize:         imp.FileUnitSize,
			InterleaveGapSize:    imp.InterleaveGap,
			VolumeSequenceNumber: imp.VolumeSequence,
		}
	}
	return &directoryRecordFields{
		LocationExtent:       src.location,
		DataLength:           src.length,
		RecordingTime:        newRecordingTimestamp(src.when),
		FileFlags:            src.flags,
		VolumeSequenceNumber: volSeq,
	}
}

// packDirectoryRecords lays out recs into a directory extent buffer,
// enforcing the rule that no Directory Record may straddle a sector
// boundary (ECMA-119 6.8.1.1): when the next record would not fit in the
// sector currently being filled, the remainder of that sector is
// zero-padded and the record starts the next one instead. The returned
// buffer is itself padded out to a whole number of sectors.
func packDirectoryRecords(recs []recordSource, ns Namespace) []byte {
	buf := new(bytes.Buffer)
	for _, r := range recs {
		fields := buildRecordFields(r, 1)
		drBytes := marshalDirectoryRecord(fields, drIdentifier(r.name, ns))

		used := buf.Len() % SectorSize
		remaining := SectorSize - used
		if used != 0 && len(drBytes) > remaining {
			buf.Write(make([]byte, remaining))
		}
		buf.Write(drBytes)
	}
	if rem := buf.Len() % SectorSize; rem != 0 {
		buf.Write(make([]byte, SectorSize-rem))
	}
	return buf.Bytes()
}

// directoryExtentSize computes the byte length packDirectoryRecords would
// produce for recs, without actually building the buffer — used during the
// ALLOCATE_DIR_ENTRIES phase before any sector locations are final.
func directoryExtentSize(names []string, ns Namespace) uint64 {
	var total uint64
	var used uint64
	for _, name := range names {
		size := uint64(directoryRecordSize(name, ns))
		remaining := uint64(SectorSize) - used%SectorSize
		if used != 0 && used%SectorSize != 0 && size > remaining {
			total += remaining
			used += remaining
		}
		total += size
		used += size
	}
	if rem := total % SectorSize; rem != 0 {
		total += SectorSize - rem
	}
	return total
}

// fileExtent is one Directory Record's worth of a (possibly fragmented)
// file's content.
type fileExtent struct {
	location uint32
	length   uint32
	last     bool
}

// splitExtents divides a file of byteLen bytes into one or more
// Directory Record extents, each no larger than ISO9660MaxExtentSize. All
// but the last carry the MULTI-EXTENT file flag bit (ECMA-119 9.1.6),
// signalling the reader to continue into the next Directory Record sharing
// the same identifier.
func splitExtents(startLBA uint32, byteLen uint64) []fileExtent {
	if byteLen <= ISO9660MaxExtentSize {
		return []fileExtent{{location: startLBA, length: uint32(byteLen), last: true}}
	}

	var out []fileExtent
	remaining := byteLen
	lba := startLBA
	for remaining > 0 {
		chunk := ISO9660MaxExtentSize
		if remaining < chunk {
			chunk = remaining
		}
		isLast := remaining == chunk
		out = append(out, fileExtent{location: lba, length: uint32(chunk), last: isLast})
		lba += uint32(sectorsToContainBytes(chunk))
		remaining -= chunk
	}
	return out
}

func fileFlagsFor(n *FileTreeNode, multiExtentNotLast bool) byte {
	var f byte
	if n.IsDir() {
		f |= fileFlagDirectory
	}
	if n.FileFlags.Has(FlagHidden) {
		f |= fileFlagHidden
	}
	if multiExtentNotLast {
		f |= fileFlagMultiExtent
	}
	return f
}

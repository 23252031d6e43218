package isoimage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalDirectoryRecordEvenPadding(t *testing.T) {
	fields := &directoryRecordFields{LocationExtent: 20, DataLength: 2048, VolumeSequenceNumber: 1}
	rec := marshalDirectoryRecord(fields, []byte("ODD"))
	assert.Equal(t, 0, len(rec)%2, "directory records must be padded to an even length")
	assert.Equal(t, byte(len(rec)), rec[0])
	assert.Equal(t, byte(3), rec[32], "identifier length field must reflect the unpadded identifier")
}

func TestMarshalDirectoryRecordBiEndianFields(t *testing.T) {
	fields := &directoryRecordFields{LocationExtent: 0x01020304, DataLength: 0x0a0b0c0d, VolumeSequenceNumber: 0x0102}
	rec := marshalDirectoryRecord(fields, []byte("X"))

	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, rec[2:6])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, rec[6:10])
	assert.Equal(t, []byte{0x0d, 0x0c, 0x0b, 0x0a}, rec[10:14])
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c, 0x0d}, rec[14:18])
	assert.Equal(t, []byte{0x02, 0x01}, rec[28:30])
	assert.Equal(t, []byte{0x01, 0x02}, rec[30:32])
}

func TestDRIdentifierDotAndDotDot(t *testing.T) {
	assert.Equal(t, []byte{0x00}, drIdentifier(".", NamespaceISO9660))
	assert.Equal(t, []byte{0x01}, drIdentifier("..", NamespaceISO9660))
}

func TestDRIdentifierJolietUsesUCS2(t *testing.T) {
	got := drIdentifier("AB", NamespaceJoliet)
	assert.Equal(t, []byte{0x00, 'A', 0x00, 'B'}, got)
}

func TestPackDirectoryRecordsNeverStraddlesSector(t *testing.T) {
	var recs []recordSource
	for i := 0; i < 200; i++ {
		recs = append(recs, recordSource{name: "SOMEFAIRLYLONGNAME.TXT", location: uint32(i), length: 2048, when: time.Unix(0, 0)})
	}
	buf := packDirectoryRecords(recs, NamespaceISO9660)
	require.Equal(t, 0, len(buf)%SectorSize, "packed directory extent must be a whole number of sectors")

	offset := 0
	for offset < len(buf) {
		recLen := int(buf[offset])
		if recLen == 0 {
			// padding to the end of the current sector
			next := ((offset / SectorSize) + 1) * SectorSize
			offset = next
			continue
		}
		used := offset % SectorSize
		assert.LessOrEqual(t, used+recLen, SectorSize, "record at offset %d of length %d crosses a sector boundary", offset, recLen)
		offset += recLen
	}
}

func TestDirectoryExtentSizeMatchesPackedLength(t *testing.T) {
	names := []string{"A.TXT", "B.TXT", "VERYLONGDIRECTORYENTRYNAME.TXT"}
	var recs []recordSource
	for _, n := range names {
		recs = append(recs, recordSource{name: n, location: 1, length: 2048, when: time.Unix(0, 0)})
	}
	packed := packDirectoryRecords(recs, NamespaceISO9660)
	assert.Equal(t, uint64(len(packed)), directoryExtentSize(names, NamespaceISO9660))
}

func TestSplitExtentsSingleExtent(t *testing.T) {
	extents := splitExtents(100, 2048)
	require.Len(t, extents, 1)
	assert.True(t, extents[0].last)
	assert.Equal(t, uint32(100), extents[0].location)
	assert.Equal(t, uint32(2048), extents[0].length)
}

func TestSplitExtentsMultipleExtents(t *testing.T) {
	extents := splitExtents(0, uint64(ISO9660MaxExtentSize)+4096)
	require.Len(t, extents, 2)
	assert.False(t, extents[0].last)
	assert.True(t, extents[1].last)
	assert.Equal(t, uint32(ISO9660MaxExtentSize), extents[0].length)
	assert.Equal(t, uint32(4096), extents[1].length)
}

func TestFileFlagsForDirectoryHiddenMultiExtent(t *testing.T) {
	dirNode := &FileTreeNode{FileFlags: FlagDirectory}
	assert.Equal(t, fileFlagDirectory, fileFlagsFor(dirNode, false))

	hiddenFile := &FileTreeNode{FileFlags: FlagHidden}
	assert.Equal(t, fileFlagHidden, fileFlagsFor(hiddenFile, false))

	plain := &FileTreeNode{}
	assert.Equal(t, fileFlagMultiExtent, fileFlagsFor(plain, true))
}

package isoimage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

func TestWriterPhaseGuardsOrdering(t *testing.T) {
	root, err := BuildFileTree(FileSet{{InternalPath: "/a.txt", Size: 3}}, DefaultOptions())
	require.NoError(t, err)
	AssignNames(root, DefaultOptions(), true)

	w, err := NewWriter(root, DefaultOptions(), time.Unix(0, 0).UTC())
	require.NoError(t, err)

	err = w.AllocatePathTables()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPhase))

	require.NoError(t, w.AllocateHeader())
	require.NoError(t, w.AllocatePathTables())
	require.NoError(t, w.AllocateDirEntries())
	require.NoError(t, w.AllocateFileData())

	err = w.AllocateHeader()
	assert.True(t, errors.Is(err, ErrBadPhase))
}

func TestDriverCreateWritesValidHeader(t *testing.T) {
	src := t.TempDir()
	writeTempFile(t, src, "README.TXT", []byte("hello world"))
	require.NoError(t, os.Mkdir(filepath.Join(src, "docs"), 0o755))
	writeTempFile(t, src, filepath.Join("docs", "manual.txt"), []byte("manual contents"))

	fs, err := ScanDirectory(src)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "test.iso")
	opts := NewOptions(WithVolumeIdentifier("TESTVOL", "testvol"))
	driver := NewDriver(opts)
	require.NoError(t, driver.Create(fs, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(data), 18*SectorSize)
	pvd := data[16*SectorSize : 17*SectorSize]
	assert.Equal(t, byte(vdTypePrimary), pvd[0])
	assert.Equal(t, "CD001", string(pvd[1:6]))
	assert.Contains(t, string(pvd[40:72]), "TESTVOL")

	svd := data[17*SectorSize : 18*SectorSize]
	assert.Equal(t, byte(vdTypeSupplementary), svd[0])
	assert.Equal(t, "CD001", string(svd[1:6]))

	assert.True(t, len(data)%SectorSize == 0, "image size must be a whole number of sectors")
}

func TestDriverCreateRejectsEmptyFileSet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.iso")
	driver := NewDriver(DefaultOptions())
	err := driver.Create(FileSet{}, out)
	assert.True(t, errors.Is(err, ErrEmptyVolume))
}

func TestBuildDirRecordsEmitsOneRecordPerExtent(t *testing.T) {
	root, err := BuildFileTree(FileSet{{InternalPath: "/big.bin", Size: int64(ISO9660MaxExtentSize) + 4096}}, DefaultOptions())
	require.NoError(t, err)
	AssignNames(root, DefaultOptions(), true)

	opts := NewOptions(WithAllowFragmentation(true))
	w, err := NewWriter(root, opts, time.Unix(1000, 0).UTC())
	require.NoError(t, err)
	require.NoError(t, w.AllocateHeader())
	require.NoError(t, w.AllocatePathTables())
	require.NoError(t, w.AllocateDirEntries())
	require.NoError(t, w.AllocateFileData())

	recs := w.buildDirRecords(root, NamespaceISO9660)

	var fileRecs []recordSource
	for _, r := range recs {
		if r.name != "." && r.name != ".." {
			fileRecs = append(fileRecs, r)
		}
	}
	require.Len(t, fileRecs, 2, "a fragmented file must emit one Directory Record per extent")
	assert.Equal(t, fileFlagMultiExtent, fileRecs[0].flags&fileFlagMultiExtent, "all but the last extent carry MULTI-EXTENT")
	assert.Equal(t, byte(0), fileRecs[1].flags&fileFlagMultiExtent, "the last extent must not carry MULTI-EXTENT")
	assert.Equal(t, uint32(ISO9660MaxExtentSize), fileRecs[0].length)
	assert.Equal(t, uint32(4096), fileRecs[1].length)
	assert.Equal(t, fileRecs[0].location+uint32(sectorsToContainBytes(uint64(ISO9660MaxExtentSize))), fileRecs[1].location)
}

func TestBuildDirRecordsUsesCreationTimeByDefault(t *testing.T) {
	root, err := BuildFileTree(FileSet{{InternalPath: "/a.txt", Size: 3}}, DefaultOptions())
	require.NoError(t, err)
	AssignNames(root, DefaultOptions(), true)

	createdAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	w, err := NewWriter(root, DefaultOptions(), createdAt)
	require.NoError(t, err)
	require.NoError(t, w.AllocateHeader())
	require.NoError(t, w.AllocatePathTables())
	require.NoError(t, w.AllocateDirEntries())
	require.NoError(t, w.AllocateFileData())

	recs := w.buildDirRecords(root, NamespaceISO9660)
	for _, r := range recs {
		assert.Equal(t, newRecordingTimestamp(createdAt), buildRecordFields(r, 1).RecordingTime)
	}
}

func TestBuildDirRecordsUsesFileTimesWhenEnabled(t *testing.T) {
	src := t.TempDir()
	p := writeTempFile(t, src, "a.txt", []byte("x"))

	mtime := time.Date(1999, 6, 1, 0, 0, 0, 0, time.UTC)
	stub := stubFileTimes{mtime: mtime, path: p}

	root, err := BuildFileTree(FileSet{{InternalPath: "/a.txt", ExternalPath: p, Size: 1}}, DefaultOptions())
	require.NoError(t, err)
	AssignNames(root, DefaultOptions(), true)

	createdAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	opts := NewOptions(WithUseFileTimes(true), WithFileTimes(stub))
	w, err := NewWriter(root, opts, createdAt)
	require.NoError(t, err)
	require.NoError(t, w.AllocateHeader())
	require.NoError(t, w.AllocatePathTables())
	require.NoError(t, w.AllocateDirEntries())
	require.NoError(t, w.AllocateFileData())

	recs := w.buildDirRecords(root, NamespaceISO9660)
	for _, r := range recs {
		if r.name == "." || r.name == ".." {
			continue
		}
		assert.Equal(t, newRecordingTimestamp(mtime), buildRecordFields(r, 1).RecordingTime)
	}
}

type stubFileTimes struct {
	path  string
	mtime time.Time
}

func (s stubFileTimes) StatTimes(path string) (atime, mtime, ctime time.Time, ok bool) {
	if path != s.path {
		return time.Time{}, time.Time{}, time.Time{}, false
	}
	return time.Time{}, s.mtime, time.Time{}, true
}

func TestBuildDirRecordsImportedNodeCopiedVerbatim(t *testing.T) {
	root, err := BuildFileTree(FileSet{{InternalPath: "/old.bin", Size: 10}}, DefaultOptions())
	require.NoError(t, err)
	AssignNames(root, DefaultOptions(), true)

	imported := &ImportedInfo{
		ExtentLocation:    4242,
		ExtentLengthBytes: 777,
		Timestamp:         newRecordingTimestamp(time.Date(2010, 5, 5, 5, 5, 5, 0, time.UTC)),
		FileFlags:         0x20,
		FileUnitSize:      1,
		InterleaveGap:     2,
		VolumeSequence:    3,
	}
	root.Children[0].Imported = imported
	root.Children[0].FileFlags |= FlagImported

	opts := NewOptions()
	w, err := NewWriter(root, opts, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.NoError(t, w.AllocateHeader())
	require.NoError(t, w.AllocatePathTables())
	require.NoError(t, w.AllocateDirEntries())
	require.NoError(t, w.AllocateFileData())

	assert.Equal(t, imported.ExtentLocation, root.Children[0].DataPosNormal, "imported nodes adopt their recorded extent location instead of a fresh allocation")

	recs := w.buildDirRecords(root, NamespaceISO9660)
	var got *recordSource
	for i := range recs {
		if recs[i].name == root.Children[0].NameISO9660 {
			got = &recs[i]
		}
	}
	require.NotNil(t, got)
	fields := buildRecordFields(*got, 1)
	assert.Equal(t, imported.ExtentLocation, fields.LocationExtent)
	assert.Equal(t, imported.ExtentLengthBytes, fields.DataLength)
	assert.Equal(t, imported.Timestamp, fields.RecordingTime)
	assert.Equal(t, imported.FileFlags, fields.FileFlags)
	assert.Equal(t, imported.FileUnitSize, fields.FileUnitSize)
	assert.Equal(t, imported.InterleaveGap, fields.InterleaveGapSize)
	assert.Equal(t, imported.VolumeSequence, fields.VolumeSequenceNumber)
}

func TestDriverCreateWithoutJoliet(t *testing.T) {
	src := t.TempDir()
	writeTempFile(t, src, "A.TXT", []byte("x"))
	fs, err := ScanDirectory(src)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "noJoliet.iso")
	opts := NewOptions(WithFileSystem(ModeISO9660))
	require.NoError(t, NewDriver(opts).Create(fs, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	svd := data[17*SectorSize : 18*SectorSize]
	assert.Equal(t, byte(vdTypeTerminator), svd[0], "no Joliet SVD means the terminator shifts into sector 17")
}

package isoimage

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Sector allocation owner/kind keys used with SectorManager, kept as
// string constants so WRITE_* phases can look up exactly what
// ALLOCATE_* reserved.
const (
	ownerPVD  = "pvd"
	ownerSVD  = "svd"
	ownerBoot = "boot"
	ownerUDF  = "udf"

	kindPathTableL  = "ptL"
	kindPathTableL2 = "ptL2"
	kindPathTableM  = "ptM"
	kindPathTableM2 = "ptM2"

	kindBootRecord  = "bootrec"
	kindBootCatalog = "bootcat"

	kindUDFAVDP  = "avdp"
	kindUDFMain  = "mainvds"
	kindUDFRsrv  = "rsrvvds"
	kindUDFFSD   = "filesetdesc"
	kindUDFEntry = "fileentry"
)

func ownerDirISO(n *FileTreeNode) string     { return fmt.Sprintf("dir-iso:%p", n) }
func ownerDirJoliet(n *FileTreeNode) string  { return fmt.Sprintf("dir-joliet:%p", n) }
func ownerFileData(n *FileTreeNode) string   { return fmt.Sprintf("file:%p", n) }

// writerPhase enumerates the Volume Writer's explicit state machine. Each
// phase method asserts it is only invoked from the phase immediately
// preceding it (ErrBadPhase otherwise), matching the measure-then-emit
// two-pass design: nothing is written to the output stream until every
// extent's final location is known.
type writerPhase int

const (
	phaseInit writerPhase = iota
	phaseAllocatedHeader
	phaseAllocatedPathTables
	phaseAllocatedDirEntries
	phaseAllocatedFileData
	phaseWroteHeader
	phaseWrotePathTables
	phaseWroteDirEntries
	phaseWroteFileData
)

// Writer drives the two-pass (allocate, then emit) construction of one
// disc image from an already-built FileTreeNode tree.
type Writer struct {
	opts      *Options
	root      *FileTreeNode
	sm        *SectorManager
	phase     writerPhase
	createdAt time.Time

	totalSectors uint32

	isoDirs    []*FileTreeNode
	jolietDirs []*FileTreeNode

	fileExtents map[*FileTreeNode][]fileExtent

	boot *bootCatalog
	udf  *udfLayout
}

// NewWriter prepares a Writer for root under opts. createdAt stamps every
// volume-descriptor and directory-record timestamp with one consistent
// value for the whole image, as ECMA-119 implementations conventionally
// do for a single mastering run.
func NewWriter(root *FileTreeNode, opts *Options, createdAt time.Time) (*Writer, error) {
	boot, err := resolveBootEntries(root, opts.BootEntries)
	if err != nil {
		return nil, err
	}
	return &Writer{
		opts:        opts,
		root:        root,
		sm:          NewSectorManager(opts.SectorOffset + SystemAreaNumSectors),
		createdAt:   createdAt,
		fileExtents: map[*FileTreeNode][]fileExtent{},
		boot:        boot,
	}, nil
}

func (w *Writer) requirePhase(want writerPhase) error {
	if w.phase != want {
		return fmt.Errorf("%w: expected phase %d, at %d", ErrBadPhase, want, w.phase)
	}
	return nil
}

// AllocateHeader reserves the fixed-position descriptors: PVD always at
// sector 16; when boot entries are configured, the Boot Record occupies
// sector 17 and the SVD (if Joliet is enabled) and terminator shift down
// by one sector to make room for it.
func (w *Writer) AllocateHeader() error {
	if err := w.requirePhase(phaseInit); err != nil {
		return err
	}

	w.sm.AllocateSectors(ownerPVD, "pvd", 1) // sector 16

	if w.boot != nil {
		w.sm.AllocateSectors(ownerBoot, kindBootRecord, 1) // sector 17
	}
	if w.opts.FileSystem.useJoliet() {
		w.sm.AllocateSectors(ownerSVD, "svd", 1)
	}
	w.sm.AllocateSectors(ownerSVD, "terminator", 1)

	if w.opts.FileSystem.useUDF() {
		w.allocateUDFHeader()
	}

	w.phase = phaseAllocatedHeader
	return nil
}

func (w *Writer) allocateUDFHeader() {
	w.udf = &udfLayout{fileEntries: map[*FileTreeNode]uint32{}}
	// AVDP conventionally lives at sector 256; reserve up to it with
	// padding sectors so its fixed position survives small volumes too.
	nextFree := w.sm.GetNextFree()
	if nextFree < 256 {
		w.sm.AllocateSectors(ownerUDF, "pre-avdp-pad", 256-nextFree)
	}
	w.udf.avdpLBA = w.sm.AllocateSectors(ownerUDF, kindUDFAVDP, 1)
	w.udf.mainVDSLBA = w.sm.AllocateSectors(ownerUDF, kindUDFMain, 16)
	w.udf.reserveVDSLBA = w.sm.AllocateSectors(ownerUDF, kindUDFRsrv, 16)
}

// AllocatePathTables numbers every surviving directory and reserves
// sectors for all four path table copies (L, L2, M, M2) per enabled view.
func (w *Writer) AllocatePathTables() error {
	if err := w.requirePhase(phaseAllocatedHeader); err != nil {
		return err
	}

	w.isoDirs = assignPathTableNumbers(w.root, NamespaceISO9660)
	isoLen := pathTableTotalBytes(w.isoDirs, NamespaceISO9660)
	if isoLen > maxPathTableOrDirSize {
		return ErrPathTableTooLarge
	}
	w.sm.AllocateBytes(ownerPVD, kindPathTableL, isoLen)
	w.sm.AllocateBytes(ownerPVD, kindPathTableL2, isoLen)
	w.sm.AllocateBytes(ownerPVD, kindPathTableM, isoLen)
	w.sm.AllocateBytes(ownerPVD, kindPathTableM2, isoLen)

	if w.opts.FileSystem.useJoliet() {
		w.jolietDirs = assignPathTableNumbers(w.root, NamespaceJoliet)
		jolietLen := pathTableTotalBytes(w.jolietDirs, NamespaceJoliet)
		if jolietLen > maxPathTableOrDirSize {
			return ErrPathTableTooLarge
		}
		w.sm.AllocateBytes(ownerSVD, kindPathTableL, jolietLen)
		w.sm.AllocateBytes(ownerSVD, kindPathTableL2, jolietLen)
		w.sm.AllocateBytes(ownerSVD, kindPathTableM, jolietLen)
		w.sm.AllocateBytes(ownerSVD, kindPathTableM2, jolietLen)
	}

	w.phase = phaseAllocatedPathTables
	return nil
}

// AllocateDirEntries computes and reserves sectors for every directory's
// listing content (the "." / ".." / children Directory Records, packed
// with the per-sector boundary rule), in both the ISO 9660 and (if
// enabled) Joliet views.
func (w *Writer) AllocateDirEntries() error {
	if err := w.requirePhase(phaseAllocatedPathTables); err != nil {
		return err
	}

	for _, d := range w.isoDirs {
		names := dirChildNames(d, NamespaceISO9660, w.opts.AllowFragmentation)
		size := directoryExtentSize(names, NamespaceISO9660)
		if size > maxPathTableOrDirSize {
			return ErrDirTooLarge
		}
		loc := w.sm.AllocateBytes(ownerDirISO(d), "extent", size)
		d.DataPosNormal = loc
		d.DataSizeNormal = uint32(size)
	}

	if w.opts.FileSystem.useJoliet() {
		for _, d := range w.jolietDirs {
			names := dirChildNames(d, NamespaceJoliet, w.opts.AllowFragmentation)
			size := directoryExtentSize(names, NamespaceJoliet)
			if size > maxPathTableOrDirSize {
				return ErrDirTooLarge
			}
			loc := w.sm.AllocateBytes(ownerDirJoliet(d), "extent", size)
			d.DataPosJoliet = loc
			d.DataSizeJoliet = uint32(size)
		}
	}

	w.phase = phaseAllocatedDirEntries
	return nil
}

func dirChildNames(d *FileTreeNode, ns Namespace, allowFragmentation bool) []string {
	names := []string{".", ".."}
	for _, c := range d.Children {
		if c.skipISO9660 {
			continue
		}
		// a fragmented file gets one Directory Record per extent
		records := 1
		if allowFragmentation && !c.IsDir() && c.Imported == nil {
			records = len(splitExtents(0, uint64(c.FileSize)))
		}
		for i := 0; i < records; i++ {
			names = append(names, nameForNamespace(c, ns))
		}
	}
	return names
}

// AllocateFileData walks every non-directory node in tree order and
// reserves sectors for its content, splitting into multiple extents when
// the file exceeds ISO9660MaxExtentSize and AllowFragmentation is set, or
// skipping it from the ISO 9660/Joliet view (but not from UDF) otherwise.
func (w *Writer) AllocateFileData() error {
	if err := w.requirePhase(phaseAllocatedDirEntries); err != nil {
		return err
	}

	Traverse(w.root, func(n *FileTreeNode, _ int) {
		if n.IsDir() || n.skipISO9660 {
			return
		}
		if n.Imported != nil {
			// Imported nodes already live at a fixed extent from a prior
			// disc session; adopt it directly instead of allocating fresh
			// sectors for content this write never touches.
			n.DataPosNormal = n.Imported.ExtentLocation
			n.DataSizeNormal = n.Imported.ExtentLengthBytes
			n.DataPosJoliet = n.Imported.ExtentLocation
			n.DataSizeJoliet = n.Imported.ExtentLengthBytes
			return
		}

		size := uint64(n.FileSize)
		if size > ISO9660MaxExtentSize && !w.opts.AllowFragmentation {
			n.skipISO9660 = true
			n.udfOnly = true
			if w.opts.Progress != nil {
				w.opts.Progress.Notify(NotifyWarning, "%s: %s", w.opts.Strings.Lookup(MsgFileSkippedTooLargeISO), n.FilePath)
			}
			return
		}
		if size > ISO9660MaxExtentSize && w.opts.Progress != nil {
			w.opts.Progress.Notify(NotifyInfo, "%s: %s", w.opts.Strings.Lookup(MsgFragmentingFile), n.FilePath)
		}

		pad := dvdVideoPadSectors(w.opts.FileSystem, n.FileName, uint32(sectorsToContainBytes(size)))
		start, _ := w.sm.AllocateDataSectors(ownerFileData(n), "extent", size, pad)
		n.DataPosNormal = start
		n.DataSizeNormal = uint32(size)
		n.DataPosJoliet = start
		n.DataSizeJoliet = uint32(size)
		n.DataPadLen = pad

		w.fileExtents[n] = splitExtents(start, size)
	})

	if w.boot != nil {
		catBytes, err := marshalBootCatalog(w.boot)
		if err != nil {
			return err
		}
		w.sm.AllocateSectors(ownerBoot, kindBootCatalog, uint32(len(catBytes)/SectorSize))
	}

	if w.opts.FileSystem.useUDF() {
		w.allocateUDFBody()
	}

	w.totalSectors = w.sm.GetNextFree() + 1 // + trailing padding sector
	w.phase = phaseAllocatedFileData
	return nil
}

func (w *Writer) allocateUDFBody() {
	w.udf.partitionLBA = w.sm.GetNextFree()
	w.udf.fileSetLBA = w.sm.AllocateSectors(ownerUDF, kindUDFFSD, 1)

	w.udf.fileEntries[w.root] = w.sm.AllocateSectors(ownerUDF, kindUDFEntry, 1)
	Traverse(w.root, func(n *FileTreeNode, _ int) {
		if n == w.root {
			return
		}
		w.udf.fileEntries[n] = w.sm.AllocateSectors(ownerUDF, kindUDFEntry, 1)
	})
	w.udf.partitionLen = w.sm.GetNextFree() - w.udf.partitionLBA
}

// Create runs every phase in order against out, which must support
// seeking (random-access sector writes for the allocate-then-emit model).
// It polls opts.Progress.Cancelled() between major phases, returning
// ErrCancelled promptly when the caller asks to stop.
func (w *Writer) Create(out io.WriteSeeker) error {
	for _, step := range []func() error{
		w.AllocateHeader,
		w.AllocatePathTables,
		w.AllocateDirEntries,
		w.AllocateFileData,
	} {
		if err := step(); err != nil {
			return err
		}
	}

	stream := NewSectorOutStream(&seekWriter{w: out}, SectorSize)

	if w.opts.Progress != nil {
		w.opts.Progress.SetStatus("writing system area and volume descriptors")
	}
	if err := w.writeHeader(stream); err != nil {
		return err
	}
	if w.cancelled() {
		return ErrCancelled
	}

	if w.opts.Progress != nil {
		w.opts.Progress.SetStatus("writing path tables")
	}
	if err := w.writePathTables(stream); err != nil {
		return err
	}
	if w.cancelled() {
		return ErrCancelled
	}

	if w.opts.Progress != nil {
		w.opts.Progress.SetStatus("writing directory entries")
	}
	if err := w.writeDirEntries(stream); err != nil {
		return err
	}
	if w.cancelled() {
		return ErrCancelled
	}

	if w.opts.Progress != nil {
		w.opts.Progress.SetStatus("writing file data")
		w.opts.Progress.SetMarquee(false)
	}
	if err := w.writeFileData(stream); err != nil {
		return err
	}

	return stream.PadToSectors(uint64(w.totalSectors))
}

func (w *Writer) cancelled() bool {
	return w.opts.Progress != nil && w.opts.Progress.Cancelled()
}

// seekWriter adapts an io.WriteSeeker so SectorOutStream's purely
// sequential Write calls land at the position the Writer has already
// sought to for each phase.
type seekWriter struct{ w io.WriteSeeker }

func (s *seekWriter) Write(p []byte) (int, error) { return s.w.Write(p) }

func (w *Writer) writeHeader(stream *SectorOutStream) error {
	if err := w.requirePhase(phaseAllocatedFileData); err != nil {
		return err
	}
	if err := w.seekSector(stream, w.opts.SectorOffset); err != nil {
		return err
	}
	if err := stream.padBytes(uint64(SystemAreaNumSectors) * SectorSize); err != nil {
		return err
	}

	rootISOSize := w.root.DataSizeNormal
	if _, err := stream.Write(w.primaryVolumeDescriptor(rootISOSize)); err != nil {
		return err
	}

	if w.boot != nil {
		catStart := w.sm.MustGetStart(ownerBoot, kindBootCatalog)
		if _, err := stream.Write(bootRecordDescriptor(catStart)); err != nil {
			return err
		}
	}

	if w.opts.FileSystem.useJoliet() {
		rootJolietSize := w.root.DataSizeJoliet
		if _, err := stream.Write(w.jolietVolumeDescriptor(rootJolietSize)); err != nil {
			return err
		}
	}

	if _, err := stream.Write(volumeDescriptorSetTerminator()); err != nil {
		return err
	}

	if w.opts.FileSystem.useUDF() {
		if err := w.writeUDFHeader(stream); err != nil {
			return err
		}
	}

	w.phase = phaseWroteHeader
	return nil
}

func (w *Writer) writeUDFHeader(stream *SectorOutStream) error {
	avdpStart := w.sm.MustGetStart(ownerUDF, kindUDFAVDP)
	if err := w.seekSector(stream, avdpStart); err != nil {
		return err
	}
	if _, err := stream.Write(anchorVolumeDescriptorPointer(w.udf.mainVDSLBA, w.udf.reserveVDSLBA)); err != nil {
		return err
	}

	vds := buildUDFVolumeDescriptorSequence(w.opts.PartAccessType, w.udf.partitionLBA, w.udf.partitionLen)
	if err := w.seekSector(stream, w.udf.mainVDSLBA); err != nil {
		return err
	}
	if _, err := stream.Write(vds); err != nil {
		return err
	}
	if err := w.seekSector(stream, w.udf.reserveVDSLBA); err != nil {
		return err
	}
	if _, err := stream.Write(vds); err != nil {
		return err
	}
	return nil
}

func (w *Writer) writePathTables(stream *SectorOutStream) error {
	if err := w.requirePhase(phaseWroteHeader); err != nil {
		return err
	}

	if err := w.writePathTableSet(stream, ownerPVD, w.isoDirs, NamespaceISO9660); err != nil {
		return err
	}
	if w.opts.FileSystem.useJoliet() {
		if err := w.writePathTableSet(stream, ownerSVD, w.jolietDirs, NamespaceJoliet); err != nil {
			return err
		}
	}

	w.phase = phaseWrotePathTables
	return nil
}

func (w *Writer) writePathTableSet(stream *SectorOutStream, owner string, dirs []*FileTreeNode, ns Namespace) error {
	l := createPathTable(dirs, ns, false)
	m := createPathTable(dirs, ns, true)

	for _, kind := range [...]string{kindPathTableL, kindPathTableL2} {
		start := w.sm.MustGetStart(owner, kind)
		if err := w.seekSector(stream, start); err != nil {
			return err
		}
		if err := w.writePadded(stream, l); err != nil {
			return err
		}
	}
	for _, kind := range [...]string{kindPathTableM, kindPathTableM2} {
		start := w.sm.MustGetStart(owner, kind)
		if err := w.seekSector(stream, start); err != nil {
			return err
		}
		if err := w.writePadded(stream, m); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeDirEntries(stream *SectorOutStream) error {
	if err := w.requirePhase(phaseWrotePathTables); err != nil {
		return err
	}

	for _, d := range w.isoDirs {
		recs := w.buildDirRecords(d, NamespaceISO9660)
		buf := packDirectoryRecords(recs, NamespaceISO9660)
		if err := w.seekSector(stream, d.DataPosNormal); err != nil {
			return err
		}
		if _, err := stream.Write(buf); err != nil {
			return err
		}
	}

	if w.opts.FileSystem.useJoliet() {
		for _, d := range w.jolietDirs {
			recs := w.buildDirRecords(d, NamespaceJoliet)
			buf := packDirectoryRecords(recs, NamespaceJoliet)
			if err := w.seekSector(stream, d.DataPosJoliet); err != nil {
				return err
			}
			if _, err := stream.Write(buf); err != nil {
				return err
			}
		}
	}

	w.phase = phaseWroteDirEntries
	return nil
}

// recordTimestamp is the timestamp a Directory Record for n should carry:
// the image's creation time by default, or n's own modification time when
// opts.UseFileTimes is set and the collaborator can stat it.
func (w *Writer) recordTimestamp(n *FileTreeNode) time.Time {
	if w.opts.UseFileTimes && w.opts.FileTimes != nil && n.FilePath != "" {
		if _, mtime, _, ok := w.opts.FileTimes.StatTimes(n.FilePath); ok {
			return mtime
		}
	}
	return w.createdAt
}

func (w *Writer) buildDirRecords(d *FileTreeNode, ns Namespace) []recordSource {
	selfLoc, selfLen := d.DataPosNormal, d.DataSizeNormal
	parent := d
	if d.Parent != nil {
		parent = d.Parent
	}
	parentLoc, parentLen := parent.DataPosNormal, parent.DataSizeNormal
	if ns == NamespaceJoliet {
		selfLoc, selfLen = d.DataPosJoliet, d.DataSizeJoliet
		parentLoc, parentLen = parent.DataPosJoliet, parent.DataSizeJoliet
	}

	recs := []recordSource{
		{name: ".", location: selfLoc, length: selfLen, flags: fileFlagDirectory, when: w.createdAt},
		{name: "..", location: parentLoc, length: parentLen, flags: fileFlagDirectory, when: w.createdAt},
	}

	for _, c := range d.Children {
		if c.skipISO9660 {
			continue
		}
		name := nameForNamespace(c, ns)

		if c.Imported != nil {
			recs = append(recs, recordSource{name: name, imported: c.Imported})
			continue
		}

		if extents := w.fileExtents[c]; len(extents) > 0 {
			for _, ext := range extents {
				recs = append(recs, recordSource{
					name:     name,
					location: ext.location,
					length:   ext.length,
					flags:    fileFlagsFor(c, !ext.last),
					when:     w.recordTimestamp(c),
				})
			}
			continue
		}

		loc, ln := c.DataPosNormal, c.DataSizeNormal
		if ns == NamespaceJoliet {
			loc, ln = c.DataPosJoliet, c.DataSizeJoliet
		}
		recs = append(recs, recordSource{
			name:     name,
			location: loc,
			length:   ln,
			flags:    fileFlagsFor(c, false),
			when:     w.recordTimestamp(c),
		})
	}
	return recs
}

func (w *Writer) writeFileData(stream *SectorOutStream) error {
	if err := w.requirePhase(phaseWroteDirEntries); err != nil {
		return err
	}

	var firstErr error
	Traverse(w.root, func(n *FileTreeNode, _ int) {
		if firstErr != nil || n.IsDir() || n.skipISO9660 || n.Imported != nil {
			return
		}
		if err := w.writeOneFile(stream, n); err != nil {
			firstErr = err
		}
	})
	if firstErr != nil {
		return firstErr
	}

	if w.boot != nil {
		if err := w.writeBootCatalog(stream); err != nil {
			return err
		}
	}
	if w.opts.FileSystem.useUDF() {
		if err := w.writeUDFTail(stream); err != nil {
			return err
		}
	}

	w.phase = phaseWroteFileData
	return nil
}

func (w *Writer) writeOneFile(stream *SectorOutStream, n *FileTreeNode) error {
	if w.opts.Progress != nil {
		w.opts.Progress.SetStatus(n.FileName)
	}

	if n.FilePath == "" {
		if err := w.seekSector(stream, n.DataPosNormal); err != nil {
			return err
		}
		return stream.padBytes(uint64(sectorsToContainFileBytes(uint64(n.FileSize))) * SectorSize)
	}

	f, err := os.Open(n.FilePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", n.FilePath, err)
	}
	defer f.Close()

	if err := w.seekSector(stream, n.DataPosNormal); err != nil {
		return err
	}
	written, err := io.Copy(stream, f)
	if err != nil {
		return fmt.Errorf("copy %s: %w", n.FilePath, err)
	}
	if pad := uint64(n.FileSize) - uint64(written); pad > 0 && written < int64(n.FileSize) {
		if err := stream.padBytes(pad); err != nil {
			return err
		}
	}
	if err := stream.PadSector(); err != nil {
		return err
	}
	if n.DataPadLen > 0 {
		if err := stream.padBytes(uint64(n.DataPadLen) * SectorSize); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeBootCatalog(stream *SectorOutStream) error {
	catBytes, err := marshalBootCatalog(w.boot)
	if err != nil {
		return err
	}
	start := w.sm.MustGetStart(ownerBoot, kindBootCatalog)
	if err := w.seekSector(stream, start); err != nil {
		return err
	}
	_, err = stream.Write(catBytes)
	return err
}

func (w *Writer) writeUDFTail(stream *SectorOutStream) error {
	if err := w.seekSector(stream, w.udf.fileSetLBA); err != nil {
		return err
	}
	if _, err := stream.Write(fileSetDescriptor(w.udf.fileEntries[w.root])); err != nil {
		return err
	}

	var outerErr error
	Traverse(w.root, func(n *FileTreeNode, _ int) {
		if outerErr != nil {
			return
		}
		lba, ok := w.udf.fileEntries[n]
		if !ok {
			return
		}
		if err := w.seekSector(stream, lba); err != nil {
			outerErr = err
			return
		}
		if _, err := stream.Write(fileEntry(n, n.IsDir())); err != nil {
			outerErr = err
		}
	})
	return outerErr
}

// seekSector seeks both the underlying WriteSeeker and the stream's own
// byte-accounting to the start of sector, since sector writes jump around
// rather than proceeding strictly sequentially across phases.
func (w *Writer) seekSector(stream *SectorOutStream, sector uint32) error {
	offset := int64(sector) * SectorSize
	sw, ok := stream.w.(*seekWriter)
	if !ok {
		return fmt.Errorf("isoimage: underlying writer does not support seeking")
	}
	if _, err := sw.w.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to offset %d: %w", offset, err)
	}
	stream.written = uint64(offset)
	return nil
}

func (w *Writer) writePadded(stream *SectorOutStream, data []byte) error {
	if _, err := stream.Write(data); err != nil {
		return err
	}
	return stream.PadSector()
}

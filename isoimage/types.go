package isoimage

import "time"

// FileFlag bits describe a FileDescriptor supplied by the caller, and are
// carried forward onto the FileTreeNode built from it.
type FileFlag uint8

const (
	FlagDirectory FileFlag = 1 << iota
	FlagImported
	FlagHidden
)

// Has reports whether all bits in want are set in f.
func (f FileFlag) Has(want FileFlag) bool { return f&want == want }

// FileDescriptor is a single user-supplied source-tree entry.
type FileDescriptor struct {
	InternalPath string   // forward-slash rooted path within the image, e.g. "/docs/readme.txt"
	ExternalPath string   // host filesystem path providing the content (empty for virtual/imported entries)
	Flags        FileFlag // DIRECTORY, IMPORTED, HIDDEN
	Size         int64    // byte length of source content; authoritative when ExternalPath is empty

	// Imported carries pre-baked metadata for nodes flagged IMPORTED. Nil
	// for ordinary nodes.
	Imported *ImportedInfo
}

// FileSet is an ordered collection of FileDescriptors. Order only matters to
// the extent that FileTree construction processes entries in this order;
// the resulting tree imposes its own canonical ordering thereafter.
type FileSet []FileDescriptor

// ImportedInfo carries metadata inherited from a previously written disc
// session rather than derived fresh. This is the sum-type payload called
// for by the "tagged variants replace inheritance" design note: a node is
// either a plain node (Imported == nil) or an imported one.
type ImportedInfo struct {
	ExtentLocation    uint32
	ExtentLengthBytes uint32
	Timestamp         recordingTimestamp
	FileFlags         byte
	FileUnitSize      byte
	InterleaveGap     byte
	VolumeSequence    uint16
}

// FileTreeNode is the central entity of the layout planner. Children are
// owned top-down; Parent is a non-owning back-reference used only to
// reconstruct paths and locate ".." entries. There is no true ownership
// cycle: the tree is reachable downward from the root alone.
type FileTreeNode struct {
	Parent   *FileTreeNode
	Children []*FileTreeNode

	FileName  string // original name as given by the user (last path component)
	FilePath  string // external host-filesystem path for content (files only)
	FileFlags FileFlag

	NameISO9660 string // assigned compliant name, ISO 9660 namespace; empty until computed
	NameJoliet  string // assigned compliant name, Joliet namespace

	FileSize int64 // byte length of source content

	DataPosNormal  uint32 // sector location, ISO 9660 view
	DataSizeNormal uint32 // byte length, ISO 9660 view
	DataPosJoliet  uint32 // sector location, Joliet view
	DataSizeJoliet uint32 // byte length, Joliet view
	DataPadLen     uint32 // trailing sector padding (DVD-Video alignment)

	Imported *ImportedInfo // non-nil for IMPORTED nodes

	// pathTableDirNum is this directory's 1-based number in the path table
	// (only meaningful when FileFlags has FlagDirectory). Root is always 1.
	pathTableDirNum uint16

	// skipISO9660 excludes the node from the ISO 9660/Joliet view (depth
	// limit exceeded, or oversized file in a non-fragmenting mode).
	// udfOnly marks a node present in the UDF view only.
	skipISO9660 bool
	udfOnly     bool

	depth int // distance from root; root is 0
}

// IsDir reports whether this node represents a directory.
func (n *FileTreeNode) IsDir() bool { return n.FileFlags.Has(FlagDirectory) }

// IsRoot reports whether this node is the tree root.
func (n *FileTreeNode) IsRoot() bool { return n.Parent == nil }

// Namespace selects which per-standard view of the tree an operation works
// against.
type Namespace int

const (
	NamespaceRaw Namespace = iota
	NamespaceISO9660
	NamespaceJoliet
)

// FileSystemMode selects the combination of on-disc file systems the Image
// Driver will emit.
type FileSystemMode int

const (
	ModeISO9660 FileSystemMode = iota
	ModeISO9660Joliet
	ModeISO9660UDF
	ModeISO9660UDFJoliet
	ModeUDF
	ModeDVDVideo
)

func (m FileSystemMode) useISO() bool { return m != ModeUDF }

func (m FileSystemMode) useUDF() bool {
	switch m {
	case ModeISO9660UDF, ModeISO9660UDFJoliet, ModeUDF, ModeDVDVideo:
		return true
	default:
		return false
	}
}

func (m FileSystemMode) useJoliet() bool {
	switch m {
	case ModeISO9660Joliet, ModeISO9660UDFJoliet:
		return true
	default:
		return false
	}
}

// recordingTimestamp is the 7-byte form used in Directory Records
// (ECMA-119 9.1.5): year since 1900, month, day, hour, minute, second, GMT
// offset in 15-minute units (signed).
type recordingTimestamp [7]byte

func newRecordingTimestamp(t time.Time) recordingTimestamp {
	var ts recordingTimestamp
	ts[0] = byte(t.Year() - 1900)
	ts[1] = byte(t.Month())
	ts[2] = byte(t.Day())
	ts[3] = byte(t.Hour())
	ts[4] = byte(t.Minute())
	ts[5] = byte(t.Second())
	ts[6] = 0 // GMT offset: 0 means "unspecified" for our purposes
	return ts
}

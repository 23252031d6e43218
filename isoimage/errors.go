package isoimage

import "errors"

var (
	// ErrCancelled is returned from Create when the caller's
	// ProgressReporter.Cancelled() reported true.
	ErrCancelled = errors.New("isoimage: image creation cancelled")

	// ErrPathTableTooLarge is returned from the ALLOCATE_PATH_TABLES phase
	// when a path table's marshalled size would not fit a uint32 byte count.
	ErrPathTableTooLarge = errors.New("isoimage: path table exceeds maximum size")

	// ErrDirTooLarge is returned from ALLOCATE_DIR_ENTRIES when a single
	// directory's extent would exceed the representable size.
	ErrDirTooLarge = errors.New("isoimage: directory entries exceed maximum extent size")

	// ErrNoRoot reports a FileSet with no way to resolve a root.
	// BuildFileTree always creates a root node and does not return it.
	ErrNoRoot = errors.New("isoimage: file set produced no root directory")

	// ErrEmptyVolume is returned when Create is asked to build an image
	// with zero files and zero directories beyond the root.
	ErrEmptyVolume = errors.New("isoimage: file set is empty")

	// ErrBadPhase is a programmer error: a Volume Writer phase method was
	// called out of sequence.
	ErrBadPhase = errors.New("isoimage: writer phase invoked out of order")

	// ErrBootEntryFile is returned when an El Torito boot entry names an
	// internal path not present in the file tree.
	ErrBootEntryFile = errors.New("isoimage: boot entry references unknown file")
)

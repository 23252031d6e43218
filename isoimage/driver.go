package isoimage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Driver is the top-level entry point: given a FileSet and Options, it runs
// the full image-creation pipeline (build tree, assign names, allocate,
// emit) and writes the result to an output file.
type Driver struct {
	opts *Options
}

// NewDriver constructs a Driver. A nil opts is replaced with
// DefaultOptions().
func NewDriver(opts *Options) *Driver {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Driver{opts: opts}
}

// Create runs the pipeline end to end:
//  1. reserve the system area (implicit in SectorManager's start offset)
//  2. build the file tree from fs
//  3. apply imported-session metadata
//  4. DVD-Video VOB padding is computed later, during file-data allocation
//  5. assign ISO 9660 and (if enabled) Joliet names
//  6. resolve El Torito boot entries against the tree
//  7. allocate path tables and directory entries
//  8. allocate file data (and UDF bridge structures)
//  9. write the header, path tables, directory entries, and file data
//  10. write the UDF tail (file set descriptor, file entries)
//  11. flush and close the output file
func (d *Driver) Create(fs FileSet, outputPath string) (err error) {
	if len(fs) == 0 {
		return ErrEmptyVolume
	}

	root, err := BuildFileTree(fs, d.opts)
	if err != nil {
		return fmt.Errorf("building file tree: %w", err)
	}
	applyImportedSessions(root, d.opts.ImportedSession)

	AssignNames(root, d.opts, d.opts.FileSystem.useJoliet())

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file %q: %w", outputPath, err)
	}
	defer func() {
		closeErr := out.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("closing output file: %w", closeErr)
		}
	}()

	w, err := NewWriter(root, d.opts, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("preparing writer: %w", err)
	}

	if d.opts.Progress != nil {
		d.opts.Progress.SetMarquee(true)
	}
	if err := w.Create(out); err != nil {
		return err
	}
	if d.opts.Progress != nil {
		d.opts.Progress.SetProgress(100)
		d.opts.Progress.SetStatus("done")
	}
	return nil
}

// applyImportedSessions overlays pre-baked metadata from a prior disc
// session onto matching nodes, implementing the tagged-variant "imported
// node" design: a matched node's Imported field becomes non-nil and its
// FlagImported bit is set, without otherwise altering its place in the
// tree.
func applyImportedSessions(root *FileTreeNode, mappings []ImportedMapping) {
	if len(mappings) == 0 {
		return
	}
	byPath := map[string]*FileTreeNode{}
	Traverse(root, func(n *FileTreeNode, _ int) {
		byPath[ResolvePath(n, NamespaceRaw)] = n
	})
	for _, m := range mappings {
		if n, ok := byPath["/"+trimLeadingSlash(m.InternalPath)]; ok {
			info := m.Info
			n.Imported = &info
			n.FileFlags |= FlagImported
		}
	}
}

// ScanDirectory is a convenience helper that walks a host directory tree
// into a FileSet, for callers (such as the CLI) that want to mirror an
// existing directory onto the disc rather than building a FileSet by hand.
func ScanDirectory(hostRoot string) (FileSet, error) {
	var fs FileSet
	hostRoot = filepath.Clean(hostRoot)

	err := filepath.WalkDir(hostRoot, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == hostRoot {
			return nil
		}
		rel, err := filepath.Rel(hostRoot, path)
		if err != nil {
			return err
		}
		internal := "/" + filepath.ToSlash(rel)

		if entry.IsDir() {
			fs = append(fs, FileDescriptor{InternalPath: internal, Flags: FlagDirectory})
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		fs = append(fs, FileDescriptor{InternalPath: internal, ExternalPath: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", hostRoot, err)
	}
	return fs, nil
}

// PathMap returns every non-directory node's internal path mapped to the
// host filesystem path supplying its content, letting callers record which
// source file backed each disc entry after Create.
func PathMap(root *FileTreeNode) map[string]string {
	out := map[string]string{}
	Traverse(root, func(n *FileTreeNode, _ int) {
		if !n.IsDir() && n.FilePath != "" {
			out[ResolvePath(n, NamespaceRaw)] = n.FilePath
		}
	})
	return out
}

package isoimage

import (
	"path"
	"sort"
	"strings"
)

// BuildFileTree turns a flat FileSet into a FileTreeNode tree. Entries are
// processed in ascending path-depth order so that any directory implied by
// a deeper entry, but never explicitly listed, is synthesized before its
// children are attached — the FileSet is a sparse description, not
// necessarily a complete one.
func BuildFileTree(fs FileSet, opts *Options) (*FileTreeNode, error) {
	root := &FileTreeNode{
		FileName:  "",
		FileFlags: FlagDirectory,
		depth:     0,
	}
	nodes := map[string]*FileTreeNode{"/": root}

	ordered := make(FileSet, len(fs))
	copy(ordered, fs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return depthOf(ordered[i].InternalPath) < depthOf(ordered[j].InternalPath)
	})

	for _, fd := range ordered {
		if err := insertDescriptor(nodes, root, fd); err != nil {
			return nil, err
		}
	}

	maxDepth := defaultMaxDirDepth
	if opts != nil {
		maxDepth = opts.maxDirDepth()
	}
	enforceDepthLimit(root, maxDepth, opts)

	return root, nil
}

func depthOf(internalPath string) int {
	clean := strings.Trim(path.Clean("/"+internalPath), "/")
	if clean == "" {
		return 0
	}
	return strings.Count(clean, "/") + 1
}

// insertDescriptor walks from root to the parent directory of fd,
// synthesizing any missing intermediate directory nodes, then attaches or
// updates the leaf node itself.
func insertDescriptor(nodes map[string]*FileTreeNode, root *FileTreeNode, fd FileDescriptor) error {
	clean := strings.Trim(path.Clean("/"+fd.InternalPath), "/")
	if clean == "" {
		// The FileSet describes the root itself (rare, but legal for
		// imported-session passthrough); nothing further to attach.
		return nil
	}
	segments := strings.Split(clean, "/")

	parent := root
	accum := ""
	for i, seg := range segments[:len(segments)-1] {
		accum += "/" + seg
		if existing, ok := nodes[accum]; ok {
			parent = existing
			continue
		}
		dir := &FileTreeNode{
			Parent:    parent,
			FileName:  seg,
			FileFlags: FlagDirectory,
			depth:     i + 1,
		}
		parent.Children = append(parent.Children, dir)
		nodes[accum] = dir
		parent = dir
	}

	leafPath := "/" + clean
	leaf, exists := nodes[leafPath]
	if !exists {
		leaf = &FileTreeNode{
			Parent: parent,
			depth:  len(segments),
		}
		parent.Children = append(parent.Children, leaf)
		nodes[leafPath] = leaf
	}

	leaf.FileName = segments[len(segments)-1]
	leaf.FilePath = fd.ExternalPath
	leaf.FileFlags = fd.Flags
	leaf.FileSize = fd.Size
	leaf.Imported = fd.Imported
	return nil
}

// nodeQueueItem is a (node, depth) pair, used by Traverse to avoid
// recursion while preserving a breadth-stable pre-order (a node is visited
// before its children, and siblings keep their relative FileSet order).
type nodeQueueItem struct {
	node  *FileTreeNode
	depth int
}

// Traverse walks the tree in pre-order using an explicit work queue rather
// than recursion, so arbitrarily deep trees never grow the Go call stack.
func Traverse(root *FileTreeNode, visit func(node *FileTreeNode, depth int)) {
	queue := []nodeQueueItem{{root, 0}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		visit(item.node, item.depth)

		children := make([]nodeQueueItem, len(item.node.Children))
		for i, c := range item.node.Children {
			children[i] = nodeQueueItem{c, item.depth + 1}
		}
		queue = append(children, queue...)
	}
}

// enforceDepthLimit marks every node deeper than maxDepth as excluded from
// the ISO 9660/Joliet view. UDF bridge trees tolerate deeper nesting, so
// those nodes remain eligible for the UDF-only view.
func enforceDepthLimit(root *FileTreeNode, maxDepth int, opts *Options) {
	Traverse(root, func(n *FileTreeNode, depth int) {
		if depth <= maxDepth {
			return
		}
		n.skipISO9660 = true
		if opts != nil && opts.Progress != nil {
			opts.Progress.Notify(NotifyWarning, "%s: %s", opts.Strings.Lookup(MsgDirDepthExceeded), n.FilePath)
		}
	})
}

// MarkHidden sets FlagHidden on every node in the tree whose FileName
// matches one of names. Matching is by original host filename, mirroring
// the pack's MarkFileNamesAsHidden API shape.
func MarkHidden(root *FileTreeNode, names ...string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	Traverse(root, func(n *FileTreeNode, _ int) {
		if want[n.FileName] {
			n.FileFlags |= FlagHidden
		}
	})
}

// ResolvePath returns the forward-slash rooted path of n within the given
// namespace, using NameISO9660/NameJoliet if assigned, else FileName.
func ResolvePath(n *FileTreeNode, ns Namespace) string {
	if n.Parent == nil {
		return "/"
	}
	var parts []string
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		parts = append([]string{nameForNamespace(cur, ns)}, parts...)
	}
	return "/" + strings.Join(parts, "/")
}

func nameForNamespace(n *FileTreeNode, ns Namespace) string {
	switch ns {
	case NamespaceISO9660:
		if n.NameISO9660 != "" {
			return n.NameISO9660
		}
	case NamespaceJoliet:
		if n.NameJoliet != "" {
			return n.NameJoliet
		}
	}
	return n.FileName
}

// AssignNames computes NameISO9660 (and NameJoliet, when joliet is true)
// for every node, resolving sibling collisions independently per
// namespace via nameEncoder.assignUnique.
func AssignNames(root *FileTreeNode, opts *Options, joliet bool) {
	isoEnc := newISO9660Encoder(opts.InterchangeLevel, opts.StrictNameUniqueness, opts.Strings, opts.Logger)
	var jolietEnc *nameEncoder
	if joliet {
		jolietEnc = newJolietEncoder(opts.jolietMaxChars(), opts.StrictNameUniqueness, opts.Strings, opts.Logger)
	}

	root.NameISO9660 = "\x00"
	root.NameJoliet = "\x00"

	dirs := []*FileTreeNode{root}
	for len(dirs) > 0 {
		n := dirs[0]
		dirs = dirs[1:]

		isoTaken := map[string]bool{}
		jolietTaken := map[string]bool{}
		for _, c := range n.Children {
			isoCandidate := isoEnc.candidate(c.FileName, c.IsDir())
			c.NameISO9660 = isoEnc.assignUnique(isoCandidate, isoTaken)
			if opts.IncludeFileVerInfo && !c.IsDir() {
				c.NameISO9660 += ";1"
			}
			if joliet {
				jolietCandidate := jolietEnc.candidate(c.FileName, c.IsDir())
				c.NameJoliet = jolietEnc.assignUnique(jolietCandidate, jolietTaken)
			}
			if c.IsDir() {
				dirs = append(dirs, c)
			}
		}
	}

	sortChildren(root)
}

// sortChildren sorts each directory's children alphabetically by assigned
// ISO 9660 name, the order ECMA-119 directory listings and path tables both
// expect, walking the tree with an explicit work queue rather than
// recursion.
func sortChildren(root *FileTreeNode) {
	dirs := []*FileTreeNode{root}
	for len(dirs) > 0 {
		n := dirs[0]
		dirs = dirs[1:]

		sort.SliceStable(n.Children, func(i, j int) bool {
			return n.Children[i].NameISO9660 < n.Children[j].NameISO9660
		})
		for _, c := range n.Children {
			if c.IsDir() {
				dirs = append(dirs, c)
			}
		}
	}
}

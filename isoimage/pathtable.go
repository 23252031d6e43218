package isoimage

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strings"
)

// pathTableRecordFields holds the fixed 8-byte part of a Path Table Record
// (ECMA-119 9.4), before its variable-length directory identifier.
type pathTableRecordFields struct {
	ExtendedAttributeRecordLength byte
	LocationOfExtent              uint32
	ParentDirectoryNumber         uint16
}

func marshalPathTableRecord(fields *pathTableRecordFields, identifier []byte, bigEndian bool) []byte {
	recordLen := ptRecFixedPartSize + len(identifier)
	if len(identifier)%2 != 0 {
		recordLen++
	}

	record := make([]byte, recordLen)
	record[0] = byte(len(identifier))
	record[1] = fields.ExtendedAttributeRecordLength

	if bigEndian {
		binary.BigEndian.PutUint32(record[2:6], fields.LocationOfExtent)
		binary.BigEndian.PutUint16(record[6:8], fields.ParentDirectoryNumber)
	} else {
		binary.LittleEndian.PutUint32(record[2:6], fields.LocationOfExtent)
		binary.LittleEndian.PutUint16(record[6:8], fields.ParentDirectoryNumber)
	}
	copy(record[8:], identifier)
	return record
}

// assignPathTableNumbers walks the tree and assigns each directory's
// 1-based path-table number. ECMA-119 9.4.3 requires a directory's number
// to be assigned so that a parent never has a larger number than any of
// its descendants; sorting by depth first, then by the parent's own
// number, then by name within a parent, satisfies that and also resolves
// what would otherwise be an ambiguous tie in path-table emission order
// (the same approach a hierarchical-name M-type sort must use to stay
// consistent with the L-type order). Within a depth the comparison uses each
// directory's full path, component by component, which orders parents
// exactly as their path-table numbers will, before any number is assigned.
func assignPathTableNumbers(root *FileTreeNode, ns Namespace) []*FileTreeNode {
	var dirs []*FileTreeNode
	keys := map[*FileTreeNode]string{}
	Traverse(root, func(n *FileTreeNode, _ int) {
		if n.IsDir() && !n.skipISO9660 {
			dirs = append(dirs, n)
			keys[n] = strings.ReplaceAll(ResolvePath(n, ns), "/", "\x00")
		}
	})

	sort.SliceStable(dirs, func(i, j int) bool {
		a, b := dirs[i], dirs[j]
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		return keys[a] < keys[b]
	})

	for i, d := range dirs {
		d.pathTableDirNum = uint16(i + 1)
	}
	return dirs
}

// createPathTable renders a full Path Table (L-type little-endian or
// M-type big-endian) from the directories previously numbered by
// assignPathTableNumbers, reading each directory's extent location from
// DataPosNormal/DataPosJoliet as appropriate.
func createPathTable(dirs []*FileTreeNode, ns Namespace, bigEndian bool) []byte {
	buf := new(bytes.Buffer)
	for _, dir := range dirs {
		var fields pathTableRecordFields
		var identifier []byte

		if dir.IsRoot() {
			identifier = []byte{0x00}
			fields.ParentDirectoryNumber = 1
		} else {
			identifier = drIdentifier(nameForNamespace(dir, ns), ns)
			fields.ParentDirectoryNumber = dir.Parent.pathTableDirNum
		}

		if ns == NamespaceJoliet {
			fields.LocationOfExtent = dir.DataPosJoliet
		} else {
			fields.LocationOfExtent = dir.DataPosNormal
		}

		buf.Write(marshalPathTableRecord(&fields, identifier, bigEndian))
	}
	return buf.Bytes()
}

// pathTableTotalBytes computes the unpadded byte length createPathTable
// would produce, for use during ALLOCATE_PATH_TABLES before extents are
// final.
func pathTableTotalBytes(dirs []*FileTreeNode, ns Namespace) uint64 {
	var total uint64
	for _, dir := range dirs {
		var identifier []byte
		if dir.IsRoot() {
			identifier = []byte{0x00}
		} else {
			identifier = drIdentifier(nameForNamespace(dir, ns), ns)
		}
		recordLen := ptRecFixedPartSize + len(identifier)
		if len(identifier)%2 != 0 {
			recordLen++
		}
		total += uint64(recordLen)
	}
	return total
}

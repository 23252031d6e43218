package isoimage

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Platform identifies the target booting system for an El Torito entry.
type Platform uint8

const (
	PlatformBIOS Platform = 0x00
	PlatformPPC  Platform = 0x01
	PlatformMac  Platform = 0x02
	PlatformEFI  Platform = 0xef
)

// Emulation selects the boot media emulation mode for an entry.
type Emulation uint8

const (
	EmulationNone      Emulation = 0x00
	EmulationFloppy12  Emulation = 0x01
	EmulationFloppy144 Emulation = 0x02
	EmulationFloppy288 Emulation = 0x03
	EmulationHardDisk  Emulation = 0x04
)

// PartitionType mirrors the MBR/GPT partition type byte recorded in a
// hard-disk-emulation boot entry.
type PartitionType byte

const (
	PartitionTypeEmpty   PartitionType = 0x00
	PartitionTypeFat16   PartitionType = 0x06
	PartitionTypeNTFS    PartitionType = 0x07
	PartitionTypeFat32   PartitionType = 0x0c
	PartitionTypeLinux   PartitionType = 0x83
	PartitionTypeISO9660 PartitionType = 0x96
	PartitionTypeEFI     PartitionType = 0xef
)

// BootEntry describes one El Torito boot image the caller wants included
// in the boot catalog. InternalPath must name a file already present in
// the FileSet; its content becomes the boot image.
type BootEntry struct {
	Platform      Platform
	Emulation     Emulation
	InternalPath  string
	LoadSegment   uint16
	PartitionType PartitionType
	Default       bool // true for the Initial/Default Entry, false for a Section Entry
}

const (
	catalogValidationHeaderID = 0x01
	catalogEntryBootable      = 0x88
	catalogSectionHeaderMore  = 0x90
	catalogSectionHeaderLast  = 0x91
)

// bootCatalog is the fully-resolved, writer-internal form of the El Torito
// boot record plus catalog, built once every boot entry's boot file extent
// is known.
type bootCatalog struct {
	validationPlatform Platform
	entries            []resolvedBootEntry
}

type resolvedBootEntry struct {
	BootEntry
	node *FileTreeNode
}

// bootRecordDescriptor renders the Boot Record Volume Descriptor that
// occupies sector 17 (ECMA-119 / El Torito section 2.1) when boot entries
// are present. catalogLBA is where the catalog sectors themselves live.
func bootRecordDescriptor(catalogLBA uint32) []byte {
	sector := make([]byte, SectorSize)
	copy(sector[0:7], cd001Header(vdTypeBootRecord))
	copy(sector[7:39], []byte("EL TORITO SPECIFICATION"))
	binary.LittleEndian.PutUint32(sector[71:75], catalogLBA)
	return sector
}

// marshalBootCatalog renders the Validation Entry followed by one
// Initial/Default Entry and, for every additional entry, a Section Header
// plus its Section Entry — each record is fixed at 32 bytes
// (El Torito 2.2/2.3/2.4), grounded on the original writer-shaped boot
// catalog encoding (vaerh-iso9660's processDirectory/WriteTo boot catalog
// patching).
func marshalBootCatalog(cat *bootCatalog) ([]byte, error) {
	if len(cat.entries) == 0 {
		return nil, fmt.Errorf("isoimage: boot catalog requested with no entries")
	}

	buf := new(bytes.Buffer)
	buf.Write(validationEntry(cat.validationPlatform))

	defaultEntry := cat.entries[0]
	buf.Write(bootEntryRecord(defaultEntry, true))

	rest := cat.entries[1:]
	for i, e := range rest {
		header := make([]byte, 32)
		if i == len(rest)-1 {
			header[0] = catalogSectionHeaderLast
		} else {
			header[0] = catalogSectionHeaderMore
		}
		header[1] = byte(e.Platform)
		binary.LittleEndian.PutUint16(header[2:4], 1)
		buf.Write(header)
		buf.Write(bootEntryRecord(e, false))
	}

	if rem := buf.Len() % SectorSize; rem != 0 {
		buf.Write(make([]byte, SectorSize-rem))
	}
	return buf.Bytes(), nil
}

func validationEntry(platform Platform) []byte {
	rec := make([]byte, 32)
	rec[0] = catalogValidationHeaderID
	rec[1] = byte(platform)
	rec[0x1e] = 0x55
	rec[0x1f] = 0xaa

	var checksum uint16
	for i := 0; i < 32; i += 2 {
		checksum += binary.LittleEndian.Uint16(rec[i : i+2])
	}
	binary.LittleEndian.PutUint16(rec[28:30], uint16(0)-checksum)
	return rec
}

func bootEntryRecord(e resolvedBootEntry, initial bool) []byte {
	rec := make([]byte, 32)
	rec[0] = catalogEntryBootable
	rec[1] = byte(e.Emulation)
	binary.LittleEndian.PutUint16(rec[2:4], e.LoadSegment)
	rec[4] = byte(e.PartitionType)

	blockCount := uint16(sectorsToContainBytes(uint64(e.node.DataSizeNormal)) * (SectorSize / 512))
	binary.LittleEndian.PutUint16(rec[6:8], blockCount)
	binary.LittleEndian.PutUint32(rec[8:12], e.node.DataPosNormal)
	return rec
}

// resolveBootEntries locates each configured BootEntry's file node in the
// tree, failing with ErrBootEntryFile if any path is missing.
func resolveBootEntries(root *FileTreeNode, entries []BootEntry) (*bootCatalog, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	byPath := map[string]*FileTreeNode{}
	Traverse(root, func(n *FileTreeNode, _ int) {
		if !n.IsDir() {
			byPath[ResolvePath(n, NamespaceRaw)] = n
		}
	})

	cat := &bootCatalog{validationPlatform: entries[0].Platform}
	for _, be := range entries {
		node, ok := byPath["/"+trimLeadingSlash(be.InternalPath)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBootEntryFile, be.InternalPath)
		}
		cat.entries = append(cat.entries, resolvedBootEntry{BootEntry: be, node: node})
	}
	return cat, nil
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

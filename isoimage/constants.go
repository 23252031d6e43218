package isoimage

// Sector and on-disc layout constants (ECMA-119 / "Yellow Book").
const (
	SectorSize           = 2048 // logical sector size, fixed by ECMA-119 section 6.1.2
	SystemAreaNumSectors = 16   // sectors 0-15 are reserved system area

	JolietMaxFilenameChars       = 64  // strict Joliet limit, UCS-2 code units
	JolietMaxFilenameCharsRelaxed = 103 // relaxed limit when LongJolietNames is enabled

	iso9660Level1BaseLen = 8 // level 1: 8.3 names
	iso9660Level1ExtLen  = 3
	iso9660Level23MaxLen = 31 // levels 2/3: up to 31 chars incl. one '.'

	// ISO9660_MAX_EXTENT_SIZE is the largest byte length a single ISO 9660
	// directory record extent can describe: 2^32 minus 64 KiB (32 sectors),
	// a sector-aligned size below the 32-bit boundary.
	ISO9660MaxExtentSize uint64 = (1 << 32) - 65536

	// maxPathTableOrDirSize is the largest a path table or a single
	// directory's byte length may grow to before ALLOCATE_PATH_TABLES or
	// ALLOCATE_DIR_ENTRIES must fail.
	maxPathTableOrDirSize uint64 = (1 << 32) - 1

	defaultMaxDirDepth = 8  // ECMA-119 6.8.2.1
	relaxedMaxDirDepth = 16 // commonly tolerated extension

	// volume descriptor types (ECMA-119 8.1)
	vdTypeBootRecord    byte = 0
	vdTypePrimary       byte = 1
	vdTypeSupplementary byte = 2
	vdTypePartition     byte = 3
	vdTypeTerminator    byte = 255

	// drFixedPartSize is the Directory Record's fixed part length
	// (ECMA-119 9.1), excluding the variable-length identifier and padding.
	drFixedPartSize = 33

	// ptRecFixedPartSize is the Path Table Record's fixed part length
	// (ECMA-119 9.4): LenDI(1) + ExtAttrLen(1) + LocExtent(4) + ParentDirNum(2).
	ptRecFixedPartSize = 8

	elToritoBootRecordSector = 17 // ECMA-119 / El Torito: always sector 17

	// fileFlag bits within a Directory Record (ECMA-119 9.1.6).
	fileFlagHidden      byte = 0x01
	fileFlagDirectory   byte = 0x02
	fileFlagAssociated  byte = 0x04
	fileFlagMultiExtent byte = 0x80
)

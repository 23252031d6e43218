package isoimage

import "fmt"

// sectorExtent records a contiguous sector range handed out by a
// SectorManager.
type sectorExtent struct {
	start  uint32
	length uint32 // in sectors
}

// sectorOwnerKey identifies one allocation request, grounded on the
// original writer's GetNextFree()/AllocateDataSectors() bookkeeping, which
// this generalizes into an (owner, kind) keyed lookup so the Volume Writer
// can ask "where did the path tables go" after the allocation phase.
type sectorOwnerKey struct {
	owner string
	kind  string
}

// SectorManager is a monotonic sector allocator: each call to Allocate*
// hands out the next free run of sectors and remembers it under the given
// owner/kind pair for later lookup during the WRITE_* phases.
type SectorManager struct {
	next   uint32
	base   uint32
	table  map[sectorOwnerKey]sectorExtent
	owners []sectorOwnerKey // preserves allocation order for diagnostics
}

// NewSectorManager creates a manager whose first allocation starts at
// startSector (the caller's SectorOffset plus the fixed system-area size).
func NewSectorManager(startSector uint32) *SectorManager {
	return &SectorManager{
		next:  startSector,
		base:  startSector,
		table: make(map[sectorOwnerKey]sectorExtent),
	}
}

// GetNextFree returns the next sector that would be handed out, without
// consuming it.
func (m *SectorManager) GetNextFree() uint32 { return m.next }

// AllocateSectors reserves n whole sectors under (owner, kind) and returns
// the starting sector.
func (m *SectorManager) AllocateSectors(owner, kind string, n uint32) uint32 {
	start := m.next
	m.next += n
	key := sectorOwnerKey{owner, kind}
	m.table[key] = sectorExtent{start: start, length: n}
	m.owners = append(m.owners, key)
	return start
}

// AllocateBytes reserves enough whole sectors to hold byteLen bytes under
// (owner, kind) and returns the starting sector.
func (m *SectorManager) AllocateBytes(owner, kind string, byteLen uint64) uint32 {
	return m.AllocateSectors(owner, kind, uint32(sectorsToContainBytes(byteLen)))
}

// AllocateDataSectors reserves sectors for file content, applying the
// DVD-Video trailing-pad rule when padSectors is non-zero.
func (m *SectorManager) AllocateDataSectors(owner, kind string, byteLen uint64, padSectors uint32) (start uint32, dataSectors uint32) {
	dataSectors = uint32(sectorsToContainBytes(byteLen))
	start = m.AllocateSectors(owner, kind, dataSectors+padSectors)
	return start, dataSectors
}

// GetStart returns the starting sector previously allocated under
// (owner, kind).
func (m *SectorManager) GetStart(owner, kind string) (uint32, bool) {
	e, ok := m.table[sectorOwnerKey{owner, kind}]
	return e.start, ok
}

// GetLength returns the sector count previously allocated under
// (owner, kind).
func (m *SectorManager) GetLength(owner, kind string) (uint32, bool) {
	e, ok := m.table[sectorOwnerKey{owner, kind}]
	return e.length, ok
}

// MustGetStart panics with a descriptive message if the (owner, kind) pair
// was never allocated; reserved for invariants the Volume Writer itself
// establishes (a programmer error, not caller input, if violated).
func (m *SectorManager) MustGetStart(owner, kind string) uint32 {
	start, ok := m.GetStart(owner, kind)
	if !ok {
		panic(fmt.Sprintf("isoimage: sector manager has no allocation for %s/%s", owner, kind))
	}
	return start
}

// TotalSectors returns the number of sectors allocated so far, relative to
// the manager's start sector.
func (m *SectorManager) TotalSectors() uint32 { return m.next - m.base }

package isoimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectorManagerAllocateSectorsMonotonic(t *testing.T) {
	m := NewSectorManager(20)
	assert.Equal(t, uint32(20), m.GetNextFree())

	start := m.AllocateSectors("pvd", "header", 1)
	assert.Equal(t, uint32(20), start)
	assert.Equal(t, uint32(21), m.GetNextFree())

	start2 := m.AllocateSectors("root", "dir", 3)
	assert.Equal(t, uint32(21), start2)
	assert.Equal(t, uint32(24), m.GetNextFree())
}

func TestSectorManagerAllocateBytesRoundsUp(t *testing.T) {
	m := NewSectorManager(0)
	start := m.AllocateBytes("file", "data", 2049)
	assert.Equal(t, uint32(0), start)
	length, ok := m.GetLength("file", "data")
	require.True(t, ok)
	assert.Equal(t, uint32(2), length)
}

func TestSectorManagerAllocateDataSectorsWithPad(t *testing.T) {
	m := NewSectorManager(100)
	start, dataSectors := m.AllocateDataSectors("movie.vob", "data", 4096, 5)
	assert.Equal(t, uint32(100), start)
	assert.Equal(t, uint32(2), dataSectors)

	length, ok := m.GetLength("movie.vob", "data")
	require.True(t, ok)
	assert.Equal(t, uint32(7), length, "allocation must include both data and pad sectors")
}

func TestSectorManagerGetStartUnknownKey(t *testing.T) {
	m := NewSectorManager(0)
	_, ok := m.GetStart("nope", "nope")
	assert.False(t, ok)
}

func TestSectorManagerMustGetStartPanicsOnMiss(t *testing.T) {
	m := NewSectorManager(0)
	assert.Panics(t, func() {
		m.MustGetStart("nope", "nope")
	})
}

func TestSectorManagerTotalSectorsRelativeToBase(t *testing.T) {
	m := NewSectorManager(16)
	m.AllocateSectors("a", "x", 5)
	m.AllocateSectors("b", "x", 2)
	assert.Equal(t, uint32(7), m.TotalSectors())
}

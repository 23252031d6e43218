package isoimage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectorOutStreamWriteTracksBytes(t *testing.T) {
	var buf bytes.Buffer
	s := NewSectorOutStream(&buf, 2048)

	n, err := s.Write(make([]byte, 100))
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, uint64(100), s.GetAllocated())
	assert.Equal(t, uint64(0), s.GetSector())
	assert.Equal(t, uint64(1948), s.GetRemaining())
}

func TestSectorOutStreamGetSectorAdvances(t *testing.T) {
	var buf bytes.Buffer
	s := NewSectorOutStream(&buf, 2048)
	_, err := s.Write(make([]byte, 2048+10))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.GetSector())
	assert.Equal(t, uint64(2038), s.GetRemaining())
	assert.Equal(t, uint64(10), s.GetAllocated())
}

func TestSectorOutStreamGetAllocatedIsCurrentSectorOnly(t *testing.T) {
	var buf bytes.Buffer
	s := NewSectorOutStream(&buf, 2048)
	_, err := s.Write(make([]byte, 2048))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), s.GetAllocated(), "exactly one full sector written, current sector is empty")

	_, err = s.Write(make([]byte, 5))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s.GetAllocated())
}

func TestSectorOutStreamPadSectorAligns(t *testing.T) {
	var buf bytes.Buffer
	s := NewSectorOutStream(&buf, 2048)
	_, err := s.Write(make([]byte, 10))
	require.NoError(t, err)

	require.NoError(t, s.PadSector())
	assert.Equal(t, uint64(0), s.GetRemaining())
	assert.Equal(t, 2048, buf.Len())
}

func TestSectorOutStreamPadSectorNoopWhenAligned(t *testing.T) {
	var buf bytes.Buffer
	s := NewSectorOutStream(&buf, 2048)
	_, err := s.Write(make([]byte, 2048))
	require.NoError(t, err)

	require.NoError(t, s.PadSector())
	assert.Equal(t, 2048, buf.Len())
}

func TestSectorOutStreamPadToSectors(t *testing.T) {
	var buf bytes.Buffer
	s := NewSectorOutStream(&buf, 2048)
	_, err := s.Write(make([]byte, 2048))
	require.NoError(t, err)

	require.NoError(t, s.PadToSectors(4))
	assert.Equal(t, uint64(4), s.GetSector())
	assert.Equal(t, 4*2048, buf.Len())
}

func TestSectorOutStreamPadToSectorsPastTargetErrors(t *testing.T) {
	var buf bytes.Buffer
	s := NewSectorOutStream(&buf, 2048)
	_, err := s.Write(make([]byte, 2048*5))
	require.NoError(t, err)

	err = s.PadToSectors(2)
	assert.Error(t, err)
}

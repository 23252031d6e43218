package isoimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDVDVideoPadSectorsIgnoresOtherModes(t *testing.T) {
	assert.Equal(t, uint32(0), dvdVideoPadSectors(ModeISO9660, "MOVIE.VOB", 5))
}

func TestDVDVideoPadSectorsIgnoresNonVOB(t *testing.T) {
	assert.Equal(t, uint32(0), dvdVideoPadSectors(ModeDVDVideo, "MOVIE.IFO", 5))
}

func TestDVDVideoPadSectorsAlreadyAligned(t *testing.T) {
	assert.Equal(t, uint32(0), dvdVideoPadSectors(ModeDVDVideo, "VTS_01_1.VOB", 32))
}

func TestDVDVideoPadSectorsPadsToBoundary(t *testing.T) {
	assert.Equal(t, uint32(11), dvdVideoPadSectors(ModeDVDVideo, "VTS_01_1.VOB", 5))
	assert.Equal(t, uint32(1), dvdVideoPadSectors(ModeDVDVideo, "vts_01_1.vob", 15))
}

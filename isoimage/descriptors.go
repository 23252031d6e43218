package isoimage

import (
	"bytes"
	"encoding/binary"
	"time"
)

// volumeDescriptorHeader is the 7-byte common header shared by every
// ECMA-119 volume descriptor (8.1).
type volumeDescriptorHeader struct {
	Type               byte
	StandardIdentifier [5]byte
	Version            byte
}

func (h *volumeDescriptorHeader) marshalBinary() []byte {
	buf := make([]byte, 7)
	buf[0] = h.Type
	copy(buf[1:6], h.StandardIdentifier[:])
	buf[6] = h.Version
	return buf
}

func cd001Header(vdType byte) []byte {
	h := volumeDescriptorHeader{Type: vdType, StandardIdentifier: [5]byte{'C', 'D', '0', '0', '1'}, Version: 1}
	return h.marshalBinary()
}

// primaryVolumeDescriptor renders the PVD sector. rootExtentSize is the
// root directory's own extent byte length in the ISO 9660 view.
func (w *Writer) primaryVolumeDescriptor(rootExtentSize uint32) []byte {
	o := w.opts
	sector := make([]byte, SectorSize)
	copy(sector[0:7], cd001Header(vdTypePrimary))

	body := new(bytes.Buffer)
	body.WriteByte(0) // unused
	body.Write(padString(o.SystemIdentifier, 32))
	body.Write(padString(o.VolumeIdentifierISO, 32))
	body.Write(make([]byte, 8)) // unused

	binary.Write(body, binary.LittleEndian, w.totalSectors)
	binary.Write(body, binary.BigEndian, w.totalSectors)

	body.Write(make([]byte, 32)) // reserved for escape sequences (none, basic PVD)

	binary.Write(body, binary.LittleEndian, uint16(1)) // volume set size
	binary.Write(body, binary.BigEndian, uint16(1))
	binary.Write(body, binary.LittleEndian, uint16(1)) // volume sequence number
	binary.Write(body, binary.BigEndian, uint16(1))
	binary.Write(body, binary.LittleEndian, uint16(SectorSize))
	binary.Write(body, binary.BigEndian, uint16(SectorSize))

	pathTableLen := uint32(pathTableTotalBytes(w.isoDirs, NamespaceISO9660))
	binary.Write(body, binary.LittleEndian, pathTableLen)
	binary.Write(body, binary.BigEndian, pathTableLen)

	binary.Write(body, binary.LittleEndian, w.sm.MustGetStart(ownerPVD, kindPathTableL))
	binary.Write(body, binary.LittleEndian, w.sm.MustGetStart(ownerPVD, kindPathTableL2))
	binary.Write(body, binary.BigEndian, w.sm.MustGetStart(ownerPVD, kindPathTableM))
	binary.Write(body, binary.BigEndian, w.sm.MustGetStart(ownerPVD, kindPathTableM2))

	rootDR := marshalDirectoryRecord(buildRecordFields(recordSource{
		name:     "\x00",
		location: w.root.DataPosNormal,
		length:   rootExtentSize,
		flags:    fileFlagDirectory,
		when:     w.createdAt,
	}, 1), drIdentifier(".", NamespaceISO9660))
	body.Write(rootDR)

	body.Write(padString("", 128)) // volume set identifier
	body.Write(padString(o.PublisherIdentifierISO, 128))
	body.Write(padString(o.DataPreparerIdentifierISO, 128))
	body.Write(padString(o.ApplicationIdentifierISO, 128))
	body.Write(padString("", 37)) // copyright
	body.Write(padString("", 37)) // abstract
	body.Write(padString("", 37)) // bibliographic

	body.Write(formatTimestamp(w.createdAt))
	body.Write(formatTimestamp(w.createdAt))
	body.Write(formatTimestamp(time.Time{}))
	body.Write(formatTimestamp(w.createdAt))
	body.WriteByte(1) // file structure version

	copy(sector[7:], body.Bytes())
	return sector
}

// jolietVolumeDescriptor renders the SVD sector for the Joliet tree view.
func (w *Writer) jolietVolumeDescriptor(rootExtentSize uint32) []byte {
	o := w.opts
	sector := make([]byte, SectorSize)
	copy(sector[0:7], cd001Header(vdTypeSupplementary))

	body := new(bytes.Buffer)
	body.WriteByte(0) // volume flags
	body.Write(padString(o.SystemIdentifier, 32))
	body.Write(padUTF16BE(o.VolumeIdentifierJoliet, 16))
	body.Write(make([]byte, 8))

	binary.Write(body, binary.LittleEndian, w.totalSectors)
	binary.Write(body, binary.BigEndian, w.totalSectors)

	esc := make([]byte, 32)
	copy(esc, o.JolietEscapeSequence[:])
	body.Write(esc)

	binary.Write(body, binary.LittleEndian, uint16(1))
	binary.Write(body, binary.BigEndian, uint16(1))
	binary.Write(body, binary.LittleEndian, uint16(1))
	binary.Write(body, binary.BigEndian, uint16(1))
	binary.Write(body, binary.LittleEndian, uint16(SectorSize))
	binary.Write(body, binary.BigEndian, uint16(SectorSize))

	pathTableLen := uint32(pathTableTotalBytes(w.jolietDirs, NamespaceJoliet))
	binary.Write(body, binary.LittleEndian, pathTableLen)
	binary.Write(body, binary.BigEndian, pathTableLen)

	binary.Write(body, binary.LittleEndian, w.sm.MustGetStart(ownerSVD, kindPathTableL))
	binary.Write(body, binary.LittleEndian, w.sm.MustGetStart(ownerSVD, kindPathTableL2))
	binary.Write(body, binary.BigEndian, w.sm.MustGetStart(ownerSVD, kindPathTableM))
	binary.Write(body, binary.BigEndian, w.sm.MustGetStart(ownerSVD, kindPathTableM2))

	rootDR := marshalDirectoryRecord(buildRecordFields(recordSource{
		name:     "\x00",
		location: w.root.DataPosJoliet,
		length:   rootExtentSize,
		flags:    fileFlagDirectory,
		when:     w.createdAt,
	}, 1), drIdentifier(".", NamespaceJoliet))
	body.Write(rootDR)

	body.Write(padUTF16BE("", 64))
	body.Write(padUTF16BE(o.PublisherIdentifierJoliet, 64))
	body.Write(padUTF16BE(o.DataPreparerIdentifierJoliet, 64))
	body.Write(padUTF16BE(o.ApplicationIdentifierJoliet, 64))
	body.Write(padUTF16BE("", 18))
	body.Write(make([]byte, 1))
	body.Write(padUTF16BE("", 18))
	body.Write(make([]byte, 1))
	body.Write(padUTF16BE("", 18))
	body.Write(make([]byte, 1))

	body.Write(formatTimestamp(w.createdAt))
	body.Write(formatTimestamp(w.createdAt))
	body.Write(formatTimestamp(time.Time{}))
	body.Write(formatTimestamp(w.createdAt))
	body.WriteByte(1)

	copy(sector[7:], body.Bytes())
	return sector
}

// volumeDescriptorSetTerminator renders the VD Set Terminator sector
// (ECMA-119 8.3).
func volumeDescriptorSetTerminator() []byte {
	sector := make([]byte, SectorSize)
	copy(sector[0:7], cd001Header(vdTypeTerminator))
	return sector
}

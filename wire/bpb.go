package wire

import (
	"encoding/binary"

	"github.com/nullradix/fd1440/ferr"
)

// BPB holds the fields recognized from bytes 11..36 of the boot sector (spec
// §3), plus the layout values derived from them. It deliberately tracks only
// FAT12's fields — no FAT16/32 branches — per the Non-goal restricting this
// core to 1.44 MB HD media.
type BPB struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntries       uint16
	TotalSectors      uint16
	MediaDescriptor   uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32

	// Derived (spec §3).
	FATStart      uint32
	RootStart     uint32
	RootSectors   uint32
	DataStart     uint32
	TotalClusters uint32
}

// ParseBPB reads a 512-byte boot sector and validates/derives a BPB. It
// rejects the medium exactly the way spec §4.4's init() does: a missing boot
// signature, or any field failing its stated bound.
func ParseBPB(bootSector []byte) (*BPB, ferr.DriverError) {
	if len(bootSector) < SectorSize {
		return nil, ferr.Invalid.WithMessage("boot sector shorter than 512 bytes")
	}
	if bootSector[510] != 0x55 || bootSector[511] != 0xAA {
		return nil, ferr.Invalid.WithMessage("missing boot sector signature 55 AA")
	}

	b := &BPB{
		BytesPerSector:    binary.LittleEndian.Uint16(bootSector[11:13]),
		SectorsPerCluster: bootSector[13],
		ReservedSectors:   binary.LittleEndian.Uint16(bootSector[14:16]),
		NumFATs:           bootSector[16],
		RootEntries:       binary.LittleEndian.Uint16(bootSector[17:19]),
		TotalSectors:      binary.LittleEndian.Uint16(bootSector[19:21]),
		MediaDescriptor:   bootSector[21],
		SectorsPerFAT:     binary.LittleEndian.Uint16(bootSector[22:24]),
		SectorsPerTrack:   binary.LittleEndian.Uint16(bootSector[24:26]),
		NumHeads:          binary.LittleEndian.Uint16(bootSector[26:28]),
		HiddenSectors:     binary.LittleEndian.Uint32(bootSector[28:32]),
	}

	if b.BytesPerSector != SectorSize {
		return nil, ferr.Invalid.WithMessage("bytes_per_sector must be 512")
	}
	if b.SectorsPerCluster == 0 || b.SectorsPerCluster > 64 {
		return nil, ferr.Invalid.WithMessage("sectors_per_cluster out of range 1..64")
	}
	if b.NumFATs == 0 {
		return nil, ferr.Invalid.WithMessage("num_fats must be >= 1")
	}
	if b.SectorsPerTrack == 0 {
		return nil, ferr.Invalid.WithMessage("sectors_per_track must be > 0")
	}
	if b.NumHeads == 0 {
		return nil, ferr.Invalid.WithMessage("num_heads must be > 0")
	}

	b.FATStart = uint32(b.ReservedSectors)
	b.RootStart = b.FATStart + uint32(b.NumFATs)*uint32(b.SectorsPerFAT)
	b.RootSectors = (uint32(b.RootEntries)*32 + SectorSize - 1) / SectorSize
	b.DataStart = b.RootStart + b.RootSectors
	if uint32(b.TotalSectors) > b.DataStart {
		b.TotalClusters = (uint32(b.TotalSectors) - b.DataStart) / uint32(b.SectorsPerCluster)
	}

	return b, nil
}

// Encode writes the BPB fields (bytes 11..36) into dst, which must be at
// least 36 bytes long. It does not touch the jump bytes, OEM name, or
// anything past byte 36 — callers assemble the rest of the boot sector
// themselves (see fat12/format.go).
func (b *BPB) Encode(dst []byte) {
	binary.LittleEndian.PutUint16(dst[11:13], b.BytesPerSector)
	dst[13] = b.SectorsPerCluster
	binary.LittleEndian.PutUint16(dst[14:16], b.ReservedSectors)
	dst[16] = b.NumFATs
	binary.LittleEndian.PutUint16(dst[17:19], b.RootEntries)
	binary.LittleEndian.PutUint16(dst[19:21], b.TotalSectors)
	dst[21] = b.MediaDescriptor
	binary.LittleEndian.PutUint16(dst[22:24], b.SectorsPerFAT)
	binary.LittleEndian.PutUint16(dst[24:26], b.SectorsPerTrack)
	binary.LittleEndian.PutUint16(dst[26:28], b.NumHeads)
	binary.LittleEndian.PutUint32(dst[28:32], b.HiddenSectors)
}

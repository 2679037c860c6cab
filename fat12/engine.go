// Package fat12 implements the FAT12 filesystem engine: BPB parsing, FAT
// entry access, root-directory iteration, cluster-chain reading and
// writing, write batching, and formatting (spec §4.4). It is generalized
// from the teacher's file_systems/fat package (RawFATBootSectorWithBPB
// parsing, FATDriverCommon's cluster-chain vocabulary) down to exactly the
// FAT12/1.44 MB-HD case this core supports — no FAT16/32 branches, no
// subdirectories, no timestamps.
package fat12

import (
	"github.com/boljen/go-bitmap"
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/ports"
	"github.com/nullradix/fd1440/wire"
)

// EOC values and reserved-entry thresholds (spec §3).
const (
	fatFree       = 0x000
	fatReserved   = 0x001
	fatBadCluster = 0xFF7
	fatEOCMin     = 0xFF8 // treat anything >= this as end-of-chain
	fatEOC        = 0xFFF // terminator value written for a chain's last cluster
)

// Engine is the mounted FAT12 filesystem: the parsed BPB plus a free-cluster
// bitmap accelerating allocation search (adapted from the teacher's
// drivers/common.Allocator, generalized from whole-disk blocks to FAT
// clusters). It talks to the medium exclusively through a ports.SectorIO.
type Engine struct {
	IO  ports.SectorIO
	BPB *wire.BPB

	// freeMap mirrors the FAT's free/used state for clusters 2..total+2, bit
	// index i standing for cluster i+2. It's a cache, not a source of truth:
	// rebuilt from the FAT at Init and kept in sync by allocate/free.
	freeMap      bitmap.Bitmap
	nextFreeHint int
}

// Init reads LBA 0, validates and parses the BPB, and rebuilds the
// free-cluster bitmap, per spec §4.4's init().
func Init(io ports.SectorIO) (*Engine, ferr.DriverError) {
	sec := wire.Sector{Track: 0, Side: 0, SectorN: 1}
	if !io.Read(&sec) {
		return nil, ferr.IoError.WithMessage("failed to read boot sector")
	}

	bpb, err := wire.ParseBPB(sec.Data[:])
	if err != nil {
		return nil, err
	}

	e := &Engine{IO: io, BPB: bpb}
	e.rebuildFreeMap()
	return e, nil
}

func (e *Engine) rebuildFreeMap() {
	total := int(e.BPB.TotalClusters)
	e.freeMap = bitmap.New(total)
	for c := 2; c < total+2; c++ {
		entry, err := e.getEntryRaw(c)
		if err == nil && entry != fatFree {
			e.freeMap.Set(c-2, true)
		}
	}
	e.nextFreeHint = 0
}

// LBAToCHS converts a logical block address to (cylinder, head, sector_n),
// per spec §4.4.
func (e *Engine) LBAToCHS(lba uint32) (track, side, sectorN int) {
	spt := uint32(e.BPB.SectorsPerTrack)
	heads := uint32(e.BPB.NumHeads)
	track = int(lba / (heads * spt))
	side = int((lba / spt) % heads)
	sectorN = int(lba%spt) + 1
	return track, side, sectorN
}

// ClusterToLBA converts a cluster number to its first LBA, per spec §4.4.
func (e *Engine) ClusterToLBA(cluster int) uint32 {
	return e.BPB.DataStart + uint32(cluster-2)*uint32(e.BPB.SectorsPerCluster)
}

// readSector reads one LBA through the I/O port into a fresh Sector.
func (e *Engine) readSector(lba uint32) (*wire.Sector, ferr.DriverError) {
	track, side, sectorN := e.LBAToCHS(lba)
	sec := &wire.Sector{Track: track, Side: side, SectorN: sectorN, SizeCode: 2}
	if !e.IO.Read(sec) {
		return nil, ferr.IoError.WithMessage("sector read failed")
	}
	return sec, nil
}

// IsEndOfChain reports whether a FAT entry value terminates a cluster chain.
func IsEndOfChain(entry int) bool {
	return entry >= fatEOCMin
}

// IsValidCluster reports whether cluster lies in the addressable data-cluster
// range (spec §3: cluster numbers < 2 are never valid).
func (e *Engine) IsValidCluster(cluster int) bool {
	return cluster >= 2 && cluster < int(e.BPB.TotalClusters)+2
}

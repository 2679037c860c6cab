// Package vdisk implements the virtual-disk collaborator from spec §4.7: an
// in-memory 2880×512-byte array exposed as a ports.SectorIO, useful for
// tests and for any caller that wants to skip the MFM codec entirely and
// feed the FAT12 engine directly. It's grounded on the teacher's
// testing.LoadDiskImage, which wraps a flat []byte as an io.ReadWriteSeeker
// via xaionaro-go/bytesextra so the rest of the code can treat it like any
// other stream.
package vdisk

import (
	"io"

	"github.com/nullradix/fd1440/geometry"
	"github.com/nullradix/fd1440/wire"
	"github.com/xaionaro-go/bytesextra"
)

// TotalSize is the byte size of a standard 1.44 MB HD floppy image, read
// from the same geometry table Format builds its BPB from.
var TotalSize = int(geometry.Standard().TotalSizeBytes())

// Disk is an in-memory sector-oriented medium (spec §4.7's "virtual disk
// collaborator"). The zero value is not usable; construct with New or
// FromImage.
type Disk struct {
	raw    []byte
	stream io.ReadWriteSeeker

	writeProtected bool
	changedLatch   bool
}

// New returns a blank (all-zero) 1.44 MB disk.
func New() *Disk {
	return FromImage(make([]byte, TotalSize))
}

// FromImage wraps an existing image buffer, which must be exactly TotalSize
// bytes long. The Disk shares the backing array, so callers can inspect it
// through their own reference as the Disk mutates it.
func FromImage(data []byte) *Disk {
	return &Disk{raw: data, stream: bytesextra.NewReadWriteSeeker(data)}
}

// Bytes returns the disk's backing image, for tests that want to inspect or
// snapshot it directly.
func (d *Disk) Bytes() []byte { return d.raw }

func lba(track, side, sectorN int) int64 {
	return int64(track)*wire.NumHeads*wire.SectorsPerTrack +
		int64(side)*wire.SectorsPerTrack +
		int64(sectorN-1)
}

// Read implements ports.SectorIO.
func (d *Disk) Read(sector *wire.Sector) bool {
	offset := lba(sector.Track, sector.Side, sector.SectorN) * wire.SectorSize
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return false
	}
	if _, err := io.ReadFull(d.stream, sector.Data[:]); err != nil {
		return false
	}
	sector.Valid = true
	return true
}

// Write implements ports.SectorIO. Invalid slots in track are skipped: since
// this medium already holds the authoritative full image, a read-modify-
// write isn't needed for slots the caller chose not to supply.
func (d *Disk) Write(track *wire.Track) bool {
	if d.writeProtected {
		return false
	}
	for i := range track.Sectors {
		sec := &track.Sectors[i]
		if !sec.Valid {
			continue
		}
		offset := lba(track.TrackNum, track.Side, sec.SectorN) * wire.SectorSize
		if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
			return false
		}
		if _, err := d.stream.Write(sec.Data[:]); err != nil {
			return false
		}
	}
	return true
}

// DiskChanged implements ports.SectorIO: edge-triggered, reading it clears
// the latch.
func (d *Disk) DiskChanged() bool {
	latch := d.changedLatch
	d.changedLatch = false
	return latch
}

// WriteProtected implements ports.SectorIO: level-triggered.
func (d *Disk) WriteProtected() bool { return d.writeProtected }

// SetWriteProtected simulates flipping the physical write-protect notch.
func (d *Disk) SetWriteProtected(protected bool) { d.writeProtected = protected }

// SimulateMediaChange latches DiskChanged to report true on its next read,
// simulating the drive door having been opened and a new disk inserted.
func (d *Disk) SimulateMediaChange() { d.changedLatch = true }

package fat12

import (
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/wire"
)

// BatchCapacity is the minimum write-batch capacity required by spec §3:
// two tracks' worth of sectors.
const BatchCapacity = 2 * wire.SectorsPerTrack

type batchEntry struct {
	LBA  uint32
	Data [wire.SectorSize]byte
}

// WriteBatch is the bounded collection of pending (LBA, 512 bytes) writes
// described in spec §3/§4.4: when two entries target the same LBA, the
// later one wins, and flushing groups entries by (track, side) to rewrite
// whole tracks at a time.
type WriteBatch struct {
	engine   *Engine
	entries  []batchEntry
	capacity int
}

// NewWriteBatch returns an empty batch bound to engine, with the given
// capacity (spec §3: capacity >= 36 sectors).
func NewWriteBatch(engine *Engine, capacity int) *WriteBatch {
	return &WriteBatch{engine: engine, capacity: capacity}
}

// Add enqueues a copy of data for lba. If lba is already pending, the new
// data replaces it (later write wins); otherwise it's appended, failing with
// Full once capacity is reached.
func (b *WriteBatch) Add(lba uint32, data []byte) ferr.DriverError {
	for i := range b.entries {
		if b.entries[i].LBA == lba {
			copy(b.entries[i].Data[:], data)
			return nil
		}
	}
	if len(b.entries) >= b.capacity {
		return ferr.Full.WithMessage("write batch is full")
	}
	var e batchEntry
	e.LBA = lba
	copy(e.Data[:], data)
	b.entries = append(b.entries, e)
	return nil
}

// Peek returns the pending data for lba, if any, without removing it.
func (b *WriteBatch) Peek(lba uint32) ([]byte, bool) {
	for i := range b.entries {
		if b.entries[i].LBA == lba {
			return b.entries[i].Data[:], true
		}
	}
	return nil, false
}

// Len reports the number of pending entries.
func (b *WriteBatch) Len() int { return len(b.entries) }

// Flush drains the batch (spec §4.4's WriteBatch.flush): repeatedly picks the
// first remaining entry, determines its (track, side), assembles a track
// frame with every matching batch entry filled in and everything else marked
// invalid (signalling the I/O port to read-modify-write, spec §6), writes it,
// and compacts the batch down to the entries belonging to other tracks.
func (b *WriteBatch) Flush() ferr.DriverError {
	for len(b.entries) > 0 {
		track, side, _ := b.engine.LBAToCHS(b.entries[0].LBA)
		frame := wire.NewTrack(track, side)

		remaining := b.entries[:0:0]
		for _, e := range b.entries {
			eTrack, eSide, eSectorN := b.engine.LBAToCHS(e.LBA)
			if eTrack == track && eSide == side {
				slot := &frame.Sectors[eSectorN-1]
				slot.Data = e.Data
				slot.Valid = true
			} else {
				remaining = append(remaining, e)
			}
		}
		b.entries = remaining

		if !b.engine.IO.Write(frame) {
			return ferr.Write.WithMessage("track write failed")
		}
	}
	return nil
}

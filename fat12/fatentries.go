package fat12

import (
	"github.com/nullradix/fd1440/ferr"
)

// fatByteLBA returns the LBA and within-sector byte offset of FAT byte
// fatOffset (0-based, within a single FAT copy), for FAT copy fatIndex.
func (e *Engine) fatByteLBA(fatIndex int, fatOffset uint32) (lba uint32, offset uint32) {
	sectorsPerFAT := uint32(e.BPB.SectorsPerFAT)
	fatStart := e.BPB.FATStart + uint32(fatIndex)*sectorsPerFAT
	lba = fatStart + fatOffset/512
	offset = fatOffset % 512
	return lba, offset
}

// readFATByte reads one byte of FAT copy fatIndex at fatOffset.
func (e *Engine) readFATByte(fatIndex int, fatOffset uint32) (byte, ferr.DriverError) {
	lba, off := e.fatByteLBA(fatIndex, fatOffset)
	sec, err := e.readSector(lba)
	if err != nil {
		return 0, err
	}
	return sec.Data[off], nil
}

// getEntryRaw returns the raw 12-bit FAT value for cluster, reading the
// first FAT copy only and without range validation. Used at mount time to
// rebuild the free-cluster bitmap.
func (e *Engine) getEntryRaw(cluster int) (int, ferr.DriverError) {
	fatOffset := uint32(cluster) + uint32(cluster)/2 // floor(1.5*cluster)
	lo, err := e.readFATByte(0, fatOffset)
	if err != nil {
		return 0, err
	}
	hi, err := e.readFATByte(0, fatOffset+1)
	if err != nil {
		return 0, err
	}

	word := uint16(lo) | uint16(hi)<<8
	if cluster%2 == 0 {
		return int(word & 0x0FFF), nil
	}
	return int(word >> 4), nil
}

// GetEntryFromCopy returns the 12-bit FAT value for cluster read from one
// specific FAT copy, rather than always copy 0. fsck uses this to compare
// every mirror against the first for agreement.
func (e *Engine) GetEntryFromCopy(fatIndex, cluster int) (int, ferr.DriverError) {
	fatOffset := uint32(cluster) + uint32(cluster)/2
	lo, err := e.readFATByte(fatIndex, fatOffset)
	if err != nil {
		return 0, err
	}
	hi, err := e.readFATByte(fatIndex, fatOffset+1)
	if err != nil {
		return 0, err
	}

	word := uint16(lo) | uint16(hi)<<8
	if cluster%2 == 0 {
		return int(word & 0x0FFF), nil
	}
	return int(word >> 4), nil
}

// GetEntry returns the 12-bit FAT value for cluster (spec §4.4's
// get_entry). The entry may straddle a sector boundary; readFATByte
// transparently reads the following sector for the high byte.
func (e *Engine) GetEntry(cluster int) (int, ferr.DriverError) {
	if !e.IsValidCluster(cluster) && !IsEndOfChain(cluster) {
		return 0, ferr.Invalid.WithMessage("cluster out of range")
	}
	return e.getEntryRaw(cluster)
}

// SetEntry performs the mirror-image update described in spec §4.4's
// set_entry: it reads the affected FAT sector (preferring any pending write
// already queued in batch), rewrites the 12 bits while masking the adjacent
// nibble, and enqueues the modified sector into batch for every FAT copy.
// Straddling entries enqueue two sectors per copy.
func (e *Engine) SetEntry(batch *WriteBatch, cluster int, value int) ferr.DriverError {
	fatOffset := uint32(cluster) + uint32(cluster)/2

	for fatIndex := 0; fatIndex < int(e.BPB.NumFATs); fatIndex++ {
		loLBA, loOff := e.fatByteLBA(fatIndex, fatOffset)
		hiLBA, hiOff := e.fatByteLBA(fatIndex, fatOffset+1)

		loSec, err := e.loadSectorPreferringBatch(batch, loLBA)
		if err != nil {
			return err
		}
		var hiSec []byte
		if hiLBA == loLBA {
			hiSec = loSec
		} else {
			hiSec, err = e.loadSectorPreferringBatch(batch, hiLBA)
			if err != nil {
				return err
			}
		}

		word := uint16(loSec[loOff]) | uint16(hiSec[hiOff])<<8
		if cluster%2 == 0 {
			word = (word & 0xF000) | uint16(value&0x0FFF)
		} else {
			word = (word & 0x000F) | uint16((value&0x0FFF)<<4)
		}
		loSec[loOff] = byte(word)
		hiSec[hiOff] = byte(word >> 8)

		if err := batch.Add(loLBA, loSec); err != nil {
			return err
		}
		if hiLBA != loLBA {
			if err := batch.Add(hiLBA, hiSec); err != nil {
				return err
			}
		}
	}

	if e.IsValidCluster(cluster) {
		e.freeMap.Set(cluster-2, value != fatFree)
	}
	return nil
}

// loadSectorPreferringBatch returns a mutable copy of the sector at lba,
// preferring a pending (not yet flushed) write already queued in batch over
// the medium's live content.
func (e *Engine) loadSectorPreferringBatch(batch *WriteBatch, lba uint32) ([]byte, ferr.DriverError) {
	if data, ok := batch.Peek(lba); ok {
		cp := make([]byte, 512)
		copy(cp, data)
		return cp, nil
	}
	sec, err := e.readSector(lba)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, 512)
	copy(cp, sec.Data[:])
	return cp, nil
}

// AllocateCluster finds a free cluster via the free-cluster bitmap starting
// from nextFreeHint, the way the writer's next_free_hint search is described
// in spec §4.4. It does not mark the FAT entry itself — callers must
// SetEntry the terminator value once they know it.
func (e *Engine) AllocateCluster() (int, ferr.DriverError) {
	total := int(e.BPB.TotalClusters)
	for i := 0; i < total; i++ {
		idx := (e.nextFreeHint + i) % total
		if !e.freeMap.Get(idx) {
			e.nextFreeHint = (idx + 1) % total
			return idx + 2, nil
		}
	}
	return 0, ferr.Full.WithMessage("no free clusters")
}

package fat12

import (
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/wire"
)

// direntsPerSector is fixed by the on-disk layout: 512 / 32.
const direntsPerSector = wire.SectorSize / wire.DirentSize

// rootEntryLocation returns the LBA and in-sector byte offset of root
// directory entry i.
func (e *Engine) rootEntryLocation(i int) (lba uint32, offset int) {
	lba = e.BPB.RootStart + uint32(i/direntsPerSector)
	offset = (i % direntsPerSector) * wire.DirentSize
	return lba, offset
}

// ReadRootEntry reads directory entry i directly (spec §4.4's
// read_root_entry).
func (e *Engine) ReadRootEntry(i int) (wire.Dirent, ferr.DriverError) {
	lba, offset := e.rootEntryLocation(i)
	sec, err := e.readSector(lba)
	if err != nil {
		return wire.Dirent{}, err
	}
	return wire.DecodeDirent(sec.Data[offset : offset+wire.DirentSize]), nil
}

// WriteRootEntry enqueues the encoded dirent at index i into batch, merging
// with whatever else already occupies that sector (spec §4.4's writer/
// delete operations, which each rewrite a single dirent at a time).
func (e *Engine) WriteRootEntry(batch *WriteBatch, i int, dirent wire.Dirent) ferr.DriverError {
	lba, offset := e.rootEntryLocation(i)

	sector, err := e.loadSectorPreferringBatch(batch, lba)
	if err != nil {
		return err
	}
	dirent.Encode(sector[offset : offset+wire.DirentSize])
	return batch.Add(lba, sector)
}

// RootEntryCount is the number of directory-entry slots in the root
// directory (spec §3: 224 for a standard 1.44 MB layout).
func (e *Engine) RootEntryCount() int {
	return int(e.BPB.RootEntries)
}

// FindFreeDirent scans the root directory linearly, returning the index of
// the first free (0x00 or 0xE5 marked) slot (spec §4.4's find_free_dirent).
func (e *Engine) FindFreeDirent() (int, ferr.DriverError) {
	for i := 0; i < e.RootEntryCount(); i++ {
		d, err := e.ReadRootEntry(i)
		if err != nil {
			return 0, err
		}
		if d.IsFree() {
			return i, nil
		}
	}
	return 0, ferr.Full.WithMessage("root directory is full")
}

// Find uppercases and 8.3-normalizes name, then linearly scans the root
// directory, skipping long-filename and deleted entries, until it finds a
// matching name/extension pair (spec §4.4's find). It returns NotFound on
// the end-of-directory terminator or on exhausting the directory.
func (e *Engine) Find(name string) (wire.Dirent, int, ferr.DriverError) {
	wantName, wantExt := wire.Normalize83(name)

	for i := 0; i < e.RootEntryCount(); i++ {
		d, err := e.ReadRootEntry(i)
		if err != nil {
			return wire.Dirent{}, 0, err
		}
		if d.IsEndOfDirectory() {
			return wire.Dirent{}, 0, ferr.NotFound.WithMessage("end of directory")
		}
		if d.IsFree() || d.IsLongNameSlot() {
			continue
		}
		if d.Name == wantName && d.Ext == wantExt {
			return d, i, nil
		}
	}
	return wire.Dirent{}, 0, ferr.NotFound.WithMessage("exhausted root directory")
}

// ListRootDirectory returns every live, non-volume-label, non-LFN directory
// entry with its root index, in scan order (spec §4.6's readdir/list).
func (e *Engine) ListRootDirectory() ([]wire.Dirent, []int, ferr.DriverError) {
	var dirents []wire.Dirent
	var indices []int

	for i := 0; i < e.RootEntryCount(); i++ {
		d, err := e.ReadRootEntry(i)
		if err != nil {
			return nil, nil, err
		}
		if d.IsEndOfDirectory() {
			break
		}
		if d.IsFree() || d.IsLongNameSlot() || d.Attr&wire.AttrVolumeID != 0 {
			continue
		}
		dirents = append(dirents, d)
		indices = append(indices, i)
	}
	return dirents, indices, nil
}

// Delete walks and frees name's cluster chain, marks its directory entry's
// first name byte as deleted, batches both changes, and flushes (spec
// §4.4's delete).
func (e *Engine) Delete(batch *WriteBatch, name string) ferr.DriverError {
	d, idx, err := e.Find(name)
	if err != nil {
		return err
	}
	if err := e.freeClusterChain(batch, int(d.StartCluster)); err != nil {
		return err
	}
	d.Name[0] = wire.FirstByteFree
	if err := e.WriteRootEntry(batch, idx, d); err != nil {
		return err
	}
	return batch.Flush()
}

// freeClusterChain walks a cluster chain starting at first and, for each
// cluster visited, enqueues a zero-value FAT entry into batch, per the
// "free by enqueuing zero writes" behavior spec §4.4 describes for
// open_write and delete.
func (e *Engine) freeClusterChain(batch *WriteBatch, first int) ferr.DriverError {
	limit := int(e.BPB.TotalClusters) + 2
	cluster := first
	for steps := 0; e.IsValidCluster(cluster); steps++ {
		if steps >= limit {
			return ferr.Invalid.WithMessage("cluster chain exceeds total_clusters+2; probable cycle")
		}
		next, err := e.GetEntry(cluster)
		if err != nil {
			return err
		}
		if err := e.SetEntry(batch, cluster, fatFree); err != nil {
			return err
		}
		if IsEndOfChain(next) {
			break
		}
		cluster = next
	}
	return nil
}

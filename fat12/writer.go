package fat12

import (
	"errors"

	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/wire"
)

// Writer is the append-only FAT12 cluster-chain writer (spec §3/§4.4): the
// cluster chain is built incrementally as data arrives, and the directory
// entry is rewritten with its final first_cluster/size only at Close.
type Writer struct {
	engine *Engine
	batch  *WriteBatch

	direntIndex int
	dirent      wire.Dirent

	firstCluster   int
	currentCluster int
	prevCluster    int
	bytesWritten   uint32

	clusterBuf    []byte
	clusterOffset int
}

// OpenWriter implements spec §4.4's open_write: it scans for an existing
// entry named name. If found, it frees the entire existing cluster chain
// (by enqueuing zero FAT writes into batch) and resets start_cluster=0,
// size=0 on the in-memory draft entry reused for the new content. If no
// entry by that name exists, it reuses the first free/deleted slot found by
// a directory scan (creating a fresh draft entry) rather than the exact slot
// index the name search stopped at — both land on the same first free slot
// in a directory with no holes, and the free-slot search here correctly
// claims a deleted slot that happens to precede the one find()'s reuse path
// would have stopped at, too.
func (e *Engine) OpenWriter(batch *WriteBatch, name string) (*Writer, ferr.DriverError) {
	existing, idx, err := e.Find(name)
	if err == nil {
		if err := e.freeClusterChain(batch, int(existing.StartCluster)); err != nil {
			return nil, err
		}
		existing.StartCluster = 0
		existing.Size = 0
		return &Writer{engine: e, batch: batch, direntIndex: idx, dirent: existing}, nil
	}
	if !errors.Is(err, ferr.NotFound) {
		return nil, err
	}

	idx, err = e.FindFreeDirent()
	if err != nil {
		return nil, err
	}
	nameField, extField := wire.Normalize83(name)
	dirent := wire.Dirent{Name: nameField, Ext: extField}
	return &Writer{engine: e, batch: batch, direntIndex: idx, dirent: dirent}, nil
}

// Write appends buf to the file, allocating new clusters from the
// free-cluster bitmap as needed (spec §4.4's write).
func (w *Writer) Write(buf []byte) (int, ferr.DriverError) {
	n := 0
	for n < len(buf) {
		if w.clusterBuf == nil {
			if err := w.allocateNextCluster(); err != nil {
				return n, err
			}
		}

		space := len(w.clusterBuf) - w.clusterOffset
		toCopy := minInt(len(buf)-n, space)
		copy(w.clusterBuf[w.clusterOffset:], buf[n:n+toCopy])
		w.clusterOffset += toCopy
		n += toCopy
		w.bytesWritten += uint32(toCopy)

		if w.clusterOffset == len(w.clusterBuf) {
			if err := w.flushCurrentCluster(); err != nil {
				return n, err
			}
			w.prevCluster = w.currentCluster
			w.clusterBuf = nil
		}
	}
	return n, nil
}

// allocateNextCluster grabs a free cluster, terminates it in the FAT,
// links the previous cluster to it if any, and starts a fresh in-memory
// cluster buffer for it (spec §4.4's write: "searches from next_free_hint
// for a free cluster; writes 0xFFF into that cluster's FAT slot...").
func (w *Writer) allocateNextCluster() ferr.DriverError {
	cluster, err := w.engine.AllocateCluster()
	if err != nil {
		return err
	}
	if err := w.engine.SetEntry(w.batch, cluster, fatEOC); err != nil {
		return err
	}
	if w.prevCluster != 0 {
		if err := w.engine.SetEntry(w.batch, w.prevCluster, cluster); err != nil {
			return err
		}
	}
	if w.firstCluster == 0 {
		w.firstCluster = cluster
	}
	w.currentCluster = cluster
	w.clusterBuf = make([]byte, w.engine.BytesPerCluster())
	w.clusterOffset = 0
	return nil
}

func (w *Writer) flushCurrentCluster() ferr.DriverError {
	lba := w.engine.ClusterToLBA(w.currentCluster)
	spc := int(w.engine.BPB.SectorsPerCluster)
	for s := 0; s < spc; s++ {
		if err := w.batch.Add(lba+uint32(s), w.clusterBuf[s*wire.SectorSize:(s+1)*wire.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes any partially filled final cluster, writes the final
// directory entry (carrying first_cluster and the total byte count), and
// flushes the batch (spec §4.4's close_write).
func (w *Writer) Close() ferr.DriverError {
	if w.clusterBuf != nil {
		if err := w.flushCurrentCluster(); err != nil {
			return err
		}
		w.clusterBuf = nil
	}

	w.dirent.StartCluster = uint16(w.firstCluster)
	w.dirent.Size = w.bytesWritten
	if err := w.engine.WriteRootEntry(w.batch, w.direntIndex, w.dirent); err != nil {
		return err
	}
	return w.batch.Flush()
}

// BytesWritten reports the writer's current position.
func (w *Writer) BytesWritten() uint32 { return w.bytesWritten }

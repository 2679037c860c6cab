package fat12

import (
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/wire"
)

// BytesPerCluster is the cluster size in bytes.
func (e *Engine) BytesPerCluster() int {
	return int(e.BPB.SectorsPerCluster) * wire.SectorSize
}

func (e *Engine) readCluster(cluster int) ([]byte, ferr.DriverError) {
	lba := e.ClusterToLBA(cluster)
	spc := int(e.BPB.SectorsPerCluster)
	buf := make([]byte, spc*wire.SectorSize)
	for s := 0; s < spc; s++ {
		sec, err := e.readSector(lba + uint32(s))
		if err != nil {
			return nil, err
		}
		copy(buf[s*wire.SectorSize:(s+1)*wire.SectorSize], sec.Data[:])
	}
	return buf, nil
}

// Reader walks a file's cluster chain lazily, one cluster at a time (spec
// §3/§4.4). It's created by OpenReader and driven by Read.
type Reader struct {
	engine         *Engine
	fileSize       uint32
	bytesRead      uint32
	currentCluster int

	clusterBuf    []byte
	clusterOffset int
}

// OpenReader opens dirent for reading. It fails with Invalid if dirent
// carries the directory attribute (spec §4.4's open).
func (e *Engine) OpenReader(dirent wire.Dirent) (*Reader, ferr.DriverError) {
	if dirent.Attr&wire.AttrDirectory != 0 {
		return nil, ferr.Invalid.WithMessage("cannot open a directory as a file")
	}
	return &Reader{
		engine:         e,
		fileSize:       dirent.Size,
		currentCluster: int(dirent.StartCluster),
	}, nil
}

// Read copies up to len(buf) bytes into buf, advancing the chain via
// GetEntry whenever the current cluster is exhausted. It stops when
// bytesRead reaches fileSize or the chain ends (spec §4.4's read), and
// returns Eof once every byte of the file has already been delivered.
func (r *Reader) Read(buf []byte) (int, ferr.DriverError) {
	if r.bytesRead >= r.fileSize {
		return 0, ferr.Eof.WithMessage("end of file")
	}

	n := 0
	for n < len(buf) && r.bytesRead < r.fileSize {
		if r.clusterBuf == nil {
			if !r.engine.IsValidCluster(r.currentCluster) {
				break
			}
			cb, err := r.engine.readCluster(r.currentCluster)
			if err != nil {
				return n, err
			}
			r.clusterBuf = cb
			r.clusterOffset = 0
		}

		available := len(r.clusterBuf) - r.clusterOffset
		remaining := int(r.fileSize - r.bytesRead)
		toCopy := minInt(len(buf)-n, minInt(available, remaining))

		copy(buf[n:n+toCopy], r.clusterBuf[r.clusterOffset:r.clusterOffset+toCopy])
		n += toCopy
		r.clusterOffset += toCopy
		r.bytesRead += uint32(toCopy)

		if r.clusterOffset >= len(r.clusterBuf) {
			next, err := r.engine.GetEntry(r.currentCluster)
			if err != nil {
				return n, err
			}
			r.clusterBuf = nil
			if IsEndOfChain(next) {
				r.currentCluster = 0
			} else {
				r.currentCluster = next
			}
		}
	}
	return n, nil
}

// BytesRead reports how many bytes have been delivered so far, the Reader's
// position within the file.
func (r *Reader) BytesRead() uint32 { return r.bytesRead }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

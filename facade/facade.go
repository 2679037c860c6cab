// Package facade implements the FileFacade from spec §4.6: a POSIX-like
// file/directory API layered over the FAT12 engine, with sector caching and
// media-change/write-protection gating. It generalizes the teacher's
// driver.DriverImplementation (mount/unmount lifecycle, gating before every
// operation) down to this core's single always-1.44MB-HD filesystem, and
// borrows its fixed-size open-file-table discipline from the same source.
package facade

import (
	"strings"

	"github.com/nullradix/fd1440/fat12"
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/ports"
	"github.com/nullradix/fd1440/wire"
)

// OpenFileTableSize bounds how many files can be open at once (spec §3's
// "fixed-size open-file table"); Open fails with TooMany once it's full.
const OpenFileTableSize = 16

// Mode selects how Open treats the path.
type Mode int

const (
	ModeClosed Mode = iota
	ModeRead
	ModeWrite
)

type openFile struct {
	mode        Mode
	path        string
	dirent      wire.Dirent
	direntIndex int
	position    uint32

	reader *fat12.Reader
	writer *fat12.Writer
	batch  *fat12.WriteBatch
}

// FileSystem is one mounted (or mountable) FAT12 volume: the BPB, the
// free-cluster map, the cache, and the open-file table all live here, and
// nowhere else (spec §5's "no shared mutable state between filesystem
// instances").
type FileSystem struct {
	rawIO  ports.SectorIO
	cached *cachedIO
	engine *fat12.Engine

	mounted bool
	files   [OpenFileTableSize]openFile
}

// New returns an unmounted FileSystem bound to io. Call Mount or Format
// before using it.
func New(io ports.SectorIO) *FileSystem {
	return &FileSystem{rawIO: io}
}

// Mount allocates the cache, installs it in front of the raw I/O port, and
// runs FAT12 init (spec §4.6's mount). It fails with the first error
// encountered.
func (fs *FileSystem) Mount() ferr.DriverError {
	cached := newCachedIO(fs.rawIO)
	engine, err := fat12.Init(cached)
	if err != nil {
		return err
	}
	fs.cached = cached
	fs.engine = engine
	fs.mounted = true
	return nil
}

// Unmount closes every open file, frees the cache, and clears mounted (spec
// §3's lifecycle description).
func (fs *FileSystem) Unmount() {
	for fd := range fs.files {
		if fs.files[fd].mode != ModeClosed {
			fs.Close(fd)
		}
	}
	fs.teardown()
}

// Format calls the FAT12 formatter on the raw, uncached I/O port — the
// formatter writes whole tracks and gains nothing from the cache — then
// clears the cache and re-mounts if the filesystem was already mounted
// (spec §4.6's format).
func (fs *FileSystem) Format(label string, full bool) ferr.DriverError {
	if err := fat12.Format(fs.rawIO, label, full); err != nil {
		return err
	}
	wasMounted := fs.mounted
	fs.teardown()
	if wasMounted {
		return fs.Mount()
	}
	return nil
}

// teardown clears the cache, invalidates every open-file slot, and sets
// mounted=false, the shared core of Unmount, a detected media change, and a
// re-format (spec §4.6's check_disk and §3's lifecycle).
func (fs *FileSystem) teardown() {
	for i := range fs.files {
		fs.files[i] = openFile{}
	}
	if fs.cached != nil {
		fs.cached.cache.Clear()
	}
	fs.cached = nil
	fs.engine = nil
	fs.mounted = false
}

// checkDisk is the gating check every public operation runs first (spec
// §4.6): NotMounted if the filesystem isn't mounted; on a detected media
// change it tears down and fails DiskChanged.
func (fs *FileSystem) checkDisk() ferr.DriverError {
	if !fs.mounted {
		return ferr.NotMounted.WithMessage("filesystem not mounted")
	}
	if fs.rawIO.DiskChanged() {
		fs.teardown()
		return ferr.DiskChanged.WithMessage("media change detected")
	}
	return nil
}

// checkWritable additionally fails WriteProtected when the drive reports it.
// Read-only operations never call this, so they never fail with
// WriteProtected (spec §4.6).
func (fs *FileSystem) checkWritable() ferr.DriverError {
	if err := fs.checkDisk(); err != nil {
		return err
	}
	if fs.rawIO.WriteProtected() {
		return ferr.WriteProtected.WithMessage("medium is write protected")
	}
	return nil
}

func trimPath(path string) string {
	return strings.TrimPrefix(path, "/")
}

func (fs *FileSystem) handle(fd int) (*openFile, ferr.DriverError) {
	if fd < 0 || fd >= len(fs.files) || fs.files[fd].mode == ModeClosed {
		return nil, ferr.BadHandle.WithMessage("invalid or closed file handle")
	}
	return &fs.files[fd], nil
}

// Stat is the {name, size, attr, is_dir} tuple spec §4.6's stat() populates.
type Stat struct {
	Name  string
	Size  uint32
	Attr  uint8
	IsDir bool
}

// Stat populates a Stat for path (spec §4.6).
func (fs *FileSystem) Stat(path string) (Stat, ferr.DriverError) {
	if err := fs.checkDisk(); err != nil {
		return Stat{}, err
	}
	d, _, err := fs.engine.Find(trimPath(path))
	if err != nil {
		return Stat{}, err
	}
	return Stat{
		Name:  d.DisplayName(),
		Size:  d.Size,
		Attr:  d.Attr,
		IsDir: d.Attr&wire.AttrDirectory != 0,
	}, nil
}

// Delete removes path (spec §4.6): gated for writability, forwards to the
// FAT12 engine.
func (fs *FileSystem) Delete(path string) ferr.DriverError {
	if err := fs.checkWritable(); err != nil {
		return err
	}
	batch := fat12.NewWriteBatch(fs.engine, fat12.BatchCapacity)
	return fs.engine.Delete(batch, trimPath(path))
}

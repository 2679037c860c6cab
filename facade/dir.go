package facade

import (
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/wire"
)

// DirIter is the directory-iteration handle returned by OpenDir (spec
// §4.6's opendir/readdir). The whole directory is snapshotted up front,
// matching ListRootDirectory's single linear scan.
type DirIter struct {
	entries []wire.Dirent
	pos     int
}

// OpenDir supports only the root ("/" or ""); anything else fails NotFound
// (spec §4.6).
func (fs *FileSystem) OpenDir(path string) (*DirIter, ferr.DriverError) {
	if err := fs.checkDisk(); err != nil {
		return nil, err
	}
	if trimPath(path) != "" {
		return nil, ferr.NotFound.WithMessage("only the root directory is supported")
	}

	entries, _, err := fs.engine.ListRootDirectory()
	if err != nil {
		return nil, err
	}
	return &DirIter{entries: entries}, nil
}

// ReadDir returns the next live entry, skipping invalid/LFN/volume-label
// slots (already filtered out by ListRootDirectory), and Eof once exhausted
// (spec §4.6).
func (it *DirIter) ReadDir() (wire.Dirent, ferr.DriverError) {
	if it.pos >= len(it.entries) {
		return wire.Dirent{}, ferr.Eof.WithMessage("end of directory")
	}
	d := it.entries[it.pos]
	it.pos++
	return d, nil
}

// List is the readdir-loop convenience spec §4.6 calls list(cb, ctx): it
// walks ReadDir and invokes cb for each entry until exhausted.
func (it *DirIter) List(cb func(wire.Dirent)) {
	for {
		d, err := it.ReadDir()
		if err != nil {
			return
		}
		cb(d)
	}
}

package facade

import (
	"github.com/nullradix/fd1440/fat12"
	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/wire"
)

// Open picks a free open-file slot and either opens a reader (mode=Read) or
// a writer (mode=Write), returning its index as a handle (spec §4.6's open).
// Write truncates any existing entry of the same name: fat12.OpenWriter
// frees its cluster chain and reuses the entry with size 0. Opening a directory-attributed entry for
// read fails IsDir.
func (fs *FileSystem) Open(path string, mode Mode) (int, ferr.DriverError) {
	if err := fs.checkDisk(); err != nil {
		return -1, err
	}
	name := trimPath(path)

	slot := -1
	for i := range fs.files {
		if fs.files[i].mode == ModeClosed {
			slot = i
			break
		}
	}
	if slot == -1 {
		return -1, ferr.TooMany.WithMessage("open-file table exhausted")
	}

	switch mode {
	case ModeRead:
		dirent, idx, err := fs.engine.Find(name)
		if err != nil {
			return -1, err
		}
		if dirent.Attr&wire.AttrDirectory != 0 {
			return -1, ferr.IsDir.WithMessage("cannot open a directory as a file")
		}
		reader, err := fs.engine.OpenReader(dirent)
		if err != nil {
			return -1, err
		}
		fs.files[slot] = openFile{
			mode: ModeRead, path: name, dirent: dirent, direntIndex: idx, reader: reader,
		}

	case ModeWrite:
		if err := fs.checkWritable(); err != nil {
			return -1, err
		}
		batch := fat12.NewWriteBatch(fs.engine, fat12.BatchCapacity)
		writer, err := fs.engine.OpenWriter(batch, name)
		if err != nil {
			return -1, err
		}
		fs.files[slot] = openFile{mode: ModeWrite, path: name, batch: batch, writer: writer}

	default:
		return -1, ferr.Invalid.WithMessage("unrecognized open mode")
	}

	return slot, nil
}

// Read forwards to the FAT12 reader and advances position (spec §4.6).
func (fs *FileSystem) Read(fd int, buf []byte) (int, ferr.DriverError) {
	if err := fs.checkDisk(); err != nil {
		return 0, err
	}
	f, err := fs.handle(fd)
	if err != nil {
		return 0, err
	}
	if f.mode != ModeRead {
		return 0, ferr.Invalid.WithMessage("handle is not open for reading")
	}
	n, rerr := f.reader.Read(buf)
	f.position += uint32(n)
	return n, rerr
}

// Write is gated for writability, forwards to the FAT12 writer, and advances
// position (spec §4.6).
func (fs *FileSystem) Write(fd int, buf []byte) (int, ferr.DriverError) {
	if err := fs.checkWritable(); err != nil {
		return 0, err
	}
	f, err := fs.handle(fd)
	if err != nil {
		return 0, err
	}
	if f.mode != ModeWrite {
		return 0, ferr.Invalid.WithMessage("handle is not open for writing")
	}
	n, werr := f.writer.Write(buf)
	f.position += uint32(n)
	return n, werr
}

// Seek is supported only on readers: it's implemented by re-opening the
// reader at the start of the cluster chain and skip-reading offset bytes
// (spec §4.6).
func (fs *FileSystem) Seek(fd int, offset uint32) ferr.DriverError {
	if err := fs.checkDisk(); err != nil {
		return err
	}
	f, err := fs.handle(fd)
	if err != nil {
		return err
	}
	if f.mode != ModeRead {
		return ferr.Invalid.WithMessage("seek is only supported on readers")
	}

	reader, err := fs.engine.OpenReader(f.dirent)
	if err != nil {
		return err
	}
	f.reader = reader
	f.position = 0

	var skip [wire.SectorSize]byte
	remaining := offset
	for remaining > 0 {
		chunk := remaining
		if chunk > uint32(len(skip)) {
			chunk = uint32(len(skip))
		}
		n, rerr := f.reader.Read(skip[:chunk])
		f.position += uint32(n)
		remaining -= uint32(n)
		if rerr != nil || uint32(n) < chunk {
			break // ran past end of file; best effort, per spec §4.6
		}
	}
	return nil
}

// Tell returns the handle's stored position (spec §4.6).
func (fs *FileSystem) Tell(fd int) (uint32, ferr.DriverError) {
	f, err := fs.handle(fd)
	if err != nil {
		return 0, err
	}
	return f.position, nil
}

// ReadAt is seek + read + seek-back, best effort (spec §4.6).
func (fs *FileSystem) ReadAt(fd int, offset uint32, buf []byte) (int, ferr.DriverError) {
	f, err := fs.handle(fd)
	if err != nil {
		return 0, err
	}
	saved := f.position

	if err := fs.Seek(fd, offset); err != nil {
		return 0, err
	}
	n, rerr := fs.Read(fd, buf)
	fs.Seek(fd, saved) // best effort: restore position even if this fails
	return n, rerr
}

// WriteAt is unsupported: the writer is append-only (spec §4.6).
func (fs *FileSystem) WriteAt(fd int, offset uint32, buf []byte) (int, ferr.DriverError) {
	return 0, ferr.Invalid.WithMessage("write_at is unsupported; the writer is append-only")
}

// Close flushes a writer (if any) and frees the slot.
func (fs *FileSystem) Close(fd int) ferr.DriverError {
	f, err := fs.handle(fd)
	if err != nil {
		return err
	}

	var closeErr ferr.DriverError
	if f.mode == ModeWrite {
		closeErr = f.writer.Close()
	}
	*f = openFile{}
	return closeErr
}

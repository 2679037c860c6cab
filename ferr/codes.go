package ferr

// The canonical F12/FAT12 error taxonomy from spec §6. Every layer maps
// whatever it gets from the layer below into this set exactly once; nothing
// lower in the stack (a raw io.Reader error, a *os.PathError, ...) is ever
// allowed to leak past its own boundary unwrapped.
const (
	// OK indicates success. Functions that return (..., error) use a nil
	// error for this case; OK only exists so strerror-style callers have a
	// name for "no error" in diagnostic output.
	OK = F12Error("no error")

	// IoError means a lower-layer callback returned false, or the medium is
	// unreadable/unwritable at the block level.
	IoError = F12Error("I/O error")

	// Write means a write-batch flush's track write failed (spec §4.4's
	// WriteBatch.flush()).
	Write = F12Error("write failed")

	// NotFound means a name was absent from the root directory, or an
	// opendir path wasn't "/" or empty.
	NotFound = F12Error("not found")

	// Exists means an operation that requires the absence of an entry found
	// one anyway.
	Exists = F12Error("already exists")

	// Full means there was no free cluster, or no free directory slot.
	Full = F12Error("disk full")

	// TooMany means the open-file table was exhausted.
	TooMany = F12Error("too many open files")

	// Invalid means arguments, the BPB, or an on-disk structure failed a
	// validation predicate.
	Invalid = F12Error("invalid argument or structure")

	// IsDir means a file operation was attempted on a directory-attributed
	// entry.
	IsDir = F12Error("is a directory")

	// NotMounted means the operation requires a mounted filesystem.
	NotMounted = F12Error("filesystem not mounted")

	// Eof means a reader was exhausted, or readdir ran past the end.
	Eof = F12Error("end of file")

	// DiskChanged means the media-change latch was observed; the filesystem
	// is implicitly unmounted and requires an explicit remount.
	DiskChanged = F12Error("disk changed")

	// WriteProtected means a write was attempted on a protected medium.
	WriteProtected = F12Error("write protected")

	// BadHandle means a file or directory handle refers to a filesystem that
	// has since been torn down.
	BadHandle = F12Error("stale handle")
)

// Strerror returns a stable human-readable string for an F12Error. Unlike
// Error(), it never panics or returns the empty string, even for a zero
// value, so it's safe to use purely for diagnostics.
func Strerror(e F12Error) string {
	if e == "" {
		return string(OK)
	}
	return string(e)
}

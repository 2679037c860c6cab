package wire

import (
	"encoding/binary"
	"strings"
)

// Directory entry attribute bits, bit-exact per spec §3.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = 0x0F // long-filename marker, occupies all four lower bits
)

// DirentSize is the size of one on-disk directory entry, in bytes.
const DirentSize = 32

// Dirent is the 32-byte on-disk directory entry layout from spec §3: an
// 8-byte name, 3-byte extension (space-padded, uppercase), attribute byte,
// 10 reserved bytes, 2-byte time, 2-byte date (carried for on-disk
// compatibility but not exposed as a feature — timestamps are a Non-goal),
// 2-byte start cluster, 4-byte size.
type Dirent struct {
	Name         [8]byte
	Ext          [3]byte
	Attr         uint8
	Reserved     [10]byte
	Time         uint16
	Date         uint16
	StartCluster uint16
	Size         uint32
}

// FirstByteFree and FirstByteEndOfDirectory classify the first name byte of
// a directory entry slot (spec §3).
const (
	FirstByteEndOfDirectory = 0x00
	FirstByteFree           = 0xE5
)

// DecodeDirent parses one 32-byte slice into a Dirent.
func DecodeDirent(buf []byte) Dirent {
	var d Dirent
	copy(d.Name[:], buf[0:8])
	copy(d.Ext[:], buf[8:11])
	d.Attr = buf[11]
	copy(d.Reserved[:], buf[12:22])
	d.Time = binary.LittleEndian.Uint16(buf[22:24])
	d.Date = binary.LittleEndian.Uint16(buf[24:26])
	d.StartCluster = binary.LittleEndian.Uint16(buf[26:28])
	d.Size = binary.LittleEndian.Uint32(buf[28:32])
	return d
}

// Encode serializes the Dirent into dst, which must be at least DirentSize
// bytes long.
func (d Dirent) Encode(dst []byte) {
	copy(dst[0:8], d.Name[:])
	copy(dst[8:11], d.Ext[:])
	dst[11] = d.Attr
	copy(dst[12:22], d.Reserved[:])
	binary.LittleEndian.PutUint16(dst[22:24], d.Time)
	binary.LittleEndian.PutUint16(dst[24:26], d.Date)
	binary.LittleEndian.PutUint16(dst[26:28], d.StartCluster)
	binary.LittleEndian.PutUint32(dst[28:32], d.Size)
}

// IsFree reports whether this slot is available for reuse: either the
// deleted marker (0xE5) or the end-of-directory terminator (0x00).
func (d Dirent) IsFree() bool {
	return d.Name[0] == FirstByteFree || d.Name[0] == FirstByteEndOfDirectory
}

// IsEndOfDirectory reports whether this slot terminates a linear scan.
func (d Dirent) IsEndOfDirectory() bool {
	return d.Name[0] == FirstByteEndOfDirectory
}

// IsLongNameSlot reports whether this entry is a long-filename fragment,
// which readers must skip (spec §4.4's find/ListRootDirectory).
func (d Dirent) IsLongNameSlot() bool {
	return d.Attr == AttrLongName
}

// DisplayName reformats the padded 8.3 fields into "NAME.EXT" (or "NAME" if
// there's no extension), the form spec §4.6's stat() returns.
func (d Dirent) DisplayName() string {
	name := strings.TrimRight(string(d.Name[:]), " ")
	ext := strings.TrimRight(string(d.Ext[:]), " ")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// Normalize83 upper-cases and pads name into the fixed 8.3 fields used for
// on-disk storage and comparison (spec §4.4's find()): split at the first
// '.', pad with spaces, upper-case, truncate to 8/3.
func Normalize83(name string) (nameField [8]byte, extField [3]byte) {
	for i := range nameField {
		nameField[i] = ' '
	}
	for i := range extField {
		extField[i] = ' '
	}

	base := name
	ext := ""
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		base = name[:idx]
		ext = name[idx+1:]
	}

	base = strings.ToUpper(base)
	ext = strings.ToUpper(ext)
	if len(base) > 8 {
		base = base[:8]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}

	copy(nameField[:], base)
	copy(extField[:], ext)
	return nameField, extField
}

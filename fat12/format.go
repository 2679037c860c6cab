package fat12

import (
	"strings"

	"github.com/noxer/bytewriter"

	"github.com/nullradix/fd1440/ferr"
	"github.com/nullradix/fd1440/geometry"
	"github.com/nullradix/fd1440/ports"
	"github.com/nullradix/fd1440/wire"
)

// Format synthesizes a fresh 1.44 MB FAT12 layout and writes it through io,
// the way the teacher's unixv1.Format assembles a whole-image buffer with
// bytewriter/binary.Write before flushing it — adapted here to the FAT12
// boot sector/FAT/root-directory triple instead of a Unix V1 superblock,
// and to per-track ports.SectorIO writes instead of a single flat image
// flush (spec §4.4's format).
func Format(io ports.SectorIO, label string, writeAllTracks bool) ferr.DriverError {
	if io == nil {
		return ferr.Invalid.WithMessage("no write port supplied")
	}

	bpb := buildStandardBPB()
	image := make([]byte, int(bpb.TotalSectors)*wire.SectorSize)

	buildBootSector(image[0:wire.SectorSize], bpb, label)
	buildFATs(image, bpb)
	buildRootDirectory(image, bpb, label)

	dataStartLBA := bpb.DataStart
	spt := uint32(bpb.SectorsPerTrack)
	heads := uint32(bpb.NumHeads)
	totalTracks := uint32(bpb.TotalSectors) / (spt * heads)

	// Tracks are visited in increasing LBA order, and the system area (boot
	// sector + both FATs + root directory) is a contiguous prefix of the
	// medium, so once a track starts past dataStartLBA, every later track is
	// pure data area too: quick mode can stop there outright (spec §4.4).
outer:
	for t := uint32(0); t < totalTracks; t++ {
		for h := uint32(0); h < heads; h++ {
			trackStartLBA := (t*heads + h) * spt
			touchesSystemArea := trackStartLBA < dataStartLBA
			if !touchesSystemArea {
				if !writeAllTracks {
					break outer
				}
			}

			frame := wire.NewTrack(int(t), int(h))
			for s := 0; s < int(spt); s++ {
				lba := trackStartLBA + uint32(s)
				copy(frame.Sectors[s].Data[:], image[int(lba)*wire.SectorSize:(int(lba)+1)*wire.SectorSize])
				frame.Sectors[s].Valid = true
			}
			if !io.Write(frame) {
				return ferr.Write.WithMessage("format: track write failed")
			}
		}
	}

	return nil
}

// buildStandardBPB derives a BPB from the named "35hd144" entry of the
// geometry table rather than repeating its numbers locally, so formatting a
// fresh medium and the geometry catalog can never drift apart.
func buildStandardBPB() *wire.BPB {
	g := geometry.Standard()
	b := &wire.BPB{
		BytesPerSector:    uint16(g.BytesPerSector),
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           2,
		RootEntries:       224,
		TotalSectors:      uint16(g.TotalSectors()),
		MediaDescriptor:   uint8(g.MediaDescriptor),
		SectorsPerFAT:     9,
		SectorsPerTrack:   uint16(g.SectorsPerTrack),
		NumHeads:          uint16(g.Heads),
	}
	b.FATStart = uint32(b.ReservedSectors)
	b.RootStart = b.FATStart + uint32(b.NumFATs)*uint32(b.SectorsPerFAT)
	b.RootSectors = (uint32(b.RootEntries)*32 + wire.SectorSize - 1) / wire.SectorSize
	b.DataStart = b.RootStart + b.RootSectors
	b.TotalClusters = (uint32(b.TotalSectors) - b.DataStart) / uint32(b.SectorsPerCluster)
	return b
}

// buildBootSector assembles the boot sector sequentially through a
// bytewriter, the same cursor-over-a-pre-sized-slice idiom the teacher's
// unixv1.Format uses for its superblock, adapted here to the FAT12 boot
// sector/BPB/extended-BPB/volume-label/fs-type run of fields.
func buildBootSector(sector []byte, bpb *wire.BPB, label string) {
	w := bytewriter.New(sector)
	w.Write([]byte{0xEB, 0x3C, 0x90})  // 3-byte jump
	w.Write([]byte("MSDOS5.0"))        // 8-byte OEM name

	bpbFields := make([]byte, 36)
	bpb.Encode(bpbFields)
	w.Write(bpbFields[11:36]) // the 25-byte BPB proper, offsets 11..36

	// Extended BPB: drive_number=0, reserved1=0, ext_boot_signature=0x29,
	// volume_id=0x78563412 (little-endian bytes 12 34 56 78), per spec §4.4.
	w.Write([]byte{0x00, 0x00, 0x29, 0x12, 0x34, 0x56, 0x78})

	labelField := padLabel11(label)
	w.Write(labelField[:])

	w.Write([]byte("FAT12   "))

	sector[510] = 0x55
	sector[511] = 0xAA
}

// padLabel11 upcases, trims, and space-pads/truncates label to the 11-byte
// field FAT uses both for the boot sector's volume-label copy and for the
// root directory's volume-label dirent — which, unlike an 8.3 filename, has
// no dot-delimited name/extension split: all 11 bytes are one field (spec
// §4.4). wire.Normalize83 is for filenames and must not be used here.
func padLabel11(label string) [11]byte {
	volumeLabel := strings.ToUpper(strings.TrimSpace(label))
	if volumeLabel == "" {
		volumeLabel = "NO NAME"
	}
	if len(volumeLabel) > 11 {
		volumeLabel = volumeLabel[:11]
	}
	var field [11]byte
	for i := range field {
		field[i] = ' '
	}
	copy(field[:], volumeLabel)
	return field
}

func buildFATs(image []byte, bpb *wire.BPB) {
	fatSizeBytes := int(bpb.SectorsPerFAT) * wire.SectorSize
	for i := 0; i < int(bpb.NumFATs); i++ {
		start := int(bpb.FATStart)*wire.SectorSize + i*fatSizeBytes
		fat := image[start : start+fatSizeBytes]
		fat[0] = bpb.MediaDescriptor
		fat[1] = 0xFF
		fat[2] = 0xFF
	}
}

func buildRootDirectory(image []byte, bpb *wire.BPB, label string) {
	if label == "" {
		return
	}
	field := padLabel11(label)
	var volLabelDirent wire.Dirent
	volLabelDirent.Attr = wire.AttrVolumeID
	copy(volLabelDirent.Name[:], field[:8])
	copy(volLabelDirent.Ext[:], field[8:11])

	rootStart := int(bpb.RootStart) * wire.SectorSize
	volLabelDirent.Encode(image[rootStart : rootStart+wire.DirentSize])
}

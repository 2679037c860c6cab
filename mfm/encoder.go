package mfm

import "github.com/nullradix/fd1440/wire"

// GapByte is the standard IBM PC filler byte written into inter-record and
// inter-sector gaps (spec §4.2).
const GapByte = 0x4E

// Gap lengths for the 1.44 MB IBM PC track layout (spec §4.2: "the exact gap
// counts follow the IBM PC 1.44 MB layout").
const (
	gapIndex  = 80 // before the first sync of the track
	gapHeader = 22 // between an address record's CRC and the following sync
	gapSector = 84 // after a sector's data CRC, before the next sector's sync
)

// Encoder assembles a full track's worth of pulse-timing codes (spec §4.2).
// Its output is a sequence of Pulse values (PulseShort/PulseMedium/
// PulseLong), not a raw bitstream: callers hand the result to a PulseSink
// (package ports) for pacing onto the write channel. Writing past capacity is
// silently dropped, mirroring the C encoder's fixed output buffer.
type Encoder struct {
	buf []byte
	pos int

	prevBit              int
	cellsSinceTransition int
}

// NewEncoder allocates an Encoder with room for capacity pulse codes.
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, capacity)}
}

// Pos reports how many pulse codes have been written so far.
func (e *Encoder) Pos() int { return e.pos }

// Bytes returns the pulse codes written so far (PulseShort/PulseMedium/
// PulseLong values), ready for a PulseSink.
func (e *Encoder) Bytes() []byte { return e.buf[:e.pos] }

func (e *Encoder) emit(code byte) {
	if e.pos >= len(e.buf) {
		return
	}
	e.buf[e.pos] = code
	e.pos++
}

// halfCell advances the encoder by one half bit-cell. transition reports
// whether a flux reversal occurs in this half-cell; when it does, the number
// of half-cells since the previous transition (2, 3, or 4) is mapped to
// SHORT/MEDIUM/LONG and emitted.
func (e *Encoder) halfCell(transition bool) {
	e.cellsSinceTransition++
	if !transition {
		return
	}
	switch e.cellsSinceTransition {
	case 2:
		e.emit(byte(PulseShort))
	case 3:
		e.emit(byte(PulseMedium))
	case 4:
		e.emit(byte(PulseLong))
	default:
		// Out-of-range spacing can't occur from this encoder's own bit
		// insertion rule; clamp defensively rather than emit garbage.
		e.emit(byte(PulseLong))
	}
	e.cellsSinceTransition = 0
}

// writeBit encodes one data bit as a clock half-cell followed by a data
// half-cell: the clock bit is 1 iff both neighbouring data bits are 0 (spec
// §4.2's bit-stream rule), so it depends on prevBit, the previously written
// data bit.
func (e *Encoder) writeBit(bit int) {
	clockIsOne := e.prevBit == 0 && bit == 0
	e.halfCell(clockIsOne)
	e.halfCell(bit != 0)
	e.prevBit = bit
}

// writeByte encodes one data byte, MSB first.
func (e *Encoder) writeByte(b byte) {
	for i := 7; i >= 0; i-- {
		e.writeBit(int((b >> uint(i)) & 1))
	}
}

// writeGap fills n bytes' worth of the standard gap filler.
func (e *Encoder) writeGap(n int) {
	for i := 0; i < n; i++ {
		e.writeByte(GapByte)
	}
}

// encodeSync emits 12 bytes of 0x00 preamble (a uniform short-pulse run)
// followed by the three-byte 0xA1 sync mark with its clock deliberately
// suppressed (spec §4.2). The violated sync mark is emitted directly as the
// same 15-pulse pattern the decoder recognizes (package-level syncPattern)
// rather than simulated bit by bit, since its whole purpose is to produce
// exactly that fixed, unambiguous pulse sequence.
func (e *Encoder) encodeSync() {
	for i := 0; i < 12; i++ {
		e.writeByte(0x00)
	}
	for _, p := range syncPattern {
		e.emit(byte(p))
	}
	// The pattern's last encoded data bit is 0xA1's LSB, 1; resume normal
	// bit-insertion bookkeeping as if that bit had been written normally.
	e.prevBit = 1
	e.cellsSinceTransition = 0
}

// EncodeAddressRecord writes one sector's address record: sync + FE mark +
// (track, side, sectorN, sizeCode) + 2 CRC bytes, followed by the
// inter-record gap (spec §4.2). sizeCode is always 2 (512-byte sectors) for
// this codec (spec §3).
func (e *Encoder) EncodeAddressRecord(track, side, sectorN int) {
	e.encodeSync()

	header := [5]byte{MarkAddress, byte(track), byte(side), byte(sectorN), 2}
	for _, b := range header {
		e.writeByte(b)
	}

	crc := wire.CRC16MFM(header[:])
	e.writeByte(byte(crc >> 8))
	e.writeByte(byte(crc))

	e.writeGap(gapHeader)
}

// EncodeDataRecord writes one sector's data record: sync + FB mark + the
// 512-byte payload + 2 CRC bytes, followed by the post-record gap (spec
// §4.2). data must be exactly SectorSize bytes.
func (e *Encoder) EncodeDataRecord(data []byte) {
	e.encodeSync()
	e.writeByte(MarkData)
	for _, b := range data {
		e.writeByte(b)
	}

	crcBuf := make([]byte, 0, 1+len(data))
	crcBuf = append(crcBuf, MarkData)
	crcBuf = append(crcBuf, data...)
	crc := wire.CRC16MFM(crcBuf)
	e.writeByte(byte(crc >> 8))
	e.writeByte(byte(crc))

	e.writeGap(gapSector)
}

// EncodeSector writes the address record and data record for one sector
// (spec §4.2's encode_sector).
func (e *Encoder) EncodeSector(track, side, sectorN int, data []byte) {
	e.EncodeAddressRecord(track, side, sectorN)
	e.EncodeDataRecord(data)
}

// EncodeTrack writes a full track: the leading index gap, then every
// sector's address+data records in order (spec §4.2's encode_track).
// sectors[i] supplies the 512-byte payload for 1-based sector number i+1; a
// nil entry encodes 512 zero bytes. It returns the total number of pulse
// codes written.
func (e *Encoder) EncodeTrack(track, side int, sectors [][]byte) int {
	start := e.pos
	e.writeGap(gapIndex)

	zero := make([]byte, SectorSize)
	for i, data := range sectors {
		if data == nil {
			data = zero
		}
		e.EncodeSector(track, side, i+1, data)
	}
	return e.pos - start
}

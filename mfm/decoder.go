package mfm

import "github.com/nullradix/fd1440/wire"

// Phase is the decoder's bit/byte-level state (spec §4.1).
type Phase int

const (
	PhaseHunt Phase = iota
	PhaseSyncing
	PhaseData
	PhaseClock
)

// syncPattern is the fixed 15-pulse pattern corresponding to three 0xA1
// sync bytes with a deliberately missing clock transition: M L M L M S L M
// L M S L M L M (spec §4.1).
var syncPattern = [15]Pulse{
	PulseMedium, PulseLong, PulseMedium, PulseLong, PulseMedium,
	PulseShort, PulseLong, PulseMedium, PulseLong, PulseMedium,
	PulseShort, PulseLong, PulseMedium, PulseLong, PulseMedium,
}

const bufCap = SectorSize + 16

// pendingAddr holds the coordinates recovered from an address mark, kept
// until the following data mark consumes them.
type pendingAddr struct {
	set      bool
	track    int
	side     int
	sectorN  int
	sizeCode int
}

// Decoder is a streaming MFM decoder (spec §4.1). Feed is called once per
// observed flux transition; it never blocks, never allocates on the hot
// path, and is safe to call an arbitrary number of times. Each call returns
// at most one completed sector.
type Decoder struct {
	phase Phase

	t2Max, t3Max int
	tCell        int

	shortRunCount int
	preambleSum   int

	syncStage int // 1-based index into syncPattern while in PhaseSyncing

	byteAcc  byte
	bitCount int

	buf     [bufCap]byte
	bufPos  int
	overflow bool

	bytesExpected int
	crc           uint16

	pending pendingAddr

	// Diagnostics only (spec §4.1's "Statistics"); never affect behaviour.
	SyncsFound  int
	SectorsRead int
	CRCErrors   int
}

// NewDecoder returns a Decoder in the Hunt phase with the initial adaptive
// thresholds from spec §4.1.
func NewDecoder() *Decoder {
	return &Decoder{
		phase: PhaseHunt,
		t2Max: InitialT2Max,
		t3Max: InitialT3Max,
	}
}

// resetToHunt returns the decoder to Hunt, clearing all per-record state.
// shortSeed is the short_run_count to start the new Hunt phase with: 1 if the
// pulse that caused the reset was itself Short (spec §4.1's Syncing-mismatch
// rule), 0 otherwise.
func (d *Decoder) resetToHunt(shortSeed int) {
	d.phase = PhaseHunt
	d.shortRunCount = shortSeed
	d.preambleSum = 0
	d.syncStage = 0
	d.bitCount = 0
	d.byteAcc = 0
	d.bufPos = 0
	d.overflow = false
	d.bytesExpected = 0
}

// Feed processes one (delta, index_bit) observation. index_bit is accepted
// for interface symmetry with ports.FluxTransition but doesn't affect
// decoding (spec §4.1 never references it directly; index synchronization
// is handled by collaborators outside this codec).
func (d *Decoder) Feed(delta int, indexBit bool) *wire.Sector {
	pulse := Classify(delta, d.t2Max, d.t3Max)

	// The decoder continuously refines t_cell on every short pulse once it
	// has locked onto one during Hunt; this applies in every phase, not just
	// Hunt (spec §4.1: "on each short pulse in steady state").
	if pulse == PulseShort && d.tCell != 0 {
		d.updateCellTime(delta)
	}

	switch d.phase {
	case PhaseHunt:
		return d.feedHunt(pulse, delta)
	case PhaseSyncing:
		return d.feedSyncing(pulse, delta)
	case PhaseData:
		return d.feedDataBit(pulse)
	case PhaseClock:
		return d.feedClockBit(pulse)
	}
	return nil
}

func (d *Decoder) feedHunt(pulse Pulse, delta int) *wire.Sector {
	if pulse == PulseShort {
		d.shortRunCount++
		d.preambleSum += delta
		return nil
	}

	// Non-short pulse breaks the run.
	if d.shortRunCount >= MFMMinPreamble {
		if d.shortRunCount > 0 {
			d.tCell = d.preambleSum / d.shortRunCount
			d.rederiveThresholds()
		}
		if pulse == PulseMedium {
			d.phase = PhaseSyncing
			d.syncStage = 1
			return nil
		}
	}

	d.shortRunCount = 0
	d.preambleSum = 0
	return nil
}

func (d *Decoder) feedSyncing(pulse Pulse, delta int) *wire.Sector {
	// d.syncStage counts how many leading elements of syncPattern have
	// already matched (index 0 was consumed as the breaking pulse in
	// feedHunt), so the next pulse must match syncPattern[d.syncStage].
	expected := syncPattern[d.syncStage]
	if pulse != expected {
		seed := 0
		if pulse == PulseShort {
			seed = 1
		}
		d.resetToHunt(seed)
		if seed == 1 {
			d.preambleSum = delta
		}
		return nil
	}

	d.syncStage++
	if d.syncStage == len(syncPattern) {
		d.SyncsFound++
		d.bitCount = 0
		d.byteAcc = 0
		d.bufPos = 0
		d.overflow = false
		d.bytesExpected = 0
		d.crc = 0xFFFF
		d.crc = wire.CRC16Update(d.crc, 0xA1)
		d.crc = wire.CRC16Update(d.crc, 0xA1)
		d.crc = wire.CRC16Update(d.crc, 0xA1)
		d.phase = PhaseData
	}
	return nil
}

// updateCellTime refines t_cell via a first-order IIR and rederives the
// adaptive thresholds, per spec §4.1.
func (d *Decoder) updateCellTime(delta int) {
	if d.tCell == 0 {
		d.tCell = delta
	} else {
		d.tCell += ((delta - d.tCell) + 8) >> 4
	}
	d.rederiveThresholds()
}

func (d *Decoder) rederiveThresholds() {
	d.t2Max = 5 * d.tCell / 4
	d.t3Max = 7 * d.tCell / 4
}

func (d *Decoder) feedDataBit(pulse Pulse) *wire.Sector {
	switch pulse {
	case PulseShort:
		return d.emitBit(1)
	case PulseMedium:
		if s := d.emitBit(0); s != nil {
			return s
		}
		d.phase = PhaseClock
		return d.emitBit(0)
	case PulseLong:
		if s := d.emitBit(0); s != nil {
			return s
		}
		return d.emitBit(1)
	default:
		d.resetToHunt(0)
		return nil
	}
}

func (d *Decoder) feedClockBit(pulse Pulse) *wire.Sector {
	switch pulse {
	case PulseShort:
		return d.emitBit(0)
	case PulseMedium:
		if s := d.emitBit(1); s != nil {
			return s
		}
		d.phase = PhaseData
		return nil
	case PulseLong:
		// Protocol violation.
		d.resetToHunt(0)
		return nil
	default:
		d.resetToHunt(0)
		return nil
	}
}

// emitBit shifts one decoded data bit (MSB-first) into the byte accumulator
// and, on the 8th bit, finalizes a byte: appends it to buf (subject to the
// SECTOR_SIZE+16 cap), folds it into the running CRC, and classifies/
// completes the record once enough bytes have arrived.
func (d *Decoder) emitBit(bit byte) *wire.Sector {
	d.byteAcc = (d.byteAcc << 1) | bit
	d.bitCount++
	if d.bitCount < 8 {
		return nil
	}
	d.bitCount = 0
	b := d.byteAcc
	d.byteAcc = 0

	if d.bufPos < len(d.buf) {
		d.buf[d.bufPos] = b
	} else {
		d.overflow = true
	}
	d.bufPos++
	d.crc = wire.CRC16Update(d.crc, b)

	if d.bufPos == 1 {
		return d.classifyMark(b)
	}

	if d.bytesExpected != 0 && d.bufPos == d.bytesExpected {
		return d.completeRecord()
	}
	return nil
}

// classifyMark handles the first byte after a recognized sync (spec §4.1's
// "Record recognition").
func (d *Decoder) classifyMark(mark byte) *wire.Sector {
	switch mark {
	case MarkAddress:
		d.bytesExpected = 7
		return nil
	case MarkData, MarkDeletedData:
		if d.pending.set {
			d.bytesExpected = 1 + wire.DataSize(d.pending.sizeCode) + 2
		} else {
			d.bytesExpected = 1 + SectorSize + 2
		}
		return nil
	default:
		d.resetToHunt(0)
		return nil
	}
}

// completeRecord finalizes an address or data record once bufPos has
// reached bytesExpected.
func (d *Decoder) completeRecord() *wire.Sector {
	mark := d.buf[0]
	crcOK := d.crc == 0

	switch mark {
	case MarkAddress:
		if crcOK {
			track := int(d.buf[1])
			side := int(d.buf[2])
			sectorN := int(d.buf[3])
			sizeCode := int(d.buf[4]) & 0x03
			if sizeCode > 2 {
				sizeCode = 2
			}
			d.pending = pendingAddr{set: true, track: track, side: side, sectorN: sectorN, sizeCode: sizeCode}
		} else {
			d.CRCErrors++
			d.pending = pendingAddr{}
		}
		d.resetToHunt(0)
		return nil

	case MarkData, MarkDeletedData:
		valid := crcOK && !d.overflow
		if !valid {
			d.CRCErrors++
		}

		var sec wire.Sector
		if d.pending.set {
			sec.Track = d.pending.track
			sec.Side = d.pending.side
			sec.SectorN = d.pending.sectorN
			sec.SizeCode = d.pending.sizeCode
		} else {
			sec.SizeCode = 2
		}
		sec.Valid = valid

		n := d.bufPos - 1 - 2 // bytes between the mark and the 2 CRC bytes
		if n > SectorSize {
			n = SectorSize
		}
		if n > 0 {
			copy(sec.Data[:n], d.buf[1:1+n])
		}

		d.SectorsRead++
		d.pending = pendingAddr{}
		d.resetToHunt(0)
		return &sec
	}

	d.resetToHunt(0)
	return nil
}

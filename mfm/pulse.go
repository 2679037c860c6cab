// Package mfm implements the streaming MFM decoder and the symmetric track
// encoder from spec §4.1/§4.2: classifying flux-transition pulse widths,
// tracking a bit-cell clock, recognizing IBM PC address/data marks, and
// emitting/consuming verified 512-byte sectors.
//
// The encoder's bit-insertion logic (clock bit is 1 iff both neighboring
// data bits are 0, sync bytes as 12 zero bytes + three violated 0xA1s) is
// grounded on the sergev-fdx mfm.Writer found in the retrieval pack
// (other_examples/d2a3be5e_sergev-fdx__mfm-writer.go.go): same bit-pair
// rules, generalized here to emit the pulse-timing codes spec §4.2 actually
// asks for (SHORT/MEDIUM/LONG) instead of a raw MFM bitstream.
package mfm

// Pulse is the classification of one flux-transition delta (spec §4.1).
type Pulse int

const (
	PulseInvalid Pulse = iota
	PulseShort         // ~2T
	PulseMedium        // ~3T
	PulseLong          // ~4T
)

// Hard bounds on raw pulse width, in channel-clock ticks. Deltas outside
// [MFMPulseFloor, MFMPulseCeiling) are always Invalid, regardless of the
// adaptive thresholds below (spec §4.1, and the "keep the hard floor/ceiling
// gates unconditional" design note in spec §9).
const (
	MFMPulseFloor   = 35
	MFMPulseCeiling = 120
)

// Initial adaptive thresholds, targeting HD MFM (spec §4.1).
const (
	InitialT2Max = 57
	InitialT3Max = 82
)

// MFMMinPreamble is the minimum run length of consecutive short pulses
// required to leave the Hunt phase (spec §4.1).
const MFMMinPreamble = 60

// Classify buckets a raw delta into a Pulse given the current adaptive
// thresholds t2Max/t3Max.
func Classify(delta, t2Max, t3Max int) Pulse {
	if delta < MFMPulseFloor || delta >= MFMPulseCeiling {
		return PulseInvalid
	}
	if delta <= t2Max {
		return PulseShort
	}
	if delta <= t3Max {
		return PulseMedium
	}
	return PulseLong
}

// SectorSize is the only decoded-sector payload size this codec clamps to
// (spec §3: size_code is always <= 2, so size is always 128 << size_code).
const SectorSize = 512

// Record marks recognized after a sync (spec §4.1).
const (
	MarkAddress      = 0xFE
	MarkData         = 0xFB
	MarkDeletedData  = 0xFA
)

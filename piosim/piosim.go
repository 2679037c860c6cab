// Package piosim implements the simulated PIO/flux-FIFO drive from spec
// §4.7: a seek/side-select head positioned over an array of independent
// pulse-code tracks, a write gate, and the two halves of the flux-oriented
// I/O port (ports.PulseSink for writing, ports.FluxSource for reading back)
// built directly on top of package mfm's own Pulse vocabulary rather than
// invented magic bytes. It plays the same role for the MFM codec that
// package vdisk plays for the FAT12 engine: a fast in-memory stand-in for
// real hardware, useful for tests and for exercising the full flux round
// trip without a physical drive.
package piosim

import (
	"github.com/nullradix/fd1440/mfm"
	"github.com/nullradix/fd1440/ports"
	"github.com/nullradix/fd1440/wire"
)

// Representative flux-transition deltas emitted for each pulse class on
// replay. These match the values mfm/codec_test.go already exercises the
// decoder with (45/68/90 against InitialT2Max=57/InitialT3Max=82), so a
// Drive's replayed flux lands squarely inside the decoder's adaptive
// thresholds instead of requiring new magic numbers.
const (
	DeltaShort  = 45
	DeltaMedium = 68
	DeltaLong   = 90
)

// Drive is a minimal simulated floppy mechanism (spec §4.7). The zero value
// is a drive parked at track 0, side 0, write gate off, with every track
// blank; construct with New for clarity at call sites.
type Drive struct {
	track     int
	side      int
	writeGate bool
	tracks    [wire.TotalTracks][wire.NumHeads][]byte
}

// New returns a Drive parked at track 0, side 0, with every track blank.
func New() *Drive {
	return &Drive{}
}

// Track reports the current head position.
func (d *Drive) Track() int { return d.track }

// Side reports the currently selected side.
func (d *Drive) Side() int { return d.side }

// Step moves the head by dir tracks (positive toward the spindle, negative
// toward the rim), clamped to [0, TotalTracks).
func (d *Drive) Step(dir int) {
	d.track += dir
	if d.track < 0 {
		d.track = 0
	}
	if d.track >= wire.TotalTracks {
		d.track = wire.TotalTracks - 1
	}
}

// SelectSide moves the head to side, clamped to [0, NumHeads).
func (d *Drive) SelectSide(side int) {
	if side < 0 {
		side = 0
	}
	if side >= wire.NumHeads {
		side = wire.NumHeads - 1
	}
	d.side = side
}

// WriteGate implements ports.PulseSink: reports whether the write channel is
// currently gated on.
func (d *Drive) WriteGate() bool { return d.writeGate }

// SetWriteGate simulates the write_gate line being asserted or dropped by
// the controller.
func (d *Drive) SetWriteGate(on bool) {
	d.writeGate = on
	if on {
		// A fresh write pass replaces whatever was previously recorded
		// under the head, the way writing a real track overwrites it.
		d.tracks[d.track][d.side] = nil
	}
}

// Play implements ports.PulseSink: while the write gate is asserted, it
// appends codes to the track currently under the head and returns
// len(codes); with the gate off it emits nothing and returns 0.
func (d *Drive) Play(codes []byte) int {
	if !d.writeGate {
		return 0
	}
	d.tracks[d.track][d.side] = append(d.tracks[d.track][d.side], codes...)
	return len(codes)
}

// TrackData returns the raw pulse codes (mfm.PulseShort/Medium/Long values)
// recorded for (track, side), for tests that want to inspect a write
// directly rather than through a replay source.
func (d *Drive) TrackData(track, side int) []byte {
	return d.tracks[track][side]
}

// ReplayFluxSource returns a ports.FluxSource that replays the pulse codes
// previously recorded for (track, side) as a finite stream of flux
// transitions, exhausting once every code has been consumed. It does not
// move the head; callers seek the Drive separately.
func (d *Drive) ReplayFluxSource(track, side int) ports.FluxSource {
	return &replay{codes: d.tracks[track][side]}
}

// replay is the ports.FluxSource half of a Drive's simulated media: it walks
// a recorded pulse-code slice and maps each code back to a representative
// delta, the inverse of what package mfm's Encoder produced.
type replay struct {
	codes []byte
	pos   int
}

func (r *replay) Next() (ports.FluxTransition, bool) {
	if r.pos >= len(r.codes) {
		return ports.FluxTransition{}, false
	}
	code := mfm.Pulse(r.codes[r.pos])
	r.pos++

	var delta uint16
	switch code {
	case mfm.PulseShort:
		delta = DeltaShort
	case mfm.PulseMedium:
		delta = DeltaMedium
	case mfm.PulseLong:
		delta = DeltaLong
	default:
		delta = DeltaShort
	}
	return ports.FluxTransition{DeltaTicks: delta}, true
}

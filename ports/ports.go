// Package ports defines the two narrow abstract interfaces the core talks to
// the physical drive through (spec §6 and §9's "Callback-based I/O port"
// design note). The teacher expresses the same idea as a trio of function-
// pointer callbacks (blockcache.FetchBlockCallback/FlushBlockCallback,
// drivers/common/blockcache.ResizeCallback); a systems language with
// interfaces expresses it more directly as a small capability interface, with
// no dynamic allocation or vtable tricks required by the contract.
package ports

import "github.com/nullradix/fd1440/wire"

// SectorIO is the sector-oriented I/O port consumed by the FAT12 engine and
// the file facade (spec §6). It can be backed by real hardware, an in-memory
// virtual disk (package vdisk), or an SCP flux replay plus the MFM codec
// (package scpflux).
type SectorIO interface {
	// Read fills sector.Data and sets sector.Valid = true on success.
	// sector.Track/Side/SectorN are set by the caller on entry. It returns
	// false on hard failure, matching the C callback's bool return.
	Read(sector *wire.Sector) bool

	// Write rewrites a whole track atomically from the port's perspective.
	// Each slot of track.Sectors is either valid (the caller supplies the
	// data) or invalid (the callee must read the live sector from the medium
	// to fill the slot before rewriting the whole track).
	Write(track *wire.Track) bool

	// DiskChanged is edge-triggered: reading it clears the latch.
	DiskChanged() bool

	// WriteProtected is level-triggered.
	WriteProtected() bool
}

// FluxTransition is one observation from a flux-oriented producer: the
// number of channel-clock ticks since the previous flux transition, and
// whether the index pulse was asserted at that instant.
type FluxTransition struct {
	DeltaTicks uint16 // unsigned channel-clock count, may wrap modulo 0x8000
	IndexBit   bool
}

// FluxSource is the flux-oriented I/O port consumed by MFM codec
// collaborators (spec §6): a producer of (delta_ticks, index_bit) tuples, one
// per flux transition. Next returns false once the source is exhausted (for
// a finite replay like an SCP dump); a live drive's source never does.
type FluxSource interface {
	Next() (FluxTransition, bool)
}

// PulseSink is the flux-oriented I/O port's consumer half: given a
// pre-computed pulse-code buffer (as produced by package mfm's Encoder), it
// paces those codes onto a write channel, gated by an external write_gate
// line. Implementations model real hardware timing; package piosim provides
// a minimal simulated one.
type PulseSink interface {
	// WriteGate reports whether the write channel is currently gated on.
	// Implementations of Play must not emit anything while it's false.
	WriteGate() bool

	// Play paces codes (SHORT/MEDIUM/LONG pulse widths, see package mfm)
	// onto the channel. It returns the number of codes actually emitted
	// before the write gate dropped or the source was exhausted.
	Play(codes []byte) int
}

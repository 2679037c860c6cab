package vdisk_test

import (
	"testing"

	"github.com/nullradix/fd1440/vdisk"
	"github.com/nullradix/fd1440/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiskIsBlank(t *testing.T) {
	d := vdisk.New()
	assert.Equal(t, vdisk.TotalSize, len(d.Bytes()))
	for _, b := range d.Bytes() {
		require.Zero(t, b)
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	d := vdisk.New()

	track := wire.NewTrack(5, 1)
	for i := range track.Sectors {
		track.Sectors[i].Valid = true
		track.Sectors[i].Data[0] = byte(i)
	}
	require.True(t, d.Write(track))

	sec := wire.Sector{Track: 5, Side: 1, SectorN: 3}
	require.True(t, d.Read(&sec))
	assert.True(t, sec.Valid)
	assert.Equal(t, byte(2), sec.Data[0])
}

func TestWriteSkipsInvalidSlots(t *testing.T) {
	d := vdisk.New()

	full := wire.NewTrack(0, 0)
	for i := range full.Sectors {
		full.Sectors[i].Valid = true
		full.Sectors[i].Data[0] = 0xAA
	}
	require.True(t, d.Write(full))

	partial := wire.NewTrack(0, 0)
	partial.Sectors[4].Valid = true
	partial.Sectors[4].Data[0] = 0xBB
	require.True(t, d.Write(partial))

	sec := wire.Sector{Track: 0, Side: 0, SectorN: 1}
	require.True(t, d.Read(&sec))
	assert.Equal(t, byte(0xAA), sec.Data[0])

	sec = wire.Sector{Track: 0, Side: 0, SectorN: 5}
	require.True(t, d.Read(&sec))
	assert.Equal(t, byte(0xBB), sec.Data[0])
}

func TestWriteProtectedMediumRejectsWrites(t *testing.T) {
	d := vdisk.New()
	d.SetWriteProtected(true)

	track := wire.NewTrack(0, 0)
	track.Sectors[0].Valid = true
	assert.False(t, d.Write(track))
	assert.True(t, d.WriteProtected())
}

func TestDiskChangedIsEdgeTriggered(t *testing.T) {
	d := vdisk.New()
	assert.False(t, d.DiskChanged())

	d.SimulateMediaChange()
	assert.True(t, d.DiskChanged())
	assert.False(t, d.DiskChanged())
}

func TestFromImageSharesBackingArray(t *testing.T) {
	raw := make([]byte, vdisk.TotalSize)
	d := vdisk.FromImage(raw)

	track := wire.NewTrack(0, 0)
	track.Sectors[0].Valid = true
	track.Sectors[0].Data[0] = 0x42
	require.True(t, d.Write(track))

	assert.Equal(t, byte(0x42), raw[0])
}

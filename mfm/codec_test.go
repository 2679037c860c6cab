package mfm_test

import (
	"bytes"
	"testing"

	"github.com/nullradix/fd1440/mfm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedPulses drives a fresh decoder with the given pulse codes (as produced
// by an Encoder), converting each Pulse classification back into a
// representative delta so Decoder.Feed re-classifies it the same way.
func feedPulses(t *testing.T, d *mfm.Decoder, codes []byte) []*mfmSector {
	t.Helper()
	var sectors []*mfmSector

	deltaFor := map[mfm.Pulse]int{
		mfm.PulseShort:  45,
		mfm.PulseMedium: 68,
		mfm.PulseLong:   90,
	}

	for _, c := range codes {
		delta := deltaFor[mfm.Pulse(c)]
		if sec := d.Feed(delta, false); sec != nil {
			sectors = append(sectors, &mfmSector{
				Track: sec.Track, Side: sec.Side, SectorN: sec.SectorN,
				Valid: sec.Valid, Data: append([]byte(nil), sec.Data[:]...),
			})
		}
	}
	return sectors
}

type mfmSector struct {
	Track, Side, SectorN int
	Valid                bool
	Data                 []byte
}

func TestEncodeDecodeSingleSectorRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5A}, mfm.SectorSize)

	enc := mfm.NewEncoder(1 << 16)
	enc.EncodeSector(3, 1, 7, payload)

	dec := mfm.NewDecoder()
	sectors := feedPulses(t, dec, enc.Bytes())

	require.Len(t, sectors, 1)
	got := sectors[0]
	assert.True(t, got.Valid)
	assert.Equal(t, 3, got.Track)
	assert.Equal(t, 1, got.Side)
	assert.Equal(t, 7, got.SectorN)
	assert.Equal(t, payload, got.Data)
	assert.Equal(t, 2, dec.SyncsFound) // one for the address record, one for the data record
}

func TestEncodeDecodeFullTrackRoundTrip(t *testing.T) {
	const spt = 18
	sectorsData := make([][]byte, spt)
	for i := range sectorsData {
		sectorsData[i] = bytes.Repeat([]byte{byte(i + 1)}, mfm.SectorSize)
	}

	enc := mfm.NewEncoder(1 << 20)
	n := enc.EncodeTrack(5, 0, sectorsData)
	require.Greater(t, n, 0)
	require.Equal(t, n, enc.Pos())

	dec := mfm.NewDecoder()
	sectors := feedPulses(t, dec, enc.Bytes())

	require.Len(t, sectors, spt)
	for i, sec := range sectors {
		assert.True(t, sec.Valid, "sector %d", i+1)
		assert.Equal(t, 5, sec.Track)
		assert.Equal(t, 0, sec.Side)
		assert.Equal(t, i+1, sec.SectorN)
		assert.Equal(t, sectorsData[i], sec.Data)
	}
	assert.Equal(t, spt, dec.SectorsRead)
	assert.Equal(t, 0, dec.CRCErrors)
}

func TestDecoderRejectsCorruptedData(t *testing.T) {
	payload := bytes.Repeat([]byte{0x11}, mfm.SectorSize)

	enc := mfm.NewEncoder(1 << 16)
	enc.EncodeSector(0, 0, 1, payload)
	codes := enc.Bytes()

	// Swap a Short/Medium pulse pair deep inside the data record. This flips
	// one decoded data bit while leaving the Data/Clock phase where it was, so
	// the record still completes but its CRC no longer matches.
	for i := len(codes) / 2; i+1 < len(codes); i++ {
		if mfm.Pulse(codes[i]) == mfm.PulseShort && mfm.Pulse(codes[i+1]) == mfm.PulseMedium {
			codes[i], codes[i+1] = codes[i+1], codes[i]
			break
		}
	}

	dec := mfm.NewDecoder()
	sectors := feedPulses(t, dec, codes)

	require.Len(t, sectors, 1)
	assert.False(t, sectors[0].Valid)
	assert.Equal(t, 1, dec.CRCErrors)
}

func TestClassifyHardBounds(t *testing.T) {
	assert.Equal(t, mfm.PulseInvalid, mfm.Classify(10, mfm.InitialT2Max, mfm.InitialT3Max))
	assert.Equal(t, mfm.PulseInvalid, mfm.Classify(200, mfm.InitialT2Max, mfm.InitialT3Max))
	assert.Equal(t, mfm.PulseShort, mfm.Classify(45, mfm.InitialT2Max, mfm.InitialT3Max))
	assert.Equal(t, mfm.PulseMedium, mfm.Classify(68, mfm.InitialT2Max, mfm.InitialT3Max))
	assert.Equal(t, mfm.PulseLong, mfm.Classify(90, mfm.InitialT2Max, mfm.InitialT3Max))
}

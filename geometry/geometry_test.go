package geometry_test

import (
	"testing"

	"github.com/nullradix/fd1440/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardIs144MB(t *testing.T) {
	g := geometry.Standard()
	assert.Equal(t, "35hd144", g.Slug)
	assert.EqualValues(t, 512, g.BytesPerSector)
	assert.EqualValues(t, 18, g.SectorsPerTrack)
	assert.EqualValues(t, 80, g.TotalTracks)
	assert.EqualValues(t, 2, g.Heads)
	assert.EqualValues(t, 2880, g.TotalSectors())
	assert.EqualValues(t, 2880*512, g.TotalSizeBytes())
}

func TestLookupUnknownSlugFails(t *testing.T) {
	_, ok := geometry.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestLookupKnownSlugSucceeds(t *testing.T) {
	g, ok := geometry.Lookup("35hd144")
	require.True(t, ok)
	assert.Equal(t, geometry.Standard(), g)
}

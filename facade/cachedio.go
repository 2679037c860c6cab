package facade

import (
	"github.com/nullradix/fd1440/ports"
	"github.com/nullradix/fd1440/sectorlru"
	"github.com/nullradix/fd1440/wire"
)

// CacheCapacity is 36 entries of one sector each, roughly two tracks, per
// spec §4.6.
const CacheCapacity = 36

// cachedIO interposes a sectorlru.Cache, keyed by wire.SectorKey, in front of
// a raw ports.SectorIO (spec §4.6's "Cached I/O port"). It implements
// ports.SectorIO itself, so the FAT12 engine is none the wiser.
type cachedIO struct {
	raw   ports.SectorIO
	cache *sectorlru.Cache
}

func newCachedIO(raw ports.SectorIO) *cachedIO {
	return &cachedIO{raw: raw, cache: sectorlru.New(CacheCapacity, wire.SectorSize)}
}

// Read consults the cache first; on a miss it reads through and, if the
// sector came back valid, populates the cache for next time.
func (c *cachedIO) Read(sector *wire.Sector) bool {
	key := wire.SectorKey(sector.Track, sector.Side, sector.SectorN)
	if data, ok := c.cache.Get(key); ok {
		copy(sector.Data[:], data)
		sector.Valid = true
		return true
	}

	if !c.raw.Read(sector) {
		return false
	}
	if sector.Valid {
		c.cache.Set(key, sector.Data[:])
	}
	return true
}

// Write forwards the whole-track write, then refreshes the cache for every
// slot the caller actually supplied.
func (c *cachedIO) Write(track *wire.Track) bool {
	if !c.raw.Write(track) {
		return false
	}
	for i := range track.Sectors {
		sec := &track.Sectors[i]
		if !sec.Valid {
			continue
		}
		key := wire.SectorKey(track.TrackNum, track.Side, sec.SectorN)
		c.cache.Set(key, sec.Data[:])
	}
	return true
}

func (c *cachedIO) DiskChanged() bool     { return c.raw.DiskChanged() }
func (c *cachedIO) WriteProtected() bool  { return c.raw.WriteProtected() }

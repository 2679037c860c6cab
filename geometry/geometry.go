// Package geometry names the floppy formats this core and the wider 3.5"
// ecosystem recognize, generalizing the teacher's disks.DiskGeometry
// (github.com/gocarina/gocsv-backed, disk-geometries.csv) into a table with
// a "wired" column marking which geometry the FAT12 engine actually
// supports. Only "35hd144" is wired; the rest document the family of
// formats this core's Non-goals exclude (densities other than 1.44 MB HD).
package geometry

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry describes one named floppy format.
type Geometry struct {
	Slug            string `csv:"slug"`
	Name            string `csv:"name"`
	FormFactor      string `csv:"form_factor"`
	IsRemovable     uint   `csv:"is_removable"`
	BytesPerSector  uint   `csv:"bytes_per_sector"`
	SectorsPerTrack uint   `csv:"sectors_per_track"`
	TotalTracks     uint   `csv:"total_tracks"`
	Heads           uint   `csv:"heads"`
	MediaDescriptor uint   `csv:"media_descriptor"`
	Wired           uint   `csv:"wired"`
}

// TotalSectors gives the capacity of the medium in sectors.
func (g Geometry) TotalSectors() uint {
	return g.SectorsPerTrack * g.TotalTracks * g.Heads
}

// TotalSizeBytes gives the capacity of the medium in bytes.
func (g Geometry) TotalSizeBytes() uint {
	return g.TotalSectors() * g.BytesPerSector
}

//go:embed geometry.csv
var rawCSV string

var byName map[string]Geometry

func init() {
	byName = make(map[string]Geometry)
	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := byName[row.Slug]; exists {
			return fmt.Errorf("duplicate geometry slug %q", row.Slug)
		}
		byName[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// Lookup returns the named geometry, or false if no such slug is known.
func Lookup(slug string) (Geometry, bool) {
	g, ok := byName[slug]
	return g, ok
}

// Standard returns the one geometry this core is wired to drive: the 3.5"
// 1.44 MB HD format (spec §1's Non-goals exclude every other density).
func Standard() Geometry {
	g, ok := byName["35hd144"]
	if !ok {
		panic("geometry: 35hd144 missing from embedded table")
	}
	return g
}

// This file is part of psx1.
//
// psx1 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// psx1 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with psx1.  If not, see <https://www.gnu.org/licenses/>.

// Package diskimage provides read-only access to a logical disc as
// LBA->sector-bytes (spec.md §3/§6): a single-file ISO, or a CUE sheet
// referencing one or more BIN/IMG files. read_sector_raw is the sole
// disc-I/O primitive the CDROM controller consumes, matching spec.md §3.
package diskimage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kepler-systems/psx1/curated"
)

// Sector sizes, per spec.md §6.
const (
	SectorUser = 2048 // .iso, MODEn/2048 tracks: user-data only
	SectorRaw  = 2352 // .bin/.img, MODEn/2352 and AUDIO tracks: full raw sector
)

// Track describes one entry of the disc's track list: track number, the LBA
// its INDEX 01 begins at, whether it is a CD-DA audio track, and which
// backing file it reads from.
type Track struct {
	Number   int
	StartLBA int
	IsAudio  bool
	FileIdx  int
	ModeSize int // SectorUser or SectorRaw
}

// Image is the disc-I/O primitive: a closed, ordered set of backing files
// plus a track list, addressable only by read_sector_raw(lba).
type Image interface {
	// ReadSectorRaw returns the raw bytes of sector lba and the sector size
	// used to produce them (SectorUser or SectorRaw), or an error if lba is
	// out of range or the backing file could not be read.
	ReadSectorRaw(lba int) ([]byte, int, error)

	// LeadoutLBA is the sum of every file's sector count - one past the last
	// readable sector.
	LeadoutLBA() int

	// Tracks returns the parsed track list, track 1 first.
	Tracks() []Track

	// Close releases any backing file handles or mappings. Safe to call more
	// than once.
	Close() error
}

// file is one backing data file (a whole .iso, or one FILE referenced from a
// .cue), accessed through a read-only byte mapping.
type file struct {
	path       string
	sectorSize int
	data       mapping
	sectors    int
}

func openFile(path string, sectorSize int) (*file, error) {
	m, err := openMapping(path)
	if err != nil {
		return nil, curated.Errorf("cannot open disc image: %s", err)
	}
	size := m.Len()
	if size%sectorSize != 0 {
		m.Close()
		return nil, curated.Errorf("cannot open disc image: %s", fmt.Sprintf("%s size %d is not a multiple of %d", path, size, sectorSize))
	}
	return &file{path: path, sectorSize: sectorSize, data: m, sectors: size / sectorSize}, nil
}

func (f *file) readSector(n int) ([]byte, error) {
	if n < 0 || n >= f.sectors {
		return nil, fmt.Errorf("sector %d out of range (file has %d sectors)", n, f.sectors)
	}
	off := n * f.sectorSize
	return f.data.Bytes(off, f.sectorSize), nil
}

func (f *file) close() error {
	return f.data.Close()
}

// multiImage is the common Image implementation backing both OpenISO (one
// file, one implicit data track) and OpenCue (one file per FILE directive).
type multiImage struct {
	files  []*file
	tracks []Track
}

// OpenISO opens a single-file .iso disc image: a flat sequence of 2048-byte
// user-data sectors, one data track spanning the whole file.
func OpenISO(path string) (Image, error) {
	f, err := openFile(path, SectorUser)
	if err != nil {
		return nil, err
	}
	return &multiImage{
		files: []*file{f},
		tracks: []Track{
			{Number: 1, StartLBA: 0, IsAudio: false, FileIdx: 0, ModeSize: SectorUser},
		},
	}, nil
}

// Open opens path, dispatching on its extension: ".cue" goes through the CUE
// sheet parser, anything else is treated as a flat .iso/.bin image sized by
// its own file size (2048 sectors for a multiple of 2048, 2352 for a
// multiple of 2352), mirroring the teacher's own extension-sniffing loader
// pattern (see DESIGN.md).
func Open(path string) (Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return OpenCue(path)
	default:
		return openFlatGuessSize(path)
	}
}

func openFlatGuessSize(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, curated.Errorf("cannot open disc image: %s", err)
	}
	switch {
	case info.Size()%SectorRaw == 0:
		f, err := openFile(path, SectorRaw)
		if err != nil {
			return nil, err
		}
		return &multiImage{
			files:  []*file{f},
			tracks: []Track{{Number: 1, StartLBA: 0, FileIdx: 0, ModeSize: SectorRaw}},
		}, nil
	case info.Size()%SectorUser == 0:
		return OpenISO(path)
	default:
		return nil, curated.Errorf("cannot open disc image: %s", fmt.Sprintf("%s is not a multiple of 2048 or 2352 bytes", path))
	}
}

func (m *multiImage) ReadSectorRaw(lba int) ([]byte, int, error) {
	if lba < 0 || lba >= m.LeadoutLBA() {
		return nil, 0, fmt.Errorf("lba %d past end of disc (leadout at %d)", lba, m.LeadoutLBA())
	}
	tr := m.trackFor(lba)
	f := m.files[tr.FileIdx]
	local := lba
	for _, prev := range m.files[:tr.FileIdx] {
		local -= prev.sectors
	}
	b, err := f.readSector(local)
	if err != nil {
		return nil, 0, err
	}
	return b, f.sectorSize, nil
}

func (m *multiImage) trackFor(lba int) Track {
	best := m.tracks[0]
	for _, t := range m.tracks {
		if t.StartLBA <= lba {
			best = t
		}
	}
	return best
}

func (m *multiImage) LeadoutLBA() int {
	total := 0
	for _, f := range m.files {
		total += f.sectors
	}
	return total
}

func (m *multiImage) Tracks() []Track { return m.tracks }

func (m *multiImage) Close() error {
	var first error
	for _, f := range m.files {
		if err := f.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

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

package diskimage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kepler-systems/psx1/curated"
)

// cueTrack is one TRACK directive as parsed, before LBAs are resolved.
type cueTrack struct {
	number   int
	modeSize int
	isAudio  bool
	fileIdx  int
	indexMSF [3]int // INDEX 01 M:S:F, decimal per spec.md §6
}

// OpenCue parses a CUE sheet (spec.md §6): FILE "path" BINARY, TRACK NN
// MODEn/2048|MODEn/2352|AUDIO, INDEX 01 MM:SS:FF (decimal). Tracks
// concatenate in listing order; pre-gaps and INDEX 00 are ignored.
func OpenCue(path string) (Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, curated.Errorf("cannot open disc image: %s", err)
	}

	dir := filepath.Dir(path)

	var filePaths []string
	var fileSectorSize []int
	var tracks []cueTrack

	curFileIdx := -1

	sc := bufio.NewScanner(strings.NewReader(string(raw)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := tokenizeCue(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			if len(fields) < 2 {
				return nil, curated.Errorf("cannot open disc image: %s", "malformed FILE directive in "+path)
			}
			name := strings.Trim(fields[1], `"`)
			filePaths = append(filePaths, filepath.Join(dir, name))
			fileSectorSize = append(fileSectorSize, SectorRaw)
			curFileIdx = len(filePaths) - 1

		case "TRACK":
			if len(fields) < 3 || curFileIdx < 0 {
				return nil, curated.Errorf("cannot open disc image: %s", "TRACK directive before FILE in "+path)
			}
			num, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, curated.Errorf("cannot open disc image: %s", "bad TRACK number in "+path)
			}
			mode := strings.ToUpper(fields[2])
			t := cueTrack{number: num, fileIdx: curFileIdx}
			switch {
			case mode == "AUDIO":
				t.isAudio = true
				t.modeSize = SectorRaw
			case strings.HasSuffix(mode, "/2352"):
				t.modeSize = SectorRaw
			case strings.HasSuffix(mode, "/2048"):
				t.modeSize = SectorUser
			default:
				t.modeSize = SectorRaw
			}
			fileSectorSize[curFileIdx] = t.modeSize
			tracks = append(tracks, t)

		case "INDEX":
			if len(fields) < 3 || len(tracks) == 0 {
				continue
			}
			if fields[1] != "01" {
				continue // INDEX 00 (pre-gap) ignored, per spec.md §6
			}
			m, s, f, err := parseMSF(fields[2])
			if err != nil {
				return nil, curated.Errorf("cannot open disc image: %s", err)
			}
			tracks[len(tracks)-1].indexMSF = [3]int{m, s, f}
		}
	}

	if len(filePaths) == 0 || len(tracks) == 0 {
		return nil, curated.Errorf("cannot open disc image: %s", path+" has no FILE/TRACK directives")
	}

	files := make([]*file, len(filePaths))
	for i, p := range filePaths {
		f, err := openFile(p, fileSectorSize[i])
		if err != nil {
			for _, opened := range files[:i] {
				if opened != nil {
					opened.close()
				}
			}
			return nil, err
		}
		files[i] = f
	}

	// Resolve each track's start LBA: the first track of a file starts where
	// the previous file's tracks ended (files concatenate), offset by the
	// INDEX 01 time within that file.
	fileBaseLBA := make([]int, len(files))
	for i := 1; i < len(files); i++ {
		fileBaseLBA[i] = fileBaseLBA[i-1] + files[i-1].sectors
	}

	resolved := make([]Track, len(tracks))
	for i, t := range tracks {
		indexLBA := (t.indexMSF[0]*60+t.indexMSF[1])*75 + t.indexMSF[2]
		resolved[i] = Track{
			Number:   t.number,
			StartLBA: fileBaseLBA[t.fileIdx] + indexLBA,
			IsAudio:  t.isAudio,
			FileIdx:  t.fileIdx,
			ModeSize: t.modeSize,
		}
	}

	return &multiImage{files: files, tracks: resolved}, nil
}

func tokenizeCue(line string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ' ' && !inQuote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func parseMSF(s string) (int, int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed INDEX time %q", s)
	}
	m, err1 := strconv.Atoi(parts[0])
	sec, err2 := strconv.Atoi(parts[1])
	f, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, fmt.Errorf("malformed INDEX time %q", s)
	}
	return m, sec, f, nil
}

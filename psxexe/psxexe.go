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

// Package psxexe parses the PS-X EXE executable format (spec.md §6): a
// 2 KiB header naming an entry point, stack pointer and load address,
// followed by the raw image bytes the fast-boot path copies into RAM.
package psxexe

import "fmt"

// HeaderSize is the fixed size of a PS-X EXE header; everything after it is
// the raw image to copy to LoadAddress.
const HeaderSize = 2048

var magic = [8]byte{'P', 'S', '-', 'X', ' ', 'E', 'X', 'E'}

// Exe is a parsed PS-X EXE: the fields the fast-boot loader needs plus the
// raw bytes to place at LoadAddress.
type Exe struct {
	InitialPC uint32
	LoadAddress uint32
	InitialSP   uint32 // 0 if the header did not specify one
	Data        []byte
}

// Parse validates the header in raw and returns the located entry point,
// load address, optional stack pointer, and the image bytes to copy into
// RAM, per spec.md §6's byte-offset table (0..7 magic, 0x10 initial_pc, 0x18
// load_address, 0x1C file_size, 0x30 initial_sp).
func Parse(raw []byte) (Exe, error) {
	if len(raw) < HeaderSize {
		return Exe{}, fmt.Errorf("psxexe: file too short for a %d-byte header", HeaderSize)
	}
	for i, b := range magic {
		if raw[i] != b {
			return Exe{}, fmt.Errorf("psxexe: bad magic %q", raw[:8])
		}
	}

	initialPC := le32(raw, 0x10)
	loadAddr := le32(raw, 0x18)
	fileSize := le32(raw, 0x1C)
	initialSP := le32(raw, 0x30)

	end := HeaderSize + int(fileSize)
	if end > len(raw) {
		end = len(raw)
	}

	return Exe{
		InitialPC:   initialPC,
		LoadAddress: loadAddr,
		InitialSP:   initialSP,
		Data:        raw[HeaderSize:end],
	}, nil
}

func le32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

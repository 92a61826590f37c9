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

// Package bus implements the PS1 memory bus: address decode over RAM,
// scratchpad, BIOS ROM and MMIO, and 8/16/32-bit load/store dispatch, per
// spec.md §3/§4.2.
package bus

// Region sizes and base addresses, per spec.md §3.
const (
	RAMSize        = 2 * 1024 * 1024
	ScratchpadBase = 0x1F800000
	ScratchpadSize = 1024
	MMIOBase       = 0x1F801000
	MMIOSize       = 0x2000
	BIOSBase       = 0x1FC00000
	BIOSSize       = 512 * 1024
)

// Mask strips the KSEG0/KSEG1 top nibble to produce a physical address, per
// spec.md §3: "mapping strips the top nibble for physical address."
func Mask(addr uint32) uint32 {
	// segment selects the top 3 bits: 000/100 -> KUSEG (mask 0x7FFFFFFF wraps
	// to 0..512MiB anyway in the emulated map), 100 -> KSEG0, 101 -> KSEG1,
	// 11x -> KSEG2 (unused by this core).
	switch addr >> 29 {
	case 0x4, 0x5: // KSEG0 (0x80000000) / KSEG1 (0xA0000000)
		return addr & 0x1FFFFFFF
	default:
		return addr & 0x1FFFFFFF
	}
}

// Cached reports whether addr lies in the cached KSEG0 alias. This core does
// not model an instruction/data cache, but the bit is preserved for
// components (HLE, loop detectors) that want to distinguish the two.
func Cached(addr uint32) bool {
	return addr>>29 == 0x4
}

// region identifies which physical memory region an address (already
// KSEG-masked) decodes to.
type region int

const (
	regionUnmapped region = iota
	regionRAM
	regionScratchpad
	regionMMIO
	regionBIOS
)

func decode(phys uint32) (region, uint32) {
	switch {
	case phys < RAMSize:
		return regionRAM, phys
	case phys < 0x00800000:
		// RAM is mirrored four times across the first 8MiB of KUSEG/KSEG0/KSEG1
		return regionRAM, phys % RAMSize
	case phys >= ScratchpadBase && phys < ScratchpadBase+ScratchpadSize:
		return regionScratchpad, phys - ScratchpadBase
	case phys >= MMIOBase && phys < MMIOBase+MMIOSize:
		return regionMMIO, phys - MMIOBase
	case phys >= BIOSBase && phys < BIOSBase+BIOSSize:
		return regionBIOS, phys - BIOSBase
	default:
		return regionUnmapped, phys
	}
}

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

package cdrom

// BCDToBinary and BinaryToBCD convert the packed-decimal byte encoding used
// throughout the CDROM command set (spec.md §4.5: SetLoc parameters are BCD).
// Round-trip is self-inverse on [0, 99], per spec.md §8.
func BCDToBinary(b uint8) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func BinaryToBCD(v int) uint8 {
	return uint8((v/10)<<4 | (v % 10))
}

// MSFToLBA converts an absolute Minute:Second:Frame triplet to a logical
// block address, per the GLOSSARY: LBA = (M*60+S)*75+F-150.
func MSFToLBA(m, s, f int) int {
	return (m*60+s)*75 + f - 150
}

// LBAToMSF is the inverse of MSFToLBA for lba >= -150 (round-trips for every
// lba >= 0, per spec.md §8).
func LBAToMSF(lba int) (m, s, f int) {
	total := lba + 150
	m = total / (60 * 75)
	rem := total % (60 * 75)
	s = rem / 75
	f = rem % 75
	return
}

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

// FromDevice implements dma.Device for DMA channel 3 (CDROM->memory): it
// pulls four bytes at a time from the data FIFO, the same bytes a game would
// otherwise read one at a time through port 2, per spec.md §4.4/§6.
func (d *Drive) FromDevice() uint32 {
	var b [4]byte
	for i := range b {
		b[i] = d.popData()
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// ToDevice implements dma.Device for the CDROM channel's memory->device
// direction, which real hardware never uses; accepted and discarded.
func (d *Drive) ToDevice(word uint32) {}

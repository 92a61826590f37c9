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

import "os"

// bufferedMapping is the portable fallback used on platforms without mmap
// support and when mmap itself fails on an otherwise-openable file.
type bufferedMapping struct {
	data []byte
}

func openBufferedMapping(path string) (mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &bufferedMapping{data: data}, nil
}

func (b *bufferedMapping) Len() int { return len(b.data) }

func (b *bufferedMapping) Bytes(off, n int) []byte {
	out := make([]byte, n)
	copy(out, b.data[off:off+n])
	return out
}

func (b *bufferedMapping) Close() error { return nil }

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

//go:build unix

package diskimage

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapping is a read-only view of a disc image file. On unix platforms this is
// backed by an mmap, which suits a large, read-mostly, randomly-accessed
// file far better than seek+read per sector.
type mapping interface {
	Len() int
	Bytes(off, n int) []byte
	Close() error
}

type mmapMapping struct {
	f    *os.File
	data []byte
}

func openMapping(path string) (mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		f.Close()
		return nil, os.ErrInvalid
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// Fall back to a plain in-memory read; some filesystems (network
		// mounts, certain container overlays) refuse mmap but still support
		// ordinary reads.
		f.Close()
		return openBufferedMapping(path)
	}
	return &mmapMapping{f: f, data: data}, nil
}

func (m *mmapMapping) Len() int { return len(m.data) }

func (m *mmapMapping) Bytes(off, n int) []byte {
	b := make([]byte, n)
	copy(b, m.data[off:off+n])
	return b
}

func (m *mmapMapping) Close() error {
	err := unix.Munmap(m.data)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

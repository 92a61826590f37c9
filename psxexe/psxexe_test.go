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

package psxexe

import (
	"testing"

	"github.com/kepler-systems/psx1/internal/texpect"
)

func buildHeader(pc, loadAddr, fileSize, sp uint32, payload []byte) []byte {
	raw := make([]byte, HeaderSize+len(payload))
	copy(raw[0:8], magic[:])
	putLe32(raw, 0x10, pc)
	putLe32(raw, 0x18, loadAddr)
	putLe32(raw, 0x1C, fileSize)
	putLe32(raw, 0x30, sp)
	copy(raw[HeaderSize:], payload)
	return raw
}

func putLe32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func TestParseValidHeader(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	raw := buildHeader(0x80010000, 0x80010000, uint32(len(payload)), 0x801FFF00, payload)

	exe, err := Parse(raw)
	texpect.ExpectSuccess(t, err)
	texpect.Equate(t, exe.InitialPC, uint32(0x80010000))
	texpect.Equate(t, exe.LoadAddress, uint32(0x80010000))
	texpect.Equate(t, exe.InitialSP, uint32(0x801FFF00))
	texpect.Equate(t, exe.Data, payload)
}

func TestParseRejectsBadMagic(t *testing.T) {
	raw := make([]byte, HeaderSize)
	copy(raw[0:8], "NOT-EXE\x00")

	_, err := Parse(raw)
	texpect.ExpectFailure(t, err)
}

func TestParseRejectsShortFile(t *testing.T) {
	_, err := Parse(make([]byte, 16))
	texpect.ExpectFailure(t, err)
}

func TestParseZeroStackPointerMeansUnspecified(t *testing.T) {
	raw := buildHeader(0x80010000, 0x80010000, 0, 0, nil)
	exe, err := Parse(raw)
	texpect.ExpectSuccess(t, err)
	texpect.Equate(t, exe.InitialSP, uint32(0))
}

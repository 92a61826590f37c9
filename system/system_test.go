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

package system

import (
	"testing"

	"github.com/kepler-systems/psx1/config"
	"github.com/kepler-systems/psx1/diskimage"
	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/internal/texpect"
)

func newTestSystem(t *testing.T) (*System, *[]byte) {
	t.Helper()
	env := environment.New(environment.MainEmulation, config.Default(), 1)
	env.Normalise()
	var out []byte
	s, err := New(env, Callbacks{PutChar: func(b byte) { out = append(out, b) }})
	texpect.ExpectSuccess(t, err)
	return s, &out
}

func putLe32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func TestStdOutPutCharHLEReturnsToCaller(t *testing.T) {
	s, out := newTestSystem(t)
	s.Env.Options.HLEVectors = true

	s.CPU.SetPC(0xB0)
	s.CPU.SetGPR(9, 0x3D)  // $t1: std_out_putchar selector
	s.CPU.SetGPR(4, 'A')   // $a0
	s.CPU.SetGPR(31, 0x80012345) // $ra

	s.Step()

	texpect.Equate(t, string(*out), "A")
	texpect.Equate(t, s.CPU.PC(), uint32(0x80012345))
}

func TestPrintfHLEFormatsDecimalAndString(t *testing.T) {
	s, out := newTestSystem(t)
	s.Env.Options.HLEVectors = true

	format := []byte("n=%d s=%s\x00")
	name := []byte("ok\x00")
	s.Bus.LoadRAM(0x1000, format)
	s.Bus.LoadRAM(0x2000, name)

	s.CPU.SetPC(0xA0)
	s.CPU.SetGPR(9, 0x3F)         // $t1: printf selector
	s.CPU.SetGPR(4, 0x80001000)   // $a0: format string
	s.CPU.SetGPR(5, 42)           // $a1: %d
	s.CPU.SetGPR(6, 0x80002000)   // $a2: %s
	s.CPU.SetGPR(31, 0x80099999)

	s.Step()

	texpect.Equate(t, string(*out), "n=42 s=ok")
	texpect.Equate(t, s.CPU.PC(), uint32(0x80099999))
}

func TestUnrecognisedSelectorFallsThroughToBIOSCode(t *testing.T) {
	s, _ := newTestSystem(t)
	s.Env.Options.HLEVectors = true

	// A word of zero at the B0 vector decodes as SLL r0,r0,0 (nop), so the
	// CPU just executes it in place rather than halting - proof that a
	// selector this core does not emulate is left to whatever real code sits
	// at the vector instead of being intercepted.
	s.Bus.LoadRAM(0xB0, []byte{0, 0, 0, 0})
	s.CPU.SetPC(0xB0)
	s.CPU.SetGPR(9, 0xFF) // no handler registered for this selector anywhere

	outcome := s.Step()
	texpect.Equate(t, outcome.String(), "ok")
	texpect.Equate(t, s.CPU.PC(), uint32(0xB4))
}

func TestStepHaltsOnFetchFromAllOnes(t *testing.T) {
	s, _ := newTestSystem(t)
	s.CPU.SetPC(0xFFFFFFFF)

	s.Step()

	texpect.ExpectSuccess(t, s.Halted())
}

// fakeImage is a minimal in-memory diskimage.Image backing the fast-boot
// test below: every sector is pre-built user-data (SectorUser), so the
// CDROM controller's Mode1/Mode2 offset logic never engages.
type fakeImage struct {
	sectors map[int][]byte
}

func (f *fakeImage) ReadSectorRaw(lba int) ([]byte, int, error) {
	sec, ok := f.sectors[lba]
	if !ok {
		sec = make([]byte, 2048)
	}
	return sec, diskimage.SectorUser, nil
}

func (f *fakeImage) LeadoutLBA() int { return 64 }

func (f *fakeImage) Tracks() []diskimage.Track {
	return []diskimage.Track{{Number: 1, StartLBA: 0, ModeSize: diskimage.SectorUser}}
}

func (f *fakeImage) Close() error { return nil }

// buildDirRecord encodes one ISO-9660 directory record in the simplified
// layout iso9660.parseDirRecord reads: recLen byte, LBA at 2:6, length at
// 10:14, flags at 25, name length at 32, name at 33.
func buildDirRecord(lba, length int, isDir bool, name string) []byte {
	recLen := 33 + len(name)
	if recLen%2 != 0 {
		recLen++
	}
	rec := make([]byte, recLen)
	rec[0] = byte(recLen)
	putLe32(rec, 2, uint32(lba))
	putLe32(rec, 10, uint32(length))
	if isDir {
		rec[25] = 0x02
	}
	rec[32] = byte(len(name))
	copy(rec[33:], name)
	return rec
}

func newFastBootImage(t *testing.T) *fakeImage {
	t.Helper()
	img := &fakeImage{sectors: map[int][]byte{}}

	const (
		rootLBA = 20
		cnfLBA  = 21
		exeLBA  = 22
	)

	var dir []byte
	dir = append(dir, buildDirRecord(cnfLBA, 32, false, "SYSTEM.CNF;1")...)
	dir = append(dir, buildDirRecord(exeLBA, 2048+4, false, "MAIN.EXE;1")...)
	img.sectors[rootLBA] = pad2048(dir)

	pvd := make([]byte, 2048)
	pvd[0] = 1
	copy(pvd[1:6], "CD001")
	pvd[6] = 1
	copy(pvd[156:190], buildDirRecord(rootLBA, 2048, true, "\x00"))
	img.sectors[16] = pvd

	cnf := "BOOT=cdrom:\\MAIN.EXE;1\r\n"
	img.sectors[cnfLBA] = pad2048([]byte(cnf))

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	exe := make([]byte, 2048+len(payload))
	copy(exe[0:8], []byte("PS-X EXE"))
	putLe32(exe, 0x10, 0x80010000) // initial_pc
	putLe32(exe, 0x18, 0x80010000) // load_address
	putLe32(exe, 0x1C, uint32(len(payload)))
	putLe32(exe, 0x30, 0x801FFF00) // initial_sp
	copy(exe[2048:], payload)
	img.sectors[exeLBA] = pad2048(exe[:2048])
	img.sectors[exeLBA+1] = pad2048(exe[2048:])

	return img
}

func pad2048(b []byte) []byte {
	out := make([]byte, 2048)
	copy(out, b)
	return out
}

func TestFastBootFromCDLoadsEntryPointAndStack(t *testing.T) {
	s, _ := newTestSystem(t)
	img := newFastBootImage(t)

	texpect.ExpectSuccess(t, s.InsertDisc(img))
	texpect.ExpectSuccess(t, s.FastBootFromCD())

	texpect.Equate(t, s.CPU.PC(), uint32(0x80010000))
	texpect.Equate(t, s.CPU.GPR(29), uint32(0x801FFF00))
	texpect.Equate(t, s.Bus.ReadWord(0x80010000), uint32(0xEFBEADDE))
	texpect.ExpectSuccess(t, s.Env.Options.HLEVectors)
}

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

import (
	"fmt"
	"testing"

	"github.com/kepler-systems/psx1/diskimage"
	"github.com/kepler-systems/psx1/internal/texpect"
)

func selectIndex(d *Drive, idx uint8) {
	d.WritePort(0, idx)
}

func issueCmd(d *Drive, cmd byte) {
	selectIndex(d, 0)
	d.WritePort(1, cmd)
}

func ackAll(d *Drive) {
	selectIndex(d, 1)
	d.WritePort(3, 0x1F)
}

// runUntilIRQ ticks in small steps until the drive's IRQ line goes high (a
// response became available) or the step budget is exhausted.
func runUntilIRQ(t *testing.T, d *Drive, maxCycles int) {
	t.Helper()
	for c := 0; c < maxCycles; c += 100 {
		if d.irqHigh {
			return
		}
		d.Tick(100)
	}
	t.Fatalf("no IRQ raised within %d cycles", maxCycles)
}

func TestBCDRoundTrip(t *testing.T) {
	for v := 0; v <= 99; v++ {
		texpect.ExpectEquality(t, BCDToBinary(BinaryToBCD(v)), v)
	}
}

func TestMSFLBARoundTrip(t *testing.T) {
	for lba := 0; lba < 10000; lba += 37 {
		m, s, f := LBAToMSF(lba)
		texpect.ExpectEquality(t, MSFToLBA(m, s, f), lba)
	}
}

func TestGetStatRespondsINT3(t *testing.T) {
	var level bool
	d := New(nil, func(l bool) { level = l })
	selectIndex(d, 1)
	d.WritePort(2, 0x1F) // irq_enable: all five response types enabled

	issueCmd(d, cmdGetStat)
	runUntilIRQ(t, d, 100000)

	texpect.Equate(t, d.irqFlags, uint8(INT3))
	texpect.Equate(t, level, true)
}

func TestShellCloseSentOnceAfterInsert(t *testing.T) {
	d := New(nil, func(bool) {})
	selectIndex(d, 1)
	d.WritePort(2, 0x1F)

	img := newFakeImage(t)
	texpect.ExpectSuccess(t, d.InsertDisc(img))

	// First GetStat: INT3, then the unsolicited shell-close INT5.
	issueCmd(d, cmdGetStat)
	runUntilIRQ(t, d, 100000)
	texpect.Equate(t, d.irqFlags, uint8(INT3))
	ackAll(d)
	runUntilIRQ(t, d, 100000)
	texpect.Equate(t, d.irqFlags, uint8(INT5))
	texpect.Equate(t, d.respFIFO[0], uint8(0x00))
	ackAll(d)

	// Second GetStat: no further shell-close.
	issueCmd(d, cmdGetStat)
	runUntilIRQ(t, d, 100000)
	texpect.Equate(t, d.irqFlags, uint8(INT3))
	ackAll(d)
	for i := 0; i < 20; i++ {
		d.Tick(1000)
	}
	texpect.Equate(t, d.irqFlags, uint8(0))
}

func TestGetIDRegionBytes(t *testing.T) {
	d := New(nil, func(bool) {})
	selectIndex(d, 1)
	d.WritePort(2, 0x1F)

	img := newFakeImage(t)
	texpect.ExpectSuccess(t, d.InsertDisc(img))

	issueCmd(d, cmdGetID)
	runUntilIRQ(t, d, 100000)
	texpect.Equate(t, d.irqFlags, uint8(INT3))
	ackAll(d)
	runUntilIRQ(t, d, 200000)
	texpect.Equate(t, d.irqFlags, uint8(INT2))

	got := d.respFIFO
	texpect.ExpectEquality(t, len(got), 8)
	texpect.Equate(t, got[4], byte('S'))
	texpect.Equate(t, got[5], byte('C'))
	texpect.Equate(t, got[6], byte('E'))
	texpect.Equate(t, got[7], byte('A')) // SLUS prefix in the fake SYSTEM.CNF -> America
}

func TestQueuedCommandDefersUntilAcked(t *testing.T) {
	d := New(nil, func(bool) {})
	issueCmd(d, cmdGetStat)
	// cmdDelay is now running (the GetStat response hasn't committed yet),
	// so a second command issued immediately finds the drive busy and
	// queues instead of executing.
	issueCmd(d, cmdSetLoc)
	texpect.Equate(t, d.pending.Queued, true)
	texpect.Equate(t, d.pending.Cmd, uint8(cmdSetLoc))
}

func TestCDROMIRQLineFollowsEnableGate(t *testing.T) {
	var level bool
	d := New(nil, func(l bool) { level = l })
	selectIndex(d, 1)
	d.WritePort(2, 0x00) // irq_enable = 0: nothing enabled

	issueCmd(d, cmdGetStat)
	for c := 0; c < 100000; c += 1000 {
		d.Tick(1000)
	}
	texpect.Equate(t, level, false) // response committed but line stays low: nothing enabled
	texpect.Equate(t, d.irqFlags, uint8(INT3))
}

func TestPortStatusFIFOFlags(t *testing.T) {
	d := New(nil, func(bool) {})
	selectIndex(d, 0)
	texpect.Equate(t, d.ReadPort(0)&(1<<3) != 0, true) // param FIFO empty
	d.WritePort(2, 0xAB)
	texpect.Equate(t, d.ReadPort(0)&(1<<3) != 0, false) // no longer empty
}

// fakeImage is a minimal in-memory diskimage.Image for tests: one data
// track, with sector 16 carrying a valid PVD whose root directory contains
// a SYSTEM.CNF naming an SLUS (America) boot executable.
type fakeImage struct {
	sectors [][]byte
}

func newFakeImage(t *testing.T) *fakeImage {
	t.Helper()
	img := &fakeImage{sectors: make([][]byte, 20)}
	for i := range img.sectors {
		img.sectors[i] = make([]byte, 2048)
	}

	// SYSTEM.CNF lives at LBA 17, one sector, containing a BOOT= line.
	cnf := []byte("BOOT=cdrom:\\SLUS_000.01;1\r\nTCB=4\r\n")
	copy(img.sectors[17], cnf)

	// PVD at LBA 16: type 1, "CD001", version 1, root dir record at offset
	// 156 pointing at LBA 18 (the root directory) with length one sector.
	pvd := img.sectors[16]
	pvd[0] = 1
	copy(pvd[1:6], []byte("CD001"))
	pvd[6] = 1
	rootRec := pvd[156:190]
	rootRec[0] = 34
	putLE32(rootRec[2:6], 18)
	putLE32(rootRec[10:14], 2048)
	rootRec[25] = 0x02 // directory flag

	// Root directory at LBA 18: one record for SYSTEM.CNF;1.
	dir := img.sectors[18]
	name := "SYSTEM.CNF;1"
	recLen := 33 + len(name)
	if recLen%2 != 0 {
		recLen++
	}
	dir[0] = byte(recLen)
	putLE32(dir[2:6], 17)
	putLE32(dir[10:14], uint32(len(cnf)))
	dir[25] = 0x00
	dir[32] = byte(len(name))
	copy(dir[33:33+len(name)], name)

	return img
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (f *fakeImage) ReadSectorRaw(lba int) ([]byte, int, error) {
	if lba < 0 || lba >= len(f.sectors) {
		return nil, 0, fmt.Errorf("lba %d out of range", lba)
	}
	return f.sectors[lba], 2048, nil
}

func (f *fakeImage) LeadoutLBA() int { return len(f.sectors) }

func (f *fakeImage) Tracks() []diskimage.Track {
	return []diskimage.Track{{Number: 1, StartLBA: 0, FileIdx: 0, ModeSize: diskimage.SectorUser}}
}

func (f *fakeImage) Close() error { return nil }

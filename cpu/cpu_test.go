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

package cpu

import (
	"testing"

	"github.com/kepler-systems/psx1/cop0"
	"github.com/kepler-systems/psx1/internal/texpect"
)

// flatMem is a trivial word-addressable RAM used only by this package's
// tests; the real bus package provides the production Memory implementation.
type flatMem struct {
	words map[uint32]uint32
}

func newFlatMem() *flatMem { return &flatMem{words: map[uint32]uint32{}} }

func (m *flatMem) ReadByte(addr uint32) uint8 {
	w := m.ReadWord(addr &^ 3)
	return uint8(w >> ((addr & 3) * 8))
}

func (m *flatMem) ReadHalf(addr uint32) uint16 {
	w := m.ReadWord(addr &^ 3)
	return uint16(w >> ((addr & 2) * 8))
}

func (m *flatMem) ReadWord(addr uint32) uint32 { return m.words[addr&^3] }

func (m *flatMem) WriteByte(addr uint32, v uint8) {
	shift := (addr & 3) * 8
	w := m.words[addr&^3]
	w = (w &^ (0xFF << shift)) | (uint32(v) << shift)
	m.words[addr&^3] = w
}

func (m *flatMem) WriteHalf(addr uint32, v uint16) {
	shift := (addr & 2) * 8
	w := m.words[addr&^3]
	w = (w &^ (0xFFFF << shift)) | (uint32(v) << shift)
	m.words[addr&^3] = w
}

func (m *flatMem) WriteWord(addr uint32, v uint32) { m.words[addr&^3] = v }

func newTestCPU() (*CPU, *flatMem) {
	mem := newFlatMem()
	c := New(mem, cop0.New())
	c.SetPC(0)
	return c, mem
}

// encode helpers for the instruction shapes the tests below need.
func rType(funct, rs, rt, rd, shamt uint32) uint32 {
	return (rs << 21) | (rt << 16) | (rd << 11) | (shamt << 6) | funct
}
func iType(op, rs, rt, imm uint32) uint32 {
	return (op << 26) | (rs << 21) | (rt << 16) | (imm & 0xFFFF)
}

func TestRegisterZeroAlwaysReadsZero(t *testing.T) {
	c, _ := newTestCPU()
	c.SetGPR(0, 0xDEADBEEF)
	texpect.Equate(t, c.GPR(0), uint32(0))
}

func TestLoadDelaySlot(t *testing.T) {
	c, mem := newTestCPU()
	mem.WriteWord(0x100, 0x12345678)

	c.SetGPR(1, 0x100) // base register for the load
	c.SetGPR(2, 0xAAAAAAAA)

	// lw $2, 0($1)
	mem.WriteWord(0, iType(0x23, 1, 2, 0))
	// addi $3, $0, 1 (the instruction immediately after the load: must still
	// observe the pre-load value of $2)
	mem.WriteWord(4, iType(0x08, 0, 3, 1))
	// addi $4, $0, 2 (one instruction later: must observe the loaded value)
	mem.WriteWord(8, iType(0x08, 0, 4, 2))

	outcome, _ := c.Step() // executes the lw, arms the load
	texpect.Equate(t, outcome, OK)
	texpect.Equate(t, c.GPR(2), uint32(0xAAAAAAAA))

	outcome, _ = c.Step() // addi $3 - still pre-load value
	texpect.Equate(t, outcome, OK)
	texpect.Equate(t, c.GPR(2), uint32(0xAAAAAAAA))

	outcome, _ = c.Step() // addi $4 - loaded value now visible
	texpect.Equate(t, outcome, OK)
	texpect.Equate(t, c.GPR(2), uint32(0x12345678))
}

func TestBranchDelaySlotAndEPC(t *testing.T) {
	c, mem := newTestCPU()
	c.cop0.Status |= 1 // IEc=1 so the interrupt check doesn't interfere
	c.SetGPR(1, 5)
	c.SetGPR(2, 5)

	// beq $1, $2, +2 (branch taken, skips to PC+4+2*4=PC+12)
	mem.WriteWord(0, iType(0x04, 1, 2, 2))
	// delay slot: addi $3, $0, 0x42 (must still execute)
	mem.WriteWord(4, iType(0x08, 0, 3, 0x42))
	// break, in case the branch was not taken (would land here at PC=8)
	mem.WriteWord(8, rType(0x0D, 0, 0, 0, 0))
	// branch target at PC=12: break, to test EPC/BD after a delay-slot fault
	mem.WriteWord(12, rType(0x0D, 0, 0, 0, 0))

	outcome, _ := c.Step() // beq
	texpect.Equate(t, outcome, OK)

	outcome, _ = c.Step() // delay slot
	texpect.Equate(t, outcome, OK)
	texpect.Equate(t, c.GPR(3), uint32(0x42))

	outcome, _ = c.Step() // break at the branch target
	texpect.Equate(t, outcome, Break)
	texpect.Equate(t, c.cop0.EPC, uint32(12))
	texpect.Equate(t, c.cop0.Cause&(1<<cop0.CauseBD) != 0, false)
}

func TestExceptionInDelaySlotRecordsBranchPC(t *testing.T) {
	c, mem := newTestCPU()
	c.cop0.Status |= 1

	// j 0 (jump to self; irrelevant, just needs to be a taken branch)
	mem.WriteWord(0, (0x02<<26)|0)
	// delay slot: break
	mem.WriteWord(4, rType(0x0D, 0, 0, 0, 0))

	_, _ = c.Step() // j
	outcome, _ := c.Step()
	texpect.Equate(t, outcome, Break)
	texpect.Equate(t, c.cop0.Cause&(1<<cop0.CauseBD) != 0, true)
	texpect.Equate(t, c.cop0.EPC, uint32(0)) // PC-4 of the delay slot (4) is the branch itself (0)
}

func TestUnalignedLoadWordRaisesAddressError(t *testing.T) {
	c, mem := newTestCPU()
	c.SetGPR(1, 1) // base address 1: misaligned for a word load

	mem.WriteWord(0, iType(0x23, 1, 2, 0)) // lw $2, 0($1)
	c.SetGPR(2, 0x99999999)

	outcome, _ := c.Step()
	texpect.Equate(t, outcome, AddressErrorLoad)
	texpect.Equate(t, c.GPR(2), uint32(0x99999999)) // target register untouched
}

func TestDivideByZeroSigned(t *testing.T) {
	c, mem := newTestCPU()
	c.SetGPR(1, 7)
	c.SetGPR(2, 0)
	mem.WriteWord(0, rType(0x1A, 1, 2, 0, 0)) // div $1, $2

	c.Step()
	texpect.Equate(t, c.LO(), uint32(0xFFFFFFFF))
	texpect.Equate(t, c.HI(), uint32(7))
}

func TestDivideOverflowCase(t *testing.T) {
	c, mem := newTestCPU()
	c.SetGPR(1, 0x80000000)
	c.SetGPR(2, 0xFFFFFFFF)
	mem.WriteWord(0, rType(0x1A, 1, 2, 0, 0)) // div $1, $2

	c.Step()
	texpect.Equate(t, c.LO(), uint32(0x80000000))
	texpect.Equate(t, c.HI(), uint32(0))
}

func TestDivideUnsignedByZero(t *testing.T) {
	c, mem := newTestCPU()
	c.SetGPR(1, 42)
	c.SetGPR(2, 0)
	mem.WriteWord(0, rType(0x1B, 1, 2, 0, 0)) // divu $1, $2

	c.Step()
	texpect.Equate(t, c.LO(), uint32(0xFFFFFFFF))
	texpect.Equate(t, c.HI(), uint32(42))
}

func TestInterruptEntryAndReturn(t *testing.T) {
	c, mem := newTestCPU()
	c.cop0.Status = 1 | (1 << (cop0.StatusIm0 + 2)) // IEc=1, IM2=1
	mem.WriteWord(0, iType(0x08, 0, 1, 1)) // addi $1,$0,1 - never reached first

	c.cop0.SetIP2(true)
	outcome, _ := c.Step()
	texpect.Equate(t, outcome, OK)
	texpect.Equate(t, c.PC(), uint32(cop0.GeneralVectorBEV0))
	texpect.ExpectInequality(t, c.cop0.Status&1, uint32(1)) // IEc pushed to 0

	c.cop0.ReturnFromException()
	texpect.Equate(t, c.cop0.Status&1, uint32(1)) // IEc restored
}

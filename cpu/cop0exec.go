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

import "github.com/kepler-systems/psx1/cop0"

// COP0 register numbers this core implements, per spec.md §3's "at minimum"
// list. Unimplemented register numbers read as zero and ignore writes.
const (
	cop0RegBadVAddr = 8
	cop0RegStatus   = 12
	cop0RegCause    = 13
	cop0RegEPC      = 14
	cop0RegPRId     = 15
)

// executeCop0 dispatches the COP0 "CO" sub-format (rs field selects the
// operation: mfc0/mtc0 use the low rs encodings, rfe is rs=0x10 funct=0x10).
func (c *CPU) executeCop0(instr uint32, rs, rt, rd uint32, delaySlot bool) (Outcome, int) {
	switch rs {
	case 0x00: // MFC0
		c.setReg(rt, c.readCop0(rd))
	case 0x04: // MTC0
		c.writeCop0(rd, c.GPR(rt))
	case 0x10: // CO format: RFE (funct 0x10) is the only one this core needs
		if functOf(instr) == 0x10 {
			c.cop0.ReturnFromException()
		} else {
			c.raiseException(cop0.ExcRI, 0, false, delaySlot)
			return IllegalInstruction, c.cycles()
		}
	default:
		c.raiseException(cop0.ExcRI, 0, false, delaySlot)
		return IllegalInstruction, c.cycles()
	}
	return OK, c.cycles()
}

func (c *CPU) readCop0(reg uint32) uint32 {
	switch reg {
	case cop0RegBadVAddr:
		return c.cop0.BadVAddr
	case cop0RegStatus:
		return c.cop0.Status
	case cop0RegCause:
		return c.cop0.Cause
	case cop0RegEPC:
		return c.cop0.EPC
	case cop0RegPRId:
		return c.cop0.PRId
	default:
		return 0
	}
}

// writeCop0 writes the software-settable fields of the selected register.
// Cause is mostly hardware-driven (ExcCode/BD/IP2-7); only the two
// software-interrupt bits (IP0/IP1, bits 8-9) are writable from the CPU.
func (c *CPU) writeCop0(reg uint32, v uint32) {
	switch reg {
	case cop0RegStatus:
		c.cop0.Status = v
	case cop0RegCause:
		const swBits = 0x3 << 8
		c.cop0.Cause = (c.cop0.Cause &^ swBits) | (v & swBits)
	case cop0RegEPC:
		c.cop0.EPC = v
	case cop0RegBadVAddr:
		c.cop0.BadVAddr = v
	default:
		// PRId and unimplemented registers are read-only/ignored.
	}
}

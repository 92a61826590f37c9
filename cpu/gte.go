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

// gte is a stub COP2 (Geometry Transform Engine) register file: the 32 data
// and 32 control registers real software moves values in and out of via
// mfc2/mtc2/cfc2/ctc2, plus the command-word execute path. Spec.md §1 scopes
// out GPU-accurate rendering, and the GTE exists purely to feed the
// rasterizer with transformed vertices, so this core keeps the register
// surface instructions expect without modelling the matrix/vector pipeline
// itself - see DESIGN.md for the open-question note.
type gte struct {
	data    [32]uint32
	control [32]uint32
}

// executeCop2 dispatches mfc2/cfc2 (reads), mtc2/ctc2 (writes) and the
// command word (rs bit 4 set selects the "CO" execute format for any GTE
// opcode).
func (c *CPU) executeCop2(instr uint32, rs, rt, rd uint32) (Outcome, int) {
	if rs&0x10 != 0 {
		// GTE command word: no-op beyond clearing the flag register (31),
		// which real software polls for computation-in-progress/error bits.
		c.gte.control[31] = 0
		return OK, c.cycles()
	}
	switch rs {
	case 0x00: // MFC2
		c.setReg(rt, c.gte.data[rd])
	case 0x02: // CFC2
		c.setReg(rt, c.gte.control[rd])
	case 0x04: // MTC2
		c.gte.data[rd] = c.GPR(rt)
	case 0x06: // CTC2
		c.gte.control[rd] = c.GPR(rt)
	default:
		// Reserved COP2 sub-formats are tolerated rather than trapped: real
		// software occasionally probes COP2 during detection routines before
		// checking for its presence.
	}
	return OK, c.cycles()
}

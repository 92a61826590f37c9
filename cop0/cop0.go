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

// Package cop0 implements the MIPS-I system coprocessor register file: the
// minimum set spec.md §3 requires (Status, Cause, EPC, BadVAddr, PRId).
package cop0

// ExcCode values used in Cause.ExcCode, per spec.md §4.1/§7.
const (
	ExcInt   = 0x00 // interrupt
	ExcMod   = 0x01 // TLB modification (unused, no MMU)
	ExcTLBL  = 0x02 // TLB load (unused, no MMU)
	ExcTLBS  = 0x03 // TLB store (unused, no MMU)
	ExcAdEL  = 0x04 // address error, load
	ExcAdES  = 0x05 // address error, store
	ExcSys   = 0x08 // syscall
	ExcBp    = 0x09 // breakpoint
	ExcRI    = 0x0A // reserved instruction
	ExcCpU   = 0x0B // coprocessor unusable
	ExcOv    = 0x0C // arithmetic overflow
)

// Status bit positions.
const (
	StatusIEc = 0  // current interrupt enable
	StatusKUc = 1  // current kernel/user mode (0 = kernel)
	StatusIEp = 2  // previous interrupt enable
	StatusKUp = 3  // previous kernel/user mode
	StatusIEo = 4  // old interrupt enable
	StatusKUo = 5  // old kernel/user mode
	StatusIm0 = 8  // IM0..IM7 occupy bits 8-15
	StatusIsC = 16 // isolate cache
	StatusBEV = 22 // bootstrap exception vector select
)

// Cause bit positions.
const (
	CauseIp0 = 8  // IP0..IP7 occupy bits 8-15
	CauseBD  = 31 // branch delay slot flag
)

// Exception vector addresses; Status.BEV selects between the BEV0 and BEV1
// variants, per spec.md §4.1.
const (
	GeneralVectorBEV0 = 0x80000080
	GeneralVectorBEV1 = 0xBFC00180
	BreakVectorBEV0   = 0x80000040
	BreakVectorBEV1   = 0xBFC00140
	ResetVector       = 0xBFC00000
)

// COP0 is the system coprocessor register file.
type COP0 struct {
	Status    uint32
	Cause     uint32
	EPC       uint32
	BadVAddr  uint32
	PRId      uint32
}

// New creates a COP0 register file in its post-reset state.
func New() *COP0 {
	c := &COP0{
		PRId: 0x00000002, // R3000A revision observed on retail PS1 hardware
	}
	c.Status = 1 << StatusBEV // BEV=1 until the BIOS clears it
	return c
}

// IEc reports the current global interrupt-enable bit.
func (c *COP0) IEc() bool { return c.Status&(1<<StatusIEc) != 0 }

// IM reports whether IRQ line n (0-7) is unmasked in Status.IM.
func (c *COP0) IM(n uint) bool {
	return c.Status&(1<<(StatusIm0+n)) != 0
}

// BEV reports the current bootstrap exception vector selection.
func (c *COP0) BEV() bool { return c.Status&(1<<StatusBEV) != 0 }

// IsolateCache reports whether the CPU has isolated the (unimplemented) data
// cache from main memory; software uses this bit transiently during early
// boot and self-test and it has no observable effect in this core beyond
// being readable/writable.
func (c *COP0) IsolateCache() bool { return c.Status&(1<<StatusIsC) != 0 }

// SetIP2 drives Cause.IP2, the interrupt-controller's aggregated line.
func (c *COP0) SetIP2(level bool) {
	if level {
		c.Cause |= 1 << (CauseIp0 + 2)
	} else {
		c.Cause &^= 1 << (CauseIp0 + 2)
	}
}

// PendingInterrupt reports whether an interrupt should be taken before the
// next instruction executes: Cause.IP2 set, Status.IEc set and Status.IM2
// set, per spec.md §4.1.
func (c *COP0) PendingInterrupt() bool {
	ip2 := c.Cause&(1<<(CauseIp0+2)) != 0
	return ip2 && c.IEc() && c.IM(2)
}

// ExcCode extracts the ExcCode field of Cause.
func ExcCode(cause uint32) uint32 {
	return (cause >> 2) & 0x1F
}

// EnterException pushes the interrupt-enable/mode stack (IEo<-IEp, IEp<-IEc,
// IEc<-0, and identically for KU), sets Cause.ExcCode and Cause.BD, and
// returns the vector address to jump to.
func (c *COP0) EnterException(excCode uint32, badVAddr uint32, hasBadVAddr bool, epc uint32, branchDelay bool, isBreak bool) uint32 {
	stack := (c.Status >> 0) & 0x3F // IEc,KUc,IEp,KUp,IEo,KUo as the low 6 bits
	stack = (stack << 2) & 0x3F
	c.Status = (c.Status &^ 0x3F) | stack

	c.Cause = (c.Cause &^ (0x1F << 2)) | (excCode << 2)
	if branchDelay {
		c.Cause |= 1 << CauseBD
		c.EPC = epc - 4
	} else {
		c.Cause &^= 1 << CauseBD
		c.EPC = epc
	}

	if hasBadVAddr {
		c.BadVAddr = badVAddr
	}

	if isBreak {
		if c.BEV() {
			return BreakVectorBEV1
		}
		return BreakVectorBEV0
	}
	if c.BEV() {
		return GeneralVectorBEV1
	}
	return GeneralVectorBEV0
}

// ReturnFromException pops the interrupt-enable/mode stack, implementing the
// rfe instruction.
func (c *COP0) ReturnFromException() {
	stack := c.Status & 0x3F
	stack = stack >> 2
	c.Status = (c.Status &^ 0x0F) | stack
}

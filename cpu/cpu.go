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

// Package cpu implements the R3000/MIPS-I interpreter (spec.md §4.1): fetch,
// decode, execute with delay slots and a one-deep load-delay slot, COP0
// exception entry/return, and a stub COP2 (GTE) register surface sufficient
// to keep BIOS boot code that merely moves GTE registers around from
// trapping (full 3D transform math is GPU-rasterization territory, out of
// scope per spec.md §1).
package cpu

import (
	"github.com/kepler-systems/psx1/cop0"
	"github.com/kepler-systems/psx1/logger"
)

// Memory is the bus access the CPU needs: byte/halfword/word load and store.
// Defined here (rather than imported from the bus package) so the bus is
// free to depend on this package's Outcome type without an import cycle,
// mirroring the teacher's cpu/cpubus split (see DESIGN.md).
type Memory interface {
	ReadByte(addr uint32) uint8
	ReadHalf(addr uint32) uint16
	ReadWord(addr uint32) uint32
	WriteByte(addr uint32, v uint8)
	WriteHalf(addr uint32, v uint16)
	WriteWord(addr uint32, v uint32)
}

// Outcome is the host-level result of one Step call. Hardware exceptions
// (address error, break, syscall, interrupt) are normal control flow and are
// still reported so a tracing host can observe them, but none of them stop
// the CPU - only Halt does, per spec.md §7.
type Outcome int

const (
	OK Outcome = iota
	IllegalInstruction
	AddressErrorLoad
	AddressErrorStore
	Break
	Syscall
	Halt
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case IllegalInstruction:
		return "illegal_instruction"
	case AddressErrorLoad:
		return "address_error_load"
	case AddressErrorStore:
		return "address_error_store"
	case Break:
		return "break"
	case Syscall:
		return "syscall"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

type loadSlot struct {
	reg   uint32
	value uint32
	valid bool
}

// CPU is the R3000 register file plus the pipeline bookkeeping needed for
// delay slots and load delay, per spec.md §3.
type CPU struct {
	gpr [32]uint32
	hi  uint32
	lo  uint32

	pc        uint32
	nextPC    uint32
	currentPC uint32

	delaySlot bool // true: the instruction about to execute IS a branch delay slot
	branch    bool // set true during execute() of a taken branch/jump

	armedLoad   loadSlot // committed at the start of THIS step
	pendingLoad loadSlot // queued by THIS step's instruction, promoted to armedLoad next step

	cop0 *cop0.COP0
	gte  gte

	mem Memory

	// M scales the cycle count Step reports, per spec.md §4.1's "cycle
	// multiplier parameter M" (default 1).
	M int
}

// New creates a CPU wired to mem and cop0, with PC at the reset vector.
func New(mem Memory, c0 *cop0.COP0) *CPU {
	c := &CPU{mem: mem, cop0: c0, M: 1}
	c.pc = cop0.ResetVector
	c.nextPC = c.pc + 4
	return c
}

// GPR returns general-purpose register n (0 always reads 0).
func (c *CPU) GPR(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return c.gpr[n&0x1F]
}

// SetGPR sets general-purpose register n, ignoring writes to register 0.
func (c *CPU) SetGPR(n uint32, v uint32) {
	if n != 0 {
		c.gpr[n&0x1F] = v
	}
}

// PC returns the address of the instruction about to be fetched.
func (c *CPU) PC() uint32 { return c.pc }

// SetPC redirects fetch to addr, discarding any in-flight branch/delay-slot
// state. Used by reset and by the host driver's fast-boot path.
func (c *CPU) SetPC(addr uint32) {
	c.pc = addr
	c.nextPC = addr + 4
	c.branch = false
	c.delaySlot = false
}

// HI / LO return the multiply/divide result registers.
func (c *CPU) HI() uint32 { return c.hi }
func (c *CPU) LO() uint32 { return c.lo }

// SetHI / SetLO let HLE routines and tests prime the multiplier result.
func (c *CPU) SetHI(v uint32) { c.hi = v }
func (c *CPU) SetLO(v uint32) { c.lo = v }

// COP0 exposes the system coprocessor register file for the bus's MMIO
// dispatch (COP0 is not memory-mapped on real hardware, but the driver needs
// read access for tracing/HLE) and for IRQ wiring.
func (c *CPU) COP0() *cop0.COP0 { return c.cop0 }

func (c *CPU) setReg(n uint32, v uint32) { c.SetGPR(n, v) }

// queueLoad arms a one-deep load-delay write, per spec.md §4.1: visible only
// after one further instruction executes.
func (c *CPU) queueLoad(reg uint32, value uint32) {
	c.pendingLoad = loadSlot{reg: reg, value: value, valid: true}
}

// commitLoads applies the load armed by the step before last, then promotes
// the previous step's queued load into the armed slot for next time. See
// cpu_test.go for the worked two-step timeline this implements.
func (c *CPU) commitLoads() {
	if c.armedLoad.valid {
		c.SetGPR(c.armedLoad.reg, c.armedLoad.value)
	}
	c.armedLoad = c.pendingLoad
	c.pendingLoad = loadSlot{}
}

// Step fetches, decodes and executes exactly one instruction - or, if a COP0
// interrupt is pending, enters the exception handler instead - per spec.md
// §4.1/§4.8. It returns the outcome and the number of CPU cycles elapsed
// (always 1*M; spec.md §9 notes per-class cycle cost is out of scope for this
// core beyond multiply/divide, which are not stalled either).
func (c *CPU) Step() (Outcome, int) {
	if c.cop0.PendingInterrupt() {
		// The instruction at c.pc has not fetched yet; it is the one the
		// interrupt preempts, so it - not the previous step's address - is
		// the EPC base.
		c.currentPC = c.pc
		c.raiseException(cop0.ExcInt, 0, false, c.delaySlot)
		return OK, c.cycles()
	}

	pc := c.pc
	if pc == 0xFFFFFFFF {
		logger.Logf("CPU", "halt: fetch from 0xFFFFFFFF (pc=%08X epc=%08X ra=%08X sp=%08X)",
			pc, c.cop0.EPC, c.GPR(31), c.GPR(29))
		return Halt, c.cycles()
	}
	if pc&3 != 0 {
		c.currentPC = pc
		c.commitLoads()
		c.raiseException(cop0.ExcAdEL, pc, true, c.delaySlot)
		return AddressErrorLoad, c.cycles()
	}

	instr := c.mem.ReadWord(pc)

	c.currentPC = pc
	// delaySlotNow reflects whether THIS instruction is itself a delay slot;
	// that status was fixed by the previous Step's own branch/jump, so it
	// must be read before anything below updates c.delaySlot for the next one.
	delaySlotNow := c.delaySlot
	c.pc = c.nextPC
	c.nextPC = c.pc + 4

	c.commitLoads()

	outcome, cycles := c.execute(instr, delaySlotNow)
	c.delaySlot = c.branch
	c.branch = false

	return outcome, cycles
}

func (c *CPU) cycles() int {
	if c.M <= 0 {
		return 1
	}
	return c.M
}

// raiseException drives COP0 exception entry and redirects fetch to the
// resulting vector, aborting any in-flight branch.
func (c *CPU) raiseException(excCode uint32, badVAddr uint32, hasBadVAddr bool, delaySlot bool) {
	isBreak := excCode == cop0.ExcBp
	vector := c.cop0.EnterException(excCode, badVAddr, hasBadVAddr, c.currentPC, delaySlot, isBreak)
	c.pc = vector
	c.nextPC = vector + 4
	c.branch = false
	c.delaySlot = false
}

// jump sets the address the instruction AFTER the delay slot will fetch.
// nextPC already holds the delay slot's address (pc+4) at call time, so
// absolute jumps simply overwrite it.
func (c *CPU) jump(target uint32) {
	c.nextPC = target
	c.branch = true
}

// branchRel computes a PC-relative branch target as pc (which already holds
// the delay slot's address at this point in Step) plus a sign-extended,
// word-shifted offset, per spec.md §4.1 and the MIPS-I branch target
// definition (relative to the delay slot instruction's own address).
func (c *CPU) branchRel(offset uint32) {
	c.nextPC = c.pc + offset
	c.branch = true
}

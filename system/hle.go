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
	"strconv"
	"strings"

	"github.com/kepler-systems/psx1/bus"
	"github.com/kepler-systems/psx1/logger"
)

// hleResult is what an HLE routine hands back to interceptHLE: the value to
// place in $v0, and whether the routine returns through EPC (the exception
// handler's own "resume the interrupted instruction" exit) rather than the
// ordinary jr-ra convention every other kernel call uses.
type hleResult struct {
	v0     uint32
	useEPC bool
}

func retOK(v0 uint32) hleResult { return hleResult{v0: v0} }

type hleFunc func(s *System) hleResult

// aTable and bTable hold only the selectors spec.md §4.8 names as required
// for boot progression; any other selector falls through to the BIOS image's
// own trampoline code at that vector.
var aTable = map[byte]hleFunc{
	0x17: hleReturnFromException,
	0x25: hleStdOutPutChar,
	0x3F: hlePrintf,
}

var bTable = map[byte]hleFunc{
	0x17: hleReturnFromException,
	0x3D: hleStdOutPutChar,
	0x4B: hleStartPAD,
	0x72: hleCdRemove,
	0x0B: hleWaitEvent,
	0x0C: hleTestEvent,
	0x08: hleOpenEvent,
	0x09: hleCloseEvent,
}

// hleEvent is the BIOS event-descriptor record OpenEvent/TestEvent/WaitEvent/
// CloseEvent operate on.
type hleEvent struct {
	class, spec, mode, fhandler uint32
}

// hleState is the HLE dispatch layer's own bookkeeping, separate from System
// so system.go's wiring stays focused on the subsystems spec.md §2 names.
type hleState struct {
	events     map[uint32]*hleEvent
	nextHandle uint32
}

func newHLEState() *hleState {
	return &hleState{events: map[uint32]*hleEvent{}, nextHandle: 0xF0000001}
}

// interceptHLE checks whether the CPU is about to fetch from one of the
// three kernel-call trampolines (spec.md §4.8: "0x80000080/0xA0/B0/C0" -
// meaning the physical addresses 0xA0/0xB0/0xC0 reachable through any of
// KUSEG/KSEG0/KSEG1, not the literal segment-base values) and, if the
// selector in $t1 names a routine this core emulates, runs it and redirects
// fetch to the caller per MIPS calling convention instead of letting the CPU
// execute the BIOS's own implementation.
func (s *System) interceptHLE() bool {
	phys := bus.Mask(s.CPU.PC())

	var table map[byte]hleFunc
	switch phys {
	case 0xA0:
		table = aTable
	case 0xB0:
		table = bTable
	default:
		return false
	}

	selector := byte(s.CPU.GPR(9)) // $t1
	fn, ok := table[selector]
	if !ok {
		return false
	}

	res := fn(s)
	s.CPU.SetGPR(2, res.v0) // $v0
	if res.useEPC {
		s.CPU.SetPC(s.COP0.EPC)
	} else {
		s.CPU.SetPC(s.CPU.GPR(31)) // $ra
	}
	return true
}

func hleReturnFromException(s *System) hleResult {
	s.COP0.ReturnFromException()
	return hleResult{useEPC: true}
}

func hleStdOutPutChar(s *System) hleResult {
	if s.callbacks.PutChar != nil {
		s.callbacks.PutChar(byte(s.CPU.GPR(4))) // $a0
	}
	return retOK(0)
}

// hlePrintf emulates the BIOS's C-library printf closely enough for boot
// diagnostics: %d/%u/%x/%c/%s/%%, with the first three varargs taken from
// $a1-$a3 (MIPS-I passes exactly that many in registers; boot-time format
// strings this core has been exercised against never need a fourth).
func hlePrintf(s *System) hleResult {
	text := s.formatPrintf(s.CPU.GPR(4))
	if s.callbacks.PutChar != nil {
		for i := 0; i < len(text); i++ {
			s.callbacks.PutChar(text[i])
		}
	}
	return retOK(uint32(len(text)))
}

func (s *System) readCString(addr uint32) string {
	var sb strings.Builder
	for i := uint32(0); i < 4096; i++ {
		c := s.Bus.ReadByte(addr + i)
		if c == 0 {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func (s *System) formatPrintf(fmtPtr uint32) string {
	format := s.readCString(fmtPtr)
	argRegs := [3]uint32{s.CPU.GPR(5), s.CPU.GPR(6), s.CPU.GPR(7)} // $a1, $a2, $a3
	argIdx := 0
	nextArg := func() uint32 {
		if argIdx < len(argRegs) {
			v := argRegs[argIdx]
			argIdx++
			return v
		}
		return 0
	}

	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case 'd':
			sb.WriteString(strconv.Itoa(int(int32(nextArg()))))
		case 'u':
			sb.WriteString(strconv.FormatUint(uint64(nextArg()), 10))
		case 'x':
			sb.WriteString(strconv.FormatUint(uint64(nextArg()), 16))
		case 'c':
			sb.WriteByte(byte(nextArg()))
		case 's':
			sb.WriteString(s.readCString(nextArg()))
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}
	return sb.String()
}

func hleStartPAD(s *System) hleResult {
	logger.Logf("HLE", "StartPAD")
	return retOK(0)
}

// hleCdRemove is a log-and-acknowledge stub for this boot-progression
// selector: it neither cancels an outstanding CD-ROM command nor ejects the
// disc, and returns 1.
func hleCdRemove(s *System) hleResult {
	logger.Logf("HLE", "CdRemove")
	return retOK(1)
}

func hleOpenEvent(s *System) hleResult {
	handle := s.hle.nextHandle
	s.hle.nextHandle++
	s.hle.events[handle] = &hleEvent{
		class:    s.CPU.GPR(4),
		spec:     s.CPU.GPR(5),
		mode:     s.CPU.GPR(6),
		fhandler: s.CPU.GPR(7),
	}
	logger.Logf("HLE", "OpenEvent class=%08X handle=%08X", s.CPU.GPR(4), handle)
	return retOK(handle)
}

func hleCloseEvent(s *System) hleResult {
	delete(s.hle.events, s.CPU.GPR(4))
	return retOK(1)
}

// hleTestEvent and hleWaitEvent report every registered event as already
// satisfied: this core does not model the asynchronous sources (VBlank,
// CD-ROM completion) a real event would actually be waiting on, and reporting
// "ready" immediately is what keeps a boot-time polling loop from spinning
// forever instead of genuinely blocking this synchronous interpreter can't
// model (see DESIGN.md's Open Question decision for BIOS event HLE).
func hleTestEvent(s *System) hleResult {
	if _, ok := s.hle.events[s.CPU.GPR(4)]; !ok {
		return retOK(0)
	}
	return retOK(1)
}

func hleWaitEvent(s *System) hleResult {
	return retOK(1)
}

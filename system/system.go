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

// Package system is the core driver (spec.md §4.8): it owns every other
// subsystem, wires their cross-component callbacks per Design Notes §9 (no
// back-pointers - CDROM, DMA, timers and SIO0 each raise their
// interrupt-controller edge through a closure registered here), and exposes
// Step to run exactly one CPU instruction (or take one pending interrupt)
// and tick every other device by its cycle cost.
package system

import (
	"fmt"
	"os"

	"github.com/kepler-systems/psx1/bus"
	"github.com/kepler-systems/psx1/cdrom"
	"github.com/kepler-systems/psx1/cop0"
	"github.com/kepler-systems/psx1/cpu"
	"github.com/kepler-systems/psx1/curated"
	"github.com/kepler-systems/psx1/diskimage"
	"github.com/kepler-systems/psx1/dma"
	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/gpu"
	"github.com/kepler-systems/psx1/irq"
	"github.com/kepler-systems/psx1/logger"
	"github.com/kepler-systems/psx1/sio0"
	"github.com/kepler-systems/psx1/spu"
	"github.com/kepler-systems/psx1/timer"
)

// CyclesPerFrame approximates the NTSC vertical-blank cadence (33.8688MHz
// CPU clock / 59.94Hz field rate) closely enough for BIOS boot code that
// waits on VBlank interrupts; spec.md §1 scopes GPU-accurate video timing
// out, so this is the one place the driver approximates it instead of
// threading real scanline timing through the GPU adapter.
const CyclesPerFrame = 564480

// Callbacks are the host collaborators spec.md §6 requires: console output,
// audio frames, and an optional out-of-range SetLoc diagnostic. Any field
// left nil is simply never called.
type Callbacks struct {
	PutChar        func(b byte)
	AudioSamples   func(frames []int16)
	GarbageSetLoc  func(lba, discEnd int)
}

// System owns every subsystem spec.md §2 lists and is the sole thing a host
// constructs.
type System struct {
	Env *environment.Environment

	COP0   *cop0.COP0
	CPU    *cpu.CPU
	Bus    *bus.Bus
	IRQ    *irq.Controller
	Timers *timer.Bank
	CDROM  *cdrom.Drive
	SIO0   *sio0.Port
	GPU    *gpu.GPU
	SPU    *spu.SPU

	callbacks Callbacks

	pendingCycles int
	frameCycles   int

	halted     bool
	haltReason string

	hle *hleState

	loopSeen     map[uint32]int
	loopDumped   map[uint32]bool
	statsStarted bool
}

// New constructs a fully wired System: every cross-component callback named
// in Design Notes §9 is registered here, in construction order, so no
// subsystem ever holds a pointer back to another.
func New(env *environment.Environment, cb Callbacks) (*System, error) {
	s := &System{Env: env, callbacks: cb}

	s.COP0 = cop0.New()
	s.IRQ = irq.New(env, s.COP0.SetIP2)
	s.Timers = timer.New(func(n int) { s.IRQ.Pulse(timerSource(n)) })
	s.CDROM = cdrom.New(env, func(level bool) { s.IRQ.Raise(irq.CDROM, level) })
	s.CDROM.SetGarbageSetLocHook(cb.GarbageSetLoc)
	s.SIO0 = sio0.New(env, func(level bool) { s.IRQ.Raise(irq.PadMemCard, level) })
	s.GPU = gpu.New(env)

	var captureFile *os.File
	if env.Options.CaptureWAV != "" {
		f, err := os.Create(env.Options.CaptureWAV)
		if err != nil {
			return nil, curated.Errorf("cannot open SPU capture file: %s", err)
		}
		captureFile = f
	}
	if captureFile != nil {
		s.SPU = spu.New(env, cb.AudioSamples, captureFile)
	} else {
		s.SPU = spu.New(env, cb.AudioSamples, nil)
	}

	s.Bus = bus.New(env, s.IRQ, s.Timers, s.CDROM, s.SIO0, s.GPU, s.SPU, func() { s.IRQ.Pulse(irq.DMA) })
	s.Bus.DMA().AttachDevice(dma.ChanGPU, s.GPU)
	s.Bus.DMA().AttachDevice(dma.ChanCDROM, s.CDROM)
	s.Bus.DMA().AttachDevice(dma.ChanSPU, s.SPU)

	s.CPU = cpu.New(s.Bus, s.COP0)

	s.hle = newHLEState()
	s.loopSeen = make(map[uint32]int)
	s.loopDumped = make(map[uint32]bool)

	if env.Options.StatsView {
		s.startStatsView()
	}

	return s, nil
}

func timerSource(n int) irq.Source {
	switch n {
	case 0:
		return irq.Timer0
	case 1:
		return irq.Timer1
	default:
		return irq.Timer2
	}
}

// LoadBIOS loads a 512 KiB BIOS image at 0x1FC00000, per spec.md §6.
func (s *System) LoadBIOS(data []byte) error {
	if len(data) == 0 {
		return curated.Errorf("cannot load BIOS: %s", "empty image")
	}
	s.Bus.LoadBIOS(data)
	logger.Logf("CPU", "BIOS loaded (%d bytes)", len(data))
	return nil
}

// InsertDisc opens a disc image and inserts it into the CD-ROM controller.
func (s *System) InsertDisc(img diskimage.Image) error {
	return s.CDROM.InsertDisc(img)
}

// RemoveDisc ejects the current disc, if any.
func (s *System) RemoveDisc() {
	s.CDROM.RemoveDisc()
}

// Reset restores the CPU's program counter to the reset vector, the entry
// point for a cold boot through the BIOS's own exception vectors.
func (s *System) Reset() {
	s.CPU.SetPC(cop0.ResetVector)
	s.halted = false
	s.haltReason = ""
}

// Halted reports whether the driver has stopped calling into the CPU,
// either because Step observed cpu.Halt or because the host called Stop.
func (s *System) Halted() bool { return s.halted }

// HaltReason returns the diagnostic message recorded when the system
// halted, or "" if it has not.
func (s *System) HaltReason() string { return s.haltReason }

// Step runs one instruction (or, if hle_vectors is armed and the CPU is
// about to fetch from one of the A0/B0/C0 kernel-call trampolines, one HLE
// routine instead) and ticks every other device by the resulting cycle
// count, per spec.md §4.8/§2's data-and-control-flow paragraph. It returns
// the CPU outcome of the step just taken.
func (s *System) Step() cpu.Outcome {
	if s.halted {
		return cpu.Halt
	}

	if s.Env.Options.HLEVectors {
		if handled := s.interceptHLE(); handled {
			s.tick(s.CPU.M)
			return cpu.OK
		}
	}

	if s.Env.Options.LoopDetectors {
		s.checkLoop()
	}

	outcome, cycles := s.CPU.Step()
	s.tick(cycles)

	if outcome == cpu.Halt {
		s.halted = true
		s.haltReason = fmt.Sprintf("halt at pc=%08X epc=%08X ra=%08X sp=%08X",
			s.CPU.PC(), s.COP0.EPC, s.CPU.GPR(31), s.CPU.GPR(29))
	}
	return outcome
}

// tick advances the bus by cycles CPU cycles, coalescing into batches of
// BusTickBatch per spec.md §4.8's enumerated option (1 = cycle-accurate).
func (s *System) tick(cycles int) {
	s.pendingCycles += cycles
	batch := s.Env.Options.BusTickBatch
	if batch <= 0 {
		batch = 1
	}
	if s.pendingCycles < batch {
		return
	}
	elapsed := s.pendingCycles
	s.pendingCycles = 0
	s.Bus.Tick(elapsed)

	s.frameCycles += elapsed
	if s.frameCycles >= CyclesPerFrame {
		s.frameCycles -= CyclesPerFrame
		s.IRQ.Pulse(irq.VBlank)
	}
}

// Run calls Step up to n times, stopping early if the system halts.
// Instructions is the count actually executed.
func (s *System) Run(n int) (instructions int) {
	for i := 0; i < n; i++ {
		s.Step()
		instructions++
		if s.halted {
			break
		}
	}
	return instructions
}

// GPUSnapshot is a convenience forward to the GPU adapter's coherent
// snapshot, per spec.md §6's host-exposure contract.
func (s *System) GPUSnapshot() gpu.Snapshot { return s.GPU.TakeSnapshot() }

// SetButtons forwards the host's pad state write to the SIO0 port.
func (s *System) SetButtons(mask uint16) { s.SIO0.SetButtons(mask) }

// Close releases any resources (SPU WAV capture, inserted disc) the system
// opened.
func (s *System) Close() error {
	var first error
	if err := s.SPU.Close(); err != nil && first == nil {
		first = err
	}
	s.CDROM.RemoveDisc()
	return first
}

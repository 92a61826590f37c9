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

package bus

import (
	"github.com/kepler-systems/psx1/cdrom"
	"github.com/kepler-systems/psx1/dma"
	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/gpu"
	"github.com/kepler-systems/psx1/irq"
	"github.com/kepler-systems/psx1/logger"
	"github.com/kepler-systems/psx1/sio0"
	"github.com/kepler-systems/psx1/spu"
	"github.com/kepler-systems/psx1/timer"
)

// Bus decodes the CPU/DMA address space and dispatches 8/16/32-bit accesses
// to RAM, scratchpad, BIOS ROM, or one of the MMIO devices, per spec.md §4.2.
// It implements both cpu.Memory and dma.Memory without importing either
// package, since both interfaces are structural.
type Bus struct {
	env *environment.Environment

	ram      [RAMSize]byte
	scratch  [ScratchpadSize]byte
	bios     [BIOSSize]byte
	biosSize int

	irq    *irq.Controller
	dma    *dma.Engine
	timers *timer.Bank
	cdrom  *cdrom.Drive
	sio    *sio0.Port
	gpu    *gpu.GPU
	spu    *spu.SPU
}

// New creates a Bus with RAM and scratchpad filled with power-on garbage
// (env.Random) and wires it to the already-constructed peripheral set. The
// DMA engine is constructed here, not passed in, because it needs the Bus
// itself as its dma.Memory - the Bus is fully allocated (if not yet
// returned) by the time dma.New is called, and the engine does not touch
// memory until a later CHCR-triggered transfer, so the partially-built
// receiver is safe to hand off. onDMAIRQ is forwarded to dma.New.
func New(env *environment.Environment, irqc *irq.Controller, timers *timer.Bank, cd *cdrom.Drive, sio *sio0.Port, gpuAdapter *gpu.GPU, spuAdapter *spu.SPU, onDMAIRQ func()) *Bus {
	b := &Bus{
		env:    env,
		irq:    irqc,
		timers: timers,
		cdrom:  cd,
		sio:    sio,
		gpu:    gpuAdapter,
		spu:    spuAdapter,
	}
	b.dma = dma.New(b, onDMAIRQ)
	env.Random.Fill(b.ram[:])
	env.Random.Fill(b.scratch[:])
	return b
}

// DMA exposes the DMA engine so the host driver can attach per-channel
// devices (cdrom, gpu, spu) once they too have been constructed.
func (b *Bus) DMA() *dma.Engine { return b.dma }

// LoadBIOS copies a BIOS image into the BIOS ROM window, truncating or
// zero-padding to BIOSSize as needed.
func (b *Bus) LoadBIOS(data []byte) {
	n := copy(b.bios[:], data)
	b.biosSize = n
}

// LoadRAM copies data into main RAM starting at the given physical (already
// KSEG-masked) offset, for the PS-X EXE loader and fast-boot path.
func (b *Bus) LoadRAM(offset uint32, data []byte) {
	copy(b.ram[offset:], data)
}

// Tick advances every cycle-driven peripheral by cycles CPU cycles, per
// spec.md §4.2's "forwards tick-time to its sub-devices in batches". DMA has
// no time-driven state of its own (transfers run to completion on CHCR
// write) so it is not ticked here.
func (b *Bus) Tick(cycles int) {
	b.cdrom.Tick(cycles)
	b.timers.Tick(cycles, 0, 0)
}

func (b *Bus) warnUnmapped(kind string, addr uint32) {
	logger.Logf("BUS", "unmapped %s at %08X", kind, addr)
}

func (b *Bus) traceIO(format string, args ...any) {
	if b.env.Options.TraceIO {
		logger.Logf("MMIO", format, args...)
	}
}

// ReadByte reads one byte, per spec.md §4.2.
func (b *Bus) ReadByte(addr uint32) uint8 {
	phys := Mask(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		return b.ram[off]
	case regionScratchpad:
		return b.scratch[off]
	case regionBIOS:
		return b.bios[off]
	case regionMMIO:
		return b.readMMIOByte(off)
	default:
		b.warnUnmapped("byte read", addr)
		return 0xFF
	}
}

// WriteByte writes one byte, per spec.md §4.2.
func (b *Bus) WriteByte(addr uint32, v uint8) {
	phys := Mask(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		b.ram[off] = v
	case regionScratchpad:
		b.scratch[off] = v
	case regionBIOS:
		// BIOS ROM is read-only.
	case regionMMIO:
		b.writeMMIOByte(off, v)
	default:
		b.warnUnmapped("byte write", addr)
	}
}

// ReadHalf reads one little-endian halfword.
func (b *Bus) ReadHalf(addr uint32) uint16 {
	phys := Mask(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		return uint16(b.ram[off]) | uint16(b.ram[off+1])<<8
	case regionScratchpad:
		return uint16(b.scratch[off]) | uint16(b.scratch[off+1])<<8
	case regionBIOS:
		return uint16(b.bios[off]) | uint16(b.bios[off+1])<<8
	case regionMMIO:
		return b.readMMIOHalf(off)
	default:
		b.warnUnmapped("half read", addr)
		return 0xFFFF
	}
}

// WriteHalf writes one little-endian halfword.
func (b *Bus) WriteHalf(addr uint32, v uint16) {
	phys := Mask(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		b.ram[off] = byte(v)
		b.ram[off+1] = byte(v >> 8)
	case regionScratchpad:
		b.scratch[off] = byte(v)
		b.scratch[off+1] = byte(v >> 8)
	case regionBIOS:
	case regionMMIO:
		b.writeMMIOHalf(off, v)
	default:
		b.warnUnmapped("half write", addr)
	}
}

// ReadWord reads one little-endian word.
func (b *Bus) ReadWord(addr uint32) uint32 {
	phys := Mask(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		return le32(b.ram[:], off)
	case regionScratchpad:
		return le32(b.scratch[:], off)
	case regionBIOS:
		return le32(b.bios[:], off)
	case regionMMIO:
		return b.readMMIOWord(off)
	default:
		b.warnUnmapped("word read", addr)
		return 0xFFFFFFFF
	}
}

// WriteWord writes one little-endian word.
func (b *Bus) WriteWord(addr uint32, v uint32) {
	phys := Mask(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		putLe32(b.ram[:], off, v)
	case regionScratchpad:
		putLe32(b.scratch[:], off, v)
	case regionBIOS:
	case regionMMIO:
		b.writeMMIOWord(off, v)
	default:
		b.warnUnmapped("word write", addr)
	}
}

func le32(buf []byte, off uint32) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

func putLe32(buf []byte, off uint32, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

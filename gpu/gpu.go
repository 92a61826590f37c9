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

// Package gpu is the GPU adapter: it records the GP0 command stream and
// exposes the VRAM surface the rasterizer would consume, without performing
// any rasterization itself - spec.md §1 scopes 3D/2D drawing internals to an
// external collaborator and asks this core only for "the command queue and
// VRAM surface it exposes".
package gpu

import (
	"sync"

	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/logger"
)

// VRAM dimensions, per spec.md §6: 1024x512 pixels, 16 bits each.
const (
	VRAMWidth  = 1024
	VRAMHeight = 512
)

// GPUSTAT bits this adapter models accurately enough for BIOS polling loops
// to proceed; the remaining bits (texture page, dither, mask settings) are
// rasterizer configuration this core does not interpret.
const (
	statReadyRecvCmd  = 1 << 26
	statReadyVRAMSend = 1 << 27
	statReadyDMABlock = 1 << 28
	statDMADirShift   = 29
	statInterlaceOdd  = 1 << 31
)

// DisplayConfig mirrors spec.md §6's host exposure: the current display
// window and video standard.
type DisplayConfig struct {
	X, Y          int
	Width, Height int
	IsPAL         bool
}

// Snapshot is a coherent copy of the GPU's host-visible state, per spec.md
// §6's "host thread may request a coherent copy ... through a critical
// section".
type Snapshot struct {
	VRAM     [VRAMHeight][VRAMWidth]uint16
	DrawList [][]uint32
	Display  DisplayConfig
}

// GPU is the command-queue + VRAM adapter wired to GP0/GP1/GPUSTAT/GPUREAD
// and DMA channel 2.
type GPU struct {
	env *environment.Environment

	mu   sync.Mutex // guards vram/drawList: see Snapshot's doc comment
	vram [VRAMHeight][VRAMWidth]uint16

	// drawList accumulates one entry per GP0 packet word: spec.md's scope cut
	// stops at recording the command stream, not decoding variable-length
	// packets, so each entry here is the single word a real packet decoder
	// would consume one or more of.
	drawList [][]uint32

	readFIFO []uint16 // VRAM->CPU words queued by a VRAM-read GP0 command

	gpustat uint32
	display DisplayConfig

	dmaDirection uint32 // GP1(0x04) selection, read back via GPUSTAT 29-30
}

// New creates a GPU adapter with an empty VRAM and the default NTSC display
// configuration.
func New(env *environment.Environment) *GPU {
	g := &GPU{env: env}
	g.display = DisplayConfig{Width: 320, Height: 240}
	g.gpustat = statReadyRecvCmd | statReadyVRAMSend | statReadyDMABlock
	return g
}

// WriteGP0 appends one GP0 command word to the draw-list recording.
func (g *GPU) WriteGP0(v uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drawList = append(g.drawList, []uint32{v})
	logger.Logf("GPU", "GP0 %08X", v)
}

// WriteGP1 handles the GPU control port: reset, display enable, display
// area/mode, and the DMA direction selector GPUSTAT reports in bits 29-30.
func (g *GPU) WriteGP1(v uint32) {
	cmd := v >> 24
	switch cmd {
	case 0x00: // reset GPU
		g.mu.Lock()
		g.vram = [VRAMHeight][VRAMWidth]uint16{}
		g.drawList = nil
		g.mu.Unlock()
		g.gpustat = statReadyRecvCmd | statReadyVRAMSend | statReadyDMABlock
	case 0x03: // display enable (bit 0 of arg: 0=on, 1=off); tracked in bit 23
		if v&1 != 0 {
			g.gpustat |= 1 << 23
		} else {
			g.gpustat &^= 1 << 23
		}
	case 0x04: // DMA direction
		g.dmaDirection = v & 0x3
		g.gpustat = (g.gpustat &^ (0x3 << statDMADirShift)) | (g.dmaDirection << statDMADirShift)
	case 0x05: // display area start (VRAM coordinates)
		g.display.X = int(v & 0x3FF)
		g.display.Y = int((v >> 10) & 0x1FF)
	case 0x08: // display mode: bit 3 selects PAL
		g.display.IsPAL = v&(1<<3) != 0
	}
	logger.Logf("GPU", "GP1 %08X", v)
}

// ReadGPUSTAT returns the status register BIOS/game code polls before
// issuing GP0 commands or starting a GPU DMA transfer.
func (g *GPU) ReadGPUSTAT() uint32 { return g.gpustat }

// ReadGPUREAD pops the next queued VRAM->CPU word, or 0 if none is queued.
func (g *GPU) ReadGPUREAD() uint32 {
	if len(g.readFIFO) == 0 {
		return 0
	}
	lo := g.readFIFO[0]
	g.readFIFO = g.readFIFO[1:]
	if len(g.readFIFO) == 0 {
		return uint32(lo)
	}
	hi := g.readFIFO[0]
	g.readFIFO = g.readFIFO[1:]
	return uint32(lo) | uint32(hi)<<16
}

// WriteVRAM lets a host-level test harness or HLE routine poke VRAM directly,
// standing in for the rasterizer this core does not implement.
func (g *GPU) WriteVRAM(x, y int, pixel uint16) {
	if x < 0 || x >= VRAMWidth || y < 0 || y >= VRAMHeight {
		return
	}
	g.mu.Lock()
	g.vram[y][x] = pixel
	g.mu.Unlock()
}

// ToDevice implements dma.Device: DMA channel 2, memory->GPU direction,
// feeds GP0 one word at a time.
func (g *GPU) ToDevice(word uint32) { g.WriteGP0(word) }

// FromDevice implements dma.Device: DMA channel 2, GPU->memory direction,
// pulls from the VRAM-read queue.
func (g *GPU) FromDevice() uint32 { return g.ReadGPUREAD() }

// TakeSnapshot returns a coherent copy of VRAM, the draw-list recorded since
// the last snapshot, and the current display configuration, per spec.md
// §6's host-exposure contract. The draw-list is drained on read, mirroring a
// host renderer consuming one frame's worth of commands.
func (g *GPU) TakeSnapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := Snapshot{VRAM: g.vram, Display: g.display}
	s.DrawList = g.drawList
	g.drawList = nil
	return s
}

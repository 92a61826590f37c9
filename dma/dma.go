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

// Package dma implements the seven-channel DMA engine (spec.md §4.4):
// MDEC-in(0), MDEC-out(1), GPU(2), CDROM(3), SPU(4), PIO(5), OTC(6), with
// manual/request/linked-list sync modes.
package dma

import (
	"github.com/kepler-systems/psx1/logger"
)

// Channel indices, per spec.md §4.4.
const (
	ChanMDECin = 0
	ChanMDECout = 1
	ChanGPU    = 2
	ChanCDROM  = 3
	ChanSPU    = 4
	ChanPIO    = 5
	ChanOTC    = 6
	NumChannels = 7
)

// Memory abstracts the bus access the DMA engine needs: plain word read/write
// with no side effects beyond what a CPU store would have (MMIO-mapped
// devices are not DMA targets on real hardware and are not modelled here).
type Memory interface {
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, v uint32)
}

// Device is a DMA-capable peripheral: CDROM, GPU (GP0/GPUREAD), SPU, MDEC.
// ToDevice delivers one word written from memory to the device; FromDevice
// asks the device for the next word to write to memory.
type Device interface {
	ToDevice(word uint32)
	FromDevice() uint32
}

// sync modes, CHCR bits 9-10.
const (
	SyncManual = 0
	SyncRequest = 1
	SyncLinkedList = 2
)

// Channel holds one DMA channel's registers.
type Channel struct {
	MADR uint32
	BCR  uint32
	CHCR uint32

	device Device
}

// Engine is the DMA controller: DPCR, DICR and the seven channels.
type Engine struct {
	DPCR uint32
	dicr uint32

	Channels [NumChannels]Channel

	mem Memory

	// onIRQ is invoked exactly when the summary bit transitions to a new
	// high edge (master enable on, and a channel or forced condition
	// newly set), per spec.md §4.4.
	onIRQ func()
}

// New creates a DMA engine wired to mem for device transfers and onIRQ for
// reporting a new DMA IRQ edge to the interrupt controller.
func New(mem Memory, onIRQ func()) *Engine {
	e := &Engine{mem: mem, onIRQ: onIRQ, DPCR: 0x07654321}
	return e
}

// AttachDevice wires a DMA-capable peripheral to the given channel.
func (e *Engine) AttachDevice(channel int, d Device) {
	e.Channels[channel].device = d
}

// direction / step bits, CHCR.
const (
	chcrToRAM   = 0 // direction bit 0: 0 = device->memory
	chcrDecrement = 1 << 1
	chcrChopping  = 1 << 8
	chcrStart    = 1 << 24
	chcrTrigger  = 1 << 28
)

func (c *Channel) toRAM() bool    { return c.CHCR&1 == chcrToRAM }
func (c *Channel) decrement() bool { return c.CHCR&chcrDecrement != 0 }
func (c *Channel) syncMode() int   { return int((c.CHCR >> 9) & 0x3) }
func (c *Channel) started() bool   { return c.CHCR&chcrStart != 0 }
func (c *Channel) triggered() bool { return c.CHCR&chcrTrigger != 0 }

func (e *Engine) channelEnabled(ch int) bool {
	shift := uint(ch * 4)
	return (e.DPCR>>(shift+3))&1 != 0
}

// ReadMADR/ReadBCR/ReadCHCR/WriteMADR/WriteBCR/WriteCHCR are the per-channel
// register accessors used by the bus's MMIO dispatch.
func (e *Engine) ReadMADR(ch int) uint32 { return e.Channels[ch].MADR }
func (e *Engine) ReadBCR(ch int) uint32  { return e.Channels[ch].BCR }
func (e *Engine) ReadCHCR(ch int) uint32 { return e.Channels[ch].CHCR }

func (e *Engine) WriteMADR(ch int, v uint32) { e.Channels[ch].MADR = v & 0x00FFFFFF }
func (e *Engine) WriteBCR(ch int, v uint32)  { e.Channels[ch].BCR = v }

// WriteCHCR writes the channel control register and, if the resulting state
// starts a transfer, runs it to completion immediately (this core does not
// model sub-instruction DMA pacing; see spec.md §9's cycle-cost Open
// Question).
func (e *Engine) WriteCHCR(ch int, v uint32) {
	e.Channels[ch].CHCR = v
	e.maybeStart(ch)
}

func (e *Engine) maybeStart(ch int) {
	c := &e.Channels[ch]
	if !e.channelEnabled(ch) || !c.started() {
		return
	}
	if c.syncMode() == SyncManual && !c.triggered() {
		return
	}
	if ch == ChanOTC {
		e.runOTC(ch)
	} else {
		switch c.syncMode() {
		case SyncManual:
			e.runManual(ch)
		case SyncRequest:
			e.runRequest(ch)
		case SyncLinkedList:
			e.runLinkedList(ch)
		}
	}

	c.CHCR &^= chcrStart
	c.CHCR &^= chcrTrigger
	e.completeChannel(ch)
}

func (e *Engine) runManual(ch int) {
	c := &e.Channels[ch]
	count := c.BCR & 0xFFFF
	if count == 0 {
		count = 0x10000
	}
	e.transferWords(ch, int(count))
}

func (e *Engine) runRequest(ch int) {
	c := &e.Channels[ch]
	blockSize := c.BCR & 0xFFFF
	blocks := (c.BCR >> 16) & 0xFFFF
	for b := uint32(0); b < blocks; b++ {
		e.transferWords(ch, int(blockSize))
	}
}

func (e *Engine) transferWords(ch int, count int) {
	c := &e.Channels[ch]
	addr := c.MADR
	step := uint32(4)
	if c.decrement() {
		step = ^uint32(3) + 1 // -4, expressed without relying on signed wraparound assumptions
	}
	for i := 0; i < count; i++ {
		if c.toRAM() {
			var word uint32
			if c.device != nil {
				word = c.device.FromDevice()
			}
			e.mem.WriteWord(addr, word)
		} else {
			word := e.mem.ReadWord(addr)
			if c.device != nil {
				c.device.ToDevice(word)
			}
		}
		addr += step
	}
	c.MADR = addr
}

// runLinkedList follows the GPU's linked-list chain: each node header encodes
// (next_pointer: 24 bits, word_count: 8 bits), followed by word_count data
// words forwarded to the device; terminator is next==0xFFFFFF, per spec.md
// §4.4.
func (e *Engine) runLinkedList(ch int) {
	c := &e.Channels[ch]
	addr := c.MADR
	const maxNodes = 1 << 20 // generous bound; real chains are far shorter
	for n := 0; n < maxNodes; n++ {
		header := e.mem.ReadWord(addr & 0x1FFFFC)
		count := header >> 24
		next := header & 0x00FFFFFF

		nodeAddr := (addr + 4) & 0x1FFFFC
		for i := uint32(0); i < count; i++ {
			word := e.mem.ReadWord(nodeAddr)
			if c.device != nil {
				c.device.ToDevice(word)
			}
			nodeAddr += 4
		}

		if next == 0xFFFFFF {
			break
		}
		addr = next
	}
	c.MADR = addr
}

// runOTC fills RAM, from MADR downward, with a linked list of BCR pointers
// terminated by 0xFFFFFF - the standard "clear ordering table" idiom; OTC is
// memory-only (spec.md §4.4: "OTC is memory-only").
func (e *Engine) runOTC(ch int) {
	c := &e.Channels[ch]
	count := c.BCR & 0xFFFF
	if count == 0 {
		count = 0x10000
	}
	addr := c.MADR
	for i := uint32(0); i < count; i++ {
		if i == count-1 {
			e.mem.WriteWord(addr, 0x00FFFFFF)
		} else {
			e.mem.WriteWord(addr, (addr-4)&0x1FFFFF)
		}
		addr -= 4
	}
}

// completeChannel sets the channel's DICR flag (if its IRQ-enable bit is
// set) and reports a new IRQ edge if the master-enable/summary condition now
// goes high; maybeStart has already cleared the channel's start and trigger
// bits.
func (e *Engine) completeChannel(ch int) {
	irqEnableBit := uint32(1) << (16 + uint(ch))
	irqFlagBit := uint32(1) << (24 + uint(ch))

	wasHigh := e.summary()
	if e.dicr&irqEnableBit != 0 {
		e.dicr |= irqFlagBit
	}

	logger.Logf("DMA", "channel %d transfer complete", ch)

	if !wasHigh && e.summary() {
		if e.onIRQ != nil {
			e.onIRQ()
		}
	}
}

// masterIRQEnable / forceIRQ bits of DICR.
const (
	dicrForce  = 1 << 15
	dicrMaster = 1 << 23
)

// summary computes DICR's read-only summary bit: set if forced, or if the
// master enable is on and any enabled channel's flag is set.
func (e *Engine) summary() bool {
	if e.dicr&dicrForce != 0 {
		return true
	}
	if e.dicr&dicrMaster == 0 {
		return false
	}
	enabled := (e.dicr >> 16) & 0x7F
	flags := (e.dicr >> 24) & 0x7F
	return enabled&flags != 0
}

// ReadDICR returns DICR with its read-only summary bit computed live.
func (e *Engine) ReadDICR() uint32 {
	v := e.dicr &^ (1 << 31)
	if e.summary() {
		v |= 1 << 31
	}
	return v
}

// WriteDICR writes DICR; the per-channel flag bits (24-30) are
// write-to-clear (a written 1 clears the corresponding flag), matching the
// hardware's acknowledge semantics.
func (e *Engine) WriteDICR(v uint32) {
	ackMask := v & 0x7F000000
	e.dicr = (v &^ 0x7F000000) | (e.dicr &^ ackMask & 0x7F000000)
}

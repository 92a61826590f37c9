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

// Package sio0 implements the controller/memory-card serial port (spec.md
// §4.6): the digital-pad byte-transfer sequence, the STAT register's four
// fields, and the critical separation between rx_ready and irq_flag that the
// BIOS pad handler depends on to avoid deadlocking under IEc=0.
package sio0

import (
	"sync/atomic"

	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/logger"
)

// STAT register bits, per spec.md §4.6/§8.
const (
	StatTXReady1 = 1 << 0
	StatRXReady  = 1 << 1
	StatTXReady2 = 1 << 2
	StatIRQFlag  = 1 << 9
)

// CTRL register bits this core interprets; the rest (baud factor, parity,
// port select) are accepted and stored but do not affect transfer timing.
const (
	CtrlTXEn    = 1 << 0
	CtrlAck     = 1 << 4
	CtrlReset   = 1 << 6
)

// step indexes the digital-pad byte sequence a single transfer walks
// through, per the Nocash PSX controller protocol: address byte, read
// command, ID low, ID high, buttons low, buttons high.
const (
	stepAddress = iota
	stepCommand
	stepIDLow
	stepIDHigh
	stepButtonsLow
	stepButtonsHigh
	stepCount
)

// Port is the SIO0 controller port.
type Port struct {
	env   *environment.Environment
	onIRQ func(level bool)

	data    uint8
	rxReady bool
	irqFlag bool
	irqHigh bool

	step int

	mode uint16
	ctrl uint16
	baud uint16

	// buttons is a 16-bit active-low button word, updated by the host from a
	// different thread than the one driving the core (spec.md §5); a plain
	// load/store would race under the Go race detector, so it is kept as an
	// atomic word even though the core itself only ever reads it.
	buttons atomic.Uint32
}

// New creates an SIO0 port with no buttons pressed (all-ones, active-low).
func New(env *environment.Environment, onIRQ func(level bool)) *Port {
	p := &Port{env: env, onIRQ: onIRQ}
	p.buttons.Store(0xFFFF)
	return p
}

// SetButtons is the host-to-core pad write: a 16-bit active-low button mask.
func (p *Port) SetButtons(mask uint16) {
	p.buttons.Store(uint32(mask))
}

// ReadData returns the last byte received from the pad.
func (p *Port) ReadData() uint8 {
	return p.data
}

// WriteData sends one byte to the pad and immediately produces its
// response, per spec.md §4.6: this core does not model the bit-clock, so a
// byte "transfer" completes within the same call and raises the SIO
// interrupt the real hardware raises on /ACK.
func (p *Port) WriteData(v uint8) {
	if p.ctrl&CtrlTXEn == 0 {
		return
	}

	switch p.step {
	case stepAddress:
		p.data = 0xFF // hi-z: nothing selected responds on the address byte itself
	case stepCommand:
		p.data = 0x41 // digital pad ID, low byte
	case stepIDLow:
		p.data = 0x5A // digital pad ID, high byte
	case stepIDHigh:
		p.data = uint8(p.buttons.Load())
	case stepButtonsLow:
		p.data = uint8(p.buttons.Load() >> 8)
	default:
		p.data = 0xFF
	}

	p.step++
	if p.step >= stepCount {
		p.step = stepAddress
	}

	p.rxReady = true
	p.setIRQFlag(true)
	logger.Logf("SIO0", "tx=%02X rx=%02X", v, p.data)
}

// ReadStat assembles the STAT register live: this core completes transfers
// synchronously, so both TX-ready bits always read set.
func (p *Port) ReadStat() uint16 {
	var s uint16
	s |= StatTXReady1
	s |= StatTXReady2
	if p.rxReady {
		s |= StatRXReady
	}
	if p.irqFlag {
		s |= StatIRQFlag
	}
	return s
}

func (p *Port) ReadMode() uint16 { return p.mode }
func (p *Port) ReadCtrl() uint16 { return p.ctrl }
func (p *Port) ReadBaud() uint16 { return p.baud }

func (p *Port) WriteMode(v uint16) { p.mode = v }
func (p *Port) WriteBaud(v uint16) { p.baud = v }

// WriteCtrl writes the control register. Per spec.md §4.6, the acknowledge
// bit (4) clears ONLY irq_flag - rx_ready is left untouched, since the BIOS
// pad handler polls rx_ready from an exception context with IEc=0 and would
// deadlock if an ack also cleared it. The reset bit (6) clears all internal
// SIO state.
func (p *Port) WriteCtrl(v uint16) {
	p.ctrl = v
	if v&CtrlReset != 0 {
		p.rxReady = false
		p.step = stepAddress
		p.mode = 0
		p.ctrl = 0
		p.baud = 0
		p.setIRQFlag(false)
		return
	}
	if v&CtrlAck != 0 {
		p.setIRQFlag(false)
	}
}

func (p *Port) setIRQFlag(v bool) {
	p.irqFlag = v
	if v != p.irqHigh {
		p.irqHigh = v
		if p.onIRQ != nil {
			p.onIRQ(v)
		}
	}
}

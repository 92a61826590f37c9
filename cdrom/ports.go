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

package cdrom

import "github.com/kepler-systems/psx1/logger"

// ReadPort reads one of the four byte-addressable ports (0..3), banked by
// the current index for ports 1-3, per spec.md §4.5's table.
func (d *Drive) ReadPort(port int) uint8 {
	switch port {
	case 0:
		return d.portStatus()
	case 1:
		return d.popResponse()
	case 2:
		return d.popData()
	case 3:
		switch d.index {
		case 1:
			// spec.md §4.5's port table notes bit 4 as "cmd-ready" specifically
			// for the idx=1 read of irq_flags; hardware hardwires it high here.
			return 0xF0 | d.irqFlags
		case 3:
			return 0xE0 | d.irqFlags // bits 5-7 are hardwired high on real hardware
		default:
			return 0xE0 | d.irqEnable
		}
	default:
		return 0xFF
	}
}

// WritePort writes one of the four byte-addressable ports, per spec.md
// §4.5's table.
func (d *Drive) WritePort(port int, v uint8) {
	switch port {
	case 0:
		d.index = v & 0x03

	case 1:
		switch d.index {
		case 0:
			d.issueCommand(v)
		case 3:
			// vol RR - volume mixing is outside this core's scope (spec.md
			// Non-goals); accepted and discarded.
		}

	case 2:
		switch d.index {
		case 0:
			if len(d.paramFIFO) < 16 {
				d.paramFIFO = append(d.paramFIFO, v)
			}
		case 1:
			d.irqEnable = v & 0x1F
			d.updateIRQLine()
		case 2, 3:
			// vol LL/RL/LR - discarded, see above.
		}

	case 3:
		switch d.index {
		case 0:
			d.setWantData(v&0x80 != 0)
		case 1:
			if v&0x40 != 0 {
				d.paramFIFO = d.paramFIFO[:0]
			}
			d.irqFlags &^= v & 0x1F
			if d.irqFlags == 0 {
				d.cyclesSinceAck = 0
				d.updateIRQLine()
				d.maybeRunPending()
			}
		case 2:
			// vol LR - discarded.
		case 3:
			// apply-volume latch - mixing out of scope, discarded.
		}
	}
}

// portStatus is the port-0 MMIO status register (spec.md §4.5): bits 0-1
// current index, bit 2 XA-ADPCM busy (always 0, §4.5), bit 3 parameter FIFO
// empty, bit 4 parameter FIFO not full, bit 5 response FIFO not empty, bit 6
// data FIFO not empty, bit 7 busy. Not to be confused with driveStat, the
// drive-status byte returned as the first byte of most command responses.
func (d *Drive) portStatus() uint8 {
	var s uint8
	s |= d.index & 0x03
	if len(d.paramFIFO) == 0 {
		s |= 1 << 3
	}
	if len(d.paramFIFO) < 16 {
		s |= 1 << 4
	}
	if len(d.respFIFO) > 0 {
		s |= 1 << 5
	}
	if d.dataPos < len(d.dataFIFO) {
		s |= 1 << 6
	}
	if d.pending.Queued || d.cmdDelay > 0 {
		s |= 1 << 7
	}
	return s
}

// driveStat is the drive-status byte returned as the first byte of GetStat
// and most other command responses, per the hardware reference cited by
// spec.md §4.5.
func (d *Drive) driveStat() uint8 {
	var s uint8
	if d.motorOn {
		s |= statMotorOn
	}
	if d.shellOpen {
		s |= statShellOpen
	}
	if d.reading {
		s |= statRead
	}
	if d.seeking {
		s |= statSeek
	}
	if d.playing {
		s |= statPlay
	}
	return s
}

func (d *Drive) popResponse() uint8 {
	if len(d.respFIFO) == 0 {
		return 0
	}
	v := d.respFIFO[0]
	d.respFIFO = d.respFIFO[1:]
	return v
}

func (d *Drive) popData() uint8 {
	if d.dataPos >= len(d.dataFIFO) {
		return 0
	}
	v := d.dataFIFO[d.dataPos]
	d.dataPos++
	return v
}

// setWantData handles the request register's rising edge, per spec.md
// §4.5's data-path paragraph: filling the data FIFO with 2048 bytes of user
// data from the current LBA.
func (d *Drive) setWantData(want bool) {
	rising := want && !d.wantData
	d.wantData = want
	if !rising {
		return
	}
	sector, err := d.readUserSector(d.lba)
	if err != nil {
		logger.Logf("CDROM", "data refill failed at lba=%d: %s", d.lba, err)
		d.dataFIFO = nil
		d.dataPos = 0
		d.reading = false
		d.async = nil
		d.queue(INT5, delayFor(d), d.driveStat()|statError, 0x80)
		return
	}
	d.dataFIFO = sector
	d.dataPos = 0
}

// updateIRQLine recomputes the drive's push-model IRQ line: high iff
// irq_flags names one of INT1-INT5 and its corresponding enable bit is set,
// per spec.md §4.5 and §8's testable invariant.
func (d *Drive) updateIRQLine() {
	high := false
	if d.irqFlags >= 1 && d.irqFlags <= 5 {
		bit := uint8(1) << (d.irqFlags - 1)
		high = bit&d.irqEnable != 0
	}
	if high != d.irqHigh {
		d.irqHigh = high
		if d.onIRQ != nil {
			d.onIRQ(high)
		}
	}
}

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

// Command byte values, per spec.md §4.5's supported-command list.
const (
	cmdGetStat    = 0x01
	cmdSetLoc     = 0x02
	cmdPlay       = 0x03
	cmdReadN      = 0x06
	cmdPause      = 0x09
	cmdInit       = 0x0A
	cmdSetMode    = 0x0E
	cmdGetParam   = 0x0F
	cmdGetLocL    = 0x10
	cmdGetLocP    = 0x11
	cmdSetSession = 0x12
	cmdGetTN      = 0x13
	cmdGetTD      = 0x14
	cmdSeekL      = 0x15
	cmdSeekP      = 0x16
	cmdTest       = 0x19
	cmdGetID      = 0x1A
	cmdReadS      = 0x1B
	cmdReadTOC    = 0x1E
)

// issueCommand handles a command-byte write to port 1 bank 0. Per spec.md
// §4.5's command state machine: if a response IRQ is already pending or the
// drive is busy, the command and its current parameters are stashed into the
// one-deep queue (REDESIGN FLAGS: tagged PendingCommand, not parallel
// booleans); otherwise it executes immediately.
func (d *Drive) issueCommand(cmd byte) {
	if d.irqFlags != 0 || d.cmdDelay > 0 || d.pending.Queued {
		d.pending = PendingCommand{Queued: true, Cmd: cmd, Params: append([]byte(nil), d.paramFIFO...)}
		d.paramFIFO = d.paramFIFO[:0]
		return
	}
	d.execCommand(cmd, d.paramFIFO)
	d.paramFIFO = d.paramFIFO[:0]
}

// maybeRunPending pops and executes the queued command once every pending
// IRQ has been acknowledged, per spec.md §4.5.
func (d *Drive) maybeRunPending() {
	if !d.pending.Queued || d.irqFlags != 0 || d.cmdDelay > 0 {
		return
	}
	p := d.pending
	d.pending = PendingCommand{}
	// A queued command pre-empts the continuous-read scheduler, per spec.md
	// §4.5: "A command queued while reading ... must pre-empt the
	// continuous-read scheduler."
	d.reading = false
	d.execCommand(p.Cmd, p.Params)
}

// execCommand runs cmd to completion synchronously: per spec.md §4.5,
// "Executing clears the response FIFO, pushes response bytes, then calls
// queue_cmd_irq(INTn)". The primary response is held in queuedResp/queuedINTn
// and committed by Tick once cmdDelay elapses (so response timing is
// observable the same way on every call path, including the queued-command
// replay above).
func (d *Drive) execCommand(cmd byte, params []byte) {
	d.respFIFO = d.respFIFO[:0]

	switch cmd {
	case cmdGetStat:
		d.queue(INT3, delayFor(d), d.driveStat())
		if d.needShellClose {
			d.needShellClose = false
			d.queueAsync(INT5, []byte{0x00})
		}

	case cmdSetLoc:
		if len(params) >= 3 {
			if params[0] >= 0x40 {
				logger.Logf("CDROM", "SetLoc with suspicious mm=%02X (BCD)", params[0])
			}
			m := BCDToBinary(params[0])
			s := BCDToBinary(params[1])
			f := BCDToBinary(params[2])
			d.lba = MSFToLBA(m, s, f)
			if d.img != nil && d.onGarbageSetLoc != nil && d.lba >= d.img.LeadoutLBA() {
				d.onGarbageSetLoc(d.lba, d.img.LeadoutLBA())
			}
		}
		d.queue(INT3, delayFor(d), d.driveStat())

	case cmdPlay:
		d.playing = true
		d.queue(INT3, delayFor(d), d.driveStat())

	case cmdReadN, cmdReadS:
		d.playing = false
		d.reading = true
		d.scheduleNextSectorAfterSeek()
		d.queue(INT3, delayFor(d), d.driveStat())

	case cmdPause:
		d.reading = false
		d.playing = false
		d.queue(INT3, delayFor(d), d.driveStat())
		d.queueAsync(INT2, []byte{d.driveStat()})

	case cmdInit:
		d.motorOn = true
		d.reading = false
		d.playing = false
		d.mode = 0
		d.queueWithDelay(INT3, delayInit, d.driveStat())
		d.queueAsync(INT2, []byte{d.driveStat()})

	case cmdSetMode:
		if len(params) >= 1 {
			d.mode = params[0]
			d.doubleSpeed = params[0]&0x80 != 0
		}
		d.queue(INT3, delayFor(d), d.driveStat())

	case cmdGetParam:
		d.queue(INT3, delayFor(d), d.driveStat(), d.mode, 0x00, 0x00, 0x00)

	case cmdGetLocL:
		m, s, f := LBAToMSF(d.lba)
		d.queue(INT3, delayFor(d),
			1, 1, // track, index (approximate: continuous single-track data discs)
			BinaryToBCD(m), BinaryToBCD(s), BinaryToBCD(f),
			d.mode,
			BinaryToBCD(m), BinaryToBCD(s))

	case cmdGetLocP:
		m, s, f := LBAToMSF(d.lba)
		d.queue(INT3, delayFor(d),
			1, 1,
			BinaryToBCD(m), BinaryToBCD(s), BinaryToBCD(f),
			BinaryToBCD(m), BinaryToBCD(s), BinaryToBCD(f))

	case cmdSetSession:
		d.queue(INT3, delayFor(d), d.driveStat())
		d.queueAsync(INT2, []byte{d.driveStat()})

	case cmdGetTN:
		first, last := 1, 1
		if d.img != nil {
			if tr := d.img.Tracks(); len(tr) > 0 {
				first = tr[0].Number
				last = tr[len(tr)-1].Number
			}
		}
		d.queue(INT3, delayFor(d), d.driveStat(), BinaryToBCD(first), BinaryToBCD(last))

	case cmdGetTD:
		track := 0
		if len(params) >= 1 {
			track = BCDToBinary(params[0])
		}
		lba := 0
		if track == 0 {
			if d.img != nil {
				lba = d.img.LeadoutLBA()
			}
		} else if d.img != nil {
			for _, tr := range d.img.Tracks() {
				if tr.Number == track {
					lba = tr.StartLBA
					break
				}
			}
		}
		m, s, _ := LBAToMSF(lba)
		d.queue(INT3, delayFor(d), d.driveStat(), BinaryToBCD(m), BinaryToBCD(s))

	case cmdSeekL, cmdSeekP:
		d.headLBA = d.lba
		d.queue(INT3, delayFor(d), d.driveStat())
		d.queueAsync(INT2, []byte{d.driveStat()})

	case cmdTest:
		d.execTest(params)

	case cmdGetID:
		if d.img == nil {
			d.queue(INT5, delayNoDisc, 0x08, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
			return
		}
		d.queue(INT3, delayFor(d), d.driveStat())
		sce := d.region.SCExx()
		d.queueAsync(INT2, []byte{d.driveStat(), 0x00, 0x20, 0x00, sce[0], sce[1], sce[2], sce[3]})

	case cmdReadTOC:
		d.queue(INT3, delayFor(d), d.driveStat())
		d.queueAsync(INT2, []byte{d.driveStat()})

	default:
		d.queue(INT5, delayFor(d), d.driveStat()|statError, 0x40)
		logger.Logf("CDROM", "unsupported command 0x%02X", cmd)
	}
}

// execTest dispatches Test (0x19) sub-commands, per spec.md §4.5 (0x03/0x04/
// 0x05/0x20/0x22) and SPEC_FULL.md's supplemented GetParam/version surface.
func (d *Drive) execTest(params []byte) {
	sub := byte(0)
	if len(params) >= 1 {
		sub = params[0]
	}
	switch sub {
	case 0x20:
		// Version string: year, month, day, revision (BCD), an arbitrary
		// but stable identity used by BIOS compatibility checks.
		d.queue(INT3, delayFor(d), 0x99, 0x12, 0x25, 0xC1)
	case 0x22:
		sce := d.region.SCExx()
		d.queue(INT3, delayFor(d), sce[0], sce[1], sce[2], sce[3])
	default:
		d.queue(INT3, delayFor(d), d.driveStat())
	}
}

func delayFor(d *Drive) int {
	if d.img == nil {
		return delayNoDisc
	}
	return delayDefault
}

// queue stashes a primary response for commit on the next Tick once
// cmdDelay elapses, per spec.md §4.5's queue_cmd_irq.
func (d *Drive) queue(intn int, delay int, bytes ...byte) {
	d.queueWithDelay(intn, delay, bytes...)
}

func (d *Drive) queueWithDelay(intn int, delay int, bytes ...byte) {
	d.queuedINTn = intn
	d.queuedResp = append([]byte(nil), bytes...)
	d.cmdDelay = delay
	if d.cmdDelay <= 0 {
		d.cmdDelay = 1
	}
}

// queueAsync arms a second-response descriptor; its countdown does not start
// until the primary INT3 has been acknowledged and the minimum inter-
// response gap has elapsed, per spec.md §4.5.
func (d *Drive) queueAsync(intn int, bytes []byte) {
	d.async = &asyncIRQ{intn: intn, bytes: bytes, countdown: asyncDelay(intn)}
}

func asyncDelay(intn int) int {
	switch intn {
	case INT2:
		return 33868 // seek/operation-complete order of magnitude, per spec.md §4.5
	default:
		return 2000
	}
}

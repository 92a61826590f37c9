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

// Seek/sector timing constants, per spec.md §4.5.
const (
	seekMin        = 40000
	seekMax        = 200000
	motorSpinupAdd = 2032128
	sectorSingle   = 22000
	sectorDouble   = 11000
)

// Tick advances the controller by cycles, per spec.md §4.5's "On each
// tick(cycles)" paragraph: decrementing the command-IRQ delay and, once it
// elapses with irq_flags clear, committing the primary response; separately
// progressing the gated async-IRQ countdown.
func (d *Drive) Tick(cycles int) {
	if d.cmdDelay > 0 {
		d.cmdDelay -= cycles
		if d.cmdDelay <= 0 {
			d.cmdDelay = 0
			if d.irqFlags == 0 {
				d.commitPrimary()
			}
		}
	}

	d.cyclesSinceAck += cycles
	if d.async != nil {
		if !d.async.armed {
			if d.irqFlags == 0 && d.cmdDelay == 0 && d.queuedResp == nil && d.cyclesSinceAck >= minAsyncGap {
				d.async.armed = true
			}
		}
		if d.async.armed {
			d.async.countdown -= cycles
			if d.async.countdown <= 0 && d.irqFlags == 0 {
				d.commitAsync()
			}
		}
	}
}

func (d *Drive) commitPrimary() {
	d.respFIFO = append(d.respFIFO[:0], d.queuedResp...)
	d.irqFlags = uint8(d.queuedINTn)
	d.queuedResp = nil
	d.updateIRQLine()
}

func (d *Drive) commitAsync() {
	a := d.async
	d.async = nil
	d.respFIFO = append(d.respFIFO[:0], a.bytes...)
	d.irqFlags = uint8(a.intn)
	d.updateIRQLine()

	// INT1 is the continuous-read chain's own async delivery: advance the
	// head and schedule the next sector, unless a queued command has
	// pre-empted the scheduler (reading was cleared in maybeRunPending).
	if a.intn == INT1 && d.reading {
		d.lba++
		d.scheduleNextSectorDelay()
	}
}

// scheduleNextSectorAfterSeek arms the first INT1 of a ReadN/ReadS chain,
// using the logarithmic seek-time model of spec.md §4.5: a delay from
// seekMin to seekMax depending on head-to-target distance, plus a one-time
// motor spin-up penalty if the motor was idle.
func (d *Drive) scheduleNextSectorAfterSeek() {
	distance := d.lba - d.headLBA
	if distance < 0 {
		distance = -distance
	}
	delay := seekDelay(distance)
	if !d.motorOn {
		delay += motorSpinupAdd
	}
	d.motorOn = true
	d.headLBA = d.lba
	d.async = &asyncIRQ{intn: INT1, bytes: []byte{d.driveStat() | statRead}, countdown: delay}
}

// scheduleNextSectorDelay arms the next sector's INT1 at the fixed per-
// sector delay (single or double speed), per spec.md §4.5.
func (d *Drive) scheduleNextSectorDelay() {
	delay := sectorSingle
	if d.doubleSpeed {
		delay = sectorDouble
	}
	d.async = &asyncIRQ{intn: INT1, bytes: []byte{d.driveStat() | statRead}, countdown: delay}
}

// seekDelay interpolates linearly in log-distance between seekMin (adjacent
// sector) and seekMax (full-disc seek), per spec.md §4.5's "logarithmic
// model" note.
func seekDelay(distance int) int {
	if distance <= 0 {
		return seekMin
	}
	// log2(distance) saturates around 19 for a ~650 MiB disc's sector count;
	// scale that range linearly onto [seekMin, seekMax].
	bits := 0
	for v := distance; v > 0; v >>= 1 {
		bits++
	}
	const maxBits = 19
	if bits > maxBits {
		bits = maxBits
	}
	span := seekMax - seekMin
	return seekMin + span*bits/maxBits
}

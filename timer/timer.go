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

// Package timer implements the three programmable counters (spec.md §4.7):
// clock sources (system, system/8, dot-clock, HBlank, blank signal), and
// modes providing increment, reset-on-target-or-overflow,
// interrupt-on-target-or-overflow, one-shot or repeating.
package timer

import "github.com/kepler-systems/psx1/logger"

// Mode register bit positions (Nocash PSX "Timer 0/1/2 Counter Mode").
const (
	modeSyncEnable   = 1 << 0
	modeSyncModeShift = 1
	modeResetOnTarget = 1 << 3
	modeIRQOnTarget   = 1 << 4
	modeIRQOnOverflow = 1 << 5
	modeRepeat        = 1 << 6
	modeIRQPulse      = 1 << 7 // 0=one-shot(toggle), 1=repeat handled via modeRepeat; kept for bit-compat reads
	clockSourceShift  = 8
	modeIRQRequest    = 1 << 10 // 0 while an un-acked IRQ is pending (active low on real hardware)
	modeReachedTarget = 1 << 11
	modeReachedMax    = 1 << 12
)

// Timer is a single 16-bit counter with mode and target registers.
type Timer struct {
	index int

	counter uint16
	mode    uint16
	target  uint16

	irqRaised bool // for one-shot mode: whether this counter has already fired

	onIRQ func()
}

// Bank owns the three PS1 timers and dispatches per-cycle clock ticks to
// each according to its configured clock source.
type Bank struct {
	timers [3]*Timer
}

// New creates a Bank of three timers. onIRQ(n) is invoked when timer n raises
// its interrupt edge.
func New(onIRQ func(n int)) *Bank {
	b := &Bank{}
	for i := range b.timers {
		n := i
		b.timers[i] = &Timer{index: n, onIRQ: func() { onIRQ(n) }}
	}
	return b
}

// Read/Write counter, mode, target for timer n (0-2), used by the bus's MMIO
// dispatch for the 0x1F801100-0x1F801128 window.
func (b *Bank) ReadCounter(n int) uint16 { return b.timers[n].counter }
func (b *Bank) ReadTarget(n int) uint16  { return b.timers[n].target }

// ReadMode returns the mode register and clears its two read-to-clear status
// bits (reached-target, reached-max), matching hardware behaviour.
func (b *Bank) ReadMode(n int) uint16 {
	t := b.timers[n]
	v := t.mode
	t.mode &^= modeReachedTarget | modeReachedMax
	return v
}

func (b *Bank) WriteCounter(n int, v uint16) { b.timers[n].counter = v }

func (b *Bank) WriteTarget(n int, v uint16) { b.timers[n].target = v }

// WriteMode writes the mode register; per hardware, this also resets the
// counter to zero and clears the one-shot latch.
func (b *Bank) WriteMode(n int, v uint16) {
	t := b.timers[n]
	t.mode = v
	t.counter = 0
	t.irqRaised = false
}

// Tick advances every timer's counter by the clock sources that are active
// this bus tick. sysClocks is the number of system-clock cycles elapsed;
// dotClocks and hblanks are supplied by the GPU/video timing source (zero if
// the host does not model them, in which case timer 0/1's alternate clocks
// never advance - acceptable for boot-time BIOS use, which primarily polls
// timer 1 on the system clock).
func (b *Bank) Tick(sysClocks int, dotClocks int, hblanks int) {
	b.tickOne(0, sysClocks, dotClocks)
	b.tickOne(1, sysClocks, hblanks)
	b.tickOne(2, sysClocks, sysClocks/8)
}

func (b *Bank) tickOne(n int, sysClocks, altClocks int) {
	t := b.timers[n]
	if t.mode&modeSyncEnable != 0 {
		// Synchronisation to blank signals is a display-timing concern this
		// core does not model precisely; a synced timer is treated as
		// free-running, which is adequate for boot-time polling.
	}

	clockSel := (t.mode >> clockSourceShift) & 0x3
	var delta int
	switch n {
	case 0: // system clock or dot clock
		if clockSel == 1 || clockSel == 3 {
			delta = altClocks
		} else {
			delta = sysClocks
		}
	case 1: // system clock or HBlank
		if clockSel == 1 || clockSel == 3 {
			delta = altClocks
		} else {
			delta = sysClocks
		}
	case 2: // system clock or system/8
		if clockSel == 2 || clockSel == 3 {
			delta = altClocks
		} else {
			delta = sysClocks
		}
	}

	for i := 0; i < delta; i++ {
		t.step()
	}
}

func (t *Timer) step() {
	reachedTarget := false
	reachedMax := false

	t.counter++

	if t.target != 0 && t.counter == t.target {
		reachedTarget = true
		t.mode |= modeReachedTarget
		if t.mode&modeResetOnTarget != 0 {
			t.counter = 0
		}
	}
	if t.counter == 0xFFFF {
		reachedMax = true
		t.mode |= modeReachedMax
		if t.mode&modeResetOnTarget == 0 {
			t.counter = 0
		}
	}

	fire := (reachedTarget && t.mode&modeIRQOnTarget != 0) ||
		(reachedMax && t.mode&modeIRQOnOverflow != 0)

	if !fire {
		return
	}

	if t.mode&modeRepeat == 0 && t.irqRaised {
		return // one-shot already fired once this mode-load
	}
	t.irqRaised = true

	logger.Logf("TIMER", "timer %d IRQ (target=%v max=%v)", t.index, reachedTarget, reachedMax)
	if t.onIRQ != nil {
		t.onIRQ()
	}
}

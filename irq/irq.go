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

// Package irq implements the interrupt controller: eleven edge-triggered
// input sources latched into i_stat, gated by i_mask, aggregated into a
// single line driven onto COP0 Cause.IP2, per spec.md §4.3.
package irq

import (
	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/logger"
)

// Source identifies one of the eleven interrupt inputs, by bit position, per
// spec.md §4.3.
type Source uint

const (
	VBlank Source = iota
	GPU
	CDROM
	DMA
	Timer0
	Timer1
	Timer2
	PadMemCard
	SIO
	SPU
	Ctrl
)

var sourceName = map[Source]string{
	VBlank: "VBLANK", GPU: "GPU", CDROM: "CDROM", DMA: "DMA",
	Timer0: "TIMER0", Timer1: "TIMER1", Timer2: "TIMER2",
	PadMemCard: "PADMEM", SIO: "SIO", SPU: "SPU", Ctrl: "CTRL",
}

// Controller is the interrupt controller: i_stat/i_mask plus edge detection
// on each of the eleven input lines.
type Controller struct {
	env *environment.Environment

	stat uint16
	mask uint16

	// level is the last-known level of each input line, used to detect a
	// rising edge; a source held continuously high only latches once until
	// acknowledged and re-raised from a falling edge, per spec.md §8.
	level [11]bool

	// onIP2 is invoked whenever the aggregated (stat & mask) != 0 condition
	// changes, so the CPU's COP0.Cause.IP2 can be re-driven without the
	// controller holding a pointer back to COP0 (Design Notes §9).
	onIP2 func(level bool)

	lastAggregate bool
}

// New creates an interrupt controller. onIP2 is called with the new
// aggregated level any time it changes.
func New(env *environment.Environment, onIP2 func(level bool)) *Controller {
	return &Controller{env: env, onIP2: onIP2}
}

// Raise signals a level transition on the given source's input line. Only a
// rising edge (false->true) latches a new i_stat bit; spec.md §8: "An
// edge-triggered IRQ source clearing the corresponding i_stat bit while the
// source remains high does not re-latch until a falling edge followed by a
// new rising edge."
func (c *Controller) Raise(src Source, level bool) {
	prev := c.level[src]
	c.level[src] = level
	if level && !prev {
		c.stat |= 1 << uint(src)
		logger.Logf("IRQ", "latched %s", sourceName[src])
		c.updateAggregate()
	}
}

// Pulse is a convenience for sources that only ever emit a momentary rising
// edge (VBlank, DMA summary, timers): it raises then immediately lowers the
// input line, latching exactly one i_stat bit per call.
func (c *Controller) Pulse(src Source) {
	c.Raise(src, true)
	c.Raise(src, false)
}

// ReadStat returns the raw i_stat register.
func (c *Controller) ReadStat() uint16 { return c.stat }

// ReadMask returns the raw i_mask register.
func (c *Controller) ReadMask() uint16 { return c.mask }

// WriteStat acknowledges (clears) the bits written as zero; per spec.md §8,
// "I_STAT can be cleared only by writing zeros to its bits; writing ones is a
// no-op." The hardware register is write-to-clear: software writes back the
// bits it read with the ones it wants to acknowledge turned to zero.
func (c *Controller) WriteStat(v uint16) {
	c.stat &= v
	c.updateAggregate()
}

// WriteMask updates i_mask.
func (c *Controller) WriteMask(v uint16) {
	c.mask = v & 0x07FF
	c.updateAggregate()
}

func (c *Controller) updateAggregate() {
	agg := (c.stat & c.mask) != 0
	if agg != c.lastAggregate {
		c.lastAggregate = agg
		if c.onIP2 != nil {
			c.onIP2(agg)
		}
	}
}

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

// Package environment is the single top-level value threaded by reference
// into the subsystems that take one (bus, interrupt controller, CDROM, SIO0,
// GPU/SPU adapters),
// replacing the back-reference pointers a C-shaped implementation would use.
// Components that need to signal another component they don't otherwise hold
// a reference to (most notably a device raising an interrupt-controller edge)
// do so through a closure registered at wire-up time instead of a pointer
// back to the environment - see Design Notes §9 and system.New.
package environment

import (
	"github.com/kepler-systems/psx1/config"
	"github.com/kepler-systems/psx1/random"
)

// Label distinguishes independent instances of the core sharing a process
// (for example a headless validation instance run alongside an interactive
// one). Most hosts only ever construct one.
type Label string

// MainEmulation is the label used by the primary, user-facing instance.
const MainEmulation = Label("main")

// Environment carries the state that every subsystem needs a reference to,
// and nothing that is specific to any one of them.
type Environment struct {
	Label Label

	// Options are the enumerated driver behaviour switches (spec.md §4.8).
	Options config.Options

	// Random is the shared source of power-on garbage bytes.
	Random *random.Random
}

// New creates an Environment with the given label and options, and a Random
// source seeded from the provided hint.
func New(label Label, opts config.Options, seedHint int64) *Environment {
	return &Environment{
		Label:   label,
		Options: opts,
		Random:  random.NewRandom(constSeed(seedHint)),
	}
}

type constSeed int64

func (c constSeed) SeedHint() int64 { return int64(c) }

// IsEmulation reports whether this environment carries the given label.
func (env *Environment) IsEmulation(label Label) bool {
	return env.Label == label
}

// AllowLogging implements logger.Permission: only the main emulation instance
// logs by default, so a secondary validation instance run in the same
// process doesn't interleave its trace with the primary one.
func (env *Environment) AllowLogging() bool {
	return env.IsEmulation(MainEmulation)
}

// Normalise resets the environment to a known, reproducible state - used by
// tests and by deterministic replay, where two runs must draw identical
// "random" garbage for uninitialised memory.
func (env *Environment) Normalise() {
	env.Random.ZeroSeed = true
}

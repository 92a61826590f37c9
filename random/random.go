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

// Package random supplies the pseudo-random garbage that real PS1 hardware
// leaves in RAM and scratchpad at power-on. Tests and deterministic replays
// set ZeroSeed so that successive runs produce identical "garbage", rather
// than seeding from wall-clock time.
package random

import "math/rand"

// Random is a seedable generator of the garbage bytes used to initialise
// memory at power-on.
type Random struct {
	// ZeroSeed forces a fixed seed (0) instead of a time-derived one, so that
	// two instances constructed with ZeroSeed set produce identical output -
	// required for reproducible tests and bit-exact regression replays.
	ZeroSeed bool

	src *rand.Rand
}

// Seed is anything that can supply an initial entropy source; in practice
// this is the core driver, which mixes in a coarse notion of elapsed time so
// that two runs started moments apart don't share a seed even without
// ZeroSeed.
type Seed interface {
	// SeedHint returns a value usable as a random seed. It need not be
	// unique; it only has to vary between runs of a long-lived host process.
	SeedHint() int64
}

// NewRandom creates a Random seeded from seed.SeedHint(), unless ZeroSeed is
// later set to true.
func NewRandom(seed Seed) *Random {
	r := &Random{}
	var hint int64
	if seed != nil {
		hint = seed.SeedHint()
	}
	r.src = rand.New(rand.NewSource(hint))
	return r
}

func (r *Random) source() *rand.Rand {
	if r.ZeroSeed {
		return rand.New(rand.NewSource(0))
	}
	return r.src
}

// Byte returns one pseudo-random byte.
func (r *Random) Byte() uint8 {
	return uint8(r.source().Intn(256))
}

// Fill writes pseudo-random bytes into buf.
func (r *Random) Fill(buf []byte) {
	s := r.source()
	for i := range buf {
		buf[i] = uint8(s.Intn(256))
	}
}

// Rewindable returns a value deterministic in i alone whenever ZeroSeed is
// set - used by tests that need the same "random" garbage on every run
// without depending on call ordering against the shared generator.
func (r *Random) Rewindable(i int) int {
	s := rand.New(rand.NewSource(int64(i)))
	return s.Int()
}

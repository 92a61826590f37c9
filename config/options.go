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

// Package config holds the core driver's enumerated configuration options
// (spec.md §4.8). It is a flat struct rather than a persisted/reflected
// preferences tree because nothing in this core needs to survive as an
// on-disk settings file - see DESIGN.md for why the teacher's reflection-based
// prefs package was not carried over for this purpose.
package config

// Options enumerates the core driver's behaviour switches, per spec.md §4.8.
type Options struct {
	// Pretty enables a human-readable disassembly trace of every instruction
	// executed.
	Pretty bool

	// TraceIO logs every MMIO read/write under the "MMIO" logger tag.
	TraceIO bool

	// HLEVectors intercepts the kernel entry points at 0x80000080/0xA0/B0/C0
	// and emulates the corresponding kernel table calls in the host instead
	// of executing BIOS code for them.
	HLEVectors bool

	// LoopDetectors arms one-shot diagnostic dumps at known stuck PCs.
	LoopDetectors bool

	// BusTickBatch is the number of CPU cycles the driver coalesces before
	// ticking the bus (CDROM and timers) and the VBlank counter; 1 is
	// cycle-accurate, larger values
	// trade timing precision for throughput.
	BusTickBatch int

	// StatsView starts a background HTTP dashboard (via go-echarts/statsview)
	// reporting live driver throughput; intended for development use only.
	StatsView bool

	// CaptureWAV, when non-empty, is a file path the SPU adapter writes a
	// stereo 16-bit PCM capture of every sample pushed through the
	// audio_samples callback (via go-audio/wav), for offline inspection.
	CaptureWAV string
}

// Default returns the Options a freshly constructed system should use absent
// any host override: cycle-accurate bus ticking, no tracing, HLE disabled.
func Default() Options {
	return Options{
		BusTickBatch: 1,
	}
}

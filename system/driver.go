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

package system

import (
	"fmt"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/go-echarts/statsview"

	"github.com/kepler-systems/psx1/logger"
)

// loopDumpThreshold is how many times the same PC must be fetched before the
// loop detector treats it as stuck and dumps a diagnostic graph, per
// config.Options.LoopDetectors (spec.md §4.8).
const loopDumpThreshold = 4096

// checkLoop is a cheap stuck-PC detector: it does not distinguish a spinning
// wait loop from legitimate repeated execution of a small routine, so it only
// fires once per PC (loopDumped) and only after a PC has been fetched
// loopDumpThreshold times, which in practice is well past any loop a boot
// sequence takes intentionally.
func (s *System) checkLoop() {
	pc := s.CPU.PC()
	s.loopSeen[pc]++
	if s.loopSeen[pc] < loopDumpThreshold || s.loopDumped[pc] {
		return
	}
	s.loopDumped[pc] = true
	s.dumpLoopGraph(pc)
}

// dumpLoopGraph writes a graphviz dot file of the CPU/COP0 state at a stuck
// PC, via memviz - the same one-shot diagnostic-dump idiom the teacher uses
// for its command-template tests, repurposed here for a live stuck-loop
// snapshot instead of a static fixture.
func (s *System) dumpLoopGraph(pc uint32) {
	path := fmt.Sprintf("psx1-loop-%08X.dot", pc)
	f, err := os.Create(path)
	if err != nil {
		logger.Logf("LOOP", "could not open %s: %s", path, err)
		return
	}
	defer f.Close()

	snapshot := struct {
		PC, EPC, RA, SP uint32
		Cause, Status   uint32
	}{
		PC:     pc,
		EPC:    s.COP0.EPC,
		RA:     s.CPU.GPR(31),
		SP:     s.CPU.GPR(29),
		Cause:  s.COP0.Cause,
		Status: s.COP0.Status,
	}
	memviz.Map(f, &snapshot)
	logger.Logf("LOOP", "stuck at pc=%08X, dumped %s", pc, path)
}

// startStatsView launches the go-echarts/statsview development dashboard in
// the background, per config.Options.StatsView; it is fire-and-forget, the
// same way a host would launch any other best-effort diagnostic server.
func (s *System) startStatsView() {
	if s.statsStarted {
		return
	}
	s.statsStarted = true
	viewer := statsview.New()
	go viewer.Start()
	logger.Logf("STATS", "statsview dashboard started")
}

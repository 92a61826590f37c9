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
	"strings"

	"github.com/kepler-systems/psx1/curated"
	"github.com/kepler-systems/psx1/iso9660"
	"github.com/kepler-systems/psx1/logger"
	"github.com/kepler-systems/psx1/psxexe"
)

// FastBootFromCD implements spec.md §4.8's fast-boot mode: find SYSTEM.CNF on
// the inserted disc, parse its BOOT= line, load the named PS-X EXE's segment
// into RAM at the file-specified address, point the CPU at its entry point
// and stack, and arm HLE so the BIOS's own slow disc-scan boot path is
// skipped entirely.
func (s *System) FastBootFromCD() error {
	cnf, err := iso9660.Walk(s.CDROM, `\SYSTEM.CNF;1`)
	if err != nil {
		return curated.Errorf("fast boot failed: %s", err)
	}

	text, err := s.readDiscFileText(cnf)
	if err != nil {
		return curated.Errorf("fast boot failed: %s", err)
	}

	bootPath, err := parseBootLine(text)
	if err != nil {
		return curated.Errorf("fast boot failed: %s", err)
	}

	exeEntry, err := iso9660.Walk(s.CDROM, bootPath)
	if err != nil {
		return curated.Errorf("fast boot failed: %s", err)
	}

	raw, err := s.readDiscFile(exeEntry)
	if err != nil {
		return curated.Errorf("fast boot failed: %s", err)
	}

	exe, err := psxexe.Parse(raw)
	if err != nil {
		return curated.Errorf("fast boot failed: %s", err)
	}

	s.Bus.LoadRAM(exe.LoadAddress&0x1FFFFF, exe.Data)
	s.CPU.SetPC(exe.InitialPC)
	if exe.InitialSP != 0 {
		s.CPU.SetGPR(29, exe.InitialSP) // $sp
	}
	s.Env.Options.HLEVectors = true

	logger.Logf("BOOT", "fast-booted %s pc=%08X sp=%08X size=%d", bootPath, exe.InitialPC, exe.InitialSP, len(exe.Data))
	return nil
}

// parseBootLine extracts the cdrom:\PATH;1 target of a SYSTEM.CNF's BOOT=
// line and rewrites it into the backslash-rooted form iso9660.Walk expects.
func parseBootLine(cnf string) (string, error) {
	for _, line := range strings.Split(cnf, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "BOOT") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		target := strings.TrimSpace(line[idx+1:])
		target = strings.TrimPrefix(target, "cdrom:")
		target = strings.TrimPrefix(target, "CDROM:")
		if !strings.HasPrefix(target, `\`) {
			target = `\` + target
		}
		return target, nil
	}
	return "", curated.Errorf("no BOOT= line in SYSTEM.CNF: %s", cnf)
}

func (s *System) readDiscFile(e iso9660.Entry) ([]byte, error) {
	buf := make([]byte, 0, e.Length)
	remaining := e.Length
	for sec := 0; remaining > 0; sec++ {
		data, err := s.CDROM.ReadUserSector(e.LBA + sec)
		if err != nil {
			return nil, err
		}
		n := remaining
		if n > len(data) {
			n = len(data)
		}
		buf = append(buf, data[:n]...)
		remaining -= n
	}
	return buf, nil
}

func (s *System) readDiscFileText(e iso9660.Entry) (string, error) {
	data, err := s.readDiscFile(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

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

package logger_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kepler-systems/psx1/internal/texpect"
	"github.com/kepler-systems/psx1/logger"
)

func TestCentralLogger(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "")

	log.Log(logger.Allow, "CPU", "this is a test")
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "CPU: this is a test\n")

	w.Reset()

	log.Log(logger.Allow, "BUS", "this is another test")
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "CPU: this is a test\nBUS: this is another test\n")

	w.Reset()
	log.Tail(w, 100)
	texpect.ExpectEquality(t, w.String(), "CPU: this is a test\nBUS: this is another test\n")

	w.Reset()
	log.Tail(w, 1)
	texpect.ExpectEquality(t, w.String(), "BUS: this is another test\n")

	w.Reset()
	log.Tail(w, 0)
	texpect.ExpectEquality(t, w.String(), "")
}

type prohibitLogging struct {
	allow bool
}

func (p prohibitLogging) AllowLogging() bool {
	return p.allow
}

func TestPermissions(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Log(prohibitLogging{allow: false}, "CDROM", "should not appear")
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "")

	log.Log(prohibitLogging{allow: true}, "CDROM", "should appear")
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "CDROM: should appear\n")
}

func TestErrorLogging(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	err := errors.New("test error")

	log.Log(logger.Allow, "DMA", err)
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "DMA: test error\n")

	log.Clear()
	w.Reset()

	log.Logf(logger.Allow, "DMA", "wrapped: %v", err)
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "DMA: wrapped: test error\n")
}

type stringerTest struct{}

func (stringerTest) String() string {
	return "stringer test"
}

func TestStringerLogging(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Log(logger.Allow, "IRQ", stringerTest{})
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "IRQ: stringer test\n")
}

func TestRingEviction(t *testing.T) {
	log := logger.NewLogger(2)
	w := &strings.Builder{}

	log.Log(logger.Allow, "A", "1")
	log.Log(logger.Allow, "A", "2")
	log.Log(logger.Allow, "A", "3")
	log.Write(w)
	texpect.ExpectEquality(t, w.String(), "A: 2\nA: 3\n")
}

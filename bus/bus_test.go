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

package bus

import (
	"testing"

	"github.com/kepler-systems/psx1/cdrom"
	"github.com/kepler-systems/psx1/config"
	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/gpu"
	"github.com/kepler-systems/psx1/internal/texpect"
	"github.com/kepler-systems/psx1/irq"
	"github.com/kepler-systems/psx1/sio0"
	"github.com/kepler-systems/psx1/spu"
	"github.com/kepler-systems/psx1/timer"
)

func newTestBus(t *testing.T) *Bus {
	env := environment.New(environment.MainEmulation, config.Default(), 1)
	env.Normalise()

	irqc := irq.New(env, func(bool) {})
	timers := timer.New(func(int) {})
	cd := cdrom.New(env, func(bool) {})
	sio := sio0.New(env, func(bool) {})
	gpuAdapter := gpu.New(env)
	spuAdapter := spu.New(env, nil, nil)

	b := New(env, irqc, timers, cd, sio, gpuAdapter, spuAdapter, func() {})
	return b
}

func TestRAMMirrorsAcrossSegments(t *testing.T) {
	b := newTestBus(t)
	b.WriteWord(0x00001000, 0xCAFEBABE)
	texpect.Equate(t, b.ReadWord(0x80001000), uint32(0xCAFEBABE))
	texpect.Equate(t, b.ReadWord(0xA0001000), uint32(0xCAFEBABE))
}

func TestBIOSIsReadOnly(t *testing.T) {
	b := newTestBus(t)
	b.LoadBIOS([]byte{0x11, 0x22, 0x33, 0x44})
	b.WriteWord(0xBFC00000, 0xFFFFFFFF)
	texpect.Equate(t, b.ReadWord(0xBFC00000), uint32(0x44332211))
}

func TestUnmappedReadReturnsAllOnes(t *testing.T) {
	b := newTestBus(t)
	texpect.Equate(t, b.ReadWord(0x1F802000), uint32(0xFFFFFFFF))
}

func TestIRQRegistersRoundTrip(t *testing.T) {
	b := newTestBus(t)
	b.irq.Raise(irq.VBlank, true)
	texpect.Equate(t, b.ReadWord(0x1F801070), uint32(1))
	b.WriteWord(0x1F801070, 0)
	texpect.Equate(t, b.ReadWord(0x1F801070), uint32(0))
}

func TestCDROMByteLaneDispatch(t *testing.T) {
	b := newTestBus(t)
	b.WriteByte(0x1F801800, 0) // select index 0
	status := b.ReadByte(0x1F801800)
	texpect.Equate(t, status&0x03, uint8(0))
}

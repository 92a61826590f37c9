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

// Package spu is the SPU adapter: spec.md §1 scopes out the voice-synthesis
// pipeline and asks only for its tick/output contract, so this core collects
// whatever interleaved stereo frames are pushed at it, hands them to the
// host's audio_samples callback, and optionally captures them to a WAV file
// via go-audio for offline inspection.
package spu

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/kepler-systems/psx1/environment"
	"github.com/kepler-systems/psx1/logger"
)

// SampleRate is the PS1 SPU's native output rate, per the hardware
// reference spec.md §4.5 cites for the rest of the CDROM/SPU timing.
const SampleRate = 44100

// voiceRegisterCount covers the 24-voice × per-voice register block plus the
// shared control registers in the 0xC00-0xE80 MMIO window, per spec.md §6.
const voiceRegisterCount = (0xE80 - 0xC00) / 2

// SPU is the adapter between DMA channel 4 / the MMIO voice register block
// and the host's audio output.
type SPU struct {
	env *environment.Environment

	regs [voiceRegisterCount]uint16

	// pending holds interleaved L,R frames accumulated since the last flush
	// to the host callback, mirroring the ring buffer spec.md §5 describes
	// for the single-producer/single-consumer handoff.
	pending *audio.IntBuffer

	onSamples func(frames []int16)

	capture    *wav.Encoder
	captureBuf io.Closer
}

// New creates an SPU adapter. onSamples, if non-nil, is called with each
// batch of interleaved L,R int16 frames as PushFrame accumulates them;
// capture, if non-nil, additionally receives every frame as a WAV file via
// go-audio/wav.
func New(env *environment.Environment, onSamples func(frames []int16), capture io.WriteSeeker) *SPU {
	s := &SPU{
		env:       env,
		onSamples: onSamples,
		pending: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: SampleRate},
			SourceBitDepth: 16,
		},
	}
	if capture != nil {
		s.capture = wav.NewEncoder(capture, SampleRate, 16, 2, 1)
	}
	return s
}

// ReadReg/WriteReg access one 16-bit register in the voice/control block by
// its MMIO-window byte offset from 0xC00 (two bytes per register).
func (s *SPU) ReadReg(offset int) uint16 {
	idx := offset / 2
	if idx < 0 || idx >= len(s.regs) {
		return 0
	}
	return s.regs[idx]
}

func (s *SPU) WriteReg(offset int, v uint16) {
	idx := offset / 2
	if idx < 0 || idx >= len(s.regs) {
		return
	}
	s.regs[idx] = v
}

// PushFrame appends one interleaved stereo frame, flushing to the host
// callback and WAV capture once accumulated. Called by the driver's tick
// loop at the SPU's native sample rate; voice mixing itself is the external
// collaborator's job (spec.md §1).
func (s *SPU) PushFrame(left, right int16) {
	s.pending.Data = append(s.pending.Data, int(left), int(right))
	if len(s.pending.Data) >= 2*256 {
		s.flush()
	}
}

func (s *SPU) flush() {
	if len(s.pending.Data) == 0 {
		return
	}
	if s.onSamples != nil {
		frames := make([]int16, len(s.pending.Data))
		for i, v := range s.pending.Data {
			frames[i] = int16(v)
		}
		s.onSamples(frames)
	}
	if s.capture != nil {
		if err := s.capture.Write(s.pending); err != nil {
			logger.Logf("SPU", "WAV capture write failed: %s", err)
		}
	}
	s.pending.Data = s.pending.Data[:0]
}

// Close flushes any buffered frames and finalises the WAV capture, if one
// was configured.
func (s *SPU) Close() error {
	s.flush()
	if s.capture != nil {
		return s.capture.Close()
	}
	return nil
}

// ToDevice implements dma.Device for DMA channel 4 (memory->SPU): real
// hardware streams ADPCM sample data into the selected voice's buffer; this
// core's scope stops at recording that the transfer happened.
func (s *SPU) ToDevice(word uint32) {
	logger.Logf("SPU", "DMA word %08X", word)
}

// FromDevice implements dma.Device for the (rarely used) SPU->memory
// direction; no capture readback is modelled, so it reads as silence.
func (s *SPU) FromDevice() uint32 { return 0 }

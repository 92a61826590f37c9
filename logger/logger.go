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

// Package logger provides a single, central, tag/permission-filtered trace
// sink for the core. All subsystems (CPU, BUS, CDROM, DMA, IRQ, GPU, SPU,
// TIMER, SIO0, HLE) log through this package rather than writing to stderr
// directly, so a host can redirect, filter or silence tracing uniformly.
package logger

import (
	"fmt"
	"io"
	"sync"
)

// Permission gates whether a Log/Logf call is actually recorded. Passing a
// type that also happens to carry emulation-instance state (see the
// environment package) lets logging be silenced per-instance without every
// call site needing to check first.
type Permission interface {
	AllowLogging() bool
}

// allowAll is the Permission used when callers don't care to restrict
// logging; it exists so call sites don't need to construct one themselves.
type allowAll struct{}

func (allowAll) AllowLogging() bool { return true }

// Allow is a Permission value that always allows logging.
var Allow = allowAll{}

// entry is one recorded log line.
type entry struct {
	tag    string
	detail string
}

func (e entry) String() string {
	return fmt.Sprintf("%s: %s\n", e.tag, e.detail)
}

// Logger is a ring buffer of log entries with a fixed capacity; once full,
// the oldest entry is evicted to make room for the newest.
type Logger struct {
	mu      sync.Mutex
	entries []entry
	cap     int
}

// NewLogger creates a Logger retaining at most capacity entries.
func NewLogger(capacity int) *Logger {
	if capacity <= 0 {
		capacity = 1
	}
	return &Logger{cap: capacity}
}

// Log records a log entry tagged with tag, formatting detail the way
// fmt.Sprintf("%v", detail) would, except that error and fmt.Stringer values
// use their own Error()/String() rendering.
func (l *Logger) Log(perm Permission, tag string, detail interface{}) {
	if perm != nil && !perm.AllowLogging() {
		return
	}
	l.append(tag, render(detail))
}

// Logf records a log entry tagged with tag, using format/args the way
// fmt.Sprintf does.
func (l *Logger) Logf(perm Permission, tag string, format string, args ...interface{}) {
	if perm != nil && !perm.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func render(detail interface{}) string {
	switch v := detail.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *Logger) append(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{tag: tag, detail: detail})
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// Clear discards all recorded entries.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// Write writes every retained entry, oldest first, to w.
func (l *Logger) Write(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		io.WriteString(w, e.String())
	}
}

// Tail writes at most the last n retained entries, oldest first, to w.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 {
		return
	}
	start := 0
	if n < len(l.entries) {
		start = len(l.entries) - n
	}
	for _, e := range l.entries[start:] {
		io.WriteString(w, e.String())
	}
}

// central is the package-level logger used by the convenience functions
// below; most of the core logs through this instance.
var central = NewLogger(10000)

// Log records a log entry on the central logger.
func Log(tag string, detail interface{}) {
	central.Log(Allow, tag, detail)
}

// Logf records a formatted log entry on the central logger.
func Logf(tag string, format string, args ...interface{}) {
	central.Logf(Allow, tag, format, args...)
}

// Write writes every entry retained by the central logger to w.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail writes at most the last n entries retained by the central logger.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// Clear discards all entries retained by the central logger.
func Clear() {
	central.Clear()
}

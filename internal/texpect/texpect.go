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

// Package texpect collects small test assertion helpers used throughout this
// module's test suite, in place of ad hoc if/t.Fatalf blocks.
package texpect

import (
	"bytes"
	"reflect"
	"testing"
)

// Equate fails the test if got and want are not deeply equal.
func Equate(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, wanted %#v", got, want)
	}
}

// ExpectEquality is an alias of Equate kept for readability at call sites
// that are asserting on two derived values rather than a got/want pair.
func ExpectEquality(t *testing.T, a, b interface{}) {
	t.Helper()
	Equate(t, a, b)
}

// ExpectInequality fails the test if a and b are deeply equal.
func ExpectInequality(t *testing.T, a, b interface{}) {
	t.Helper()
	if reflect.DeepEqual(a, b) {
		t.Errorf("did not expect %#v to equal %#v", a, b)
	}
}

// ExpectSuccess fails the test unless v is a true bool or a nil error.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()
	switch v := v.(type) {
	case bool:
		if !v {
			t.Errorf("expected success, got false")
		}
	case error:
		if v != nil {
			t.Errorf("expected success, got error: %v", v)
		}
	case nil:
		return
	default:
		t.Errorf("ExpectSuccess: unsupported type %T", v)
	}
}

// ExpectFailure fails the test unless v is a false bool or a non-nil error.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()
	switch v := v.(type) {
	case bool:
		if v {
			t.Errorf("expected failure, got true")
		}
	case error:
		if v == nil {
			t.Errorf("expected failure, got nil error")
		}
	default:
		t.Errorf("ExpectFailure: unsupported type %T", v)
	}
}

// CappedWriter is an io.Writer that retains only the first N bytes written to
// it; useful for making equality assertions against a bounded log tail
// without growing memory unbounded during a long-running test.
type CappedWriter struct {
	buf bytes.Buffer
	cap int
}

// NewCappedWriter creates a CappedWriter with the given byte capacity.
func NewCappedWriter(capacity int) (*CappedWriter, error) {
	return &CappedWriter{cap: capacity}, nil
}

func (c *CappedWriter) Write(p []byte) (int, error) {
	room := c.cap - c.buf.Len()
	if room <= 0 {
		return len(p), nil
	}
	if len(p) > room {
		p = p[:room]
	}
	c.buf.Write(p)
	return len(p), nil
}

// String returns the bytes retained so far.
func (c *CappedWriter) String() string {
	return c.buf.String()
}

// Reset empties the writer.
func (c *CappedWriter) Reset() {
	c.buf.Reset()
}

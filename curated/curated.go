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

// Package curated supplies host-facing errors for configuration failures
// (opening a BIOS image, opening a disc image) per spec.md §7: "Configuration
// failures ... reported to the caller of init/insert with a diagnostic
// string; the core refuses to run." Hardware-level anomalies are never
// surfaced through this package — they are recovered in place (see the cdrom
// and cpu packages).
package curated

import (
	"fmt"
	"strings"
)

// curated is an error built from a message pattern and the values that were
// formatted into it, so the pattern itself remains available for Is/Has
// comparisons regardless of the formatted values.
type curated struct {
	pattern string
	values  []interface{}
}

// Errorf creates a curated error. pattern is both the format string passed to
// fmt.Errorf and the identity used by Is/Has.
func Errorf(pattern string, values ...interface{}) error {
	return curated{pattern: pattern, values: values}
}

// Error implements the error interface. Adjacent duplicate message segments
// (common when wrapping one curated error inside another with the same
// leading text) are collapsed.
func (e curated) Error() string {
	s := fmt.Errorf(e.pattern, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// IsAny reports whether err was created by this package.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err is a curated error built from exactly pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	e, ok := err.(curated)
	return ok && e.pattern == pattern
}

// Has reports whether pattern appears anywhere in err's wrapped chain of
// curated errors.
func Has(err error, pattern string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	for _, v := range err.(curated).values {
		if inner, ok := v.(error); ok && Has(inner, pattern) {
			return true
		}
	}
	return false
}

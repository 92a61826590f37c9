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

package curated_test

import (
	"fmt"
	"testing"

	"github.com/kepler-systems/psx1/curated"
	"github.com/kepler-systems/psx1/internal/texpect"
)

const errOpenBIOS = "cannot open BIOS image: %s"
const errOpenDisc = "cannot open disc image: %s"

func TestDuplicateErrors(t *testing.T) {
	e := curated.Errorf(errOpenBIOS, "no such file")
	texpect.Equate(t, e.Error(), "cannot open BIOS image: no such file")

	f := curated.Errorf(errOpenBIOS, e)
	texpect.Equate(t, f.Error(), "cannot open BIOS image: no such file")
}

func TestIsAndHas(t *testing.T) {
	e := curated.Errorf(errOpenBIOS, "no such file")
	texpect.ExpectSuccess(t, curated.Is(e, errOpenBIOS))
	texpect.ExpectFailure(t, curated.Has(e, errOpenDisc))

	f := curated.Errorf(errOpenDisc, e)
	texpect.ExpectFailure(t, curated.Is(f, errOpenBIOS))
	texpect.ExpectSuccess(t, curated.Is(f, errOpenDisc))
	texpect.ExpectSuccess(t, curated.Has(f, errOpenBIOS))
	texpect.ExpectSuccess(t, curated.Has(f, errOpenDisc))
	texpect.ExpectSuccess(t, curated.IsAny(e))
	texpect.ExpectSuccess(t, curated.IsAny(f))
}

func TestPlainErrors(t *testing.T) {
	e := fmt.Errorf("plain error")
	texpect.ExpectFailure(t, curated.IsAny(e))
	texpect.ExpectFailure(t, curated.Has(e, errOpenBIOS))
}

/*
Copyright © 2024 the gaden player authors.
This file is part of the gaden player.

The gaden player is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

The gaden player is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with the gaden player.  If not, see <http://www.gnu.org/licenses/>.
*/

package gadenutil

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// occupancy2x2x2 is a free 2x2x2 environment of 1 m cells.
const occupancy2x2x2 = `#env_min(m) 0 0 0
#env_max(m) 2 2 2
#num_cells 2 2 2
#cell_size(m) 1
0 0
0 0
;
0 0
0 0
;
`

// frame returns a compressed dense frame for the 2x2x2 environment.
func frame(t *testing.T, gas string, lines ...string) []byte {
	header := []string{
		"env_min(m) 0 0 0",
		"env_max(m) 2 2 2",
		"NumCells_XYZ 2 2 2",
		"CellSizes_XYZ[m] 1",
		"GasSourceLocation_XYZ[m] 0.5 0.5 0.5",
		"GasType " + gas,
		"Number_of_filaments 0",
		"Cell_x Cell_y Cell_z Gas_conc[ppm] Wind_u Wind_v Wind_w",
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	fmt.Fprintln(w, strings.Join(append(header, lines...), "\n"))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// testSetup holds a temporary occupancy file and simulation directories.
type testSetup struct {
	root      string
	occupancy string
	sources   []string
}

func (s *testSetup) cleanup() { os.RemoveAll(s.root) }

// newTestSetup creates an occupancy file and one simulation directory per
// entry of sims, each holding frames by iteration.
func newTestSetup(t *testing.T, sims ...map[int][]byte) *testSetup {
	root, err := ioutil.TempDir("", "gadenutil")
	if err != nil {
		t.Fatal(err)
	}
	s := &testSetup{root: root, occupancy: filepath.Join(root, "OccupancyGrid3D.csv")}
	if err := ioutil.WriteFile(s.occupancy, []byte(occupancy2x2x2), 0644); err != nil {
		t.Fatal(err)
	}
	for i, frames := range sims {
		dir := filepath.Join(root, fmt.Sprintf("sim%d", i))
		if err := os.MkdirAll(filepath.Join(dir, "wind"), os.ModePerm); err != nil {
			t.Fatal(err)
		}
		for it, f := range frames {
			if err := ioutil.WriteFile(filepath.Join(dir, fmt.Sprintf("iteration_%d", it)), f, 0644); err != nil {
				t.Fatal(err)
			}
		}
		s.sources = append(s.sources, dir)
	}
	return s
}

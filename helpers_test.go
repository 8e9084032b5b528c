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

package gaden

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// quietLogger returns a logger that discards its output.
func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// freeEnvironment returns an environment of n cells of size cellSize with
// its minimum corner at the origin and all cells free.
func freeEnvironment(n [3]int, cellSize float64) *Environment {
	e := &Environment{
		Cells:    n,
		CellSize: cellSize,
		Max: [3]float64{
			float64(n[0]) * cellSize,
			float64(n[1]) * cellSize,
			float64(n[2]) * cellSize,
		},
	}
	e.Occupancy = make([]Occupancy, e.NumCells())
	return e
}

func compress(t *testing.T, b []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// textLog returns an uncompressed text log for a 2x2x2 environment of 1 m
// cells releasing gas, followed by the given data lines.
func textLog(gas string, lines ...string) []byte {
	return textLogCells("2 2 2", gas, lines...)
}

// textLogCells is like textLog but writes cells as the cell counts of the
// header.
func textLogCells(cells, gas string, lines ...string) []byte {
	header := []string{
		"env_min(m) 0 0 0",
		"env_max(m) 2 2 2",
		"NumCells_XYZ " + cells,
		"CellSizes_XYZ[m] 1",
		"GasSourceLocation_XYZ[m] 0.5 0.5 0.5",
		"GasType " + gas,
		"Number_of_filaments 0",
		"Cell_x Cell_y Cell_z Gas_conc[ppm] Wind_u[10⁻³m/s] Wind_v[10⁻³m/s] Wind_w[10⁻³m/s]",
	}
	return []byte(strings.Join(append(header, lines...), "\n") + "\n")
}

func testBinaryHeader(cells [3]int32, cellSize float64, gasCode int32) binaryHeader {
	return binaryHeader{
		Max: [3]float64{
			float64(cells[0]) * cellSize,
			float64(cells[1]) * cellSize,
			float64(cells[2]) * cellSize,
		},
		Cells:                 cells,
		CellSize:              cellSize,
		GasCode:               gasCode,
		TotalMolesInFilament:  1e-5,
		NumMolesAllGasesInCM3: 4.1e-5,
	}
}

// binaryLog returns an uncompressed binary log.
func binaryLog(t *testing.T, h binaryHeader, windIndex int32, filaments ...Filament) []byte {
	var b bytes.Buffer
	for _, v := range []interface{}{int32(binaryTag), h, windIndex} {
		if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range filaments {
		for _, v := range []interface{}{int32(f.Index), f.Position, f.Sigma} {
			if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	return b.Bytes()
}

// windFile returns the content of a wind snapshot where every cell has the
// wind vector (u, v, w).
func windFile(t *testing.T, nCells int, u, v, w float64) []byte {
	var b bytes.Buffer
	for _, val := range []float64{u, v, w} {
		d := make([]float64, nCells)
		for i := range d {
			d[i] = val
		}
		if err := binary.Write(&b, binary.LittleEndian, d); err != nil {
			t.Fatal(err)
		}
	}
	return b.Bytes()
}

// simDir creates a temporary simulation directory holding the given
// compressed frames (by iteration) and raw wind snapshots (by index).
func simDir(t *testing.T, frames map[int][]byte, winds map[int][]byte) DirStore {
	dir, err := ioutil.TempDir("", "gaden")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "wind"), os.ModePerm); err != nil {
		t.Fatal(err)
	}
	for it, f := range frames {
		if err := ioutil.WriteFile(filepath.Join(dir, FramePath(it)), compress(t, f), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for idx, w := range winds {
		if err := ioutil.WriteFile(filepath.Join(dir, filepath.FromSlash(WindPath(idx))), w, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return DirStore(dir)
}

func removeDir(t *testing.T, d DirStore) {
	if err := os.RemoveAll(string(d)); err != nil {
		t.Error(err)
	}
}

func point(x, y, z float64) [3]float64 { return [3]float64{x, y, z} }

func sprintPoint(p [3]float64) string { return fmt.Sprintf("(%g, %g, %g)", p[0], p[1], p[2]) }

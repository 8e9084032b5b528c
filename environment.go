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

// Package gaden replays precomputed gas dispersion simulations and answers
// point queries for gas concentration and wind velocity.
//
// A simulation is stored as a directory of compressed frame files (one per
// iteration) plus, for filament simulations, a directory of wind snapshots.
// Each configured gas source is replayed by an Instance; an Aggregator merges
// the instances by gas type, and a Playback driver advances them at a fixed
// frequency independent of how often they are queried.
package gaden

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Occupancy is the classification of a single environment cell.
type Occupancy uint8

// Occupancy codes used in occupancy files.
const (
	Free     Occupancy = 0
	Obstacle Occupancy = 1
	Outlet   Occupancy = 2
)

// Environment describes the geometry of the simulated space and the
// occupancy of each of its cells. It is shared read-only by all simulation
// instances and must not be modified after it has been handed to them.
type Environment struct {
	Min, Max [3]float64 // bounding box corners [m]
	Cells    [3]int     // number of cells in x, y and z
	CellSize float64    // edge length of the cubic cells [m]

	// Occupancy holds one code per cell, indexed by Index.
	Occupancy []Occupancy
}

// NumCells returns the total number of cells in the environment.
func (e *Environment) NumCells() int {
	return e.Cells[0] * e.Cells[1] * e.Cells[2]
}

// Index returns the linear index of cell (x, y, z).
func (e *Environment) Index(x, y, z int) int {
	return x + y*e.Cells[0] + z*e.Cells[0]*e.Cells[1]
}

// Check returns an error if the dimensions of e are inconsistent.
func (e *Environment) Check() error {
	if _, err := cellCount(e.Cells); err != nil {
		return fmt.Errorf("gaden: environment has %v", err)
	}
	if !(e.CellSize > 0) {
		return fmt.Errorf("gaden: environment cell size is %g but should be > 0", e.CellSize)
	}
	if len(e.Occupancy) != e.NumCells() {
		return fmt.Errorf("gaden: environment has %d occupancy codes but %d cells",
			len(e.Occupancy), e.NumCells())
	}
	return nil
}

// QueryCell maps point p to a cell using the ceiling rule used for
// concentration and wind queries: index = ceil((p - min) / cell size) on each
// axis. A point lying exactly on a face at min + n*cellSize therefore maps to
// index n, and any point strictly inside (min + (n-1)*cellSize, min +
// n*cellSize] maps to n as well. Points outside [Min, Max] and indices
// outside [0, Cells] are out of range; index Cells (the upper face of the
// domain) resolves to the last cell.
func (e *Environment) QueryCell(p [3]float64) (int, error) {
	var idx [3]int
	for i := 0; i < 3; i++ {
		if !(p[i] >= e.Min[i] && p[i] <= e.Max[i]) {
			return -1, OutOfRangeErr{Point: p}
		}
		c := math.Ceil((p[i] - e.Min[i]) / e.CellSize)
		if c < 0 || c > float64(e.Cells[i]) {
			return -1, OutOfRangeErr{Point: p}
		}
		idx[i] = int(c)
		if idx[i] == e.Cells[i] {
			idx[i]--
		}
	}
	return e.Index(idx[0], idx[1], idx[2]), nil
}

// poseOccupancy returns the occupancy of the cell holding p, using truncating
// division, and whether p is inside the environment at all.
func (e *Environment) poseOccupancy(p [3]float64) (Occupancy, bool) {
	var idx [3]int
	for i := 0; i < 3; i++ {
		if p[i] < e.Min[i] || p[i] > e.Max[i] {
			return Obstacle, false
		}
		idx[i] = int((p[i] - e.Min[i]) / e.CellSize)
		if idx[i] >= e.Cells[i] {
			return Obstacle, false
		}
	}
	return e.Occupancy[e.Index(idx[0], idx[1], idx[2])], true
}

// sampleOccupancy returns the occupancy of the cell holding p using floor
// mapping. Samples that fall outside the grid count as occupied.
func (e *Environment) sampleOccupancy(p [3]float64) Occupancy {
	var idx [3]int
	for i := 0; i < 3; i++ {
		idx[i] = int(math.Floor((p[i] - e.Min[i]) / e.CellSize))
		if idx[i] < 0 || idx[i] >= e.Cells[i] {
			return Obstacle
		}
	}
	return e.Occupancy[e.Index(idx[0], idx[1], idx[2])]
}

// ReadEnvironment reads an occupancy file. The file starts with four header
// lines:
//
//	#env_min(m) x y z
//	#env_max(m) x y z
//	#num_cells nx ny nz
//	#cell_size(m) s
//
// followed, for each z layer, by ny lines of nx occupancy codes (x varies
// fastest) and a line containing ";" that closes the layer.
func ReadEnvironment(r io.Reader) (*Environment, error) {
	e := new(Environment)
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)

	headers := []struct {
		name string
		dst  []float64
	}{
		{name: "env_min", dst: e.Min[:]},
		{name: "env_max", dst: e.Max[:]},
		{name: "num_cells", dst: make([]float64, 3)},
		{name: "cell_size", dst: make([]float64, 1)},
	}
	for _, h := range headers {
		if !s.Scan() {
			return nil, fmt.Errorf("gaden: reading occupancy header %s: %v", h.name, scanErr(s))
		}
		if err := parseHeaderLine(s.Text(), h.dst); err != nil {
			return nil, fmt.Errorf("gaden: reading occupancy header %s: %v", h.name, err)
		}
	}
	for i, v := range headers[2].dst {
		e.Cells[i] = int(v)
	}
	e.CellSize = headers[3].dst[0]
	n, err := cellCount(e.Cells)
	if err != nil {
		return nil, fmt.Errorf("gaden: reading occupancy header num_cells: %v", err)
	}
	e.Occupancy = make([]Occupancy, n)

	y, z := 0, 0
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.Contains(line, ";") {
			if y != e.Cells[1] {
				return nil, fmt.Errorf("gaden: occupancy layer %d has %d rows; want %d", z, y, e.Cells[1])
			}
			y = 0
			z++
			continue
		}
		if z >= e.Cells[2] || y >= e.Cells[1] {
			return nil, fmt.Errorf("gaden: occupancy file has more cells than %v", e.Cells)
		}
		fields := strings.Fields(line)
		if len(fields) != e.Cells[0] {
			return nil, fmt.Errorf("gaden: occupancy row %d of layer %d has %d values; want %d",
				y, z, len(fields), e.Cells[0])
		}
		for x, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("gaden: occupancy row %d of layer %d: %v", y, z, err)
			}
			if v < int(Free) || v > int(Outlet) {
				return nil, fmt.Errorf("gaden: invalid occupancy code %d at (%d, %d, %d)", v, x, y, z)
			}
			e.Occupancy[e.Index(x, y, z)] = Occupancy(v)
		}
		y++
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("gaden: reading occupancy file: %v", err)
	}
	if z != e.Cells[2] {
		return nil, fmt.Errorf("gaden: occupancy file has %d layers; want %d", z, e.Cells[2])
	}
	if err := e.Check(); err != nil {
		return nil, err
	}
	return e, nil
}

// maxCells is the largest grid, in cells, that environments and simulation
// logs may describe.
const maxCells = 1 << 28

// cellCount returns nx*ny*nz. It returns an error if a count is not positive
// or the grid has more than maxCells cells.
func cellCount(n [3]int) (int, error) {
	total := 1
	for i, v := range n {
		if v <= 0 {
			return 0, fmt.Errorf("%d cells along axis %d", v, i)
		}
		if v > maxCells || total > maxCells/v {
			return 0, fmt.Errorf("%v cells, more than the limit of %d", n, maxCells)
		}
		total *= v
	}
	return total, nil
}

// parseHeaderLine parses a line of the form `<label> v1 v2 ...` into dst,
// ignoring the label.
func parseHeaderLine(line string, dst []float64) error {
	fields := strings.Fields(line)
	if len(fields) < len(dst)+1 {
		return fmt.Errorf("line %q has %d values; want %d", line, len(fields)-1, len(dst))
	}
	for i := range dst {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func scanErr(s *bufio.Scanner) error {
	if err := s.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

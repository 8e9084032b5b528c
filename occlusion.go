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
	"math"

	"github.com/gonum/floats"
)

// Visible reports whether there is a free line of sight between start and
// end. Both points must be inside the environment and in free cells. The
// segment between them is sampled in ceil(distance / cell size) equal steps
// and only the interior samples 1 … steps-2 are tested, so a thin obstacle
// lying between two samples can be missed.
func (e *Environment) Visible(start, end [3]float64) bool {
	if occ, ok := e.poseOccupancy(start); !ok || occ != Free {
		return false
	}
	if occ, ok := e.poseOccupancy(end); !ok || occ != Free {
		return false
	}

	distance := floats.Distance(start[:], end[:], 2)
	if distance == 0 {
		return true
	}
	var dir [3]float64
	for i := range dir {
		dir[i] = (end[i] - start[i]) / distance
	}

	steps := int(math.Ceil(distance / e.CellSize))
	increment := distance / float64(steps)
	for i := 1; i < steps-1; i++ {
		var p [3]float64
		for j := range p {
			p[j] = start[j] + dir[j]*increment*float64(i)
		}
		if e.sampleOccupancy(p) != Free {
			return false
		}
	}
	return true
}

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

// cutoffSigmas is the number of standard deviations beyond which a filament's
// contribution is treated as zero.
const cutoffSigmas = 5.

// puffNorm is sqrt(8π³), the normalization of a 3D Gaussian apart from σ³.
var puffNorm = math.Sqrt(8 * math.Pi * math.Pi * math.Pi)

// Normalization holds the constants that convert a filament into a
// concentration.
type Normalization struct {
	TotalMolesInFilament  float64 // gas in one filament [mol]
	NumMolesAllGasesInCM3 float64 // molar density of air [mol/cm³]
}

// Contribution returns the concentration [ppm] that filament f adds at point
// p. Positions are in meters; f.Sigma is in centimeters.
func Contribution(p [3]float64, f Filament, n Normalization) float64 {
	distCM := 100 * floats.Distance(p[:], f.Position[:], 2)
	sigma := f.Sigma
	molesPerCM3 := n.TotalMolesInFilament / (puffNorm * sigma * sigma * sigma) *
		math.Exp(-distCM*distCM/(2*sigma*sigma))
	return molesPerCM3 / n.NumMolesAllGasesInCM3 * 1e6
}

// WithinCutoff reports whether p is closer to f than the truncation radius
// of 5σ, converted to meters.
func WithinCutoff(p [3]float64, f Filament) bool {
	limit := f.Sigma * cutoffSigmas / 100
	dx, dy, dz := p[0]-f.Position[0], p[1]-f.Position[1], p[2]-f.Position[2]
	return dx*dx+dy*dy+dz*dz < limit*limit
}

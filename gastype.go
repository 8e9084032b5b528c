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

import "fmt"

// GasTable maps the gas type codes stored in binary simulation logs to gas
// names.
type GasTable struct {
	Version int
	Names   []string
}

// GasTableV1 is the code table written by version 1 of the filament
// simulator.
var GasTableV1 = GasTable{
	Version: 1,
	Names: []string{
		"ethanol",
		"methane",
		"hydrogen",
		"propanol",
		"chlorine",
		"fluorine",
		"acetone",
		"neon",
		"helium",
		"hot_air",
	},
}

// Name returns the gas name for code.
func (t GasTable) Name(code int) (string, error) {
	if code < 0 || code >= len(t.Names) {
		return "", fmt.Errorf("gaden: gas type code %d is not in version %d of the gas table", code, t.Version)
	}
	return t.Names[code], nil
}

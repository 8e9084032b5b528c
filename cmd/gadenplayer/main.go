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

// Command gadenplayer is a command-line interface for replaying GADEN gas
// dispersion simulations.
package main

import (
	"fmt"
	"os"

	"github.com/Herwich012/gaden/gadenutil"
)

func main() {
	if !hasSubcommand(os.Args[1:]) {
		gadenutil.StartWebServer()
		return
	}
	if err := gadenutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// hasSubcommand reports whether args contain anything besides flags.
// Without a subcommand the player opens its browser GUI.
func hasSubcommand(args []string) bool {
	for _, arg := range args {
		if arg != "" && arg[0] != '-' {
			return true
		}
	}
	return false
}

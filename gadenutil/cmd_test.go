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
	"strings"
	"testing"

	"github.com/Herwich012/gaden"
)

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "gadenplayer v" + gaden.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("output %q does not contain %q", buf.String(), want)
	}
}

func TestQueryCommand(t *testing.T) {
	s := newTestSetup(t,
		map[int][]byte{3: frame(t, "methane", "1 1 1 500 10 20 30")},
		map[int][]byte{3: frame(t, "ethanol", "1 1 1 2000 0 0 0")},
	)
	defer s.cleanup()
	Log = quietLogger()

	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"query",
		"--OccupancyFile=" + s.occupancy,
		"--Sources=" + strings.Join(s.sources, ","),
		"--iteration=3",
		"--point=0.4,0.4,0.4",
		"--point=5,5,5",
	})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output: %q", buf.String())
	}
	want := "(0.4, 0.4, 0.4): ethanol=2 ppm methane=0.5 ppm wind=(0.01, 0.02, 0.03) m/s"
	if lines[0] != want {
		t.Errorf("want %q but have %q", want, lines[0])
	}
	if !strings.Contains(lines[1], "outside the environment") {
		t.Errorf("out of range point: %q", lines[1])
	}
}

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
	"context"
	"testing"
)

func TestWindCache(t *testing.T) {
	const nCells = 4
	dir := simDir(t, nil, map[int][]byte{
		3: windFile(t, nCells, 1, 2, 3),
		4: windFile(t, nCells, 4, 5, 6),
		5: windFile(t, nCells, 7, 8, 9)[:nCells*8*2+3],
	})
	defer removeDir(t, dir)
	ctx := context.Background()

	w := NewWindCache(dir, nCells, 1)
	w.Log = quietLogger()
	if w.Field() != nil {
		t.Fatal("field should be nil before the first load")
	}

	steps := []struct {
		index   int
		reads   int
		u       float64
		wantErr bool
	}{
		{index: 3, reads: 1, u: 1},
		{index: 3, reads: 1, u: 1}, // unchanged index is not reread
		{index: 4, reads: 2, u: 4},
		{index: 3, reads: 3, u: 1},                // evicted from the cache
		{index: 6, reads: 4, u: 1, wantErr: true}, // missing file
		{index: 5, reads: 5, u: 1, wantErr: true}, // truncated file
		{index: 3, reads: 5, u: 1},                // still the current snapshot
		{index: 6, reads: 6, u: 1, wantErr: true}, // failures are not cached
	}
	for i, s := range steps {
		err := w.Load(ctx, s.index)
		if (err != nil) != s.wantErr {
			t.Fatalf("step %d: load %d: unexpected error state %v", i, s.index, err)
		}
		if have := w.Reads(); have != s.reads {
			t.Errorf("step %d: want %d reads but have %d", i, s.reads, have)
		}
		f := w.Field()
		if f == nil {
			t.Fatalf("step %d: nil field", i)
		}
		if u, _, _ := f.At(nCells - 1); u != s.u {
			t.Errorf("step %d: want u = %g but have %g", i, s.u, u)
		}
	}
}

func TestWindCacheMemory(t *testing.T) {
	const nCells = 2
	dir := simDir(t, nil, map[int][]byte{
		0: windFile(t, nCells, 1, 0, 0),
		1: windFile(t, nCells, 2, 0, 0),
	})
	defer removeDir(t, dir)
	ctx := context.Background()

	w := NewWindCache(dir, nCells, 2)
	w.Log = quietLogger()
	for _, idx := range []int{0, 1, 0, 1, 0} {
		if err := w.Load(ctx, idx); err != nil {
			t.Fatal(err)
		}
		if u, _, _ := w.Field().At(0); u != float64(idx+1) {
			t.Errorf("index %d: have u = %g", idx, u)
		}
	}
	if r := w.Reads(); r != 2 {
		t.Errorf("want 2 reads but have %d", r)
	}
}

// A published field replaces the loaded snapshot, so loading the same
// snapshot index again must not be skipped.
func TestWindCachePublish(t *testing.T) {
	const nCells = 2
	dir := simDir(t, nil, map[int][]byte{0: windFile(t, nCells, 1, 0, 0)})
	defer removeDir(t, dir)
	ctx := context.Background()

	w := NewWindCache(dir, nCells, 1)
	w.Log = quietLogger()
	if err := w.Load(ctx, 0); err != nil {
		t.Fatal(err)
	}
	w.Publish(&WindField{Index: -1, U: []float64{9, 9}, V: make([]float64, 2), W: make([]float64, 2)})
	if u, _, _ := w.Field().At(1); u != 9 {
		t.Errorf("published field: have u = %g", u)
	}
	if err := w.Load(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if u, _, _ := w.Field().At(1); u != 1 {
		t.Errorf("reloaded field: have u = %g", u)
	}
}

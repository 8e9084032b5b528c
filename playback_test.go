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
	"reflect"
	"testing"
	"time"
)

// recorder is an Advancer that records the requested iterations.
type recorder struct {
	iterations []int
}

func (r *recorder) Advance(_ context.Context, iteration int) (AdvanceReport, error) {
	r.iterations = append(r.iterations, iteration)
	return AdvanceReport{Iteration: iteration}, nil
}

func newTestPlayback(t *testing.T, sim Advancer, cfg PlaybackConfig, start time.Time) *Playback {
	p, err := NewPlayback(sim, cfg, start)
	if err != nil {
		t.Fatal(err)
	}
	p.Log = quietLogger()
	return p
}

func TestPlaybackLoop(t *testing.T) {
	start := time.Unix(1000, 0)
	r := new(recorder)
	p := newTestPlayback(t, r, PlaybackConfig{
		Frequency:        1,
		InitialIteration: 5,
		Loop:             true,
		LoopFrom:         5,
		LoopTo:           10,
	}, start)

	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		loaded, rep, err := p.Tick(ctx, start.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatal(err)
		}
		if !loaded {
			t.Fatalf("tick %d: no load", i)
		}
		if rep.Iteration != r.iterations[len(r.iterations)-1] {
			t.Errorf("tick %d: report for iteration %d", i, rep.Iteration)
		}
	}
	want := []int{5, 6, 7, 8, 9, 5, 6}
	if !reflect.DeepEqual(r.iterations, want) {
		t.Errorf("want %v but have %v", want, r.iterations)
	}
}

func TestPlaybackFrequency(t *testing.T) {
	start := time.Unix(1000, 0)
	r := new(recorder)
	p := newTestPlayback(t, r, PlaybackConfig{Frequency: 4, InitialIteration: 1}, start)

	ctx := context.Background()
	// Ticks every 100 ms for one second load a frame every 250 ms at most.
	for i := 1; i <= 10; i++ {
		if _, _, err := p.Tick(ctx, start.Add(time.Duration(i)*100*time.Millisecond)); err != nil {
			t.Fatal(err)
		}
	}
	want := []int{1, 2, 3}
	if !reflect.DeepEqual(r.iterations, want) {
		t.Errorf("want %v but have %v", want, r.iterations)
	}
	if p.Iteration() != 4 {
		t.Errorf("next iteration: want 4 but have %d", p.Iteration())
	}
}

// Without looping, playback keeps counting past the end of the logs; the
// missing frames only leave instances stale.
func TestPlaybackPastEnd(t *testing.T) {
	d := simDir(t, map[int][]byte{1: textLog("methane", "0 0 0 1000 0 0 0")}, nil)
	defer removeDir(t, d)
	a := newTestAggregator(t, d)

	start := time.Unix(0, 0)
	p := newTestPlayback(t, a, PlaybackConfig{Frequency: 1, InitialIteration: 1}, start)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, r, err := p.Tick(ctx, start.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatal(err)
		}
		if wantStale := i > 1; (len(r.Stale) == 1) != wantStale {
			t.Errorf("tick %d: report %+v", i, r)
		}
	}
	c, err := a.Concentrations(point(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if c["methane"] != 1 {
		t.Errorf("want the last loaded frame but have %v", c)
	}
}

func TestPlaybackConfigCheck(t *testing.T) {
	for _, cfg := range []PlaybackConfig{
		{Frequency: 0},
		{Frequency: -1},
		{Frequency: 1, Loop: true, LoopFrom: 5, LoopTo: 5},
	} {
		if err := cfg.Check(); err == nil {
			t.Errorf("%+v: expected an error", cfg)
		}
	}
	if err := (PlaybackConfig{Frequency: 1, Loop: true, LoopFrom: 1, LoopTo: 2}).Check(); err != nil {
		t.Error(err)
	}
}

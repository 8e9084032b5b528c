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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Advancer is implemented by types that can load a simulation iteration.
type Advancer interface {
	Advance(ctx context.Context, iteration int) (AdvanceReport, error)
}

// PlaybackConfig holds the settings of a Playback.
type PlaybackConfig struct {
	Frequency        float64 // frames per second
	InitialIteration int

	// If Loop is true, the iteration counter wraps from LoopTo
	// (exclusive) back to LoopFrom.
	Loop             bool
	LoopFrom, LoopTo int
}

// Check returns an error if c is not a valid configuration.
func (c PlaybackConfig) Check() error {
	if !(c.Frequency > 0) {
		return fmt.Errorf("gaden: playback frequency is %g but should be > 0", c.Frequency)
	}
	if c.Loop && c.LoopTo <= c.LoopFrom {
		return fmt.Errorf("gaden: loop window [%d, %d) is empty", c.LoopFrom, c.LoopTo)
	}
	return nil
}

// Playback advances a simulation at a fixed frequency, independently of how
// often Tick is called.
type Playback struct {
	PlaybackConfig
	sim Advancer

	counter  int
	lastLoad time.Time

	Log logrus.FieldLogger
}

// NewPlayback creates a playback of sim that starts counting at start, so
// that the first frame is loaded one period after start.
func NewPlayback(sim Advancer, cfg PlaybackConfig, start time.Time) (*Playback, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &Playback{
		PlaybackConfig: cfg,
		sim:            sim,
		counter:        cfg.InitialIteration,
		lastLoad:       start,
		Log:            logrus.StandardLogger(),
	}, nil
}

// Iteration returns the iteration that will be loaded by the next load.
func (p *Playback) Iteration() int { return p.counter }

func (p *Playback) period() time.Duration {
	return time.Duration(float64(time.Second) / p.Frequency)
}

// Tick loads the next iteration if at least one period has passed since the
// last load. It reports whether a load was attempted.
func (p *Playback) Tick(ctx context.Context, now time.Time) (bool, AdvanceReport, error) {
	if now.Sub(p.lastLoad) < p.period() {
		return false, AdvanceReport{}, nil
	}
	p.Log.WithField("iteration", p.counter).Debug("playing simulation iteration")
	r, err := p.sim.Advance(ctx, p.counter)
	p.counter++
	if p.Loop && p.counter >= p.LoopTo {
		p.counter = p.LoopFrom
		p.Log.WithField("iteration", p.counter).Debug("looping")
	}
	p.lastLoad = now
	return true, r, err
}

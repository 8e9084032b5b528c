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
	"sort"

	"github.com/gonum/floats"
	"github.com/sirupsen/logrus"
)

// Aggregator replays several simulation logs (one per gas source) together
// and merges their concentrations by gas type. Co-located simulations share
// the same wind field, so only one copy of it is kept: the Aggregator owns
// it and its first instance is the only one that loads it.
type Aggregator struct {
	Instances []*Instance

	env  *Environment
	wind *WindCache

	Log logrus.FieldLogger
}

// NewAggregator creates an aggregator with one instance per store. The first
// store is used to load wind data. windCacheSize is the number of wind
// snapshots kept in memory.
func NewAggregator(env *Environment, windCacheSize int, stores ...Store) (*Aggregator, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("gaden: at least one simulation is required")
	}
	if err := env.Check(); err != nil {
		return nil, err
	}
	a := &Aggregator{
		env:  env,
		wind: NewWindCache(stores[0], env.NumCells(), windCacheSize),
		Log:  logrus.StandardLogger(),
	}
	for i, s := range stores {
		var w *WindCache
		if i == 0 {
			w = a.wind
		}
		a.Instances = append(a.Instances, NewInstance(s, env, w))
	}
	return a, nil
}

// SetLogger sets the logger of the aggregator and of everything it owns.
func (a *Aggregator) SetLogger(l logrus.FieldLogger) {
	a.Log = l
	a.wind.Log = l
	for i, s := range a.Instances {
		s.Log = l.WithField("instance", i)
	}
}

// Environment returns the environment the simulations are replayed in.
func (a *Aggregator) Environment() *Environment { return a.env }

// WindCache returns the shared wind cache.
func (a *Aggregator) WindCache() *WindCache { return a.wind }

// AdvanceReport summarizes the outcome of Advance.
type AdvanceReport struct {
	Iteration int
	Loaded    []int // indices of instances that loaded the frame
	Stale     []int // indices of instances that kept their previous frame
}

// Advance loads the frame for the given iteration in every instance.
// Instances whose frame is missing or broken keep their previous frame and
// are listed in the report as stale. The returned error is only non-nil for
// failures that skipping frames can not fix.
func (a *Aggregator) Advance(ctx context.Context, iteration int) (AdvanceReport, error) {
	r := AdvanceReport{Iteration: iteration}
	for i, s := range a.Instances {
		err := s.Advance(ctx, iteration)
		switch {
		case err == nil:
			r.Loaded = append(r.Loaded, i)
		case IsStale(err):
			r.Stale = append(r.Stale, i)
			a.Log.WithFields(logrus.Fields{
				"instance":  i,
				"iteration": iteration,
			}).Warn(err)
		default:
			return r, fmt.Errorf("gaden: instance %d: %v", i, err)
		}
	}
	return r, nil
}

// GasTypes returns the sorted, distinct gas types of the instances that have
// loaded a frame.
func (a *Aggregator) GasTypes() []string {
	seen := make(map[string]struct{})
	var o []string
	for _, s := range a.Instances {
		if s.Header() == nil {
			continue
		}
		g := s.GasType()
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		o = append(o, g)
	}
	sort.Strings(o)
	return o
}

// Concentrations returns the concentration [ppm] of each gas type at point p.
// Instances releasing the same gas add up. Instances that have not loaded a
// frame yet are skipped. Points outside the environment result in an
// OutOfRangeErr.
func (a *Aggregator) Concentrations(p [3]float64) (map[string]float64, error) {
	if _, err := a.env.QueryCell(p); err != nil {
		return nil, err
	}
	contributions := make(map[string][]float64)
	for _, s := range a.Instances {
		c, err := s.Concentration(p)
		if err != nil {
			if _, ok := err.(NotLoadedErr); ok {
				continue
			}
			return nil, err
		}
		g := s.GasType()
		contributions[g] = append(contributions[g], c)
	}
	o := make(map[string]float64, len(contributions))
	for g, c := range contributions {
		o[g] = floats.Sum(c)
	}
	return o, nil
}

// Wind returns the wind vector [m/s] at point p from the instance that
// holds the shared wind field.
func (a *Aggregator) Wind(p [3]float64) (u, v, w float64, err error) {
	return a.Instances[0].Wind(p)
}

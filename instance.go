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
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// snapshot is the queryable state of an instance after loading one frame.
type snapshot struct {
	iteration     int
	concentration []float64  // dense mode
	filaments     []Filament // filament mode
}

// Instance replays the simulation log of a single gas source.
type Instance struct {
	store Store
	env   *Environment

	// wind is the shared wind cache. It is nil unless this instance is the
	// one that loads wind data.
	wind *WindCache

	header *Header
	norm   Normalization
	state  atomic.Pointer[snapshot]

	Log logrus.FieldLogger
}

// NewInstance creates an instance replaying the log stored in store within
// environment env. If wind is not nil, the instance loads wind data into it.
func NewInstance(store Store, env *Environment, wind *WindCache) *Instance {
	return &Instance{
		store: store,
		env:   env,
		wind:  wind,
		Log:   logrus.StandardLogger(),
	}
}

// Mode returns the log mode, or 0 if no frame has been loaded yet.
func (s *Instance) Mode() Mode {
	if s.header == nil {
		return 0
	}
	return s.header.Mode
}

// GasType returns the name of the gas released by the source, or
// "unknown" if no frame has been loaded yet.
func (s *Instance) GasType() string {
	if s.header == nil {
		return "unknown"
	}
	return s.header.GasType
}

// Header returns the header of the log, or nil if no frame has been loaded.
func (s *Instance) Header() *Header { return s.header }

// HoldsWind reports whether the instance loads wind data.
func (s *Instance) HoldsWind() bool { return s.wind != nil }

// Iteration returns the iteration of the currently loaded frame and whether
// a frame has been loaded at all.
func (s *Instance) Iteration() (int, bool) {
	st := s.state.Load()
	if st == nil {
		return 0, false
	}
	return st.iteration, true
}

// Advance loads the frame for the given iteration. If the frame is missing or
// can not be decoded, the previously loaded frame is kept and an error of
// type StaleFrameErr is returned. Any other error means the log can not be
// replayed in this environment.
func (s *Instance) Advance(ctx context.Context, iteration int) error {
	name := FramePath(iteration)
	stale := func(reason error) error {
		return StaleFrameErr{Iteration: iteration, Path: s.store.String() + "/" + name, Reason: reason}
	}

	rc, err := s.store.Open(ctx, name)
	if err != nil {
		return stale(err)
	}
	payload, err := Decompress(rc)
	rc.Close()
	if err != nil {
		return stale(err)
	}
	frame, h, err := DecodeFrame(payload, s.header, s.env.Cells, s.wind != nil)
	if err != nil {
		if _, ok := err.(GeometryErr); ok {
			return err
		}
		return stale(err)
	}
	if s.header == nil {
		s.configure(h)
	}

	next := &snapshot{iteration: iteration}
	switch f := frame.(type) {
	case *DenseFrame:
		next.concentration = f.Concentration
		if s.wind != nil && f.Wind != nil {
			s.wind.Publish(f.Wind)
		}
	case *FilamentFrame:
		next.filaments = f.Filaments
		if s.wind != nil {
			if err := s.wind.Load(ctx, f.WindIndex); err != nil {
				s.Log.WithFields(logrus.Fields{
					"store":      s.store.String(),
					"iteration":  iteration,
					"wind_index": f.WindIndex,
				}).WithError(err).Warn("keeping previous wind field")
			}
		}
	default:
		panic(fmt.Errorf("gaden: unsupported frame type %T", frame))
	}
	s.state.Store(next)
	return nil
}

// configure fixes the log mode and normalization from the header of the
// first frame.
func (s *Instance) configure(h *Header) {
	s.header = h
	s.norm = Normalization{
		TotalMolesInFilament:  h.TotalMolesInFilament,
		NumMolesAllGasesInCM3: h.NumMolesAllGasesInCM3,
	}
	s.Log.WithFields(logrus.Fields{
		"store":    s.store.String(),
		"mode":     h.Mode,
		"gas_type": h.GasType,
		"cells":    h.Cells,
		"wind":     s.wind != nil,
	}).Info("configured simulation instance")
}

// Concentration returns the gas concentration [ppm] at point p.
func (s *Instance) Concentration(p [3]float64) (float64, error) {
	st := s.state.Load()
	if st == nil {
		return 0, NotLoadedErr{Dir: s.store.String()}
	}
	idx, err := s.env.QueryCell(p)
	if err != nil {
		return 0, err
	}
	if s.header.Mode == DenseMode {
		return st.concentration[idx], nil
	}
	var c float64
	for _, f := range st.filaments {
		if WithinCutoff(p, f) && s.env.Visible(p, f.Position) {
			c += Contribution(p, f, s.norm)
		}
	}
	return c, nil
}

// Wind returns the wind vector [m/s] at point p. It returns NoWindDataErr
// if the instance does not load wind data or none has been loaded yet.
func (s *Instance) Wind(p [3]float64) (u, v, w float64, err error) {
	if s.wind == nil {
		return 0, 0, 0, NoWindDataErr{}
	}
	return windAt(s.env, s.wind, p)
}

func windAt(env *Environment, wind *WindCache, p [3]float64) (u, v, w float64, err error) {
	f := wind.Field()
	if f == nil {
		return 0, 0, 0, NoWindDataErr{}
	}
	idx, err := env.QueryCell(p)
	if err != nil {
		return 0, 0, 0, err
	}
	u, v, w = f.At(idx)
	return u, v, w, nil
}

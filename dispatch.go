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
	"time"

	"github.com/sirupsen/logrus"
)

// Querier answers point queries on a loaded simulation.
type Querier interface {
	GasTypes() []string
	Concentrations(p [3]float64) (map[string]float64, error)
	Wind(p [3]float64) (u, v, w float64, err error)
}

// Reading is the answer for one query point.
type Reading struct {
	Concentration map[string]float64 // [ppm] by gas type
	U, V, W       float64            // [m/s]
	Err           error
}

// QueryResult is the answer to a Query.
type QueryResult struct {
	Iteration int // -1 before the first load
	GasTypes  []string
	Readings  []Reading
}

// query is a request waiting to be answered by the dispatch loop.
type query struct {
	points [][3]float64
	wind   bool
	reply  chan *QueryResult
}

// Subscription receives concentration readings at a fixed set of points
// every time a new frame has been loaded.
type Subscription struct {
	C      <-chan *QueryResult
	c      chan *QueryResult
	points [][3]float64
}

// Dispatcher runs the single loop that interleaves playback and queries.
// On every tick it first lets the playback load a frame, if one is due, and
// then answers all pending queries. Queries never cause file reads.
type Dispatcher struct {
	sim       Querier
	playback  *Playback
	iteration int // last iteration the playback tried to load

	// MaxRate is the maximum number of loop ticks per second.
	MaxRate float64

	requests    chan *query
	subscribe   chan *Subscription
	unsubscribe chan *Subscription
	subs        map[*Subscription]struct{}

	Log logrus.FieldLogger
}

// NewDispatcher creates a dispatcher answering queries from sim and driving
// playback.
func NewDispatcher(sim Querier, playback *Playback, maxRate float64) *Dispatcher {
	return &Dispatcher{
		sim:         sim,
		playback:    playback,
		MaxRate:     maxRate,
		requests:    make(chan *query),
		subscribe:   make(chan *Subscription),
		unsubscribe: make(chan *Subscription),
		subs:        make(map[*Subscription]struct{}),
		iteration:   -1,
		Log:         logrus.StandardLogger(),
	}
}

// Run runs the dispatch loop until ctx is done or loading fails in a way
// that skipping frames can not fix.
func (d *Dispatcher) Run(ctx context.Context) error {
	rate := d.MaxRate
	if !(rate > 0) {
		rate = 100
	}
	t := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			if err := d.tick(ctx, now); err != nil {
				return err
			}
		}
	}
}

// tick runs one iteration of the dispatch loop.
func (d *Dispatcher) tick(ctx context.Context, now time.Time) error {
	loaded, r, err := d.playback.Tick(ctx, now)
	if err != nil {
		return err
	}
	if loaded {
		d.iteration = r.Iteration
		d.publish()
	}
	d.drain()
	return nil
}

// drain answers pending requests without blocking.
func (d *Dispatcher) drain() {
	for {
		select {
		case q := <-d.requests:
			q.reply <- d.answer(q.points, q.wind)
		case s := <-d.subscribe:
			d.subs[s] = struct{}{}
		case s := <-d.unsubscribe:
			if _, ok := d.subs[s]; ok {
				delete(d.subs, s)
				close(s.c)
			}
		default:
			return
		}
	}
}

// publish sends fresh readings to every subscriber. Subscribers that have
// not consumed the previous readings miss this update.
func (d *Dispatcher) publish() {
	for s := range d.subs {
		select {
		case s.c <- d.answer(s.points, false):
		default:
			d.Log.WithField("iteration", d.iteration).Debug("subscriber is behind; dropping readings")
		}
	}
}

func (d *Dispatcher) answer(points [][3]float64, wind bool) *QueryResult {
	r := &QueryResult{
		Iteration: d.iteration,
		GasTypes:  d.sim.GasTypes(),
		Readings:  make([]Reading, len(points)),
	}
	for i, p := range points {
		if wind {
			r.Readings[i].U, r.Readings[i].V, r.Readings[i].W, r.Readings[i].Err = d.sim.Wind(p)
			continue
		}
		r.Readings[i].Concentration, r.Readings[i].Err = d.sim.Concentrations(p)
	}
	return r
}

// Query returns gas concentrations at the given points, or wind vectors if
// wind is true. It waits for the dispatch loop to answer.
func (d *Dispatcher) Query(ctx context.Context, points [][3]float64, wind bool) (*QueryResult, error) {
	q := &query{points: points, wind: wind, reply: make(chan *QueryResult, 1)}
	select {
	case d.requests <- q:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-q.reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers a subscription for readings at points.
func (d *Dispatcher) Subscribe(ctx context.Context, points [][3]float64) (*Subscription, error) {
	c := make(chan *QueryResult, 1)
	s := &Subscription{C: c, c: c, points: points}
	select {
	case d.subscribe <- s:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes s and closes its channel.
func (d *Dispatcher) Unsubscribe(ctx context.Context, s *Subscription) error {
	select {
	case d.unsubscribe <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

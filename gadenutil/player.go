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
	"context"
	"fmt"
	"time"

	"github.com/Herwich012/gaden"
	"github.com/sirupsen/logrus"
)

// occupancyRetry is how long fetching the occupancy file from blob storage
// is retried for.
const occupancyRetry = time.Minute

// Player replays a set of simulations in real time and answers queries on
// them.
type Player struct {
	Sim        *gaden.Aggregator
	Playback   *gaden.Playback
	Dispatcher *gaden.Dispatcher
}

// NewPlayer loads the occupancy file and opens every source. The first source
// holds the wind data. Playback starts counting at the time NewPlayer
// returns.
func NewPlayer(ctx context.Context, occupancyFile string, sources []string, cfg gaden.PlaybackConfig, windCacheSize int, maxRate float64, log logrus.FieldLogger) (*Player, error) {
	sim, err := NewSimulation(ctx, occupancyFile, sources, windCacheSize, log)
	if err != nil {
		return nil, err
	}
	pb, err := gaden.NewPlayback(sim, cfg, time.Now())
	if err != nil {
		return nil, err
	}
	pb.Log = log
	d := gaden.NewDispatcher(sim, pb, maxRate)
	d.Log = log
	return &Player{Sim: sim, Playback: pb, Dispatcher: d}, nil
}

// NewSimulation loads the occupancy file and returns an aggregator with one
// instance per source.
func NewSimulation(ctx context.Context, occupancyFile string, sources []string, windCacheSize int, log logrus.FieldLogger) (*gaden.Aggregator, error) {
	env, err := LoadEnvironment(ctx, occupancyFile, occupancyRetry, log)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file":      occupancyFile,
		"cells":     env.Cells,
		"cell_size": env.CellSize,
	}).Info("loaded occupancy grid")

	stores := make([]gaden.Store, len(sources))
	for i, s := range sources {
		if stores[i], err = OpenStore(ctx, s); err != nil {
			return nil, err
		}
	}
	sim, err := gaden.NewAggregator(env, windCacheSize, stores...)
	if err != nil {
		return nil, err
	}
	sim.SetLogger(log)
	return sim, nil
}

// Serve runs the dispatch loop of p and an HTTP server on addr until ctx is
// done or either of them fails.
func Serve(ctx context.Context, p *Player, addr string, log logrus.FieldLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	srv := NewHTTPServer(addr, NewServer(p.Dispatcher, log))
	errc := make(chan error, 2)
	go func() { errc <- p.Dispatcher.Run(ctx) }()
	go func() {
		log.WithField("address", addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	err := <-errc
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("shutting down HTTP server")
	}
	if err == context.Canceled {
		return nil
	}
	return fmt.Errorf("gaden: player stopped: %v", err)
}

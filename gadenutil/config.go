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
	"fmt"
	"os"
	"strings"

	"github.com/Herwich012/gaden"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// PlaybackConfig returns the playback settings held by cfg.
func PlaybackConfig(cfg *viper.Viper) (gaden.PlaybackConfig, error) {
	var c gaden.PlaybackConfig
	var err error
	if c.Frequency, err = cast.ToFloat64E(cfg.Get("PlayerFrequency")); err != nil {
		return c, fmt.Errorf("gaden: reading PlayerFrequency: %v", err)
	}
	if c.InitialIteration, err = cast.ToIntE(cfg.Get("InitialIteration")); err != nil {
		return c, fmt.Errorf("gaden: reading InitialIteration: %v", err)
	}
	if c.Loop, err = cast.ToBoolE(cfg.Get("AllowLooping")); err != nil {
		return c, fmt.Errorf("gaden: reading AllowLooping: %v", err)
	}
	if c.LoopFrom, err = cast.ToIntE(cfg.Get("LoopFromIteration")); err != nil {
		return c, fmt.Errorf("gaden: reading LoopFromIteration: %v", err)
	}
	if c.LoopTo, err = cast.ToIntE(cfg.Get("LoopToIteration")); err != nil {
		return c, fmt.Errorf("gaden: reading LoopToIteration: %v", err)
	}
	return c, c.Check()
}

// Sources returns the simulation locations listed in cfg, with environment
// variables expanded. The first one holds the wind data.
func Sources(cfg *viper.Viper) ([]string, error) {
	s, err := cast.ToStringSliceE(cfg.Get("Sources"))
	if err != nil {
		return nil, fmt.Errorf("gaden: reading Sources: %v", err)
	}
	var o []string
	for _, v := range expandStringSlice(s) {
		if v = strings.TrimSpace(v); v != "" {
			o = append(o, v)
		}
	}
	if len(o) == 0 {
		return nil, fmt.Errorf("gaden: no simulations are specified. Please fill in the " +
			"Sources configuration and try again")
	}
	return o, nil
}

// OccupancyFile returns the occupancy file location held by cfg.
func OccupancyFile(cfg *viper.Viper) (string, error) {
	f := os.ExpandEnv(cfg.GetString("OccupancyFile"))
	if f == "" {
		return "", fmt.Errorf(`gaden: you need to specify an occupancy file configuration variable (for example: OccupancyFile="OccupancyGrid3D.csv")`)
	}
	return f, nil
}

// parsePoints groups a flat list of coordinates into points. Each group of
// three values is one (x, y, z) point.
func parsePoints(vals []string) ([][3]float64, error) {
	if len(vals)%3 != 0 {
		return nil, fmt.Errorf("gaden: %d coordinates do not form (x, y, z) points", len(vals))
	}
	o := make([][3]float64, len(vals)/3)
	for i, v := range vals {
		f, err := cast.ToFloat64E(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("gaden: invalid coordinate %q: %v", v, err)
		}
		o[i/3][i%3] = f
	}
	return o, nil
}

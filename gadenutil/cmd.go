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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Herwich012/gaden"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used by the commands.
var Log = logrus.New()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the player.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose specifies whether to log every played iteration and
              other debugging information.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OccupancyFile",
			usage: `
              OccupancyFile is the location of the 3D occupancy grid of the
              environment. It can be a local path or a blob storage location
              such as gs://bucket/OccupancyGrid3D.csv.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), queryCmd.Flags()},
		},
		{
			name: "Sources",
			usage: `
              Sources is the list of simulation directories to replay, one
              per gas source. Each directory holds the iteration_<n> frame
              files and, for filament simulations, a wind/ directory. The
              first source provides the wind data. Blob storage locations
              are accepted.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), queryCmd.Flags()},
		},
		{
			name: "PlayerFrequency",
			usage: `
              PlayerFrequency is the number of simulation frames played
              per second.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "InitialIteration",
			usage: `
              InitialIteration is the first simulation iteration to play.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "AllowLooping",
			usage: `
              AllowLooping specifies whether playback jumps back to
              LoopFromIteration after reaching LoopToIteration. Otherwise
              playback continues past the last frame and the last loaded
              frame stays in place.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LoopFromIteration",
			usage: `
              LoopFromIteration is the first iteration (inclusive) of the
              playback loop.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LoopToIteration",
			usage: `
              LoopToIteration is the last iteration (exclusive) of the
              playback loop.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MaxRate",
			usage: `
              MaxRate is the maximum number of times per second that the
              player checks for due frames and answers queued queries.`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "WindCacheSize",
			usage: `
              WindCacheSize is the number of wind snapshots kept in memory.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), queryCmd.Flags()},
		},
		{
			name: "HTTPAddress",
			usage: `
              HTTPAddress is the address the query server listens on.`,
			defaultVal: ":8080",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "iteration",
			usage: `
              iteration is the simulation iteration to load.`,
			shorthand:  "i",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{queryCmd.Flags()},
		},
		{
			name: "point",
			usage: `
              point is an x,y,z query location [m]. It can be repeated.`,
			shorthand:  "p",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{queryCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GADEN")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(queryCmd)
}

// setConfig finds and reads in the configuration file, if there is one, and
// sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gaden: problem reading configuration file: %v", err)
		}
	}
	Log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	Log.Level = logrus.InfoLevel
	if Cfg.GetBool("verbose") {
		Log.Level = logrus.DebugLevel
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gadenplayer",
	Short: "Replays gas dispersion simulations.",
	Long: `gadenplayer replays the output of GADEN gas dispersion simulations in
real time and answers gas concentration and wind queries at arbitrary points.
Use the subcommands specified below to access the player functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GADEN_var' where 'var' is the
name of the variable to be set. Paths may contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of the player.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gadenplayer v%s\n", gaden.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd replays the configured simulations and serves queries.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play the simulations and serve queries.",
	Long: `run plays the simulations listed in Sources at PlayerFrequency frames
per second and serves queries over HTTP at HTTPAddress:

	POST /odor_value  {"x":[...],"y":[...],"z":[...]}
	                  returns the concentration [ppm] of each gas type
	POST /wind_value  {"x":[...],"y":[...],"z":[...]}
	                  returns the wind vector [m/s]
	GET  /ws          websocket; send one points request and receive
	                  concentrations after every played frame`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		pcfg, err := PlaybackConfig(Cfg)
		if err != nil {
			return err
		}
		occupancy, err := OccupancyFile(Cfg)
		if err != nil {
			return err
		}
		sources, err := Sources(Cfg)
		if err != nil {
			return err
		}
		windCacheSize, err := cast.ToIntE(Cfg.Get("WindCacheSize"))
		if err != nil {
			return fmt.Errorf("gaden: reading WindCacheSize: %v", err)
		}
		maxRate, err := cast.ToFloat64E(Cfg.Get("MaxRate"))
		if err != nil {
			return fmt.Errorf("gaden: reading MaxRate: %v", err)
		}

		p, err := NewPlayer(ctx, occupancy, sources, pcfg, windCacheSize, maxRate, Log)
		if err != nil {
			return err
		}
		return Serve(ctx, p, os.ExpandEnv(Cfg.GetString("HTTPAddress")), Log)
	},
	DisableAutoGenTag: true,
}

// queryCmd loads one iteration and prints readings at the given points.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print concentrations and wind at points.",
	Long: `query loads one iteration of the simulations listed in Sources and
prints the gas concentrations and the wind vector at each --point.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		occupancy, err := OccupancyFile(Cfg)
		if err != nil {
			return err
		}
		sources, err := Sources(Cfg)
		if err != nil {
			return err
		}
		points, err := parsePoints(cast.ToStringSlice(Cfg.Get("point")))
		if err != nil {
			return err
		}
		iteration, err := cast.ToIntE(Cfg.Get("iteration"))
		if err != nil {
			return fmt.Errorf("gaden: reading iteration: %v", err)
		}
		windCacheSize, err := cast.ToIntE(Cfg.Get("WindCacheSize"))
		if err != nil {
			return fmt.Errorf("gaden: reading WindCacheSize: %v", err)
		}
		return Query(context.Background(), cmd, occupancy, sources, iteration, points, windCacheSize)
	},
	DisableAutoGenTag: true,
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case s := <-c:
			Log.WithField("signal", s).Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}

// Query loads the given iteration of the simulations and prints the readings
// at points to the output of cmd.
func Query(ctx context.Context, cmd *cobra.Command, occupancyFile string, sources []string, iteration int, points [][3]float64, windCacheSize int) error {
	sim, err := NewSimulation(ctx, occupancyFile, sources, windCacheSize, Log)
	if err != nil {
		return err
	}
	r, err := sim.Advance(ctx, iteration)
	if err != nil {
		return err
	}
	if len(r.Loaded) == 0 {
		return fmt.Errorf("gaden: no simulation has a frame for iteration %d", iteration)
	}
	gasTypes := sim.GasTypes()
	for _, p := range points {
		cmd.Printf("(%g, %g, %g):", p[0], p[1], p[2])
		c, err := sim.Concentrations(p)
		if err != nil {
			cmd.Printf(" %v\n", err)
			continue
		}
		for _, g := range gasTypes {
			cmd.Printf(" %s=%g ppm", g, c[g])
		}
		if u, v, w, err := sim.Wind(p); err == nil {
			cmd.Printf(" wind=(%g, %g, %g) m/s", u, v, w)
		}
		cmd.Printf("\n")
	}
	return nil
}

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

import "fmt"

// StaleFrameErr is returned when a frame could not be loaded. The instance
// keeps serving the previously loaded frame, so the error is recoverable.
type StaleFrameErr struct {
	Iteration int
	Path      string
	Reason    error
}

func (e StaleFrameErr) Error() string {
	return fmt.Sprintf("gaden: frame %d (%s) not loaded, keeping previous frame: %v",
		e.Iteration, e.Path, e.Reason)
}

// FrameMissingErr is the Reason of a StaleFrameErr when the frame file
// does not exist.
type FrameMissingErr struct {
	Path string
	Err  error // underlying storage error, if any
}

func (e FrameMissingErr) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gaden: file %s is not available: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("gaden: file %s does not exist", e.Path)
}

// IsStale reports whether err only means that a frame was skipped.
func IsStale(err error) bool {
	switch err.(type) {
	case StaleFrameErr, *StaleFrameErr:
		return true
	default:
		return false
	}
}

// GeometryErr is returned when a frame's grid geometry does not match the
// environment. It can not be recovered from by skipping frames.
type GeometryErr struct {
	Frame, Environment [3]int
}

func (e GeometryErr) Error() string {
	return fmt.Sprintf("gaden: simulation log has %v cells but the occupancy grid has %v",
		e.Frame, e.Environment)
}

// OutOfRangeErr is returned for queries at points outside the environment.
type OutOfRangeErr struct {
	Point [3]float64
}

func (e OutOfRangeErr) Error() string {
	return fmt.Sprintf("gaden: point (%g, %g, %g) is outside the environment",
		e.Point[0], e.Point[1], e.Point[2])
}

// NoWindDataErr is returned for wind queries on an instance that does not
// hold wind data, or before any wind data has been loaded.
type NoWindDataErr struct{}

func (e NoWindDataErr) Error() string { return "gaden: no wind data available" }

// NotLoadedErr is returned for queries on an instance that has not loaded
// any frame yet.
type NotLoadedErr struct {
	Dir string
}

func (e NotLoadedErr) Error() string {
	return fmt.Sprintf("gaden: no frame has been loaded from %s yet", e.Dir)
}

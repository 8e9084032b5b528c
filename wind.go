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
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
)

// WindField holds one wind vector per grid cell.
type WindField struct {
	// Index is the wind snapshot index, or -1 for wind embedded in a
	// dense simulation log.
	Index   int
	U, V, W []float64 // [m/s]
}

// At returns the wind vector of the cell with linear index i.
func (f *WindField) At(i int) (u, v, w float64) {
	return f.U[i], f.V[i], f.W[i]
}

// WindCache holds the wind field of a simulation and reloads it from wind
// snapshot files when the requested snapshot index changes. Readers always
// see a complete field: a new field is only published once it has been read
// in full.
type WindCache struct {
	store  Store
	nCells int

	// cache reads snapshots and keeps the most recently used ones. Failed
	// reads are not cached.
	cache *requestcache.Cache

	last   int
	loaded bool
	field  atomic.Pointer[WindField]

	Log logrus.FieldLogger
}

// NewWindCache creates a wind cache reading snapshots of nCells cells from
// store. cacheSize is the number of snapshots kept in memory; values < 1
// are treated as 1.
//
// The cache starts worker goroutines that run for the life of the process,
// so create one WindCache per simulation rather than one per query.
func NewWindCache(store Store, nCells, cacheSize int) *WindCache {
	if cacheSize < 1 {
		cacheSize = 1
	}
	w := &WindCache{
		store:  store,
		nCells: nCells,
		Log:    logrus.StandardLogger(),
	}
	w.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		return w.read(ctx, request.(int))
	}, 1, requestcache.Memory(cacheSize))
	return w
}

// Load makes snapshot index the current wind field. It does nothing if index
// is the currently loaded snapshot. If the snapshot can not be read, the
// previous field is kept and an error is returned.
func (w *WindCache) Load(ctx context.Context, index int) error {
	if w.loaded && index == w.last {
		return nil
	}
	req := w.cache.NewRequest(ctx, index, fmt.Sprintf("wind_%d", index))
	result, err := req.Result()
	if err != nil {
		return err
	}
	w.field.Store(result.(*WindField))
	w.last = index
	w.loaded = true
	w.Log.WithFields(logrus.Fields{
		"store":      w.store.String(),
		"wind_index": index,
	}).Debug("loaded wind snapshot")
	return nil
}

// Publish makes f the current wind field. It is used for wind fields that
// are embedded in dense simulation logs.
func (w *WindCache) Publish(f *WindField) {
	w.field.Store(f)
	w.last = f.Index
	w.loaded = false
}

// Field returns the current wind field, or nil if none has been loaded.
func (w *WindCache) Field() *WindField {
	return w.field.Load()
}

// Reads returns the number of snapshot files that have been read.
func (w *WindCache) Reads() int {
	r := w.cache.Requests()
	return r[len(r)-1]
}

// read reads wind snapshot index: three consecutive little-endian float64
// arrays (U, V, W) of nCells values each.
func (w *WindCache) read(ctx context.Context, index int) (*WindField, error) {
	name := WindPath(index)
	rc, err := w.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("gaden: opening wind snapshot %d: %v", index, err)
	}
	defer rc.Close()
	r := bufio.NewReader(rc)
	f := &WindField{
		Index: index,
		U:     make([]float64, w.nCells),
		V:     make([]float64, w.nCells),
		W:     make([]float64, w.nCells),
	}
	for _, d := range []struct {
		name string
		data []float64
	}{{"U", f.U}, {"V", f.V}, {"W", f.W}} {
		if err := binary.Read(r, binary.LittleEndian, d.data); err != nil {
			return nil, fmt.Errorf("gaden: reading %s from wind snapshot %d (%s/%s): %v",
				d.name, index, w.store, name, err)
		}
	}
	return f, nil
}

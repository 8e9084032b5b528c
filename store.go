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
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-cloud/blob"
)

// Store provides access to the files of one simulation: frame files, wind
// snapshots and, optionally, the occupancy file.
type Store interface {
	// Open opens the file with the given slash-separated name relative to the
	// root of the store. It returns an error of type FrameMissingErr if the
	// file does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// String returns a description of the store location for log messages.
	String() string
}

// FramePath returns the name of the frame file for the given iteration.
func FramePath(iteration int) string {
	return fmt.Sprintf("iteration_%d", iteration)
}

// WindPath returns the name of the wind file with the given index.
func WindPath(index int) string {
	return fmt.Sprintf("wind/wind_iteration_%d", index)
}

// DirStore is a Store backed by a local directory.
type DirStore string

// Open implements Store.
func (d DirStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p := filepath.Join(string(d), filepath.FromSlash(name))
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, FrameMissingErr{Path: p}
	}
	return f, err
}

func (d DirStore) String() string { return string(d) }

// BucketStore is a Store backed by a blob storage bucket, where Prefix is the
// key prefix of the simulation directory within the bucket.
type BucketStore struct {
	Bucket *blob.Bucket
	Name   string // bucket URL, used for log messages
	Prefix string
}

// Open implements Store. Any failure to open a blob is reported as
// FrameMissingErr.
func (b *BucketStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(strings.Trim(b.Prefix, "/"), name)
	r, err := b.Bucket.NewReader(ctx, key)
	if err != nil {
		return nil, FrameMissingErr{Path: b.Name + "/" + key, Err: err}
	}
	return r, nil
}

func (b *BucketStore) String() string {
	return b.Name + "/" + strings.Trim(b.Prefix, "/")
}

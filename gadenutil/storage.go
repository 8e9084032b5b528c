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
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Herwich012/gaden"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
)

// bucketOpeners open a bucket by name, one per supported storage provider.
var bucketOpeners = map[string]func(ctx context.Context, name string) (*blob.Bucket, error){
	"file": func(_ context.Context, dir string) (*blob.Bucket, error) { return fileblob.NewBucket(dir) },
	"gs":   openGCSBucket,
	"s3":   openS3Bucket,
}

// IsBlob reports whether location is in blob storage, i.e. whether it has
// the form 'provider://...' with a provider accepted by OpenBucket.
func IsBlob(location string) bool {
	i := strings.Index(location, "://")
	if i < 0 {
		return false
	}
	_, ok := bucketOpeners[location[:i]]
	return ok
}

// OpenBucket opens the bucket at location, which has the form
// 'provider://name'. Providers are "file" (name is the bucket directory,
// e.g. file:///data/sims), "gs" (Google Cloud Storage, using application
// default credentials) and "s3" (AWS S3, using AWS_REGION,
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY).
func OpenBucket(ctx context.Context, location string) (*blob.Bucket, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("gaden: bucket location %q: %v", location, err)
	}
	openFunc, ok := bucketOpeners[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("gaden: unsupported storage provider %q in %s", u.Scheme, location)
	}
	name := u.Hostname()
	if u.Scheme == "file" {
		name = u.Host + u.Path
	}
	b, err := openFunc(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("gaden: opening bucket %s: %v", location, err)
	}
	return b, nil
}

func openGCSBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, client)
}

// s3DefaultRegion is used when AWS_REGION is not set.
const s3DefaultRegion = "us-east-2"

func openS3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = s3DefaultRegion
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	})
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, sess, name)
}

// OpenStore returns the store holding the simulation at location, which is
// either a local directory or a blob storage location in the form
// 'provider://bucket/prefix'. For the "file" provider the whole location is
// the bucket directory. Local directories must exist.
func OpenStore(ctx context.Context, location string) (gaden.Store, error) {
	if !IsBlob(location) {
		fi, err := os.Stat(location)
		if err != nil {
			return nil, fmt.Errorf("gaden: simulation directory %s does not exist: %v", location, err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("gaden: simulation location %s is not a directory", location)
		}
		return gaden.DirStore(location), nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("gaden: parsing simulation location: %v", err)
	}
	if u.Scheme == "file" {
		b, err := OpenBucket(ctx, location)
		if err != nil {
			return nil, err
		}
		return &gaden.BucketStore{Bucket: b, Name: location}, nil
	}
	bucketName := u.Scheme + "://" + u.Host
	b, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	return &gaden.BucketStore{Bucket: b, Name: bucketName, Prefix: u.Path}, nil
}

// splitLocation splits a file location into the location of the directory
// holding it and the file name.
func splitLocation(location string) (dir, name string) {
	if !IsBlob(location) {
		return filepath.Dir(location), filepath.Base(location)
	}
	u, err := url.Parse(location)
	if err != nil || u.Path == "" || u.Path == "/" {
		return location, ""
	}
	u.Path, name = path.Split(u.Path)
	return strings.TrimSuffix(u.String(), "/"), name
}

// LoadEnvironment reads the occupancy file at location, which is a local
// path or a blob storage location. Reads from blob storage are retried with
// exponential backoff for at most maxElapsed.
func LoadEnvironment(ctx context.Context, location string, maxElapsed time.Duration, log logrus.FieldLogger) (*gaden.Environment, error) {
	dir, name := splitLocation(location)
	if name == "" {
		return nil, fmt.Errorf("gaden: occupancy file location %q has no file name", location)
	}
	var store gaden.Store = gaden.DirStore(dir)
	if IsBlob(location) {
		var err error
		if store, err = OpenStore(ctx, dir); err != nil {
			return nil, err
		}
	}

	var b backoff.BackOff = backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0)
	if IsBlob(location) {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = maxElapsed
		b = eb
	}
	var env *gaden.Environment
	var readErr error // not retried
	err := backoff.RetryNotify(
		func() error {
			r, err := store.Open(ctx, name)
			if err != nil {
				return err
			}
			defer r.Close()
			env, readErr = gaden.ReadEnvironment(r)
			return nil
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			log.WithError(err).Warnf("opening occupancy file; retrying in %v", d)
		},
	)
	if err == nil {
		err = readErr
	}
	if err != nil {
		return nil, fmt.Errorf("gaden: loading occupancy file %s: %v", location, err)
	}
	return env, nil
}

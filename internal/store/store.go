// Package store reads sources and writes bundles through afs, so the output
// location may be any URL afs supports.
package store

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/highwayhash"
	"github.com/viant/afs"
)

var key = []byte("phpbundle-highwayhash-key-000000")

// Store is a thin wrapper over an afs service.
type Store struct {
	fs afs.Service
}

// New returns a Store backed by the default afs service.
func New() *Store {
	return &Store{fs: afs.New()}
}

// Read returns the contents of location.
func (s *Store) Read(ctx context.Context, location string) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, normalize(location))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	return data, nil
}

// Write stores data at location unless it already holds identical content.
// It reports whether anything was written.
func (s *Store) Write(ctx context.Context, location string, data []byte) (bool, error) {
	url := normalize(location)
	exists, err := s.fs.Exists(ctx, url)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", location, err)
	}
	if exists {
		if current, err := s.fs.DownloadWithURL(ctx, url); err == nil && bytes.Equal(current, data) {
			return false, nil
		}
	}
	if err := s.fs.Upload(ctx, url, 0o644, bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("writing %s: %w", location, err)
	}
	return true, nil
}

// Fingerprint returns the 64-bit HighwayHash of data as 16 hex digits.
// It identifies a bundle in logs.
func Fingerprint(data []byte) (string, error) {
	hash, err := highwayhash.New64(key)
	if err != nil {
		return "", err
	}
	if _, err := hash.Write(data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", hash.Sum64()), nil
}

// normalize turns relative local paths into absolute ones; URLs pass through.
func normalize(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return location
}

// IsLocal reports whether location names a path on the local filesystem.
func IsLocal(location string) bool {
	return !strings.Contains(location, "://") || strings.HasPrefix(location, "file://")
}

// LocalPath returns the filesystem path for a local location.
func LocalPath(location string) string {
	return filepath.Clean(strings.TrimPrefix(normalize(location), "file://"))
}

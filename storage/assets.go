// Package storage keeps uploaded product images on a filesystem.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	ErrAssetWrite  = errors.New("asset write failed")
	ErrAssetRemove = errors.New("asset remove failed")
)

// AssetStore maps storage keys to files inside a single directory.
type AssetStore struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

type Option func(*AssetStore)

// WithClock overrides the time source used to build storage keys.
func WithClock(now func() time.Time) Option {
	return func(s *AssetStore) {
		s.now = now
	}
}

func NewAssetStore(fs afero.Fs, dir string, opts ...Option) *AssetStore {
	s := &AssetStore{
		fs:  fs,
		dir: filepath.Clean(dir),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDiskAssetStore is an AssetStore backed by the operating system filesystem.
func NewDiskAssetStore(dir string, opts ...Option) *AssetStore {
	return NewAssetStore(afero.NewOsFs(), dir, opts...)
}

func (s *AssetStore) Dir() string {
	return s.dir
}

// Path returns the location of key inside the asset directory.
func (s *AssetStore) Path(key string) string {
	return filepath.Join(s.dir, key)
}

// Key builds the storage key for an upload made at t. Two uploads of the same
// name within one millisecond share a key.
func Key(t time.Time, originalName string) string {
	name := filepath.Base(filepath.Clean("/" + originalName))
	if name == "/" || name == "." {
		name = "upload"
	}
	return strconv.FormatInt(t.UnixMilli(), 10) + "_" + name
}

// Store writes r under a fresh key and returns it. An existing file with the
// same key is overwritten.
func (s *AssetStore) Store(r io.Reader, originalName string) (string, error) {
	return s.StoreAt(s.now(), r, originalName)
}

// StoreAt is Store with the key derived from at instead of the store clock.
func (s *AssetStore) StoreAt(at time.Time, r io.Reader, originalName string) (string, error) {
	key := Key(at, originalName)

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrapf(ErrAssetWrite, "create directory %s: %v", s.dir, err)
	}

	f, err := s.fs.OpenFile(s.Path(key), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", errors.Wrapf(ErrAssetWrite, "open %s: %v", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(s.Path(key))
		return "", errors.Wrapf(ErrAssetWrite, "write %s: %v", key, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(s.Path(key))
		return "", errors.Wrapf(ErrAssetWrite, "close %s: %v", key, err)
	}
	return key, nil
}

// Remove deletes the file stored under key. Failures are logged, never returned.
func (s *AssetStore) Remove(key string) {
	if err := s.remove(key); err != nil {
		zap.L().Warn("asset not removed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AssetStore) remove(key string) error {
	if key == "" {
		return nil
	}
	if err := s.fs.Remove(s.Path(key)); err != nil {
		return errors.Wrapf(ErrAssetRemove, "%s: %v", key, err)
	}
	return nil
}

// Replace removes oldKey, then stores r. A failed removal does not stop the store.
func (s *AssetStore) Replace(oldKey string, r io.Reader, originalName string) (string, error) {
	s.Remove(oldKey)
	return s.Store(r, originalName)
}

// Exists reports whether a file is stored under key.
func (s *AssetStore) Exists(key string) bool {
	if key == "" {
		return false
	}
	ok, err := afero.Exists(s.fs, s.Path(key))
	return err == nil && ok
}

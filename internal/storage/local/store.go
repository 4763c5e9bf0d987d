// Package local implements the record store as a directory of JSON files.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

const (
	lockFileName   = ".podcasts.lock"
	lockRetryDelay = 50 * time.Millisecond
)

// Config captures the parameters for the local record store.
type Config struct {
	// Dir is the directory holding one JSON file per podcast.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Store reads and writes record files in a single directory.
type Store struct {
	dir string
}

var _ podcast.Store = (*Store)(nil)
var _ podcast.Locker = (*Store)(nil)

// New creates the directory if needed and checks it is writable.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("record directory is required")
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat record directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create record directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("record directory path is not a directory")
	}

	testFile := filepath.Join(cfg.Dir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("record directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Store{dir: cfg.Dir}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the .json file names in directory order.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read record directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Read returns the contents of name.
func (s *Store) Read(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined to the record directory by s.path.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", podcast.ErrNotFound, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Write creates or truncates name.
func (s *Store) Write(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Create writes name only if no file of that name exists.
func (s *Store) Create(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	// #nosec G304 -- path is confined to the record directory by s.path.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", podcast.ErrExists, name)
		}
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		closeErr := f.Close()
		if closeErr != nil {
			return fmt.Errorf("write %s: %w (close: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// Lock takes the directory-wide exclusive lock shared by every process using Dir.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	return s.lock(ctx, true)
}

// RLock takes the directory-wide shared lock.
func (s *Store) RLock(ctx context.Context) (func() error, error) {
	return s.lock(ctx, false)
}

func (s *Store) lock(ctx context.Context, exclusive bool) (func() error, error) {
	// A fresh handle per call so goroutines in this process contend like separate processes.
	fl := flock.New(filepath.Join(s.dir, lockFileName))
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock record directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock record directory: not acquired")
	}
	return fl.Unlock, nil
}

func (s *Store) path(name string) (string, error) {
	if err := podcast.ValidateFilename(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

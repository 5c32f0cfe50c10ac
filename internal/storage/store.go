// Package storage keeps uploaded payroll files and generated reports on disk
// between the upload request and the download that follows it.
//
// Every reconciliation gets its own stage: a directory named by a random
// UUID under the store root. Concurrent requests never share a directory, so
// one user's download cannot collide with or delete another user's report.
//
// A stage is removed explicitly once its report has been served. Removal of a
// stage that is still being read is deferred until the last reader releases
// it. Stages nobody ever downloads are reclaimed by Sweep.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown stages or files.
var ErrNotFound = errors.New("report not found")

// Store is a directory of stages.
type Store struct {
	root string

	mu     sync.Mutex
	pins   map[string]int
	doomed map[string]bool
}

// New returns a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("storage root is empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{
		root:   root,
		pins:   make(map[string]int),
		doomed: make(map[string]bool),
	}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Stage is one reconciliation's private directory.
type Stage struct {
	store *Store
	id    string
	dir   string
}

// Create makes a new, empty stage.
func (s *Store) Create() (*Stage, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}
	return &Stage{store: s, id: id, dir: dir}, nil
}

// ID returns the stage identifier used in download links.
func (st *Stage) ID() string {
	return st.id
}

// Put writes data to name inside the stage and returns its path.
// name must be a plain file name.
func (st *Stage) Put(name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	path := filepath.Join(st.dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Remove deletes the stage.
func (st *Stage) Remove() error {
	return st.store.Remove(st.id)
}

// Open opens a file of stage id for reading. The stage cannot be deleted
// until release is called; release is safe to call more than once.
func (s *Store) Open(id, name string) (*os.File, func(), error) {
	dir, err := s.stageDir(id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkName(name); err != nil {
		return nil, nil, ErrNotFound
	}

	s.mu.Lock()
	if s.doomed[id] {
		s.mu.Unlock()
		return nil, nil, ErrNotFound
	}
	s.pins[id]++
	s.mu.Unlock()

	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		s.unpin(id)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			f.Close()
			s.unpin(id)
		})
	}
	return f, release, nil
}

// Remove deletes stage id, or marks it for deletion when the last open
// file is released. Removing an unknown stage returns ErrNotFound.
func (s *Store) Remove(id string) error {
	dir, err := s.stageDir(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pins[id] > 0 {
		s.doomed[id] = true
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove stage %s: %w", id, err)
	}
	return nil
}

// Sweep removes unpinned stages last modified more than maxAge ago and
// returns how many were removed. Entries that are not stages are ignored.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read storage root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error

	for _, e := range entries {
		if !e.IsDir() || uuid.Validate(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if ok, err := s.removeIfIdle(e.Name()); err != nil {
			errs = append(errs, err)
		} else if ok {
			removed++
		}
	}

	return removed, errors.Join(errs...)
}

func (s *Store) removeIfIdle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pins[id] > 0 {
		return false, nil
	}
	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) unpin(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pins[id]--
	if s.pins[id] > 0 {
		return
	}
	delete(s.pins, id)
	if s.doomed[id] {
		delete(s.doomed, id)
		os.RemoveAll(filepath.Join(s.root, id))
	}
}

// stageDir maps id to its directory, rejecting anything that is not a UUID
// so ids from URLs cannot escape the root.
func (s *Store) stageDir(id string) (string, error) {
	if uuid.Validate(id) != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, id), nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

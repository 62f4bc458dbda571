package store

import (
	"path/filepath"
	"sync"

	"pqxdh/internal/domain"
)

const profileFile = "profile.json"

// ProfileFileStore remembers the registered username and directory URL.
type ProfileFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewProfileFileStore returns a ProfileFileStore rooted at dir.
func NewProfileFileStore(dir string) *ProfileFileStore {
	return &ProfileFileStore{dir: dir}
}

// SaveProfile stores p, replacing the previous profile.
func (s *ProfileFileStore) SaveProfile(p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(filepath.Join(s.dir, profileFile), p, 0o600)
}

// LoadProfile returns the saved profile and whether one exists.
func (s *ProfileFileStore) LoadProfile() (domain.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p domain.Profile
	ok, err := readJSON(filepath.Join(s.dir, profileFile), &p)
	if err != nil || !ok || p.Username == "" {
		return domain.Profile{}, false, err
	}
	return p, true, nil
}

var _ domain.ProfileStore = (*ProfileFileStore)(nil)

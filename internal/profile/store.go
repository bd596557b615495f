package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nutricoach/internal/logging"
)

// ErrNoProfile reports that no profile has been saved yet.
var ErrNoProfile = errors.New("no profile saved")

// ErrNoTargets reports that targets have not been computed yet.
var ErrNoTargets = errors.New("no targets computed")

const (
	profileFile = "profile.json"
	targetsFile = "targets.json"
)

// Store persists the profile and its derived targets as JSON files in
// the data directory. Files are written 0600: body data stays private
// to the user.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SaveProfile validates and writes the profile.
func (s *Store) SaveProfile(p Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	if err := s.writeJSON(profileFile, p); err != nil {
		return err
	}
	logging.Session("Profile saved (%s, %d, %.0f cm, %.0f kg)", p.Sex, p.Age, p.HeightCm, p.WeightKg)
	return nil
}

// LoadProfile reads the saved profile. A missing file is ErrNoProfile.
func (s *Store) LoadProfile() (*Profile, error) {
	var p Profile
	if err := s.readJSON(profileFile, &p, ErrNoProfile); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveTargets writes the computed targets.
func (s *Store) SaveTargets(t MacroTargets) error {
	return s.writeJSON(targetsFile, t)
}

// LoadTargets reads the saved targets. A missing file is ErrNoTargets.
func (s *Store) LoadTargets() (*MacroTargets, error) {
	var t MacroTargets
	if err := s.readJSON(targetsFile, &t, ErrNoTargets); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) writeJSON(name string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v interface{}, missing error) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return missing
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/practice"
)

const (
	// SettingsFile is the settings document inside a profile directory
	SettingsFile = "settings.yaml"
	// ScoresFile is the scores document inside a profile directory
	ScoresFile = "scores.toml"
	// DefaultName is the profile used when none is selected
	DefaultName = "default"
)

var (
	// ErrProfileNotFound indicates no profile of that name exists
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists indicates a profile of that name already exists
	ErrProfileExists = errors.New("profile already exists")
	// ErrInvalidName indicates a profile name is not usable as a directory name
	ErrInvalidName = errors.New("profile name may only contain letters, digits, '-' and '_'")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store is a directory of profiles.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore opens (creating if needed) the profile directory.
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the profile directory.
func (s *Store) Root() string {
	return s.root
}

// List returns profile names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && validName.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Create makes a new profile with default settings.
func (s *Store) Create(name string) (*Profile, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	dir := filepath.Join(s.root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%q: %w", name, ErrProfileExists)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	p := &Profile{Name: name, dir: dir, Settings: DefaultSettings(), logger: s.logger}
	if err := p.SaveSettings(); err != nil {
		return nil, err
	}
	s.logger.Info("profile created", zap.String("profile", name))
	return p, nil
}

// Open loads an existing profile. A malformed settings document is reported
// but the profile still opens with defaults.
func (s *Store) Open(name string) (*Profile, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	dir := filepath.Join(s.root, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", name, ErrProfileNotFound)
	}
	settings, err := LoadSettings(filepath.Join(dir, SettingsFile))
	p := &Profile{Name: name, dir: dir, Settings: settings, logger: s.logger}
	if err != nil {
		s.logger.Warn("using default settings", zap.String("profile", name), zap.Error(err))
	}
	return p, err
}

// OpenOrCreate opens name, creating it first if it does not exist.
func (s *Store) OpenOrCreate(name string) (*Profile, error) {
	p, err := s.Open(name)
	if errors.Is(err, ErrProfileNotFound) {
		return s.Create(name)
	}
	return p, err
}

// Profile is one learner's settings and scores.
type Profile struct {
	Name     string
	Settings Settings

	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// Dir returns the profile directory.
func (p *Profile) Dir() string {
	return p.dir
}

// SaveSettings writes the settings document.
func (p *Profile) SaveSettings() error {
	return SaveSettings(filepath.Join(p.dir, SettingsFile), p.Settings)
}

// Scores reads the scores document.
func (p *Profile) Scores() (Scores, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return LoadScores(filepath.Join(p.dir, ScoresFile))
}

// Record implements practice.Recorder.
func (p *Profile) Record(sum practice.Summary) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := filepath.Join(p.dir, ScoresFile)
	scores, err := LoadScores(path)
	if err != nil {
		return err
	}
	if scores.Merge(sum) {
		p.logger.Info("new high score",
			zap.String("profile", p.Name),
			zap.Float64("best_wpm", scores.HighScores.BestWPM),
			zap.Float64("best_accuracy", scores.HighScores.BestAccuracy))
	}
	return SaveScores(path, scores)
}

// ResetScores clears all statistics and high scores.
func (p *Profile) ResetScores() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SaveScores(filepath.Join(p.dir, ScoresFile), Scores{Accuracy: map[string]CharScore{}})
}

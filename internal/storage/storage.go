package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
)

const (
	filePrefix = "Visa-Bulletin-"
	fileSuffix = ".json"
)

var (
	// ErrExists is returned by Save when the period already has an artifact
	ErrExists = errors.New("bulletin artifact already exists")
	// ErrNotFound is returned by Load when the period has no artifact
	ErrNotFound = errors.New("bulletin artifact not found")
)

// Storage handles persistence of bulletin artifacts
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, errors.New("data directory is required")
	}

	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the directory holding the artifacts
func (s *Storage) Dir() string {
	return s.dataDir
}

// Path returns the artifact path for a period
func (s *Storage) Path(period bulletin.Period) string {
	return filepath.Join(s.dataDir, filePrefix+period.Key()+fileSuffix)
}

// Exists reports whether the period already has an artifact
func (s *Storage) Exists(period bulletin.Period) (bool, error) {
	if !period.Valid() {
		return false, fmt.Errorf("invalid period %q", period.Key())
	}

	_, err := os.Stat(s.Path(period))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking artifact: %w", err)
}

// Save writes the artifact. The file is created exclusively, so a concurrent or
// earlier writer for the same period makes Save fail with ErrExists.
func (s *Storage) Save(artifact bulletin.Artifact) error {
	if !artifact.Period.Valid() {
		return fmt.Errorf("invalid period %q", artifact.Period.Key())
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	path := s.Path(artifact.Period)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrExists)
		}
		return fmt.Errorf("creating artifact: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing artifact: %w", err)
	}

	return nil
}

// Load reads the artifact of a period
func (s *Storage) Load(period bulletin.Period) (bulletin.Artifact, error) {
	var artifact bulletin.Artifact

	if !period.Valid() {
		return artifact, fmt.Errorf("invalid period %q: %w", period.Key(), ErrNotFound)
	}

	data, err := os.ReadFile(s.Path(period))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return artifact, fmt.Errorf("%s: %w", period.Key(), ErrNotFound)
		}
		return artifact, fmt.Errorf("reading artifact: %w", err)
	}

	if err := json.Unmarshal(data, &artifact); err != nil {
		return artifact, fmt.Errorf("parsing artifact: %w", err)
	}
	if artifact.CutOffDates == nil {
		artifact.CutOffDates = []bulletin.CutOffDate{}
	}

	return artifact, nil
}

// List returns the periods that have an artifact, oldest first
func (s *Storage) List() ([]bulletin.Period, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	periods := make([]bulletin.Period, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		period, ok := periodFromName(entry.Name())
		if !ok {
			continue
		}
		periods = append(periods, period)
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Before(periods[j])
	})

	return periods, nil
}

// periodFromName parses "Visa-Bulletin-<year>-<month>.json"
func periodFromName(name string) (bulletin.Period, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return bulletin.Period{}, false
	}

	key := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	year, month, found := strings.Cut(key, "-")
	if !found {
		return bulletin.Period{}, false
	}

	period := bulletin.Period{Year: year, Month: month}
	return period, period.Valid()
}

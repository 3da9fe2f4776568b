package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"page_marker/domain/entities"
	"page_marker/domain/interfaces"

	"gopkg.in/yaml.v3"
)

// ErrSnapshotNotFound is returned by Load when no file exists for the name
var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	extJSON = ".json"
	extYAML = ".yaml"
	extYML  = ".yml"
)

type snapshotStore struct {
	dir string
}

// NewSnapshotStore - creates file storage for page snapshots under dir.
// A name with a .yaml or .yml extension is stored as YAML, anything else as JSON.
func NewSnapshotStore(dir string) (interfaces.SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &snapshotStore{dir: dir}, nil
}

// Save - writes the snapshot, replacing any previous one with the same name
func (s *snapshotStore) Save(name string, snapshot *entities.PageSnapshot) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	var data []byte
	if isYAML(path) {
		data, err = yaml.Marshal(snapshot)
	} else {
		data, err = json.MarshalIndent(snapshot, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", name, err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load - reads a snapshot saved under name
func (s *snapshotStore) Load(name string) (*entities.PageSnapshot, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, err
	}

	var snapshot entities.PageSnapshot
	if isYAML(path) {
		err = yaml.Unmarshal(data, &snapshot)
	} else {
		err = json.Unmarshal(data, &snapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return &snapshot, nil
}

// List - returns the names of stored snapshots, sorted
func (s *snapshotStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case extJSON, extYAML, extYML:
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// path resolves name inside the store directory; names without a known extension get .json
func (s *snapshotStore) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid snapshot name %q", name)
	}
	switch filepath.Ext(name) {
	case extJSON, extYAML, extYML:
	default:
		name += extJSON
	}
	return filepath.Join(s.dir, name), nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == extYAML || ext == extYML
}

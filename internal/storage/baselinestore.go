// Package storage persists ppmb data on disk: the baseline register and
// project snapshot files.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
	"gopkg.in/yaml.v3"
)

var (
	// ErrBaselineNotFound is returned by lookups for unknown baseline names.
	ErrBaselineNotFound = errors.New("baseline not found")
	// ErrBaselineExists is returned when adding a name that is already taken,
	// including by another process since the register was loaded.
	ErrBaselineExists = errors.New("baseline already exists")
)

// BaselineFile represents the top-level structure of baselines.yaml.
type BaselineFile struct {
	Version   string                     `yaml:"version"`
	Baselines map[string]models.Baseline `yaml:"baselines"`
}

// BaselineStoreManager defines the interface for the persisted baseline register.
//
// AddBaseline and RemoveBaseline are recorded in memory until Save, which
// replays them onto the register as it is on disk at that moment, so
// several processes can share one baselines.yaml without dropping each
// other's changes. A failed Save discards the unsaved changes.
type BaselineStoreManager interface {
	AddBaseline(b models.Baseline) error
	GetBaseline(name string) (*models.Baseline, error)
	GetAllBaselines() ([]models.Baseline, error)
	RemoveBaseline(name string) error
	Load() error
	Save() error
}

// registerOp is an unsaved change. A nil baseline removes name.
type registerOp struct {
	name     string
	baseline *models.Baseline
}

type fileBaselineStoreManager struct {
	basePath string
	mu       sync.Mutex
	disk     BaselineFile // last state read from or written to disk
	pending  []registerOp
	data     BaselineFile // disk with pending applied
}

// NewBaselineStoreManager creates a BaselineStoreManager backed by a
// baselines.yaml file in the given base directory.
func NewBaselineStoreManager(basePath string) BaselineStoreManager {
	return &fileBaselineStoreManager{
		basePath: basePath,
		disk:     emptyBaselineFile(),
		data:     emptyBaselineFile(),
	}
}

func emptyBaselineFile() BaselineFile {
	return BaselineFile{
		Version:   "1.0",
		Baselines: make(map[string]models.Baseline),
	}
}

func (bf BaselineFile) clone() BaselineFile {
	out := BaselineFile{Version: bf.Version, Baselines: make(map[string]models.Baseline, len(bf.Baselines))}
	for name, b := range bf.Baselines {
		out.Baselines[name] = b
	}
	return out
}

func (m *fileBaselineStoreManager) filePath() string {
	return filepath.Join(m.basePath, "baselines.yaml")
}

func (m *fileBaselineStoreManager) AddBaseline(b models.Baseline) error {
	if b.Name == "" {
		return fmt.Errorf("adding baseline: name must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data.Baselines[b.Name]; exists {
		return fmt.Errorf("adding baseline %s: %w", b.Name, ErrBaselineExists)
	}
	m.data.Baselines[b.Name] = b
	m.pending = append(m.pending, registerOp{name: b.Name, baseline: &b})
	return nil
}

func (m *fileBaselineStoreManager) GetBaseline(name string) (*models.Baseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.data.Baselines[name]
	if !exists {
		return nil, fmt.Errorf("baseline %s: %w", name, ErrBaselineNotFound)
	}
	b.Snapshot = b.Snapshot.Clone()
	return &b, nil
}

func (m *fileBaselineStoreManager) GetAllBaselines() ([]models.Baseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Baseline, 0, len(m.data.Baselines))
	for _, b := range m.data.Baselines {
		b.Snapshot = b.Snapshot.Clone()
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *fileBaselineStoreManager) RemoveBaseline(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data.Baselines[name]; !exists {
		return fmt.Errorf("removing baseline %s: %w", name, ErrBaselineNotFound)
	}
	delete(m.data.Baselines, name)
	m.pending = append(m.pending, registerOp{name: name})
	return nil
}

// Load rereads baselines.yaml. Unsaved changes are kept on top of the
// fresh register.
func (m *fileBaselineStoreManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bf, err := m.readFile()
	if err != nil {
		return fmt.Errorf("loading baselines: %w", err)
	}
	m.disk = bf
	m.data = bf.clone()
	for _, op := range m.pending {
		if op.baseline == nil {
			delete(m.data.Baselines, op.name)
		} else {
			m.data.Baselines[op.name] = *op.baseline
		}
	}
	return nil
}

func (m *fileBaselineStoreManager) readFile() (BaselineFile, error) {
	data, err := os.ReadFile(m.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return emptyBaselineFile(), nil
		}
		return BaselineFile{}, err
	}

	var bf BaselineFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return BaselineFile{}, fmt.Errorf("parsing YAML: %w", err)
	}
	if bf.Version == "" {
		bf.Version = "1.0"
	}
	if bf.Baselines == nil {
		bf.Baselines = make(map[string]models.Baseline)
	}
	for name, b := range bf.Baselines {
		if b.Name == "" {
			b.Name = name
			bf.Baselines[name] = b
		}
	}
	return bf, nil
}

// Save writes the register to baselines.yaml. Under an exclusive lock on
// baselines.yaml.lock it rereads the file, replays the unsaved changes onto
// it and replaces the file atomically. Adding a name another process has
// saved in the meantime fails with ErrBaselineExists; removing a name that
// is already gone is not an error. On any failure the unsaved changes are
// dropped and the in-memory register reverts to the last known disk state.
func (m *fileBaselineStoreManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.saveLocked(); err != nil {
		m.pending = nil
		m.data = m.disk.clone()
		return fmt.Errorf("saving baselines: %w", err)
	}
	return nil
}

func (m *fileBaselineStoreManager) saveLocked() error {
	if err := os.MkdirAll(m.basePath, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	unlock, err := lockFile(m.filePath() + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	current, err := m.readFile()
	if err != nil {
		return fmt.Errorf("rereading register: %w", err)
	}
	merged := current.clone()
	for _, op := range m.pending {
		if op.baseline == nil {
			delete(merged.Baselines, op.name)
			continue
		}
		if _, taken := merged.Baselines[op.name]; taken {
			return fmt.Errorf("baseline %s: %w", op.name, ErrBaselineExists)
		}
		merged.Baselines[op.name] = *op.baseline
	}

	data, err := yaml.Marshal(&merged)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := writeFileAtomic(m.filePath(), data, 0o600); err != nil {
		return err
	}

	m.pending = nil
	m.disk = merged
	m.data = merged.clone()
	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

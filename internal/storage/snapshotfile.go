package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
	"gopkg.in/yaml.v3"
)

// ReadSnapshot loads a project snapshot from a YAML or JSON file. Files with
// a .json extension are decoded as JSON, everything else as YAML. A path of
// "-" reads from stdin and sniffs the format from the content.
func ReadSnapshot(path string) (*models.ProjectSnapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	snap, err := DecodeSnapshot(data, isJSONPath(path, data))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	return snap, nil
}

// DecodeSnapshot parses snapshot content as JSON or YAML. A nil task list is
// normalized to an empty one.
func DecodeSnapshot(data []byte, asJSON bool) (*models.ProjectSnapshot, error) {
	var snap models.ProjectSnapshot
	if asJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&snap); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	}
	if snap.Tasks == nil {
		snap.Tasks = []models.Task{}
	}
	return &snap, nil
}

// WriteSnapshot writes a snapshot to path, as JSON when the extension is
// .json and as YAML otherwise.
func WriteSnapshot(path string, snap models.ProjectSnapshot) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = yaml.Marshal(&snap)
	}
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("writing snapshot: creating directory: %w", err)
		}
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

func isJSONPath(path string, data []byte) bool {
	if path == "-" {
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
	}
	return strings.EqualFold(filepath.Ext(path), ".json")
}

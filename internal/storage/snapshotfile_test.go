package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

func TestReadSnapshot_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.yaml")
	content := `id: PRJ-1
name: Depot upgrade
budget: 1000
tasks:
  - id: T1
    name: Survey
    wbsCode: "1.1"
    startDate: "2024-01-01"
    endDate: "2024-01-06"
    duration: 5
    status: Not Started
    dependencies:
      - predecessorId: T0
        type: FS
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ID != "PRJ-1" || snap.Budget != 1000 || len(snap.Tasks) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	task := snap.Tasks[0]
	if task.StartDate != "2024-01-01" || task.Status != models.StatusNotStarted || len(task.Dependencies) != 1 {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestReadSnapshot_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.json")
	content := `{"budget": 1500, "tasks": [{"id": "T2", "name": "Build", "startDate": "2024-01-08", "endDate": "2024-01-11", "duration": 3, "status": "In Progress", "dependencies": []}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Budget != 1500 || snap.Tasks[0].Status != models.StatusInProgress {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestReadSnapshot_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	jsonPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(yamlPath, []byte("budget: 1\ntaskz: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, []byte(`{"budget": 1, "taskz": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{yamlPath, jsonPath} {
		if _, err := ReadSnapshot(p); err == nil {
			t.Errorf("%s: expected error for unknown field", filepath.Base(p))
		}
	}
}

func TestReadSnapshot_EmptyFileYieldsEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Tasks == nil || len(snap.Tasks) != 0 {
		t.Errorf("expected empty non-nil task list, got %#v", snap.Tasks)
	}
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading snapshot") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	snap := sampleBaseline("v1").Snapshot
	dir := t.TempDir()

	for _, name := range []string{"out.yaml", "nested/out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteSnapshot(path, snap); err != nil {
				t.Fatalf("writing: %v", err)
			}
			got, err := ReadSnapshot(path)
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			if !reflect.DeepEqual(*got, snap) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, snap)
			}
		})
	}
}

func TestIsJSONPath(t *testing.T) {
	tests := []struct {
		path string
		data string
		want bool
	}{
		{"a.json", "", true},
		{"a.JSON", "", true},
		{"a.yaml", "{}", false},
		{"-", "  {\"budget\": 1}", true},
		{"-", "budget: 1", false},
	}
	for _, tt := range tests {
		if got := isJSONPath(tt.path, []byte(tt.data)); got != tt.want {
			t.Errorf("isJSONPath(%q, %q) = %v, want %v", tt.path, tt.data, got, tt.want)
		}
	}
}

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tjper/procsched/internal/scheduler"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("unexpected error writing manifest: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, "/bin/sleep\n/bin/true\n\n/bin/false\n")

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Entry{
		{ExecutableName: "sleep", Route: "/bin/sleep"},
		{ExecutableName: "true", Route: "/bin/true"},
		{ExecutableName: "false", Route: "/bin/false"},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i] != w {
			t.Errorf("entry %d: expected %+v, got %+v", i, w, entries[i])
		}
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	path := writeManifest(t, "\n\n/bin/true\n\n")

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after skipping blank lines, got %d", len(entries))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed, got %v", err)
	}
}

func TestLoadDescriptors(t *testing.T) {
	path := writeManifest(t, "/bin/true\n/bin/false\n")
	clock := scheduler.NewClock()

	descriptors, err := LoadDescriptors(path, clock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descriptors))
	}
	if descriptors[0].ExecutableName != "true" || descriptors[0].Route != "/bin/true" {
		t.Errorf("unexpected first descriptor: %+v", descriptors[0])
	}
	if descriptors[0].Status != scheduler.New {
		t.Errorf("expected freshly loaded descriptor to have Status New")
	}
	if descriptors[0].EntryTime.IsZero() {
		t.Errorf("expected EntryTime to be populated")
	}
}

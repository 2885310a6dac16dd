package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSilencePrefsMissingFile(t *testing.T) {
	p := NewSilencePrefs(filepath.Join(t.TempDir(), "silenced.json"))
	m, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("missing file loaded %v", m)
	}
}

func TestSilencePrefsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silenced.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}
	m, err := NewSilencePrefs(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("corrupt file loaded %v", m)
	}
}

func TestSilencePrefsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "silenced.json")
	p := NewSilencePrefs(path)

	want := map[string]bool{"t1": true, "t2": false}
	if err := p.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || !got["t1"] || got["t2"] {
		t.Errorf("got %v", got)
	}

	// No stray temp file after the rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// SilencePrefs persists the per-ticker silenced map as a single JSON object
// in a file: read once at dashboard startup, rewritten on every change.
type SilencePrefs struct {
	Path string
}

// NewSilencePrefs creates a prefs store at the given path.
func NewSilencePrefs(path string) *SilencePrefs {
	return &SilencePrefs{Path: path}
}

// Load reads the silenced map. A missing file yields an empty map; a corrupt
// file is treated the same, since silences are a soft preference.
func (p *SilencePrefs) Load() (map[string]bool, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]bool{}, nil
	}
	return m, nil
}

// Save writes the whole map atomically (temp file + rename).
func (p *SilencePrefs) Save(m map[string]bool) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.Path)
}

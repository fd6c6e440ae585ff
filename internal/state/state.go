// Package state persists the user's notification consent between runs. The
// desktop notification services focusflow talks to have no consent model of
// their own, so the decision is kept here.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ConsentRecord is the stored permission decision for one application id.
type ConsentRecord struct {
	App        string    `json:"app"`
	Permission string    `json:"permission"`
	DecidedAt  time.Time `json:"decided_at"`
}

var mu sync.Mutex

const stateFileName = "focusflow_state.json"

func stateFilePath() string {
	if dir := os.Getenv("FOCUSFLOW_STATE_DIR"); dir != "" {
		return filepath.Join(dir, stateFileName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "focusflow", stateFileName)
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, stateFileName)
	}
	return filepath.Join(os.TempDir(), stateFileName)
}

// loadAllUnlocked reads the state file. Caller must hold mu.
func loadAllUnlocked() (map[string]ConsentRecord, error) {
	data, err := os.ReadFile(stateFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]ConsentRecord), nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	out := make(map[string]ConsentRecord)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return out, nil
}

// saveAllUnlocked writes the state file atomically. Caller must hold mu.
func saveAllUnlocked(m map[string]ConsentRecord) error {
	p := stateFilePath()
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// SaveConsent stores the decision for r.App, replacing any previous one.
func SaveConsent(r ConsentRecord) error {
	mu.Lock()
	defer mu.Unlock()
	m, err := loadAllUnlocked()
	if err != nil {
		return err
	}
	m[r.App] = r
	return saveAllUnlocked(m)
}

// GetConsent returns the stored decision for app, if any.
func GetConsent(app string) (ConsentRecord, bool, error) {
	mu.Lock()
	defer mu.Unlock()
	m, err := loadAllUnlocked()
	if err != nil {
		return ConsentRecord{}, false, err
	}
	r, ok := m[app]
	return r, ok, nil
}

// ResetConsent forgets the decision for app so the user is asked again.
func ResetConsent(app string) error {
	mu.Lock()
	defer mu.Unlock()
	m, err := loadAllUnlocked()
	if err != nil {
		return err
	}
	if _, ok := m[app]; !ok {
		return nil
	}
	delete(m, app)
	return saveAllUnlocked(m)
}

package wlm

import (
	"encoding/json"
	"os"
	"strings"

	"batchd/pkg/types"
)

// SaveSnapshot writes the per-model snapshot records to the configured
// snapshot file. A missing path disables persistence.
func (mm *Manager) SaveSnapshot() error {
	if mm.cfg.SnapshotPath == "" {
		return nil
	}
	mm.mu.RLock()
	snap := make(map[string]types.ModelSnapshot)
	for name, versions := range mm.models {
		for version, m := range versions {
			snap[name+":"+version] = m.State(mm.defaults[name] == version)
		}
	}
	mm.mu.RUnlock()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(mm.cfg.SnapshotPath, b, 0o644)
}

// RestoreSnapshot overlays saved snapshot records onto already-registered
// models. Records for unknown models are skipped; a record flagged as the
// default version wins the default slot for its name.
func (mm *Manager) RestoreSnapshot() error {
	if mm.cfg.SnapshotPath == "" {
		return nil
	}
	b, err := os.ReadFile(mm.cfg.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap map[string]types.ModelSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for key, rec := range snap {
		name, version, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}
		m, err := mm.getLocked(name, version)
		if err != nil {
			mm.log.Warn().Str("model", key).Msg("snapshot record for unknown model, skipping")
			continue
		}
		m.RestoreState(rec)
		if rec.DefaultVersion {
			mm.defaults[name] = version
		}
	}
	return nil
}

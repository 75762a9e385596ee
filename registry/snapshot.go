package registry

import (
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/types"
)

// SnapshotVersion is the current schema version of the registry snapshot.
// Version 1 snapshots predate per-definition turn budgets and heartbeat
// policies; they migrate forward on load. Snapshots newer than this version
// are rejected, never silently accepted.
const SnapshotVersion = 2

// Snapshot is the serializable form of the registry catalog.
type Snapshot struct {
	Version     int               `json:"version"`
	Definitions []AgentDefinition `json:"definitions"`
}

// Snapshot captures the current catalog at the current schema version.
func (r *AgentTypeRegistry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]AgentDefinition, 0, len(r.definitions))
	for _, typ := range types.AllAgentTypes() {
		if def, ok := r.definitions[typ]; ok {
			defs = append(defs, def)
		}
	}
	return Snapshot{Version: SnapshotVersion, Definitions: defs}
}

// Restore replaces the catalog with the snapshot contents, migrating older
// snapshot versions forward. Every definition is re-validated; a single
// invalid definition rejects the whole snapshot and leaves the catalog
// untouched.
func (r *AgentTypeRegistry) Restore(snap Snapshot) error {
	if snap.Version > SnapshotVersion {
		return types.NewErrorf(types.ErrSnapshotVersionMismatch,
			"registry snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	if snap.Version < 1 {
		return types.NewErrorf(types.ErrSnapshotVersionMismatch,
			"registry snapshot version %d is not valid", snap.Version)
	}

	defs := snap.Definitions
	if snap.Version < SnapshotVersion {
		defs = migrateDefinitions(snap.Version, defs)
		r.logger.Info("migrated registry snapshot",
			zap.Int("from_version", snap.Version),
			zap.Int("to_version", SnapshotVersion),
		)
	}

	validated := make(map[types.AgentType]AgentDefinition, len(defs))
	for _, def := range defs {
		if err := validateDefinition(def); err != nil {
			return err
		}
		normalizeDefinition(&def)
		validated[def.Type] = def
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions = validated
	return nil
}

// migrateDefinitions upgrades definitions written by older snapshot schemas.
// Version 1 stored no turn budget and no heartbeat policy.
func migrateDefinitions(fromVersion int, defs []AgentDefinition) []AgentDefinition {
	if fromVersion >= SnapshotVersion {
		return defs
	}
	out := make([]AgentDefinition, len(defs))
	for i, def := range defs {
		if def.MaxTurns == 0 {
			def.MaxTurns = DefaultMaxTurns(def.Type)
		}
		if def.Heartbeat == (HeartbeatConfig{}) {
			def.Heartbeat = DefaultHeartbeat
		}
		out[i] = def
	}
	return out
}

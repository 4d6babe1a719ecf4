package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/engramgo/hierarchy"
)

// ManifestVersion is the current manifest schema version.
const ManifestVersion = 1

// Manifest records the engine state needed to reopen a database: the tree
// root, id allocation watermark and encoding geometry. It is small and
// stored as JSON for inspectability.
type Manifest struct {
	Version      int              `json:"version"`
	Dimension    int              `json:"dimension"`
	BlockSize    int              `json:"block_size"`
	RootNode     hierarchy.NodeID `json:"root_node"`
	NextNode     hierarchy.NodeID `json:"next_node"`
	ContentCount int              `json:"content_count"`
}

// SaveManifest persists the manifest.
func (s *Store) SaveManifest(ctx context.Context, m *Manifest) error {
	m.Version = ManifestVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return s.put(ctx, manifestKey, data)
}

// LoadManifest fetches the manifest. Returns blobstore.ErrNotFound for a
// fresh store.
func (s *Store) LoadManifest(ctx context.Context) (*Manifest, error) {
	data, err := s.get(ctx, manifestKey)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d (expected %d)", m.Version, ManifestVersion)
	}
	return &m, nil
}

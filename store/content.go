package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const contentPrefix = "contents/"

func contentKey(id uint64) string {
	return fmt.Sprintf("%s%016x", contentPrefix, id)
}

// ContentMeta is the per-content sidecar needed to decode: the path salt and
// the original byte length. Stored as JSON next to the correction record.
type ContentMeta struct {
	Path   string `json:"path"`
	Length int    `json:"length"`
}

// SaveContentMeta persists the sidecar for a content id.
func (s *Store) SaveContentMeta(ctx context.Context, id uint64, meta ContentMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.put(ctx, contentKey(id), data)
}

// LoadContentMeta fetches the sidecar for a content id.
func (s *Store) LoadContentMeta(ctx context.Context, id uint64) (ContentMeta, error) {
	data, err := s.get(ctx, contentKey(id))
	if err != nil {
		return ContentMeta{}, err
	}
	var meta ContentMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ContentMeta{}, err
	}
	return meta, nil
}

// DeleteContentMeta removes a content id's sidecar.
func (s *Store) DeleteContentMeta(ctx context.Context, id uint64) error {
	return s.blobs.Delete(ctx, contentKey(id))
}

// ListContentIDs returns every content id with a stored sidecar.
func (s *Store) ListContentIDs(ctx context.Context) ([]uint64, error) {
	keys, err := s.blobs.List(ctx, contentPrefix)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(keys))
	for _, key := range keys {
		var id uint64
		hexPart := strings.TrimPrefix(key, contentPrefix)
		if _, err := fmt.Sscanf(hexPart, "%016x", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

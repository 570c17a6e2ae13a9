package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// FileSnapshotPublisher writes the effective block set to a JSON file for
// external enforcement drivers. Readers never see a partial file.
type FileSnapshotPublisher struct {
	path string
}

// NewFileSnapshotPublisher creates a publisher writing to path.
func NewFileSnapshotPublisher(path string) *FileSnapshotPublisher {
	return &FileSnapshotPublisher{path: path}
}

// Path returns the snapshot file path.
func (p *FileSnapshotPublisher) Path() string {
	return p.path
}

// Publish atomically replaces the snapshot file.
func (p *FileSnapshotPublisher) Publish(snap domain.BlockSetSnapshot) error {
	if snap.Entries == nil {
		snap.Entries = []domain.EffectiveBlockEntry{}
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := writeFileAtomic(p.path, snap, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Ensure FileSnapshotPublisher implements domain.SnapshotPublisher.
var _ domain.SnapshotPublisher = (*FileSnapshotPublisher)(nil)

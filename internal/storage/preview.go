package storage

import (
	"sync"

	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
)

// Preview reads through to a Storage but keeps every write in memory, so a
// dry run sees existing artifacts without creating new ones
type Preview struct {
	base *Storage

	mu      sync.Mutex
	pending map[string]bulletin.Artifact
}

// NewPreview wraps s
func NewPreview(s *Storage) *Preview {
	return &Preview{base: s, pending: make(map[string]bulletin.Artifact)}
}

// Exists reports whether the period has an artifact on disk or in memory
func (p *Preview) Exists(period bulletin.Period) (bool, error) {
	p.mu.Lock()
	_, ok := p.pending[period.Key()]
	p.mu.Unlock()
	if ok {
		return true, nil
	}
	return p.base.Exists(period)
}

// Save keeps the artifact in memory. It fails with ErrExists like Storage.Save.
func (p *Preview) Save(artifact bulletin.Artifact) error {
	exists, err := p.Exists(artifact.Period)
	if err != nil {
		return err
	}
	if exists {
		return ErrExists
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[artifact.Period.Key()] = artifact
	return nil
}

// Load returns the in-memory artifact, falling back to disk
func (p *Preview) Load(period bulletin.Period) (bulletin.Artifact, error) {
	p.mu.Lock()
	artifact, ok := p.pending[period.Key()]
	p.mu.Unlock()
	if ok {
		return artifact, nil
	}
	return p.base.Load(period)
}

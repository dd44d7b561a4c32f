package share

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"agriledger/internal/ledger"
)

// MemorySharer keeps shared archives in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemorySharer struct {
	mu          sync.RWMutex
	shared      map[string][]byte // display name -> content
	unavailable bool
}

// NewMemorySharer creates an available in-memory sharer.
func NewMemorySharer() *MemorySharer {
	return &MemorySharer{shared: make(map[string][]byte)}
}

// SetAvailable toggles what Available reports.
func (m *MemorySharer) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

func (m *MemorySharer) Available(context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.unavailable
}

func (m *MemorySharer) Share(ctx context.Context, localPath, displayName string) error {
	if !m.Available(ctx) {
		return ledger.ErrShareUnavailable
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.shared[displayName] = data
	return nil
}

// Get returns the content shared under displayName.
func (m *MemorySharer) Get(displayName string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.shared[displayName]
	return data, ok
}

// Names returns the shared display names, sorted.
func (m *MemorySharer) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.shared))
	for name := range m.shared {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ ledger.Sharer = (*MemorySharer)(nil)

package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/playmatatu/clawmachine/internal/models"
)

// MemoryProfiles is an in-process Profiles used by the terminal client and
// tests.
type MemoryProfiles struct {
	mu     sync.Mutex
	byName map[string]*models.Profile
	nextID int
}

func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{byName: make(map[string]*models.Profile)}
}

func (m *MemoryProfiles) Create(_ context.Context, name, pinHash string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[name]; ok {
		return nil, ErrProfileExists
	}
	m.nextID++
	p := &models.Profile{ID: m.nextID, Name: name, PINHash: pinHash, CreatedAt: time.Now()}
	m.byName[name] = p
	cp := *p
	return &cp, nil
}

func (m *MemoryProfiles) ByName(_ context.Context, name string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byName[name]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryProfiles) Touch(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byName {
		if p.ID == id {
			p.LastActive.Time = time.Now()
			p.LastActive.Valid = true
			return nil
		}
	}
	return ErrProfileNotFound
}

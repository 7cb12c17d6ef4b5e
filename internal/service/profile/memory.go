package profile

import (
	"context"
	"sync"
	"time"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	"github.com/janisto/wallet-profiles/internal/platform/schema"
)

type memoryKey struct {
	ownerID string
	id      string
}

type memoryEntry struct {
	record    schema.Record
	createdAt time.Time
	updatedAt time.Time
	// version is unique per write, so a recreated entry never matches a
	// version read before it was deleted.
	version uint64
}

// MemoryStore implements Service in process memory. It backs unit tests and
// PROFILE_STORE=memory.
type MemoryStore struct {
	normalizer *Normalizer
	now        func() time.Time

	mu       sync.RWMutex
	profiles map[memoryKey]memoryEntry
	writes   uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(normalizer *Normalizer) *MemoryStore {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &MemoryStore{
		normalizer: normalizer,
		now:        func() time.Time { return time.Now().UTC() },
		profiles:   make(map[memoryKey]memoryEntry),
	}
}

func (m *MemoryStore) Create(ctx context.Context, ownerID string, rec schema.Record) (*Profile, error) {
	p, err := m.create(ctx, ownerID, rec)
	audit(ctx, "create", ownerID, idOf(p, rec), err)
	return p, err
}

func (m *MemoryStore) create(ctx context.Context, ownerID string, rec schema.Record) (*Profile, error) {
	prepared, err := m.normalizer.PrepareCreate(ctx, rec)
	if err != nil {
		return nil, err
	}

	key := memoryKey{ownerID: ownerID, id: profileID(prepared)}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[key]; exists {
		return nil, ErrAlreadyExists
	}
	m.writes++
	entry := memoryEntry{record: prepared, createdAt: now, updatedAt: now, version: m.writes}
	m.profiles[key] = entry
	return entry.profile(ownerID)
}

func (m *MemoryStore) Get(_ context.Context, ownerID, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.profiles[memoryKey{ownerID: ownerID, id: id}]
	if !exists {
		return nil, ErrNotFound
	}
	return entry.profile(ownerID)
}

func (m *MemoryStore) List(_ context.Context, ownerID string) ([]*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profiles := make([]*Profile, 0)
	for key, entry := range m.profiles {
		if key.ownerID != ownerID {
			continue
		}
		p, err := entry.profile(ownerID)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	sortProfiles(profiles)
	return profiles, nil
}

func (m *MemoryStore) Update(ctx context.Context, ownerID, id string, patch schema.Record) (*Profile, error) {
	p, err := m.update(ctx, ownerID, id, patch)
	audit(ctx, "update", ownerID, id, err)
	return p, err
}

func (m *MemoryStore) update(ctx context.Context, ownerID, id string, patch schema.Record) (*Profile, error) {
	key := memoryKey{ownerID: ownerID, id: id}

	// Network resolution may call the registry, so the record is prepared
	// outside the lock and stored only if nobody updated it meanwhile.
	for {
		m.mu.RLock()
		entry, exists := m.profiles[key]
		m.mu.RUnlock()
		if !exists {
			return nil, ErrNotFound
		}

		prepared, err := m.normalizer.PrepareUpdate(ctx, id, entry.record, patch)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		current, exists := m.profiles[key]
		switch {
		case !exists:
			m.mu.Unlock()
			return nil, ErrNotFound
		case current.version != entry.version:
			m.mu.Unlock()
			continue
		}
		current.record = prepared
		current.updatedAt = m.now()
		m.writes++
		current.version = m.writes
		m.profiles[key] = current
		m.mu.Unlock()
		return current.profile(ownerID)
	}
}

func (m *MemoryStore) Delete(ctx context.Context, ownerID, id string) error {
	err := m.delete(ownerID, id)
	audit(ctx, "delete", ownerID, id, err)
	return err
}

func (m *MemoryStore) delete(ownerID, id string) error {
	key := memoryKey{ownerID: ownerID, id: id}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[key]; !exists {
		return ErrNotFound
	}
	delete(m.profiles, key)
	return nil
}

// Clear removes all profiles.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = make(map[memoryKey]memoryEntry)
}

func (e memoryEntry) profile(ownerID string) (*Profile, error) {
	p, err := FromRecord(ownerID, e.record)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = e.createdAt
	p.UpdatedAt = e.updatedAt
	return p, nil
}

// audit writes the outcome of a mutation.
func audit(ctx context.Context, action, ownerID, id string, err error) {
	ev := applog.AuditEvent{
		Action:       action,
		OwnerID:      ownerID,
		ResourceType: "profile",
		ResourceID:   id,
		Result:       applog.AuditSuccess,
	}
	if err != nil {
		ev.Result = applog.AuditFailure
		ev.Category = categorizeError(err)
	}
	applog.LogAuditEvent(ctx, ev)
}

// idOf names the profile in audit events, falling back to the requested id.
func idOf(p *Profile, rec schema.Record) string {
	if p != nil {
		return p.ID
	}
	id, _ := rec[FieldID].(string)
	return id
}

// Compile-time interface check
var _ Service = (*MemoryStore)(nil)

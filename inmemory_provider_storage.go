package referral

import (
	"context"
	"sync"
)

var _ ProviderStorage = (*InMemoryProviderStorage)(nil)

// InMemoryProviderStorage keeps providers in process memory. Ids come from a
// counter that only moves forward, so a deleted id is never handed out again.
type InMemoryProviderStorage struct {
	reg *InsuranceRegistry

	mu     sync.RWMutex
	byID   map[int64]*Provider
	order  []int64
	nextID int64
}

func NewInMemoryProviderStorage(reg *InsuranceRegistry) *InMemoryProviderStorage {
	return &InMemoryProviderStorage{
		reg:    reg,
		byID:   make(map[int64]*Provider),
		nextID: 1,
	}
}

func (s *InMemoryProviderStorage) Insert(ctx context.Context, in *ProviderInput) (*Provider, error) {
	if err := checkInput(s.reg, in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := newProvider(s.reg, s.nextID, in)
	s.nextID++
	s.byID[p.ID] = p
	s.order = append(s.order, p.ID)
	return p.clone(), nil
}

func (s *InMemoryProviderStorage) Update(ctx context.Context, id int64, patch *ProviderPatch) (*Provider, error) {
	if err := checkPatch(s.reg, patch); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, errNotFound(id)
	}
	patch.applyTo(p)
	return p.clone(), nil
}

func (s *InMemoryProviderStorage) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return errNotFound(id)
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryProviderStorage) FindBy(ctx context.Context, filter ProviderFilter) ([]*Provider, error) {
	if err := checkFilter(s.reg, filter); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Provider, 0)
	for _, id := range s.order {
		p := s.byID[id]
		if filter.Match(p) {
			result = append(result, p.clone())
		}
	}
	return result, nil
}

func (s *InMemoryProviderStorage) All(ctx context.Context) ([]*Provider, error) {
	return s.FindBy(ctx, ProviderFilter{})
}

func (s *InMemoryProviderStorage) Specialties(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make([]string, 0, len(s.byID))
	for _, p := range s.byID {
		values = append(values, p.Specialty)
	}
	return distinctSorted(values), nil
}

func (s *InMemoryProviderStorage) Close() error {
	return nil
}

// Snapshot is the serialisable state of an InMemoryProviderStorage.
type Snapshot struct {
	NextID    int64       `msgpack:"nextId"`
	Providers []*Provider `msgpack:"providers"`
}

// ExportState copies the current state.
func (s *InMemoryProviderStorage) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{NextID: s.nextID, Providers: make([]*Provider, 0, len(s.order))}
	for _, id := range s.order {
		snap.Providers = append(snap.Providers, s.byID[id].clone())
	}
	return snap
}

// ImportState replaces the current state. Flags are normalised against the
// registry: new keys start false and keys no longer in the catalog are dropped.
func (s *InMemoryProviderStorage) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[int64]*Provider, len(snap.Providers))
	s.order = s.order[:0]
	s.nextID = snap.NextID
	for _, p := range snap.Providers {
		c := p.clone()
		flags := s.reg.Flags()
		for k := range flags {
			flags[k] = p.Insurance[k]
		}
		c.Insurance = flags
		if _, dup := s.byID[c.ID]; dup {
			continue
		}
		s.byID[c.ID] = c
		s.order = append(s.order, c.ID)
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
	if s.nextID < 1 {
		s.nextID = 1
	}
}

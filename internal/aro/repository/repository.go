// Package repository implements the actor-like, serialized-access
// repository storage described in spec.md §4.10: a process-wide map of
// repository name to an ordered list of values, with id/name-aware
// upsert and change-tracking results so the Store action can publish
// RepositoryChanged. The serialize-everything-behind-one-lock shape is
// grounded on the teacher's internal/game world state, which applies the
// same pattern (a single mutex guarding an in-memory map keyed by entity
// name) for its own shared mutable game world.
package repository

import (
	"sync"

	"github.com/arolang/aro-sub011/internal/aro/types"
)

// StoreResult describes the effect of one Store call.
type StoreResult struct {
	Old      types.Value
	New      types.Value
	IsUpdate bool
	EntityID string
}

// DeleteResult describes the effect of one DeleteByField call.
type DeleteResult struct {
	Removed []types.Value
}

// Repository is one named, ordered collection of values.
type Repository struct {
	mu    sync.Mutex
	name  string
	items []types.Value
}

func newRepository(name string) *Repository {
	return &Repository{name: name}
}

// Name returns the repository's name.
func (r *Repository) Name() string { return r.name }

// Store upserts value per spec.md §4.10:
//   - a map with an "id" matching an existing item's "id" replaces it in
//     place (IsUpdate=true);
//   - a map with a "name" matching an existing item's "name", but no
//     "id" of its own, inherits that item's "id" and replaces it
//     (IsUpdate=true);
//   - a scalar already present (by Value.Equal) is an idempotent no-op
//     (IsUpdate=false, Old==New);
//   - anything else is appended (IsUpdate=false, Old is the zero Value).
func (r *Repository) Store(value types.Value) StoreResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if value.Type.Kind == types.KindMap {
		return r.storeMap(value)
	}
	return r.storeScalar(value)
}

func (r *Repository) storeMap(value types.Value) StoreResult {
	fields, _ := value.Raw.(map[string]types.Value)

	if id, ok := fields["id"]; ok {
		for i, item := range r.items {
			if itemFields, ok := item.Raw.(map[string]types.Value); ok {
				if existingID, ok := itemFields["id"]; ok && existingID.Equal(id) {
					old := r.items[i]
					r.items[i] = value
					return StoreResult{Old: old, New: value, IsUpdate: true, EntityID: id.AsString()}
				}
			}
		}
		r.items = append(r.items, value)
		return StoreResult{New: value, EntityID: id.AsString()}
	}

	if name, ok := fields["name"]; ok {
		for i, item := range r.items {
			if itemFields, ok := item.Raw.(map[string]types.Value); ok {
				if existingName, ok := itemFields["name"]; ok && existingName.Equal(name) {
					old := r.items[i]
					inheritedID := itemFields["id"]
					merged := make(map[string]types.Value, len(fields)+1)
					for k, v := range fields {
						merged[k] = v
					}
					merged["id"] = inheritedID
					newValue := types.Obj(merged)
					r.items[i] = newValue
					return StoreResult{Old: old, New: newValue, IsUpdate: true, EntityID: inheritedID.AsString()}
				}
			}
		}
	}

	r.items = append(r.items, value)
	return StoreResult{New: value}
}

func (r *Repository) storeScalar(value types.Value) StoreResult {
	for _, item := range r.items {
		if item.Equal(value) {
			return StoreResult{Old: item, New: item, IsUpdate: false}
		}
	}
	r.items = append(r.items, value)
	return StoreResult{New: value}
}

// DeleteByField removes every item whose map field named fieldName
// equals want, returning the removed items.
func (r *Repository) DeleteByField(fieldName string, want types.Value) DeleteResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []types.Value
	var removed []types.Value
	for _, item := range r.items {
		fields, ok := item.Raw.(map[string]types.Value)
		if ok {
			if v, ok := fields[fieldName]; ok && v.Equal(want) {
				removed = append(removed, item)
				continue
			}
		}
		kept = append(kept, item)
	}
	r.items = kept
	return DeleteResult{Removed: removed}
}

// All returns a snapshot copy of every item in the repository.
func (r *Repository) All() []types.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Value, len(r.items))
	copy(out, r.items)
	return out
}

// FilterByField returns every item whose map field named fieldName
// equals want.
func (r *Repository) FilterByField(fieldName string, want types.Value) []types.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Value
	for _, item := range r.items {
		fields, ok := item.Raw.(map[string]types.Value)
		if !ok {
			continue
		}
		if v, ok := fields[fieldName]; ok && v.Equal(want) {
			out = append(out, item)
		}
	}
	return out
}

// Store is the process-wide registry of named Repositories.
type Store struct {
	mu    sync.Mutex
	repos map[string]*Repository
}

// NewStore creates an empty repository registry.
func NewStore() *Store {
	return &Store{repos: map[string]*Repository{}}
}

// Get returns the named repository, creating it on first access.
func (s *Store) Get(name string) *Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[name]
	if !ok {
		repo = newRepository(name)
		s.repos[name] = repo
	}
	return repo
}

// Export re-publishes the repository named from under the name to, so
// it is reachable application-globally under either name. Both names
// share the same underlying Repository instance.
func (s *Store) Export(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[from]
	if !ok {
		repo = newRepository(from)
		s.repos[from] = repo
	}
	s.repos[to] = repo
}

// Reset clears every repository; used to isolate test cases that share
// an Engine/Store instance.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos = map[string]*Repository{}
}

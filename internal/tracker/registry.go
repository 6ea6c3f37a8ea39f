package tracker

import (
	"sync"
)

// IdentityRegistry allocates process-unique object ids and maintains the
// object table for lookup-by-identity. It is owned by the tracker service
// rather than being process-global, so tests can inject a fresh instance and
// id allocation stays deterministic.
type IdentityRegistry struct {
	mu      sync.Mutex
	next    int64
	objects map[int64]TrackedEntity
}

// NewIdentityRegistry creates a registry whose first allocated id is 1
func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{
		next:    1,
		objects: make(map[int64]TrackedEntity),
	}
}

// Allocate returns a fresh object id. Ids are never reused, even after the
// entity they were assigned to is disposed.
func (r *IdentityRegistry) Allocate() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	return id
}

// Register records an entity in the object table under its object id
func (r *IdentityRegistry) Register(entity TrackedEntity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[entity.ObjectID()] = entity
}

// Unregister removes an entity from the object table
func (r *IdentityRegistry) Unregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, id)
}

// Lookup returns the live entity with the given object id
func (r *IdentityRegistry) Lookup(id int64) (TrackedEntity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entity, ok := r.objects[id]
	return entity, ok
}

// Count returns the number of live tracked entities
func (r *IdentityRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

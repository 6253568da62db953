package studyable

import (
	"fmt"
	"sync"
)

// Registry is the set of objects rules may act on, in registration order.
type Registry struct {
	mu      sync.RWMutex
	objects []*Object
	byID    map[string]*Object
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Object)}
}

// Register adds obj. IDs must be unique.
func (r *Registry) Register(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("register object: object is required")
	}
	if obj.ID == "" {
		return fmt.Errorf("register object %q: id is required", obj.Item.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[obj.ID]; dup {
		return fmt.Errorf("register object %q: id %s already registered", obj.Item.Name, obj.ID)
	}
	r.byID[obj.ID] = obj
	r.objects = append(r.objects, obj)
	return nil
}

// All returns every registered object.
func (r *Registry) All() []*Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Object(nil), r.objects...)
}

// Get returns the object with the given ID.
func (r *Registry) Get(id string) (*Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.byID[id]
	return obj, ok
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Nearby returns objects within radius of center (inclusive), in
// registration order.
func (r *Registry) Nearby(center Vec3, radius float64) []*Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Object
	for _, obj := range r.objects {
		if obj.Position.Distance(center) <= radius {
			out = append(out, obj)
		}
	}
	return out
}

package studyable

import (
	"math"
	"sync"

	"github.com/spellcraft/spellcraft/internal/spell/property"
)

// Vec3 is a position in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ItemData is the static description of an object.
type ItemData struct {
	Name       string
	Gender     property.Gender
	Properties []property.Type // authored properties
}

// Observer is notified when an object's property set changes.
type Observer interface {
	PropertyAdded(obj *Object, t property.Type)
	PropertyRemoved(obj *Object, t property.Type)
}

// Object is a studyable object with a mutable set of properties.
type Object struct {
	ID       string
	Item     ItemData
	Position Vec3

	mu         sync.Mutex
	properties []property.Type
	observers  []Observer
}

// NewObject creates an object whose current set starts as the item's
// authored properties.
func NewObject(id string, item ItemData, pos Vec3) *Object {
	item.Properties = append([]property.Type(nil), item.Properties...)
	obj := &Object{ID: id, Item: item, Position: pos}
	obj.SetProperties(item.Properties)
	return obj
}

// Observe registers o for property change notifications.
func (obj *Object) Observe(o Observer) {
	if o == nil {
		return
	}
	obj.mu.Lock()
	obj.observers = append(obj.observers, o)
	obj.mu.Unlock()
}

// HasProperty reports whether t is in the current set.
func (obj *Object) HasProperty(t property.Type) bool {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.indexLocked(t) >= 0
}

// Properties returns a copy of the current set in insertion order.
func (obj *Object) Properties() []property.Type {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return append([]property.Type(nil), obj.properties...)
}

// AddProperty adds t and reports whether the set changed.
func (obj *Object) AddProperty(t property.Type) bool {
	obj.mu.Lock()
	if obj.indexLocked(t) >= 0 {
		obj.mu.Unlock()
		return false
	}
	obj.properties = append(obj.properties, t)
	observers := obj.observersLocked()
	obj.mu.Unlock()

	for _, o := range observers {
		o.PropertyAdded(obj, t)
	}
	return true
}

// RemoveProperty removes t and reports whether the set changed.
func (obj *Object) RemoveProperty(t property.Type) bool {
	obj.mu.Lock()
	idx := obj.indexLocked(t)
	if idx < 0 {
		obj.mu.Unlock()
		return false
	}
	obj.properties = append(obj.properties[:idx], obj.properties[idx+1:]...)
	observers := obj.observersLocked()
	obj.mu.Unlock()

	for _, o := range observers {
		o.PropertyRemoved(obj, t)
	}
	return true
}

// SyncProperty makes sure t is in the set and notifies observers even when
// it already was, so effects bound to the property are refreshed.
func (obj *Object) SyncProperty(t property.Type) {
	obj.mu.Lock()
	if obj.indexLocked(t) < 0 {
		obj.properties = append(obj.properties, t)
	}
	observers := obj.observersLocked()
	obj.mu.Unlock()

	for _, o := range observers {
		o.PropertyAdded(obj, t)
	}
}

// SetProperties replaces the current set without notifying observers.
// Duplicates in ts are dropped.
func (obj *Object) SetProperties(ts []property.Type) {
	next := make([]property.Type, 0, len(ts))
	seen := make(map[property.Type]struct{}, len(ts))
	for _, t := range ts {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		next = append(next, t)
	}
	obj.mu.Lock()
	obj.properties = next
	obj.mu.Unlock()
}

func (obj *Object) indexLocked(t property.Type) int {
	for i, p := range obj.properties {
		if p == t {
			return i
		}
	}
	return -1
}

func (obj *Object) observersLocked() []Observer {
	if len(obj.observers) == 0 {
		return nil
	}
	return append([]Observer(nil), obj.observers...)
}

// Package progress tracks which items the player has studied.
package progress

import (
	"sync"

	"github.com/spellcraft/spellcraft/internal/spell/property"
)

// Item is a studied item and the properties it revealed.
type Item struct {
	ID         string
	Name       string
	Properties []property.Type
}

// Progress is the player's studied-item record.
type Progress struct {
	mu    sync.RWMutex
	items []Item
	index map[string]int
}

// New returns progress seeded with items. Items sharing an ID are merged.
func New(items ...Item) *Progress {
	p := &Progress{index: make(map[string]int)}
	for _, item := range items {
		p.Study(item)
	}
	return p
}

// Study records item. Studying an already known ID merges in any new
// properties and reports whether anything changed.
func (p *Progress) Study(item Item) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index == nil {
		p.index = make(map[string]int)
	}

	idx, known := p.index[item.ID]
	if !known {
		p.index[item.ID] = len(p.items)
		p.items = append(p.items, Item{
			ID:         item.ID,
			Name:       item.Name,
			Properties: dedupe(nil, item.Properties),
		})
		return true
	}
	existing := &p.items[idx]
	before := len(existing.Properties)
	existing.Properties = dedupe(existing.Properties, item.Properties)
	return len(existing.Properties) != before
}

// HasStudied reports whether any studied item has property t.
func (p *Progress) HasStudied(t property.Type) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, item := range p.items {
		for _, known := range item.Properties {
			if known == t {
				return true
			}
		}
	}
	return false
}

// Items returns a copy of the studied items in study order.
func (p *Progress) Items() []Item {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Item, len(p.items))
	for i, item := range p.items {
		item.Properties = append([]property.Type(nil), item.Properties...)
		out[i] = item
	}
	return out
}

// Item returns the studied item with the given ID.
func (p *Progress) Item(id string) (Item, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx, ok := p.index[id]
	if !ok {
		return Item{}, false
	}
	item := p.items[idx]
	item.Properties = append([]property.Type(nil), item.Properties...)
	return item, true
}

// Len returns the number of studied items.
func (p *Progress) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

func dedupe(into, from []property.Type) []property.Type {
	for _, t := range from {
		seen := false
		for _, have := range into {
			if have == t {
				seen = true
				break
			}
		}
		if !seen {
			into = append(into, t)
		}
	}
	return into
}

package property

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
)

// AntonymPair declares two mutually exclusive properties.
type AntonymPair struct {
	A Type
	B Type
}

type pairKey struct{ a, b Type }

func keyOf(a, b Type) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Database holds every known property and the antonym relation between them.
type Database struct {
	infos    []Info
	byType   map[Type]int
	folded   map[string]int // case-folded display form -> index
	antonyms map[pairKey]struct{}
}

// NewDatabase validates infos and pairs and builds a Database.
//
// Every Type must be non-empty and unique, both display forms must be set,
// and antonym pairs must reference two distinct known types.
func NewDatabase(infos []Info, pairs []AntonymPair) (*Database, error) {
	db := &Database{
		infos:    make([]Info, 0, len(infos)),
		byType:   make(map[Type]int, len(infos)),
		folded:   make(map[string]int, len(infos)*2),
		antonyms: make(map[pairKey]struct{}, len(pairs)),
	}
	folder := cases.Fold()

	for _, info := range infos {
		info.Type = Type(strings.TrimSpace(string(info.Type)))
		info.DisplayName = strings.TrimSpace(info.DisplayName)
		info.DisplayFeminineName = strings.TrimSpace(info.DisplayFeminineName)
		if info.Type == "" {
			return nil, invalid("property type is required")
		}
		if _, dup := db.byType[info.Type]; dup {
			return nil, invalid(fmt.Sprintf("property %q is defined twice", info.Type))
		}
		if info.DisplayName == "" || info.DisplayFeminineName == "" {
			return nil, invalid(fmt.Sprintf("property %q needs masculine and feminine names", info.Type))
		}
		idx := len(db.infos)
		for _, form := range []string{info.DisplayName, info.DisplayFeminineName} {
			key := folder.String(form)
			if other, taken := db.folded[key]; taken && other != idx {
				return nil, invalid(fmt.Sprintf("name %q is used by %q and %q", form, db.infos[other].Type, info.Type))
			}
			db.folded[key] = idx
		}
		db.byType[info.Type] = idx
		db.infos = append(db.infos, info)
	}

	for _, pair := range pairs {
		if pair.A == pair.B {
			return nil, invalid(fmt.Sprintf("property %q cannot be its own antonym", pair.A))
		}
		for _, t := range []Type{pair.A, pair.B} {
			if _, ok := db.byType[t]; !ok {
				return nil, invalid(fmt.Sprintf("antonym references unknown property %q", t))
			}
		}
		db.antonyms[keyOf(pair.A, pair.B)] = struct{}{}
	}
	return db, nil
}

func invalid(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeCatalogInvalid, "invalid property database: "+reason, map[string]string{
		"Reason": reason,
	})
}

// All returns every property in load order.
func (db *Database) All() []Info {
	out := make([]Info, len(db.infos))
	copy(out, db.infos)
	return out
}

// Len returns the number of properties.
func (db *Database) Len() int {
	return len(db.infos)
}

// Info returns the descriptor for t.
func (db *Database) Info(t Type) (Info, bool) {
	idx, ok := db.byType[t]
	if !ok {
		return Info{}, false
	}
	return db.infos[idx], true
}

// DisplayName returns the masculine form of t, or t itself when unknown.
func (db *Database) DisplayName(t Type) string {
	if info, ok := db.Info(t); ok {
		return info.DisplayName
	}
	return string(t)
}

// ByName finds the property whose masculine or feminine form equals name exactly.
func (db *Database) ByName(name string) (Info, bool) {
	for _, info := range db.infos {
		if info.Matches(name) {
			return info, true
		}
	}
	return Info{}, false
}

// ByNameFold finds the property whose masculine or feminine form equals name
// under Unicode case folding.
func (db *Database) ByNameFold(name string) (Info, bool) {
	idx, ok := db.folded[cases.Fold().String(name)]
	if !ok {
		return Info{}, false
	}
	return db.infos[idx], true
}

// AreAntonyms reports whether a and b are declared mutually exclusive.
// The relation is symmetric and never reflexive.
func (db *Database) AreAntonyms(a, b Type) bool {
	if a == b {
		return false
	}
	_, ok := db.antonyms[keyOf(a, b)]
	return ok
}

// Antonyms returns every antonym of t, sorted.
func (db *Database) Antonyms(t Type) []Type {
	var out []Type
	for key := range db.antonyms {
		switch t {
		case key.a:
			out = append(out, key.b)
		case key.b:
			out = append(out, key.a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

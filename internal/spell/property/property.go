package property

import (
	"fmt"
	"strings"
)

// Type identifies a property, e.g. "hot" or "cold".
type Type string

// Gender is the grammatical gender of an object's name. It selects which
// display form of a property agrees with the object.
type Gender int

const (
	Masculine Gender = iota
	Feminine
)

// ParseGender parses "masculine"/"feminine" (or "m"/"f"), ignoring case.
// An empty string parses as Masculine.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "masculine":
		return Masculine, nil
	case "f", "feminine":
		return Feminine, nil
	default:
		return Masculine, fmt.Errorf("unknown gender %q", s)
	}
}

// String returns the lower-case gender name.
func (g Gender) String() string {
	if g == Feminine {
		return "feminine"
	}
	return "masculine"
}

// UnmarshalText lets Gender decode from YAML scalars.
func (g *Gender) UnmarshalText(text []byte) error {
	parsed, err := ParseGender(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// MarshalText encodes the gender name.
func (g Gender) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Info describes one property.
type Info struct {
	Type                Type
	DisplayName         string // masculine form
	DisplayFeminineName string
}

// Name returns the display form that agrees with gender g.
func (i Info) Name(g Gender) string {
	if g == Feminine {
		return i.DisplayFeminineName
	}
	return i.DisplayName
}

// Matches reports whether name equals either display form exactly.
func (i Info) Matches(name string) bool {
	return name == i.DisplayName || name == i.DisplayFeminineName
}

package property

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
)

func TestDefaultDatabase(t *testing.T) {
	db, err := Default()
	if err != nil {
		t.Fatalf("default database: %v", err)
	}
	if db.Len() == 0 {
		t.Fatal("expected embedded properties")
	}
	pairs := [][2]Type{{"hot", "cold"}, {"wet", "dry"}, {"heavy", "light"}, {"big", "small"}, {"hard", "soft"}, {"bright", "dark"}}
	for _, pair := range pairs {
		if !db.AreAntonyms(pair[0], pair[1]) {
			t.Errorf("expected %s/%s to be antonyms", pair[0], pair[1])
		}
	}
	hot, ok := db.ByName("горячая")
	if !ok || hot.Type != "hot" {
		t.Fatalf("ByName(горячая) = %v, %v", hot, ok)
	}
	again, _ := Default()
	if again != db {
		t.Fatal("expected Default to be loaded once")
	}
}

func TestLoad(t *testing.T) {
	db, err := Load(strings.NewReader(`
properties:
  - type: hot
    masculine: hot
    feminine: hot-f
  - type: cold
    masculine: cold
    feminine: cold-f
antonyms:
  - [hot, cold]
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !db.AreAntonyms("cold", "hot") {
		t.Fatal("expected antonyms from asset")
	}
}

func TestLoadRejectsBadAssets(t *testing.T) {
	tests := []struct {
		name  string
		asset string
	}{
		{name: "empty", asset: ""},
		{name: "unknown field", asset: "properties:\n  - type: hot\n    masculine: a\n    feminine: b\n    neuter: c\n"},
		{name: "short antonym", asset: "properties:\n  - type: hot\n    masculine: a\n    feminine: b\nantonyms:\n  - [hot]\n"},
		{name: "malformed", asset: "properties: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.asset))
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperrors.IsCode(err, apperrors.CodeCatalogInvalid) {
				t.Fatalf("code = %s", apperrors.GetCode(err))
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.yaml")
	if err := os.WriteFile(path, []byte("properties:\n  - type: hot\n    masculine: a\n    feminine: b\n"), 0o600); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	db, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if db.Len() != 1 {
		t.Fatalf("Len = %d, want 1", db.Len())
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
}

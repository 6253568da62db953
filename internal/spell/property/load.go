package property

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
)

//go:embed assets/properties.yaml
var defaultAsset []byte

type assetFile struct {
	Properties []assetProperty `yaml:"properties"`
	Antonyms   [][]Type        `yaml:"antonyms"`
}

type assetProperty struct {
	Type      Type   `yaml:"type"`
	Masculine string `yaml:"masculine"`
	Feminine  string `yaml:"feminine"`
}

var (
	defaultOnce sync.Once
	defaultDB   *Database
	defaultErr  error
)

// Default returns the embedded property database.
func Default() (*Database, error) {
	defaultOnce.Do(func() {
		defaultDB, defaultErr = Load(bytes.NewReader(defaultAsset))
	})
	return defaultDB, defaultErr
}

// LoadFile reads a property database asset from path.
func LoadFile(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open property database: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML property database asset.
func Load(r io.Reader) (*Database, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file assetFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("asset is empty")
		}
		return nil, apperrors.WrapWithMetadata(apperrors.CodeCatalogInvalid, "decode property database", map[string]string{
			"Reason": err.Error(),
		}, err)
	}

	infos := make([]Info, 0, len(file.Properties))
	for _, p := range file.Properties {
		infos = append(infos, Info{
			Type:                p.Type,
			DisplayName:         p.Masculine,
			DisplayFeminineName: p.Feminine,
		})
	}
	pairs := make([]AntonymPair, 0, len(file.Antonyms))
	for i, pair := range file.Antonyms {
		if len(pair) != 2 {
			return nil, invalid(fmt.Sprintf("antonym entry %d must list exactly two properties", i+1))
		}
		pairs = append(pairs, AntonymPair{A: pair[0], B: pair[1]})
	}
	return NewDatabase(infos, pairs)
}

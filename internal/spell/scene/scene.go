// Package scene loads a scene asset: the objects in the world, the items the
// player has already studied and where the applier starts.
//
//	applier:
//	  position: [0, 0, 0]
//	objects:
//	  - id: kettle
//	    name: чайник
//	    gender: masculine
//	    position: [1, 0, 0]
//	    properties: [hot, heavy]
//	studied:
//	  - name: книга
//	    properties: [hot]
//
// Objects and studied items without an id get one derived from their name,
// so persisted state stays keyed to the same objects across runs.
package scene

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
	"github.com/spellcraft/spellcraft/internal/spell/progress"
	"github.com/spellcraft/spellcraft/internal/spell/property"
	"github.com/spellcraft/spellcraft/internal/spell/studyable"
)

// idNamespace scopes derived IDs.
var idNamespace = uuid.MustParse("6f1c3a52-3e2b-4f0e-9d8a-2b7c9e5d4a10")

type file struct {
	Applier struct {
		Position []float64 `yaml:"position"`
	} `yaml:"applier"`
	Objects []objectEntry `yaml:"objects"`
	Studied []studiedEntry `yaml:"studied"`
}

type objectEntry struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Gender     property.Gender `yaml:"gender"`
	Position   []float64       `yaml:"position"`
	Properties []property.Type `yaml:"properties"`
}

type studiedEntry struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Properties []property.Type `yaml:"properties"`
}

// Scene is a loaded scene asset.
type Scene struct {
	Registry *studyable.Registry
	Studied  []progress.Item
	Position studyable.Vec3
}

// LoadFile reads a scene asset from path.
func LoadFile(path string, db *property.Database) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()
	return Load(f, db)
}

// Load parses a scene asset and validates every property tag against db.
func Load(r io.Reader, db *property.Database) (*Scene, error) {
	if db == nil {
		return nil, fmt.Errorf("load scene: property database is required")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw file
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("scene is empty")
		}
		return nil, apperrors.WrapWithMetadata(apperrors.CodeSceneInvalid, "decode scene", map[string]string{
			"Reason": err.Error(),
		}, err)
	}

	sc := &Scene{Registry: studyable.NewRegistry()}
	if raw.Applier.Position != nil {
		pos, err := vec(raw.Applier.Position)
		if err != nil {
			return nil, invalid("applier " + err.Error())
		}
		sc.Position = pos
	}

	ids := newIDs("object")
	for i, entry := range raw.Objects {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, invalid(fmt.Sprintf("object %d: name is required", i+1))
		}
		if err := checkTags(db, entry.Properties); err != nil {
			return nil, invalid(fmt.Sprintf("object %q: %v", name, err))
		}
		pos, err := vec(entry.Position)
		if err != nil {
			return nil, invalid(fmt.Sprintf("object %q: %v", name, err))
		}
		obj := studyable.NewObject(ids.next(entry.ID, name), studyable.ItemData{
			Name:       name,
			Gender:     entry.Gender,
			Properties: entry.Properties,
		}, pos)
		if err := sc.Registry.Register(obj); err != nil {
			return nil, invalid(err.Error())
		}
	}

	studiedIDs := newIDs("studied")
	seen := make(map[string]struct{}, len(raw.Studied))
	for i, entry := range raw.Studied {
		name := strings.TrimSpace(entry.Name)
		if name == "" && entry.ID == "" {
			return nil, invalid(fmt.Sprintf("studied item %d: name or id is required", i+1))
		}
		if err := checkTags(db, entry.Properties); err != nil {
			return nil, invalid(fmt.Sprintf("studied item %q: %v", name, err))
		}
		id := studiedIDs.next(entry.ID, name)
		if _, dup := seen[id]; dup {
			return nil, invalid(fmt.Sprintf("studied item id %s is used twice", id))
		}
		seen[id] = struct{}{}
		sc.Studied = append(sc.Studied, progress.Item{
			ID:         id,
			Name:       name,
			Properties: entry.Properties,
		})
	}
	return sc, nil
}

// Progress returns player progress seeded with the scene's studied items.
func (s *Scene) Progress() *progress.Progress {
	return progress.New(s.Studied...)
}

// ObjectID derives the ID given to an object named name when the asset does
// not set one.
func ObjectID(name string) string {
	return deriveID("object", name, 1)
}

func invalid(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeSceneInvalid, "invalid scene: "+reason, map[string]string{
		"Reason": reason,
	})
}

func checkTags(db *property.Database, tags []property.Type) error {
	for _, t := range tags {
		if _, ok := db.Info(t); !ok {
			return fmt.Errorf("unknown property %q", t)
		}
	}
	return nil
}

func vec(v []float64) (studyable.Vec3, error) {
	switch len(v) {
	case 0:
		return studyable.Vec3{}, nil
	case 3:
		return studyable.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return studyable.Vec3{}, fmt.Errorf("position needs three coordinates, got %d", len(v))
	}
}

// ids derives stable IDs. Repeated names get an ordinal so two unnamed
// objects called "чашка" stay distinct.
type ids struct {
	kind  string
	count map[string]int
}

func newIDs(kind string) *ids {
	return &ids{kind: kind, count: make(map[string]int)}
}

func (g *ids) next(explicit, name string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	g.count[name]++
	return deriveID(g.kind, name, g.count[name])
}

func deriveID(kind, name string, ordinal int) string {
	key := kind + ":" + name
	if ordinal > 1 {
		key = fmt.Sprintf("%s#%d", key, ordinal)
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

package spellcraft

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/message"

	"github.com/spellcraft/spellcraft/internal/platform/i18n/catalog"
	"github.com/spellcraft/spellcraft/internal/spell/progress"
	"github.com/spellcraft/spellcraft/internal/spell/property"
	"github.com/spellcraft/spellcraft/internal/spell/studyable"
)

type console struct {
	world   *world
	printer *message.Printer
	out     io.Writer
}

func newConsole(w *world, locale string, out io.Writer) *console {
	return &console{
		world:   w,
		printer: catalog.Default().Printer(locale),
		out:     out,
	}
}

// Run reads one command per line. It returns nil on quit or end of input.
func (c *console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		args := splitArgs(scanner.Text())
		if len(args) == 0 {
			continue
		}
		quit, err := c.exec(ctx, strings.ToLower(args[0]), args[1:])
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

func (c *console) exec(ctx context.Context, cmd string, args []string) (bool, error) {
	switch cmd {
	case "help":
		c.say("console.help")
	case "quit", "exit":
		c.say("console.bye")
		return true, nil
	case "objects":
		c.objects()
	case "show":
		if len(args) != 1 {
			c.say("console.usage", "show <object>")
			return false, nil
		}
		if obj, ok := c.find(args[0]); ok {
			c.describe(obj)
		}
	case "apply":
		if len(args) < 2 {
			c.say("console.usage", "apply <object> <prop>[,<prop>...]")
			return false, nil
		}
		return false, c.apply(ctx, args[0], propertyNames(args[1:]))
	case "study":
		if len(args) != 1 {
			c.say("console.usage", "study <object>")
			return false, nil
		}
		return false, c.study(ctx, args[0])
	case "move":
		c.move(args)
	default:
		c.say("console.unknown_command", cmd)
	}
	return false, nil
}

func (c *console) objects() {
	nearby := c.world.applier.Nearby()
	if len(nearby) == 0 {
		c.say("console.nearby_empty")
		return
	}
	for _, obj := range nearby {
		c.describe(obj)
	}
}

func (c *console) describe(obj *studyable.Object) {
	props := obj.Properties()
	if len(props) == 0 {
		c.say("console.object_line", obj.Item.Name, c.printer.Sprintf("console.no_properties"))
		return
	}
	names := make([]string, 0, len(props))
	for _, t := range props {
		name := string(t)
		if info, ok := c.world.db.Info(t); ok {
			name = info.Name(obj.Item.Gender)
		}
		names = append(names, name)
	}
	c.say("console.object_line", obj.Item.Name, strings.Join(names, ", "))
}

func (c *console) apply(ctx context.Context, objectName string, names []string) error {
	obj, ok := c.find(objectName)
	if !ok {
		return nil
	}
	before := obj.Properties()
	if c.world.applier.TryApplyPropertiesToObject(ctx, obj, names) {
		c.say("console.apply_ok", obj.Item.Name)
	} else {
		c.say("console.apply_failed", obj.Item.Name)
	}
	after := obj.Properties()
	if sameProperties(before, after) {
		return nil
	}
	if err := c.world.store.SaveObjectProperties(ctx, obj.ID, after); err != nil {
		return fmt.Errorf("save %s: %w", obj.Item.Name, err)
	}
	return nil
}

func (c *console) study(ctx context.Context, objectName string) error {
	obj, ok := c.find(objectName)
	if !ok {
		return nil
	}
	p := c.world.progress
	p.Study(progress.Item{ID: obj.ID, Name: obj.Item.Name, Properties: obj.Properties()})
	item, _ := p.Item(obj.ID)
	if err := c.world.store.SaveStudiedItem(ctx, item); err != nil {
		return fmt.Errorf("save studied %s: %w", obj.Item.Name, err)
	}
	c.world.logger.InfoContext(ctx, "item studied",
		slog.String("object", obj.Item.Name),
		slog.Int("properties", len(item.Properties)),
	)
	c.say("console.studied", obj.Item.Name, len(item.Properties))
	return nil
}

func (c *console) move(args []string) {
	if len(args) != 3 {
		c.say("console.usage", "move <x> <y> <z>")
		return
	}
	var coords [3]float64
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			c.say("console.usage", "move <x> <y> <z>")
			return
		}
		coords[i] = v
	}
	pos := studyable.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}
	c.world.applier.MoveTo(pos)
	c.say("console.moved", fmt.Sprintf("(%g, %g, %g)", pos.X, pos.Y, pos.Z))
}

func (c *console) find(name string) (*studyable.Object, bool) {
	obj, ok := c.world.applier.FindNearby(name)
	if !ok {
		c.say("console.object_not_found", name)
	}
	return obj, ok
}

func (c *console) say(key string, args ...any) {
	fmt.Fprintln(c.out, c.printer.Sprintf(key, args...))
}

// splitArgs splits a command line on spaces. Double quotes group words.
func splitArgs(line string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, current.String())
	}
	return args
}

// propertyNames accepts names separated by commas, spaces or both.
func propertyNames(args []string) []string {
	fields := strings.FieldsFunc(strings.Join(args, ","), func(r rune) bool { return r == ',' })
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}

func sameProperties(a, b []property.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

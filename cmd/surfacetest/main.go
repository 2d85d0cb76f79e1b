// Command surfacetest exercises the surface engine end to end against the
// in-memory document. Optionally reads a TOML config as its first argument.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/quillboard/goquill/pkg/doc"
	"github.com/quillboard/goquill/pkg/element"
	"github.com/quillboard/goquill/pkg/surface"
)

type config struct {
	DefaultShapeType string `toml:"default_shape_type"`
	DefaultTitle     string `toml:"default_title"`
	Verbose          bool   `toml:"verbose"`
}

func loadConfig() config {
	cfg := config{DefaultShapeType: "rect", DefaultTitle: "Untitled Group"}
	if len(os.Args) < 2 {
		return cfg
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("read config: %v", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}
	return cfg
}

func main() {
	cfg := loadConfig()

	logger := zerolog.Nop()
	if cfg.Verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	d := doc.NewMemDoc()
	m := surface.New(d, surface.WithLogger(logger))
	defer m.Dispose()

	// Default-props middleware driven by the config file.
	m.Use(func(ctx *surface.MiddlewareContext) {
		if ctx.Hook != surface.HookBeforeAdd {
			return
		}
		switch ctx.ElementType {
		case element.TypeShape:
			if _, ok := ctx.Props["shapeType"]; !ok {
				ctx.Props["shapeType"] = cfg.DefaultShapeType
			}
		case element.TypeGroup:
			if _, ok := ctx.Props["title"]; !ok {
				ctx.Props["title"] = cfg.DefaultTitle
			}
		}
	})

	fmt.Println("Testing element lifecycle...")
	testLifecycle(m)

	fmt.Println("\nTesting groups and connectors...")
	testGraph(d, m)

	fmt.Println("\n✅ All checks passed!")
}

func testLifecycle(m *surface.Model) {
	var added, removed int
	defer m.ElementAdded().Subscribe(func(surface.ElementAddedEvent) { added++ })()
	defer m.ElementRemoved().Subscribe(func(surface.ElementRemovedEvent) { removed++ })()

	id, err := m.AddElement(map[string]any{"type": element.TypeShape})
	if err != nil {
		log.Fatalf("AddElement failed: %v", err)
	}
	el, ok := m.GetElement(id)
	if !ok {
		log.Fatal("GetElement returned nothing after add")
	}
	if el.Get("shapeType") != "rect" {
		log.Fatalf("middleware default not applied: %v", el.Get("shapeType"))
	}
	fmt.Println("  ✓ AddElement + middleware works")

	if err := m.UpdateElement(id, map[string]any{"rotation": float64(45)}); err != nil {
		log.Fatalf("UpdateElement failed: %v", err)
	}
	fmt.Println("  ✓ UpdateElement works")

	if err := m.DeleteElement(id); err != nil {
		log.Fatalf("DeleteElement failed: %v", err)
	}
	if added != 1 || removed != 1 {
		log.Fatalf("event counts wrong: added=%d removed=%d", added, removed)
	}
	fmt.Println("  ✓ DeleteElement + events work")
}

func testGraph(d *doc.MemDoc, m *surface.Model) {
	a, err := m.AddElement(map[string]any{"type": element.TypeShape})
	if err != nil {
		log.Fatalf("AddElement failed: %v", err)
	}
	b, err := m.AddElement(map[string]any{"type": element.TypeShape})
	if err != nil {
		log.Fatalf("AddElement failed: %v", err)
	}
	g, err := m.AddElement(map[string]any{
		"type":     element.TypeGroup,
		"childIds": []string{a, b},
	})
	if err != nil {
		log.Fatalf("AddElement group failed: %v", err)
	}
	if parent := m.GetGroup(a); parent == nil || parent.ID() != g {
		log.Fatal("group index did not resolve the parent")
	}
	fmt.Println("  ✓ Group index works")

	c, err := m.AddElement(map[string]any{
		"type":   element.TypeConnector,
		"source": element.Endpoint(a),
		"target": element.Endpoint(b),
	})
	if err != nil {
		log.Fatalf("AddElement connector failed: %v", err)
	}
	conns := m.GetConnectors(a)
	if len(conns) != 1 || conns[0].ID() != c {
		log.Fatal("connector index did not resolve the endpoint")
	}
	fmt.Println("  ✓ Connector index works")

	var removed []string
	unsub := m.ElementRemoved().Subscribe(func(e surface.ElementRemovedEvent) {
		removed = append(removed, e.ID)
	})
	if err := m.DeleteElement(g); err != nil {
		log.Fatalf("cascade delete failed: %v", err)
	}
	unsub()
	if len(removed) != 3 {
		log.Fatalf("cascade delete removed %d elements, want 3", len(removed))
	}
	if d.Elements().Has(a) || d.Elements().Has(b) || d.Elements().Has(g) {
		log.Fatal("cascade delete left storage entries behind")
	}
	fmt.Println("  ✓ Cascading delete works")
}

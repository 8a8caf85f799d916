package theme

import (
	"fmt"
	"strings"
	"sync"

	"github.com/harun/lens/pkg/render"
	"github.com/harun/lens/pkg/store"
	"github.com/xeipuuv/gojsonschema"
)

// sectionSchema describes the persisted Theme section. Colours are stored as
// [r, g, b] or [r, g, b, a].
const sectionSchema = `{
	"type": "object",
	"required": ["BoxTheme", "IconTheme", "backColor", "buttonColor"],
	"properties": {
		"BoxTheme": {"type": "string", "minLength": 1},
		"IconTheme": {"type": "string", "minLength": 1},
		"backColor": {"$ref": "#/definitions/color"},
		"buttonColor": {"$ref": "#/definitions/color"}
	},
	"definitions": {
		"color": {
			"type": "array",
			"minItems": 3,
			"maxItems": 4,
			"items": {"type": "integer", "minimum": 0, "maximum": 255}
		}
	}
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(sectionSchema))
	})
	return schema, schemaErr
}

func validateSection(section store.Compound) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile theme schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(store.Normalize(section)))
	if err != nil {
		return fmt.Errorf("failed to validate theme: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid theme section: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func encodeColor(c render.Color) []any {
	return []any{int(c.R), int(c.G), int(c.B), int(c.A)}
}

func decodeColor(v any) (render.Color, error) {
	items, ok := v.([]any)
	if !ok {
		return render.Color{}, fmt.Errorf("expected a list, got %T", v)
	}
	if len(items) != 3 && len(items) != 4 {
		return render.Color{}, fmt.Errorf("expected 3 or 4 components, got %d", len(items))
	}

	parts := [4]uint8{0, 0, 0, 255}
	for i, item := range items {
		n, err := component(item)
		if err != nil {
			return render.Color{}, fmt.Errorf("component %d: %w", i, err)
		}
		parts[i] = n
	}
	return render.Color{R: parts[0], G: parts[1], B: parts[2], A: parts[3]}, nil
}

func component(v any) (uint8, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint64:
		n = int64(x)
	case float64:
		n = int64(x)
		if float64(n) != x {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
	default:
		return 0, fmt.Errorf("unsupported component type %T", v)
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return uint8(n), nil
}

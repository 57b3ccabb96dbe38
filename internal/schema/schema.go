// Package schema models the vertex/edge schema a batch load is
// validated against: labels, their property
// definitions, and the edge endpoint constraints between them. There is
// no ORM layer here and no attempt to infer a schema from the graph
// engine; callers declare it once and the loader validates every row
// against it before anything is staged.
package schema

import (
	"fmt"
	"time"
)

// PropertyType is the set of scalar types a property can declare.
type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeInt     PropertyType = "int"
	TypeFloat   PropertyType = "float"
	TypeBool    PropertyType = "bool"
	TypeDate    PropertyType = "date"
	TypeAny     PropertyType = "any"
)

// PropertyDef is one property's declared type and whether rows must
// supply it.
type PropertyDef struct {
	Name     string
	Type     PropertyType
	Required bool
}

// VertexSpec describes one vertex label's allowed/required properties.
type VertexSpec struct {
	Label      string
	Properties []PropertyDef
}

// EdgeSpec describes one edge label's endpoint vertex labels and
// properties. From and To name VertexSpec labels that must already be
// declared in the same Schema.
type EdgeSpec struct {
	Label      string
	From       string
	To         string
	Properties []PropertyDef
}

// Schema is the full set of vertex and edge specs a batch load is
// checked against.
type Schema struct {
	Version  string
	Vertices map[string]VertexSpec
	Edges    map[string]EdgeSpec
}

// New builds an empty, versioned Schema.
func New(version string) *Schema {
	return &Schema{
		Version:  version,
		Vertices: make(map[string]VertexSpec),
		Edges:    make(map[string]EdgeSpec),
	}
}

// AddVertex registers a vertex label.
func (s *Schema) AddVertex(spec VertexSpec) *Schema {
	s.Vertices[spec.Label] = spec
	return s
}

// AddEdge registers an edge label. It does not itself require From/To
// to already be present; ValidateEdgeRows reports that as a schema-consistency
// violation if it is ever the case, since edges can be declared before
// their endpoint vertex labels in source order.
func (s *Schema) AddEdge(spec EdgeSpec) *Schema {
	s.Edges[spec.Label] = spec
	return s
}

// Violation is one validation failure against a single row.
type Violation struct {
	Label   string
	Index   int // row index within its label's batch
	Field   string
	Message string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s[%d].%s: %s", v.Label, v.Index, v.Field, v.Message)
}

// ValidateVertexRows checks every row against label's VertexSpec,
// returning every violation found rather than stopping at the first.
func (s *Schema) ValidateVertexRows(label string, rows []map[string]any) []Violation {
	spec, ok := s.Vertices[label]
	if !ok {
		return []Violation{{Label: label, Index: -1, Field: "label", Message: "vertex label not declared in schema"}}
	}
	var violations []Violation
	for i, row := range rows {
		violations = append(violations, validateProperties(label, i, spec.Properties, row)...)
	}
	return violations
}

// ValidateEdgeRows checks every row against label's EdgeSpec,
// additionally requiring from/to keys identifying existing vertex
// references, plus the endpoint labels themselves being declared. Row
// shape is {from, to, properties: {...}}: the loader's Cypher body reads
// endpoints from row.from/row.to and sets row.properties directly onto
// the created edge, so declared properties are checked under the nested
// "properties" map rather than on the row itself.
func (s *Schema) ValidateEdgeRows(label string, rows []map[string]any) []Violation {
	spec, ok := s.Edges[label]
	if !ok {
		return []Violation{{Label: label, Index: -1, Field: "label", Message: "edge label not declared in schema"}}
	}
	var violations []Violation
	if _, ok := s.Vertices[spec.From]; !ok {
		violations = append(violations, Violation{Label: label, Index: -1, Field: "from", Message: fmt.Sprintf("endpoint label %q not declared in schema", spec.From)})
	}
	if _, ok := s.Vertices[spec.To]; !ok {
		violations = append(violations, Violation{Label: label, Index: -1, Field: "to", Message: fmt.Sprintf("endpoint label %q not declared in schema", spec.To)})
	}
	for i, row := range rows {
		if _, ok := row["from"]; !ok {
			violations = append(violations, Violation{Label: label, Index: i, Field: "from", Message: "missing edge endpoint reference"})
		}
		if _, ok := row["to"]; !ok {
			violations = append(violations, Violation{Label: label, Index: i, Field: "to", Message: "missing edge endpoint reference"})
		}
		properties, _ := row["properties"].(map[string]any)
		violations = append(violations, validateProperties(label, i, spec.Properties, properties)...)
	}
	return violations
}

func validateProperties(label string, index int, defs []PropertyDef, row map[string]any) []Violation {
	var violations []Violation
	for _, def := range defs {
		value, present := row[def.Name]
		if !present || value == nil {
			if def.Required {
				violations = append(violations, Violation{Label: label, Index: index, Field: def.Name, Message: "required property missing"})
			}
			continue
		}
		if err := checkType(def.Type, value); err != nil {
			violations = append(violations, Violation{Label: label, Index: index, Field: def.Name, Message: err.Error()})
		}
	}
	return violations
}

func checkType(t PropertyType, value any) error {
	switch t {
	case TypeAny, "":
		return nil
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case TypeInt:
		switch value.(type) {
		case int, int32, int64, float64:
			return nil
		default:
			return fmt.Errorf("expected int, got %T", value)
		}
	case TypeFloat:
		switch value.(type) {
		case float32, float64, int, int64:
			return nil
		default:
			return fmt.Errorf("expected float, got %T", value)
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
	case TypeDate:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected ISO-8601 date string, got %T", value)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			if _, err2 := time.Parse("2006-01-02", s); err2 != nil {
				return fmt.Errorf("invalid date %q: %w", s, err)
			}
		}
	default:
		return fmt.Errorf("unknown property type %q", t)
	}
	return nil
}

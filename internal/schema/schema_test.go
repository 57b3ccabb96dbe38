package schema

import "testing"

func buildTestSchema() *Schema {
	sch := New("1")
	sch.AddVertex(VertexSpec{
		Label: "Person",
		Properties: []PropertyDef{
			{Name: "name", Type: TypeString, Required: true},
			{Name: "age", Type: TypeInt},
		},
	})
	sch.AddVertex(VertexSpec{Label: "Company", Properties: []PropertyDef{
		{Name: "name", Type: TypeString, Required: true},
	}})
	sch.AddEdge(EdgeSpec{
		Label: "WORKS_AT",
		From:  "Person",
		To:    "Company",
		Properties: []PropertyDef{
			{Name: "since", Type: TypeDate},
		},
	})
	return sch
}

func TestValidateVertexRowsAcceptsValidRows(t *testing.T) {
	sch := buildTestSchema()
	rows := []map[string]any{
		{"name": "Alice", "age": float64(30)},
		{"name": "Bob"},
	}
	if v := sch.ValidateVertexRows("Person", rows); len(v) != 0 {
		t.Fatalf("expected no violations, got %v", v)
	}
}

func TestValidateVertexRowsReportsMissingRequired(t *testing.T) {
	sch := buildTestSchema()
	rows := []map[string]any{
		{"age": float64(30)},
	}
	violations := sch.ValidateVertexRows("Person", rows)
	if len(violations) != 1 {
		t.Fatalf("expected exactly one violation, got %v", violations)
	}
	if violations[0].Field != "name" {
		t.Fatalf("expected violation on 'name', got %q", violations[0].Field)
	}
}

func TestValidateVertexRowsReportsAllViolationsInOnePass(t *testing.T) {
	sch := buildTestSchema()
	rows := []map[string]any{
		{"age": "not-a-number"},
		{},
	}
	violations := sch.ValidateVertexRows("Person", rows)
	if len(violations) != 3 {
		t.Fatalf("expected 3 violations across both rows, got %d: %v", len(violations), violations)
	}
}

func TestValidateVertexRowsRejectsUndeclaredLabel(t *testing.T) {
	sch := buildTestSchema()
	violations := sch.ValidateVertexRows("Ghost", []map[string]any{{}})
	if len(violations) != 1 || violations[0].Field != "label" {
		t.Fatalf("expected one label violation, got %v", violations)
	}
}

func TestValidateEdgeRowsRequiresEndpoints(t *testing.T) {
	sch := buildTestSchema()
	rows := []map[string]any{
		{"from": int64(1), "to": int64(2), "properties": map[string]any{"since": "2020-01-01"}},
		{"from": int64(3)},
	}
	violations := sch.ValidateEdgeRows("WORKS_AT", rows)
	if len(violations) != 1 || violations[0].Field != "to" {
		t.Fatalf("expected one missing-'to' violation, got %v", violations)
	}
}

func TestValidateEdgeRowsChecksNestedProperties(t *testing.T) {
	sch := buildTestSchema()
	rows := []map[string]any{
		{"from": int64(1), "to": int64(2), "properties": map[string]any{"since": "not-a-date"}},
	}
	violations := sch.ValidateEdgeRows("WORKS_AT", rows)
	if len(violations) != 1 || violations[0].Field != "since" {
		t.Fatalf("expected one violation on nested property 'since', got %v", violations)
	}
}

func TestValidateEdgeRowsRejectsUndeclaredEndpointLabel(t *testing.T) {
	sch := New("1")
	sch.AddEdge(EdgeSpec{Label: "KNOWS", From: "Person", To: "Person"})
	violations := sch.ValidateEdgeRows("KNOWS", nil)
	if len(violations) != 2 {
		t.Fatalf("expected two endpoint-label violations (from and to), got %v", violations)
	}
}

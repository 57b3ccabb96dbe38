package executor

import "testing"

func TestDecodeAgtypeValueScalar(t *testing.T) {
	v, err := decodeAgtypeValue(`42`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != float64(42) {
		t.Fatalf("expected 42, got %v (%T)", v, v)
	}
}

func TestDecodeAgtypeValueWithTypeSuffix(t *testing.T) {
	v, err := decodeAgtypeValue(`42::numeric`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != float64(42) {
		t.Fatalf("expected 42 with suffix stripped, got %v", v)
	}
}

func TestDecodeAgtypeValueNull(t *testing.T) {
	v, err := decodeAgtypeValue(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil, got %v", v)
	}
}

func TestDecodeAgtypeValueVertex(t *testing.T) {
	raw := `{"id": 1, "label": "Person", "properties": {"name": "Alice"}}::vertex`
	v, err := decodeAgtypeValue(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vertex, ok := v.(*Vertex)
	if !ok {
		t.Fatalf("expected *Vertex, got %T", v)
	}
	if vertex.ID != 1 || vertex.Label != "Person" || vertex.Properties["name"] != "Alice" {
		t.Fatalf("unexpected vertex decode: %+v", vertex)
	}
}

func TestDecodeAgtypeValueEdge(t *testing.T) {
	raw := `{"id": 5, "label": "KNOWS", "start_id": 1, "end_id": 2, "properties": {}}::edge`
	v, err := decodeAgtypeValue(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	edge, ok := v.(*Edge)
	if !ok {
		t.Fatalf("expected *Edge, got %T", v)
	}
	if edge.StartID != 1 || edge.EndID != 2 {
		t.Fatalf("unexpected edge decode: %+v", edge)
	}
}

func TestDecodeAgtypeValueObjectWithoutSuffix(t *testing.T) {
	v, err := decodeAgtypeValue(`{"a": 1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", v)
	}
	if m["a"] != float64(1) {
		t.Fatalf("unexpected decode: %v", m)
	}
}

func TestSplitTypeSuffixIgnoresColonInsideJSON(t *testing.T) {
	body, suffix := splitTypeSuffix(`{"url": "http://example.com"}`)
	if suffix != "" {
		t.Fatalf("expected no suffix, got %q", suffix)
	}
	if body != `{"url": "http://example.com"}` {
		t.Fatalf("body should be unchanged, got %q", body)
	}
}

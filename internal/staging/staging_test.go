package staging

import "testing"

func TestParamRefQualifiesWithSchema(t *testing.T) {
	got := ParamRef("ag_catalog", "user_id")
	want := "ag_catalog.get_param('user_id')"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestParamRefWithoutSchema(t *testing.T) {
	got := ParamRef("", "user_id")
	want := "get_param('user_id')"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVerticesRefAndEdgesRef(t *testing.T) {
	if got := VerticesRef("ag_catalog", "Person"); got != "ag_catalog.get_vertices('Person')" {
		t.Fatalf("unexpected vertices ref: %q", got)
	}
	if got := EdgesRef("ag_catalog", "KNOWS"); got != "ag_catalog.get_edges('KNOWS')" {
		t.Fatalf("unexpected edges ref: %q", got)
	}
}

func TestQuoteCypherStringEscapesQuoteAndBackslash(t *testing.T) {
	if got := quoteCypherString(`o'brien\`); got != `'o\'brien\\'` {
		t.Fatalf("expected escaped literal, got %q", got)
	}
}

func TestQualified(t *testing.T) {
	if got := qualified("", "age_params"); got != "age_params" {
		t.Fatalf("expected unqualified table name, got %q", got)
	}
	if got := qualified("ag_catalog", "age_params"); got != "ag_catalog.age_params" {
		t.Fatalf("expected qualified table name, got %q", got)
	}
}

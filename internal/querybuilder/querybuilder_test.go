package querybuilder

import (
	"strings"
	"testing"
)

func TestBuildAssemblesClauses(t *testing.T) {
	b := New("my_graph")
	b.Match("(p:Person)").Where("p.active = true").Return("p")

	built, err := b.Build("ag_catalog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if built.GraphName != "my_graph" {
		t.Fatalf("expected graph name preserved, got %q", built.GraphName)
	}
	want := "MATCH (p:Person) WHERE p.active = true RETURN p"
	if built.Cypher != want {
		t.Fatalf("expected %q, got %q", want, built.Cypher)
	}
}

func TestWithParameterStagesAndResolves(t *testing.T) {
	b := New("g")
	ref := b.WithParameter("Alice")
	b.Match("(p:Person)").Where("p.name = " + ref).Return("p")

	built, err := b.Build("ag_catalog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(built.Cypher, "ag_catalog.get_param('qb_1')") {
		t.Fatalf("expected resolved get_param reference, got %q", built.Cypher)
	}
	if built.StagedParams["qb_1"] != "Alice" {
		t.Fatalf("expected staged value for qb_1, got %v", built.StagedParams)
	}
}

func TestBuildRequiresMatchAndReturn(t *testing.T) {
	if _, err := New("g").Build(""); err == nil {
		t.Fatal("expected error when no MATCH or RETURN clause is set")
	}
	if _, err := New("g").Match("(n)").Build(""); err == nil {
		t.Fatal("expected error when no RETURN clause is set")
	}
}

func TestQualifiedGetParamWithoutSchema(t *testing.T) {
	if got := qualifiedGetParam("", "k"); got != "get_param('k')" {
		t.Fatalf("unexpected unqualified reference: %q", got)
	}
}

func TestQuoteCypherStringEscapesQuoteAndBackslash(t *testing.T) {
	if got := quoteCypherString(`o'brien\`); got != `'o\'brien\\'` {
		t.Fatalf("expected escaped literal, got %q", got)
	}
}

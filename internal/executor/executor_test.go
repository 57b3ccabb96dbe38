package executor

import (
	"strings"
	"testing"
)

func TestBuildCypherStatementEmbedsLiteralBody(t *testing.T) {
	stmt := buildCypherStatement("ag_catalog", "MATCH (n) RETURN n", "my_graph", []Column{{Name: "n"}})
	if !strings.Contains(stmt, "cypher('my_graph', $cypher$MATCH (n) RETURN n$cypher$)") {
		t.Fatalf("expected literal cypher body in statement, got %q", stmt)
	}
	if !strings.Contains(stmt, "AS (n agtype)") {
		t.Fatalf("expected default agtype column type, got %q", stmt)
	}
}

func TestBuildCypherStatementMultipleColumns(t *testing.T) {
	stmt := buildCypherStatement("", "MATCH (n) RETURN n, n.name", "g", []Column{
		{Name: "n"},
		{Name: "name", Type: "text"},
	})
	if !strings.Contains(stmt, "AS (n agtype, name text)") {
		t.Fatalf("expected both columns typed correctly, got %q", stmt)
	}
}

func TestQuoteCypherLiteralEscapesQuotes(t *testing.T) {
	if got := quoteCypherLiteral(`o'brien`); got != `'o''brien'` {
		t.Fatalf("expected escaped literal, got %q", got)
	}
}

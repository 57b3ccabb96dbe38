// Package querybuilder is the fluent query builder: it
// assembles a Cypher body from structured clauses, routing every
// dynamic value through the parameter-staging protocol instead of
// string interpolation, and hands back the (cypher, stagedParams,
// graphName) triple the executor needs. It never parses or plans
// Cypher itself; it only assembles the literal text.
package querybuilder

import (
	"fmt"
	"strings"
)

// Builder accumulates MATCH/WHERE/RETURN clauses for one Cypher
// statement. Zero value is not usable; use New.
type Builder struct {
	graphName string
	matches   []string
	wheres    []string
	returns   []string
	params    map[string]any
	seq       int
}

// New starts a Builder targeting graphName.
func New(graphName string) *Builder {
	return &Builder{graphName: graphName, params: make(map[string]any)}
}

// Match appends a raw MATCH pattern, e.g. "(p:Person)".
func (b *Builder) Match(pattern string) *Builder {
	b.matches = append(b.matches, pattern)
	return b
}

// WithParameter stages value under a builder-generated key and returns
// a {{param:key}} placeholder for embedding into a caller-built WHERE
// clause. Build replaces the placeholder with the get_param(...) call
// that reads the value, qualified by tempSchema, since the builder
// itself does not know the pool's configured schema until build time.
func (b *Builder) WithParameter(value any) string {
	b.seq++
	key := fmt.Sprintf("qb_%d", b.seq)
	b.params[key] = value
	return "{{param:" + key + "}}"
}

// Where appends a WHERE predicate. Use WithParameter for any value
// inside it instead of formatting the value directly into expr.
func (b *Builder) Where(expr string) *Builder {
	b.wheres = append(b.wheres, expr)
	return b
}

// Return appends a RETURN projection item.
func (b *Builder) Return(expr string) *Builder {
	b.returns = append(b.returns, expr)
	return b
}

// Built is the assembled statement: the literal Cypher body, the
// parameter map the caller must stage before running it, and the
// target graph name.
type Built struct {
	Cypher       string
	StagedParams map[string]any
	GraphName    string
}

// Build resolves every {{param:key}} placeholder into a literal
// get_param(...) reference against tempSchema and returns the finished
// triple. It never returns stagedParams values embedded in Cypher;
// only the staging-function call sites are.
func (b *Builder) Build(tempSchema string) (Built, error) {
	if len(b.matches) == 0 {
		return Built{}, fmt.Errorf("querybuilder: at least one MATCH clause is required")
	}
	if len(b.returns) == 0 {
		return Built{}, fmt.Errorf("querybuilder: at least one RETURN item is required")
	}

	var sb strings.Builder
	sb.WriteString("MATCH ")
	sb.WriteString(strings.Join(b.matches, ", "))
	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.wheres, " AND "))
	}
	sb.WriteString(" RETURN ")
	sb.WriteString(strings.Join(b.returns, ", "))

	cypher := resolveParamRefs(sb.String(), tempSchema)
	return Built{Cypher: cypher, StagedParams: b.params, GraphName: b.graphName}, nil
}

func resolveParamRefs(cypher, tempSchema string) string {
	for {
		start := strings.Index(cypher, "{{param:")
		if start == -1 {
			return cypher
		}
		end := strings.Index(cypher[start:], "}}")
		if end == -1 {
			return cypher
		}
		end += start
		key := cypher[start+len("{{param:") : end]
		ref := qualifiedGetParam(tempSchema, key)
		cypher = cypher[:start] + ref + cypher[end+2:]
	}
}

func qualifiedGetParam(tempSchema, key string) string {
	ref := quoteCypherString(key)
	if tempSchema == "" {
		return fmt.Sprintf("get_param(%s)", ref)
	}
	return fmt.Sprintf("%s.get_param(%s)", tempSchema, ref)
}

// quoteCypherString quotes s as a Cypher string literal. key is always a
// builder-generated "qb_N" sequence token, never caller-controlled text,
// but the escaping is applied unconditionally rather than trusted away.
func quoteCypherString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

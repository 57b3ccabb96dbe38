// Package staging implements the parameter-staging protocol: a
// per-connection table plus a handful of agtype-returning functions that
// let a literal Cypher body read caller-supplied values without string
// interpolation. The graph engine only accepts Cypher as a literal string
// inside cypher($graph$, $cypher$ ... $cypher$), so bind parameters never
// reach it directly; staging is the only safe path for dynamic values.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const paramsTable = "age_params"

func qualified(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

const createParamsTableFmt = `
CREATE TABLE IF NOT EXISTS %s (
	key   text PRIMARY KEY,
	value jsonb NOT NULL
)`

// p_key arrives as agtype because it is evaluated inside a Cypher function
// call, not a SQL one; the cast to text and the surrounding-quote strip
// undo the quoting the graph engine adds when it serializes a string
// scalar to agtype's text form.
const getParamFmt = `
CREATE OR REPLACE FUNCTION %s(p_key agtype)
RETURNS agtype
LANGUAGE sql STABLE AS $fn$
	SELECT (value::text)::agtype FROM %s WHERE key = trim(both '"' from p_key::text);
$fn$`

const getParamArrayFmt = `
CREATE OR REPLACE FUNCTION %s(p_key agtype)
RETURNS SETOF agtype
LANGUAGE sql STABLE AS $fn$
	SELECT (elem)::text::agtype
	FROM %s, jsonb_array_elements(value) AS elem
	WHERE key = trim(both '"' from p_key::text);
$fn$`

// get_vertices and get_edges take a bare label, not a pre-qualified key;
// the "vertex:"/"edge:" prefix is a storage-side convention the caller
// never needs to know about.
const getVerticesFmt = `
CREATE OR REPLACE FUNCTION %s(p_label agtype)
RETURNS SETOF agtype
LANGUAGE sql STABLE AS $fn$
	SELECT (elem)::text::agtype
	FROM %s, jsonb_array_elements(value) AS elem
	WHERE key = 'vertex:' || trim(both '"' from p_label::text);
$fn$`

const getEdgesFmt = `
CREATE OR REPLACE FUNCTION %s(p_label agtype)
RETURNS SETOF agtype
LANGUAGE sql STABLE AS $fn$
	SELECT (elem)::text::agtype
	FROM %s, jsonb_array_elements(value) AS elem
	WHERE key = 'edge:' || trim(both '"' from p_label::text);
$fn$`

// Bootstrap creates the staging table and the four staging functions in
// tempSchema (the empty string means the connection's default search_path
// schema). It is idempotent: every statement is CREATE ... IF NOT EXISTS
// or CREATE OR REPLACE, so running it once per new connection is cheap
// and safe to repeat.
func Bootstrap(ctx context.Context, ex Execer, tempSchema string) error {
	table := qualified(tempSchema, paramsTable)
	stmts := []string{
		fmt.Sprintf(createParamsTableFmt, table),
		fmt.Sprintf(getParamFmt, qualified(tempSchema, "get_param"), table),
		fmt.Sprintf(getParamArrayFmt, qualified(tempSchema, "get_param_array"), table),
		fmt.Sprintf(getVerticesFmt, qualified(tempSchema, "get_vertices"), table),
		fmt.Sprintf(getEdgesFmt, qualified(tempSchema, "get_edges"), table),
	}
	for _, stmt := range stmts {
		if _, err := ex.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("staging: bootstrap: %w", err)
		}
	}
	return nil
}

// SetParam upserts one key/value pair into the staging table. value is
// marshalled to JSON; it is never concatenated into any SQL text.
func SetParam(ctx context.Context, ex Execer, tempSchema, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("staging: marshal param %q: %w", key, err)
	}
	stmt := fmt.Sprintf(`
INSERT INTO %s (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, qualified(tempSchema, paramsTable))
	if _, err := ex.Exec(ctx, stmt, key, encoded); err != nil {
		return fmt.Errorf("staging: set param %q: %w", key, err)
	}
	return nil
}

// ClearParams truncates the staging table. It runs unconditionally on
// connection release so that one caller's staged values can never leak
// into the next caller's Cypher body on a reused connection.
func ClearParams(ctx context.Context, ex Execer, tempSchema string) error {
	stmt := fmt.Sprintf("TRUNCATE %s", qualified(tempSchema, paramsTable))
	if _, err := ex.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("staging: clear params: %w", err)
	}
	return nil
}

// ParamRef returns the literal Cypher fragment that reads a staged scalar,
// e.g. get_param('user_id'). The key is embedded as a Cypher string
// literal, never as a dollar-quoted fragment, because the Cypher body
// itself is already wrapped in a dollar-quoted string one layer up and a
// second, identically-delimited dollar quote would terminate it early.
func ParamRef(tempSchema, key string) string {
	return fmt.Sprintf("%s(%s)", qualified(tempSchema, "get_param"), quoteCypherString(key))
}

// ParamArrayRef is ParamRef for get_param_array.
func ParamArrayRef(tempSchema, key string) string {
	return fmt.Sprintf("%s(%s)", qualified(tempSchema, "get_param_array"), quoteCypherString(key))
}

// VerticesRef returns the literal Cypher fragment that unwinds staged
// vertex rows for a bare label, e.g. UNWIND get_vertices('Person') AS row.
// get_vertices derives the "vertex:"-prefixed staging key itself.
func VerticesRef(tempSchema, label string) string {
	return fmt.Sprintf("%s(%s)", qualified(tempSchema, "get_vertices"), quoteCypherString(label))
}

// EdgesRef is VerticesRef for get_edges.
func EdgesRef(tempSchema, label string) string {
	return fmt.Sprintf("%s(%s)", qualified(tempSchema, "get_edges"), quoteCypherString(label))
}

// quoteCypherString quotes s as a Cypher string literal, backslash-escaping
// embedded quotes and backslashes the way openCypher string literals do.
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

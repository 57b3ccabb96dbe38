// Package executor runs relational and Cypher statements against a
// borrowed connection or transaction, staging any
// dynamic values through internal/staging before building the literal
// Cypher body the graph engine requires.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ageclient/ageclient/internal/connpool"
	"github.com/ageclient/ageclient/internal/staging"
	"github.com/ageclient/ageclient/internal/xerrors"
)

// Querier is satisfied by *connpool.Connection (bare statements) and
// *txn.Transaction (statements inside a transaction), so every function
// here works identically on either.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Column names one output column of a cypher(...) AS (...) projection.
// Type defaults to "agtype", the type every Cypher RETURN clause
// ultimately produces.
type Column struct {
	Name string
	Type string
}

func (c Column) sqlType() string {
	if c.Type == "" {
		return "agtype"
	}
	return c.Type
}

// Result is the normalized outcome of a statement: decoded rows plus
// the command tag fields callers commonly need (rows affected, command
// name).
type Result struct {
	Columns  []string
	Rows     []map[string]any
	RowCount int64
	Command  string
}

// ExecuteSQL runs an ordinary parameterized relational statement. It
// never touches the staging table; bind parameters work as normal here
// because this path does not cross into the graph engine.
func ExecuteSQL(ctx context.Context, q Querier, sql string, args ...any) (*Result, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStatement, "execute sql", err)
	}
	defer rows.Close()

	result, err := collect(rows)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindStatement, "read sql result", err)
	}
	tag := rows.CommandTag()
	result.RowCount = tag.RowsAffected()
	result.Command = tag.String()
	return result, nil
}

// ExecuteCypher stages every entry of params under its key, then runs
// cypher as a literal Cypher body against graphName, decoding each
// declared output column as agtype. params is typically empty when the
// caller (e.g. the batch loader) has already embedded a literal,
// schema-validated label into cypher and only needs the staged rows it
// set up separately.
func ExecuteCypher(ctx context.Context, q Querier, tempSchema, cypher string, params map[string]any, graphName string, columns []Column) (*Result, error) {
	for key, value := range params {
		if err := stageOn(ctx, q, tempSchema, key, value); err != nil {
			return nil, err
		}
	}

	stmt := buildCypherStatement(tempSchema, cypher, graphName, columns)
	rows, err := q.Query(ctx, stmt)
	if err != nil {
		return nil, xerrors.Wrap(classifyCypherError(err), "execute cypher", err)
	}
	defer rows.Close()

	result, err := collectAgtype(rows, columns)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindCypher, "read cypher result", err)
	}
	tag := rows.CommandTag()
	result.RowCount = tag.RowsAffected()
	result.Command = tag.String()
	return result, nil
}

// stageOn stages through whichever concrete type q is; staging.SetParam
// needs only Exec, so q is adapted to staging.Execer.
func stageOn(ctx context.Context, q Querier, tempSchema, key string, value any) error {
	if err := staging.SetParam(ctx, execerAdapter{q}, tempSchema, key, value); err != nil {
		return xerrors.Wrap(xerrors.KindParamStaging, fmt.Sprintf("stage parameter %q", key), err)
	}
	return nil
}

type execerAdapter struct{ q Querier }

func (a execerAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return a.q.Exec(ctx, sql, args...)
}

func buildCypherStatement(tempSchema, cypher, graphName string, columns []Column) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM cypher(")
	// Tagged, not bare $$...$$: a staged parameter reference inside cypher
	// is now a plain 'quoted' Cypher string literal, but tagging the outer
	// quote still rules out any future fragment that itself contains $$.
	fmt.Fprintf(&b, "%s, $cypher$%s$cypher$", quoteCypherLiteral(graphName), cypher)
	b.WriteString(") AS (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", col.Name, col.sqlType())
	}
	b.WriteString(")")
	_ = tempSchema // schema qualification of cypher() itself is handled by search_path
	return b.String()
}

// quoteCypherLiteral quotes graphName as a SQL string literal for the
// cypher() call's first argument, doubling embedded single quotes.
// graphName is not otherwise validated on its way here.
func quoteCypherLiteral(graphName string) string {
	return "'" + strings.ReplaceAll(graphName, "'", "''") + "'"
}

func classifyCypherError(err error) xerrors.Kind {
	kind := connpool.ClassifyError(err)
	if kind == xerrors.KindStatement {
		return xerrors.KindCypher
	}
	return kind
}

func collect(rows pgx.Rows) (*Result, error) {
	fieldNames := make([]string, len(rows.FieldDescriptions()))
	for i, fd := range rows.FieldDescriptions() {
		fieldNames[i] = string(fd.Name)
	}
	result := &Result{Columns: fieldNames}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(fieldNames))
		for i, name := range fieldNames {
			record[name] = values[i]
		}
		result.Rows = append(result.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectAgtype(rows pgx.Rows, columns []Column) (*Result, error) {
	fieldNames := make([]string, len(columns))
	for i, c := range columns {
		fieldNames[i] = c.Name
	}
	result := &Result{Columns: fieldNames}
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(fieldNames))
		for i, name := range fieldNames {
			decoded, err := decodeAgtypeValue(raw[i])
			if err != nil {
				return nil, err
			}
			record[name] = decoded
		}
		result.Rows = append(result.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

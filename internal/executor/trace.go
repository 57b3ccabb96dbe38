package executor

import (
	"context"
	"encoding/json"

	"github.com/ageclient/ageclient/internal/xerrors"
)

// PlanNode mirrors one node of Postgres's EXPLAIN (FORMAT JSON) output,
// decoded here against the SELECT ... FROM cypher(...) statement a
// Cypher body compiles down to.
type PlanNode struct {
	NodeType      string     `json:"Node Type"`
	RelationName  string     `json:"Relation Name,omitempty"`
	StartupCost   float64    `json:"Startup Cost"`
	TotalCost     float64    `json:"Total Cost"`
	PlanRows      int64      `json:"Plan Rows"`
	ActualRows    int64      `json:"Actual Rows,omitempty"`
	ActualLoops   int64      `json:"Actual Loops,omitempty"`
	SharedHitBlks int64      `json:"Shared Hit Blocks,omitempty"`
	SharedReadBlk int64      `json:"Shared Read Blocks,omitempty"`
	Plans         []PlanNode `json:"Plans,omitempty"`
}

// TraceResult is the decoded EXPLAIN output for one Cypher statement.
type TraceResult struct {
	Plan          PlanNode `json:"Plan"`
	PlanningTime  float64  `json:"Planning Time"`
	ExecutionTime float64  `json:"Execution Time"`
}

// TraceCypher wraps cypher in EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON)
// and runs it on q (a bare connection or a transaction), against the
// compiled Cypher statement rather than the user-supplied body directly.
func TraceCypher(ctx context.Context, q Querier, tempSchema, cypher string, params map[string]any, graphName string, columns []Column) (*TraceResult, error) {
	for key, value := range params {
		if err := stageOn(ctx, q, tempSchema, key, value); err != nil {
			return nil, err
		}
	}

	stmt := "EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) " + buildCypherStatement(tempSchema, cypher, graphName, columns)
	row := q.QueryRow(ctx, stmt)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, xerrors.Wrap(xerrors.KindCypher, "trace cypher", err)
	}

	var plans []TraceResult
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, xerrors.Wrap(xerrors.KindCypher, "decode explain output", err)
	}
	if len(plans) == 0 {
		return nil, xerrors.New(xerrors.KindCypher, "explain returned no plan", nil, nil)
	}
	return &plans[0], nil
}

package loader

import (
	"testing"

	"github.com/ageclient/ageclient/internal/executor"
	"github.com/ageclient/ageclient/internal/xerrors"
)

func TestSortedKeysIsDeterministic(t *testing.T) {
	m := map[string][]map[string]any{
		"Zeta":  nil,
		"Alpha": nil,
		"Mu":    nil,
	}
	got := sortedKeys(m)
	want := []string{"Alpha", "Mu", "Zeta"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCountRows(t *testing.T) {
	m := map[string][]map[string]any{
		"A": {{"x": 1}, {"x": 2}},
		"B": {{"x": 3}},
	}
	if got := countRows(m); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}
}

func TestReportProgressMapsVertexPhaseTo0To50(t *testing.T) {
	var got ProgressEvent
	reportProgress(func(e ProgressEvent) { got = e }, "run-1", PhaseVertices, "Person", 5, 10)
	if got.PercentComplete != 25 {
		t.Fatalf("expected 25%% (half of the 0-50 vertex range), got %v", got.PercentComplete)
	}
}

func TestReportProgressMapsEdgePhaseTo50To100(t *testing.T) {
	var got ProgressEvent
	reportProgress(func(e ProgressEvent) { got = e }, "run-1", PhaseEdges, "KNOWS", 10, 10)
	if got.PercentComplete != 100 {
		t.Fatalf("expected 100%% at full completion, got %v", got.PercentComplete)
	}
}

func TestReportProgressNoOpWithoutCallback(t *testing.T) {
	// must not panic when Progress is nil
	reportProgress(nil, "run-1", PhaseVertices, "Person", 1, 1)
}

func TestExtractAffectedReadsFloatColumn(t *testing.T) {
	result := &executor.Result{Rows: []map[string]any{{"affected": float64(3)}}}
	got, err := extractAffected(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestExtractAffectedNoRows(t *testing.T) {
	if _, err := extractAffected(&executor.Result{}); err == nil {
		t.Fatal("expected error when no rows are returned")
	}
}

func TestExtractAffectedMissingColumn(t *testing.T) {
	result := &executor.Result{Rows: []map[string]any{{}}}
	if _, err := extractAffected(result); err == nil {
		t.Fatal("expected error when affected column is missing")
	}
}

func TestCheckBatchCreatedPasses(t *testing.T) {
	result := &executor.Result{Rows: []map[string]any{{"affected": float64(5)}}}
	if err := checkBatchCreated(result, 5, PhaseVertices, "Person"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckBatchCreatedEdgeShortfallIsReferentialIntegrity(t *testing.T) {
	result := &executor.Result{Rows: []map[string]any{{"affected": float64(2)}}}
	err := checkBatchCreated(result, 5, PhaseEdges, "KNOWS")
	if err == nil {
		t.Fatal("expected error on shortfall")
	}
	xerr, ok := err.(*xerrors.Error)
	if !ok {
		t.Fatalf("expected *xerrors.Error, got %T", err)
	}
	if xerr.Kind != xerrors.KindReferentialIntegrity {
		t.Fatalf("expected REFERENTIAL_INTEGRITY, got %s", xerr.Kind)
	}
}

func TestCheckBatchCreatedVertexShortfallIsCypherError(t *testing.T) {
	result := &executor.Result{Rows: []map[string]any{{"affected": float64(2)}}}
	err := checkBatchCreated(result, 5, PhaseVertices, "Person")
	if err == nil {
		t.Fatal("expected error on shortfall")
	}
	xerr, ok := err.(*xerrors.Error)
	if !ok {
		t.Fatalf("expected *xerrors.Error, got %T", err)
	}
	if xerr.Kind != xerrors.KindCypher {
		t.Fatalf("expected CYPHER, got %s", xerr.Kind)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	if opts.BatchSize != 1000 {
		t.Fatalf("expected default batch size 1000, got %d", opts.BatchSize)
	}
	if opts.MaxValidationWorkers != 4 {
		t.Fatalf("expected default validation worker count 4, got %d", opts.MaxValidationWorkers)
	}
}

//go:build integration

package ageclient_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ageclient/ageclient"
	"github.com/ageclient/ageclient/internal/executor"
	"github.com/ageclient/ageclient/internal/loader"
	"github.com/ageclient/ageclient/internal/schema"
)

// setupAGEContainer starts a Postgres container built with the AGE
// extension preloaded, the same image family edgeflare-pgo's AGEHandler
// bootstraps against with CREATE EXTENSION/LOAD.
func setupAGEContainer(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := postgrescontainer.Run(ctx,
		"apache/age:release_PG16_1.5.0",
		postgrescontainer.WithDatabase("testdb"),
		postgrescontainer.WithUsername("testuser"),
		postgrescontainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestClientLoadAndQueryGraphData(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	dsn := setupAGEContainer(ctx, t)

	client, err := ageclient.Connect(ctx, ageclient.NewConfig(dsn, ageclient.WithDefaultGraphName("it_graph")))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.CreateGraph(ctx, "it_graph"))
	defer client.DropGraph(ctx, "it_graph")

	sch := schema.New("1")
	sch.AddVertex(schema.VertexSpec{
		Label: "Person",
		Properties: []schema.PropertyDef{
			{Name: "name", Type: schema.TypeString, Required: true},
		},
	})

	data := loader.Data{
		Vertices: map[string][]map[string]any{
			"Person": {
				{"name": "Alice"},
				{"name": "Bob"},
			},
		},
	}

	var events []loader.ProgressEvent
	err = client.LoadGraphData(ctx, sch, data, loader.Options{
		GraphName: "it_graph",
		BatchSize: 1,
		Progress:  func(e loader.ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	require.Equal(t, float64(50), events[len(events)-1].PercentComplete)

	result, err := client.ExecuteCypherOn(ctx, "it_graph",
		"MATCH (p:Person) RETURN p.name", nil,
		[]executor.Column{{Name: "name"}})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
}

func TestClientRejectsSchemaViolations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	dsn := setupAGEContainer(ctx, t)

	client, err := ageclient.Connect(ctx, ageclient.NewConfig(dsn))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.CreateGraph(ctx, "default_graph"))
	defer client.DropGraph(ctx, "default_graph")

	sch := schema.New("1")
	sch.AddVertex(schema.VertexSpec{
		Label: "Person",
		Properties: []schema.PropertyDef{
			{Name: "name", Type: schema.TypeString, Required: true},
		},
	})

	data := loader.Data{
		Vertices: map[string][]map[string]any{
			"Person": {{}},
		},
	}

	err = client.LoadGraphData(ctx, sch, data, loader.Options{})
	require.Error(t, err)

	var clientErr *ageclient.Error
	require.ErrorAs(t, err, &clientErr)
	require.Equal(t, ageclient.KindValidation, clientErr.Kind)
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ageclient/ageclient/internal/loader"
	"github.com/ageclient/ageclient/internal/schema"
)

var (
	loadGraphName  string
	loadSchemaPath string
	loadDataPath   string
	loadBatchSize  int
	loadStreaming  bool
)

// schemaFile is the on-disk shape of a --schema file: a flat list of
// vertex and edge specs, mirroring schema.VertexSpec/schema.EdgeSpec.
type schemaFile struct {
	Version  string                  `json:"version"`
	Vertices []schemaFileVertexSpec  `json:"vertices"`
	Edges    []schemaFileEdgeSpec    `json:"edges"`
}

type schemaFilePropertyDef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type schemaFileVertexSpec struct {
	Label      string                  `json:"label"`
	Properties []schemaFilePropertyDef `json:"properties"`
}

type schemaFileEdgeSpec struct {
	Label      string                  `json:"label"`
	From       string                  `json:"from"`
	To         string                  `json:"to"`
	Properties []schemaFilePropertyDef `json:"properties"`
}

// dataFile is the on-disk shape of a --data file: rows grouped by
// vertex/edge label.
type dataFile struct {
	Vertices map[string][]map[string]any `json:"vertices"`
	Edges    map[string][]map[string]any `json:"edges"`
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load vertices and edges from schema and data files",
	Run: func(cmd *cobra.Command, args []string) {
		if loadSchemaPath == "" || loadDataPath == "" {
			fmt.Println("Error: --schema and --data are both required")
			os.Exit(1)
		}

		sch, err := readSchemaFile(loadSchemaPath)
		if err != nil {
			fmt.Printf("Error reading schema: %v\n", err)
			os.Exit(1)
		}
		data, err := readDataFile(loadDataPath)
		if err != nil {
			fmt.Printf("Error reading data: %v\n", err)
			os.Exit(1)
		}

		client := mustConnect()
		defer client.Close()

		opts := loader.Options{
			GraphName:             loadGraphName,
			BatchSize:             loadBatchSize,
			StreamingTransactions: loadStreaming,
			Progress: func(event loader.ProgressEvent) {
				fmt.Printf("[%s] %s %s: %d/%d (%.1f%%)\n", event.RunID, event.Phase, event.Label, event.RowsProcessed, event.RowsTotal, event.PercentComplete)
			},
		}
		if err := client.LoadGraphData(context.Background(), sch, data, opts); err != nil {
			fmt.Printf("Error loading graph data: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("load complete")
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadGraphName, "graph", "default_graph", "target graph name")
	loadCmd.Flags().StringVar(&loadSchemaPath, "schema", "", "path to a schema JSON file")
	loadCmd.Flags().StringVar(&loadDataPath, "data", "", "path to a data JSON file")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 1000, "rows per UNWIND batch")
	loadCmd.Flags().BoolVar(&loadStreaming, "streaming", false, "commit per label instead of the whole load atomically")
	rootCmd.AddCommand(loadCmd)
}

func readSchemaFile(path string) (*schema.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf schemaFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, err
	}

	sch := schema.New(sf.Version)
	for _, v := range sf.Vertices {
		sch.AddVertex(schema.VertexSpec{Label: v.Label, Properties: toPropertyDefs(v.Properties)})
	}
	for _, e := range sf.Edges {
		sch.AddEdge(schema.EdgeSpec{Label: e.Label, From: e.From, To: e.To, Properties: toPropertyDefs(e.Properties)})
	}
	return sch, nil
}

func toPropertyDefs(defs []schemaFilePropertyDef) []schema.PropertyDef {
	out := make([]schema.PropertyDef, 0, len(defs))
	for _, d := range defs {
		out = append(out, schema.PropertyDef{Name: d.Name, Type: schema.PropertyType(d.Type), Required: d.Required})
	}
	return out
}

func readDataFile(path string) (loader.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return loader.Data{}, err
	}
	var df dataFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return loader.Data{}, err
	}
	return loader.Data{Vertices: df.Vertices, Edges: df.Edges}, nil
}

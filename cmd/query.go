package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ageclient/ageclient/internal/executor"
)

var (
	queryGraphName string
	queryColumns   []string
)

var queryCmd = &cobra.Command{
	Use:   "query [cypher]",
	Short: "Run a literal Cypher statement and print the decoded rows",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := mustConnect()
		defer client.Close()

		columns := make([]executor.Column, 0, len(queryColumns))
		for _, name := range queryColumns {
			columns = append(columns, executor.Column{Name: name})
		}
		if len(columns) == 0 {
			columns = []executor.Column{{Name: "result"}}
		}

		result, err := client.ExecuteCypherOn(context.Background(), queryGraphName, args[0], nil, columns)
		if err != nil {
			fmt.Printf("Error running cypher: %v\n", err)
			os.Exit(1)
		}
		for _, row := range result.Rows {
			fmt.Println(row)
		}
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryGraphName, "graph", "default_graph", "graph to query")
	queryCmd.Flags().StringSliceVar(&queryColumns, "columns", nil, "output column names (default: result)")
	rootCmd.AddCommand(queryCmd)
}

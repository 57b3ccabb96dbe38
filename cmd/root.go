package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dsn string

var rootCmd = &cobra.Command{
	Use:   "ageclient",
	Short: "A schema-aware client CLI for a Cypher-speaking graph engine",
	Long:  `ageclient connects to a relational database extended with a Cypher-speaking graph engine, loads graph data in bulk, and runs Cypher statements through the staged-parameter protocol.`,
}

// Execute executes the root command.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("AGECLIENT_DSN"), "database connection string (default: $AGECLIENT_DSN)")
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ageclient/ageclient"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Create or drop a graph catalog entry",
}

var graphCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new graph",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := mustConnect()
		defer client.Close()

		if err := client.CreateGraph(context.Background(), args[0]); err != nil {
			fmt.Printf("Error creating graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("graph %q created\n", args[0])
	},
}

var graphDropCmd = &cobra.Command{
	Use:   "drop [name]",
	Short: "Drop a graph and everything in it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := mustConnect()
		defer client.Close()

		if err := client.DropGraph(context.Background(), args[0]); err != nil {
			fmt.Printf("Error dropping graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("graph %q dropped\n", args[0])
	},
}

func init() {
	graphCmd.AddCommand(graphCreateCmd, graphDropCmd)
	rootCmd.AddCommand(graphCmd)
}

func mustConnect() *ageclient.Client {
	if dsn == "" {
		fmt.Println("Error: --dsn flag (or $AGECLIENT_DSN) is required")
		os.Exit(1)
	}
	client, err := ageclient.Connect(context.Background(), ageclient.NewConfig(dsn))
	if err != nil {
		fmt.Printf("Error connecting: %v\n", err)
		os.Exit(1)
	}
	return client
}

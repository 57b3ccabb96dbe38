package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Inspect connection pool state",
}

var poolStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print current connection pool occupancy",
	Run: func(cmd *cobra.Command, args []string) {
		client := mustConnect()
		defer client.Close()

		stats := client.PoolStats()
		fmt.Printf("total:   %d\n", stats.Total)
		fmt.Printf("idle:    %d\n", stats.Idle)
		fmt.Printf("active:  %d\n", stats.Active)
		fmt.Printf("max:     %d\n", stats.Max)
		fmt.Printf("waiting: %d\n", stats.Waiting)
	},
}

func init() {
	poolCmd.AddCommand(poolStatsCmd)
	rootCmd.AddCommand(poolCmd)
}

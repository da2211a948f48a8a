package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd groups cache maintenance commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the payload cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit/miss counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		stats := rt.service.CacheStats()
		fmt.Printf("hits: %d\nmisses: %d\nmemory entries: %d\nevictions: %d\n",
			stats.Hits, stats.Misses, stats.MemoryEntries, stats.Evictions)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired persisted cache records",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		purged, err := rt.service.PurgeCache()
		if err != nil {
			return err
		}
		fmt.Printf("purged %d expired records\n", purged)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	RootCmd.AddCommand(cacheCmd)
}

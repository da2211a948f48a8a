package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent operations from the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		recs, err := rt.service.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No recorded operations (is the database configured?)")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("%s  %-8s  %-30s  %s (%d ok, %d failed, %d conflicts)\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), r.Kind, r.Resource,
				r.Status, r.Succeeded, r.Failed, r.Conflicts)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows to show")
	RootCmd.AddCommand(historyCmd)
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"permsync/core/merge"
	"permsync/feature/profile"

	"github.com/spf13/cobra"
)

var (
	mergeSource   string
	mergeStrategy string
	mergeApply    bool
)

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge [resource-type] [name]",
	Short: "Merge the local and remote version of a resource",
	Long: `Detects element-level conflicts between the local copy and the remote
version and resolves them under the chosen strategy. By default the
merge is a plan: conflicts and the outcome are printed but nothing is
written. Pass --apply to update the local file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		opts := profile.MergeOptions{
			Strategy: mergeStrategy,
			Apply:    mergeApply,
		}
		if mergeStrategy == "interactive" {
			opts.Prompter = &stdinPrompter{in: bufio.NewReader(os.Stdin)}
		}

		result, err := rt.service.Merge(cmd.Context(), args[0], args[1], mergeSource, opts)
		if err != nil {
			return err
		}

		m := result.Merged
		fmt.Printf("%s/%s: %d conflicts (strategy %s)\n", args[0], args[1], len(m.Conflicts), m.Strategy)
		for _, c := range m.Conflicts {
			fmt.Printf("  %s\n    local:  %s\n    remote: %s\n", c.Element, c.Local, c.Remote)
		}
		switch {
		case !m.HasChanges:
			fmt.Println("Nothing to merge; local copy already matches.")
		case result.Written:
			fmt.Println("Merged payload written.")
		default:
			fmt.Println("Plan only; re-run with --apply to write the result.")
		}
		return nil
	},
}

// stdinPrompter resolves conflicts interactively on the terminal.
type stdinPrompter struct {
	in *bufio.Reader
}

func (p *stdinPrompter) Resolve(c merge.Conflict) (string, error) {
	fmt.Printf("Conflict on %s\n  [l] local:  %s\n  [r] remote: %s\n", c.Element, c.Local, c.Remote)
	for {
		fmt.Print("Keep which value? [l/r]: ")
		line, err := p.in.ReadString('\n')
		if err != nil {
			return "", err
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "l":
			return c.Local, nil
		case "r":
			return c.Remote, nil
		}
	}
}

func init() {
	mergeCmd.Flags().StringVar(&mergeSource, "source", "", "source alias to merge against (required)")
	mergeCmd.Flags().StringVar(&mergeStrategy, "strategy", "abort-on-conflict", "merge strategy")
	mergeCmd.Flags().BoolVar(&mergeApply, "apply", false, "write the merged payload to the local tree")
	_ = mergeCmd.MarkFlagRequired("source")
	RootCmd.AddCommand(mergeCmd)
}

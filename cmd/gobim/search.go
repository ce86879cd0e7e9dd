package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchSelect bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query> [file...]",
	Short: "Find elements by name, category, tag or property value",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 50, "maximum number of matches")
	searchCmd.Flags().BoolVar(&searchSelect, "select", false, "select the first match and print its properties")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, args[1:])
	if err != nil {
		return err
	}
	defer sess.Close()

	matches, err := sess.Index.Search(ctx, args[0], searchLimit)
	if err != nil {
		return err
	}

	heading(fmt.Sprintf("Search: %s", args[0]))
	if len(matches) == 0 {
		fmt.Println("No matches")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("  %-16s #%-6d %-16s %s\n", m.ModelID, m.LocalID, m.Category, m.Name)
	}
	fmt.Printf("\n%d match(es)\n", len(matches))

	if searchSelect {
		fmt.Println()
		state, err := sess.Viewer.Selection.Select(ctx, matches[0].ModelID, matches[0].LocalID)
		if err != nil {
			return err
		}
		printSelection(state)
	}
	return nil
}

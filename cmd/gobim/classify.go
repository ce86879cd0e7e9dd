package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showIDs bool

var classifyCmd = &cobra.Command{
	Use:   "classify [file...]",
	Short: "List the elements of each model grouped by category",
	Long:  "Load the given files, or the models of the project config, and print the classification tree.",
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&showIDs, "ids", false, "print the element ids of each category")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context(), args)
	if err != nil {
		return err
	}
	defer sess.Close()

	heading("Classification")
	for _, rec := range sess.Viewer.Registry.Models() {
		fmt.Printf("%s: %d elements\n", rec.DisplayName, rec.ElementCount)
	}
	fmt.Println()

	for _, group := range sess.Viewer.Classification.Groups() {
		section(group.Label)
		for _, item := range group.Items {
			fmt.Printf("  %-24s %5d\n", item.Category, len(item.ElementIDs))
			if showIDs {
				fmt.Printf("    %v\n", item.ElementIDs)
			}
		}
		fmt.Println()
	}
	return nil
}

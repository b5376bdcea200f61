package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Print the unique sentences archived for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		doc, err := application.Detector().GetStoredDocument(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get document %s: %w", args[0], err)
		}

		if asJSON {
			return printJSON(doc)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("%s %s\n", cyan(doc.DocumentID), gray(doc.Handle))

		for i, s := range doc.Sentences {
			fmt.Printf("  %3d %s\n", i, s)
		}

		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "Print the document as JSON")
	rootCmd.AddCommand(showCmd)
}

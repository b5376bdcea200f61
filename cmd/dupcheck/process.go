package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lueurxax/dupcheck/internal/api"
)

var errDuplicatesFound = errors.New("one or more documents were rejected")

var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Check documents against the corpus",
	Long: `Process each file as one document. Lines are sentences; blank lines are
ignored. The document ID defaults to the file name without its extension.
Accepted documents are added to the corpus.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		asJSON, _ := cmd.Flags().GetBool("json")
		strict, _ := cmd.Flags().GetBool("strict")

		if id != "" && len(args) > 1 {
			return errors.New("--id can only be used with a single file")
		}

		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		detector := application.Detector()
		rejected := 0

		for _, path := range args {
			text, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			docID := id
			if docID == "" {
				docID = documentIDFromPath(path)
			}

			res, procErr := detector.ProcessDocument(cmd.Context(), docID, string(text))

			if asJSON {
				if err := printJSON(api.NewResultResponse(res, procErr)); err != nil {
					return err
				}
			} else {
				printResult(api.NewResultResponse(res, procErr))
			}

			if procErr != nil {
				return fmt.Errorf("process %s: %w", path, procErr)
			}

			if !res.Accepted {
				rejected++
			}
		}

		if strict && rejected > 0 {
			return errDuplicatesFound
		}

		return nil
	},
}

func init() {
	processCmd.Flags().String("id", "", "Document ID (single file only)")
	processCmd.Flags().Bool("json", false, "Print results as JSON")
	processCmd.Flags().Bool("strict", false, "Exit non-zero when any document is rejected")
	rootCmd.AddCommand(processCmd)
}

func documentIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return nil
}

func printResult(res api.ResultResponse) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	verdict := green("ACCEPTED")
	if !res.Accepted {
		verdict = red("REJECTED")
		if res.Reason != "" {
			verdict += gray(" (" + res.Reason + ")")
		}
	}

	fmt.Printf("%s %s\n", verdict, res.DocumentID)
	fmt.Printf("  score %.2f, ratio %.2f, %d sentences, %dms\n",
		res.Score, res.Ratio, len(res.Sentences), res.DurationMillis)

	if res.DocumentMatch != nil {
		fmt.Printf("  %s document %s (similarity %.3f)\n",
			yellow("close to"), res.DocumentMatch.DocumentID, res.DocumentMatch.Similarity)
	}

	for _, s := range res.Sentences {
		switch {
		case s.Exempt:
			fmt.Printf("  %3d %s %s\n", s.Index, gray("exempt   "), s.Text)
		case s.MatchedDocumentID != "":
			fmt.Printf("  %3d %s %s\n", s.Index, yellow(fmt.Sprintf("%-9s", s.Method)), s.Text)
			fmt.Printf("      %s %s %.3f: %s\n", gray("matches"), s.MatchedDocumentID, s.Similarity, gray(s.MatchedSentence))
		}
	}

	if res.Handle != "" {
		fmt.Printf("  handle %s\n", gray(res.Handle))
	}

	if res.Error != "" {
		fmt.Printf("  %s %s\n", red("error:"), res.Error)
	}
}

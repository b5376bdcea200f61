package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lueurxax/dupcheck/internal/api"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show detection statistics",
	Long:  `Display the duplicate ratio histogram, tier agreement and outcome counters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		reset, _ := cmd.Flags().GetBool("reset")

		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		detector := application.Detector()

		if reset {
			if err := detector.ResetStats(cmd.Context()); err != nil {
				return fmt.Errorf("reset stats: %w", err)
			}

			fmt.Println("Statistics reset")

			return nil
		}

		resp := api.NewStatsResponse(detector.Stats())
		if asJSON {
			return printJSON(resp)
		}

		printStats(resp, detector.CorpusSize())

		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "Print statistics as JSON")
	statsCmd.Flags().Bool("reset", false, "Clear all statistics")
	rootCmd.AddCommand(statsCmd)
}

func printStats(s api.StatsResponse, corpusSize int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Detection Statistics ==="))
	fmt.Printf("Corpus sentences: %d\n\n", corpusSize)

	fmt.Printf("%s\n", yellow("Outcomes:"))
	fmt.Printf("  Processed: %d\n", s.Outcomes.Processed)
	fmt.Printf("  Accepted:  %d\n", s.Outcomes.Accepted)
	fmt.Printf("  Rejected:  %d\n", s.Outcomes.Rejected)

	for _, reason := range sortedKeys(s.Outcomes.ByReason) {
		fmt.Printf("    %-14s %d\n", reason, s.Outcomes.ByReason[reason])
	}

	fmt.Printf("\n%s\n", yellow("Tier agreement:"))
	fmt.Printf("  Verifications:      %d\n", s.Tiers.Verifications)
	fmt.Printf("  Both duplicate:     %d\n", s.Tiers.BothDuplicate)
	fmt.Printf("  LSH only:           %d\n", s.Tiers.LSHOnly)
	fmt.Printf("  Embedding only:     %d\n", s.Tiers.EmbeddingOnly)
	fmt.Printf("  Neither:            %d\n", s.Tiers.NeitherDuplicate)
	fmt.Printf("  Skipped:            %d\n", s.Tiers.EmbeddingSkipped)
	fmt.Printf("  Failures:           %d\n", s.Tiers.EmbeddingFailures)
	fmt.Printf("  Document rejects:   %d\n", s.Tiers.DocumentRejections)
	fmt.Printf("  Avg embedding time: %.1fms\n", s.AvgEmbeddingMillis)

	fmt.Printf("\n%s\n", yellow("Duplicate ratios:"))

	if len(s.Ratios) == 0 {
		fmt.Printf("  %s\n", gray("No documents scored"))
	}

	for _, ratio := range sortedKeys(s.Ratios) {
		fmt.Printf("  %s %d\n", ratio, s.Ratios[ratio])
	}

	fmt.Println()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lueurxax/dupcheck/internal/app"
	"github.com/lueurxax/dupcheck/internal/core/lsh"
	"github.com/lueurxax/dupcheck/internal/platform/config"
	"github.com/lueurxax/dupcheck/internal/process/pipeline"
)

// similarities printed in the banding curve.
var curvePoints = []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved detection settings",
	Long: `Print the settings after presets and environment overrides, together with
the probability that a sentence pair of a given Jaccard similarity becomes an
LSH candidate under the configured banding.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printSettings(cfg, app.Settings(cfg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func printSettings(c *config.Config, s pipeline.Settings) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	preset := c.Preset
	if preset == "" {
		preset = gray("none")
	}

	fmt.Printf("\n%s\n\n", cyan("=== Detection Settings ==="))
	fmt.Printf("Preset:  %s %s\n", preset, gray("(available: "+strings.Join(config.Presets(), ", ")+")"))
	fmt.Printf("Storage: %s\n\n", c.Storage.Backend)

	rows := s.NumHashes / s.NumBands

	fmt.Printf("%s\n", yellow("Signatures:"))
	fmt.Printf("  Hash functions: %d\n", s.NumHashes)
	fmt.Printf("  Bands:          %d x %d rows\n", s.NumBands, rows)
	fmt.Printf("  Threshold:      %.2f\n", s.LSHThreshold)

	fmt.Printf("\n%s\n", yellow("Embedding tier:"))

	if s.EmbeddingEnabled {
		fmt.Printf("  Providers:      %s\n", c.Embedding.ProviderOrder)
		fmt.Printf("  Sentence:       %.2f\n", s.SentenceThreshold)
		fmt.Printf("  Document:       %.2f (check %t)\n", s.DocumentThreshold, s.DocumentCheck)
		fmt.Printf("  Early exit:     %.2f\n", s.EarlyExitThreshold)
		fmt.Printf("  Verify all:     %t\n", s.VerifyAll)
		fmt.Printf("  Batch:          %d, %d concurrent, timeout %s\n", s.BatchSize, s.MaxConcurrent, s.EmbeddingTimeout)
	} else {
		fmt.Printf("  %s\n", gray("disabled"))
	}

	fmt.Printf("\n%s\n", yellow("Scoring:"))
	fmt.Printf("  Max ratio:        %.2f\n", s.Policy.MaxRatio)
	fmt.Printf("  Consecutive base: %.2f\n", s.Policy.ConsecutiveBase)

	if s.CitationPattern != nil {
		fmt.Printf("  Citation rule:    %s\n", s.CitationPattern.String())
	}

	fmt.Printf("\n%s\n", yellow("Candidate probability:"))

	for _, sim := range curvePoints {
		p := lsh.CandidateProbability(sim, rows, s.NumBands)
		fmt.Printf("  s=%.1f  %6.3f  %s\n", sim, p, strings.Repeat("#", int(p*40)))
	}

	fmt.Println()
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/funnel_go/internal/analysis"
	"github.com/AngelCh415/funnel_go/internal/funnel"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Ask the LLM for a narrative analysis of a scenario",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := inputsFromFlags(cmd)

		var an analysis.Analyzer = analysis.Static{}
		if cfg.Analyzer == "gemini" && cfg.GeminiAPIKey != "" {
			g, err := analysis.NewGemini(cmd.Context(), analysis.GeminiConfig{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				Timeout: cfg.AnalysisTimeout,
				Retries: cfg.AnalysisRetries,
				RPS:     cfg.AnalysisRPS,
			}, logger)
			if err != nil {
				return err
			}
			an = g
		}

		resp, err := an.Analyze(cmd.Context(), analysis.Request{Inputs: in, Calculations: funnel.Compute(in)})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Analysis)
		return nil
	},
}

func init() {
	addInputFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

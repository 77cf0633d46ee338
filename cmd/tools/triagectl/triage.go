package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/golden-hour/backend/internal/service/triage"
)

func newTriageCmd(load appLoader, timeout *time.Duration) *cobra.Command {
	var (
		original string
		language string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "triage <english text>",
		Short: "Triage an English description and print the summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			a, err := load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			orch := triage.NewOrchestrator(a.triager, a.translator, triage.Config{})
			outcome, err := orch.Submit(ctx, strings.Join(args, " "), original, language)
			if err != nil {
				return fmt.Errorf("triage: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(outcome)
			}
			return writeOutcome(cmd, outcome)
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "原始语言转写文本")
	cmd.Flags().StringVar(&language, "lang", "", "摘要回译语言，默认 kn-IN")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

func writeOutcome(cmd *cobra.Command, outcome triage.Outcome) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source: %s\n", outcome.Source)
	fmt.Fprintf(out, "condition: %s\n", outcome.LikelyCondition)
	if result := outcome.Triage; result != nil {
		fmt.Fprintf(out, "severity: %s (score %d)\n", result.Severity, result.TriageScore)
		if len(result.RequiredCapabilities) > 0 {
			fmt.Fprintf(out, "capabilities: %s\n", strings.Join(result.RequiredCapabilities, ", "))
		}
	}
	for _, entry := range outcome.Symptoms {
		marker := " "
		if entry.Critical {
			marker = "!"
		}
		fmt.Fprintf(out, "%s %s: %s\n", marker, entry.Key, entry.Value)
	}
	fmt.Fprintf(out, "summary: %s\n", outcome.Summary)
	if outcome.TranslatedSummary != "" {
		fmt.Fprintf(out, "summary (%s): %s\n", outcome.TargetLanguage, outcome.TranslatedSummary)
	}
	return nil
}

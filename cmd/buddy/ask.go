package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/onboardbuddy/internal/config"
	"github.com/steveyegge/onboardbuddy/internal/llm"
	"github.com/steveyegge/onboardbuddy/internal/rai"
	"github.com/steveyegge/onboardbuddy/internal/ui"
)

var askCmd = &cobra.Command{
	Use:     "ask <question>",
	Short:   "Ask the assistant a question from the terminal",
	GroupID: GroupBot,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		querier, err := llm.NewQuerier(cmd.Context(), llm.Config{
			Provider:  cfg.LLM.Provider,
			Model:     cfg.LLM.Model,
			APIKey:    cfg.LLM.APIKey,
			MaxTokens: cfg.LLM.MaxTokens,
		})
		if err != nil {
			return err
		}
		service := llm.NewService(querier, llm.Options{
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
		})
		showMetrics, _ := cmd.Flags().GetBool("metrics")
		return printAnswer(cmd, service, strings.Join(args, " "), showMetrics)
	},
}

func init() {
	askCmd.Flags().Bool("metrics", false, "Show responsible-AI metrics for the answer")
	rootCmd.AddCommand(askCmd)
}

// answerer is satisfied by *llm.Service.
type answerer interface {
	Ask(ctx context.Context, question string) llm.Answer
}

func printAnswer(cmd *cobra.Command, service answerer, question string, showMetrics bool) error {
	answer := service.Ask(cmd.Context(), question)
	out := cmd.OutOrStdout()
	if jsonOutput {
		result := map[string]any{
			"question": question,
			"answer":   answer.Text,
			"kind":     answer.Kind,
		}
		if answer.Err != nil {
			result["error"] = answer.Err.Error()
		}
		if showMetrics {
			result["metrics"] = answer.Metrics
		}
		return writeJSON(out, result)
	}

	fmt.Fprint(out, ui.RenderMarkdown(answer.Text))
	if answer.Err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", ui.RenderFail(ui.IconFail), answer.Err)
	}
	if showMetrics && answer.Err == nil {
		m := answer.Metrics
		fmt.Fprintln(out, ui.RenderSeparator())
		fmt.Fprintf(out, "%s %.0f%%\n", ui.KeyStyle.Render("Confidence"), m.Confidence*100)
		fmt.Fprintf(out, "%s %s\n", ui.KeyStyle.Render("Sentiment"), m.Sentiment)
		fmt.Fprintf(out, "%s %d\n", ui.KeyStyle.Render("Words"), m.WordCount)
		fmt.Fprintf(out, "%s %s\n", ui.KeyStyle.Render("Latency"), m.Latency.Round(time.Millisecond))
		if m.Flagged() {
			fmt.Fprintf(out, "%s %s\n", ui.KeyStyle.Render("Flags"), ui.RenderWarn(strings.Join(flags(m), ", ")))
		}
	}
	return nil
}

func flags(m rai.Metrics) []string {
	var out []string
	if m.PIIDetected {
		out = append(out, "personal data")
	}
	if m.BiasDetected {
		out = append(out, "biased phrasing")
	}
	if len(m.SensitiveTerms) > 0 {
		out = append(out, "sensitive: "+strings.Join(m.SensitiveTerms, " "))
	}
	return out
}

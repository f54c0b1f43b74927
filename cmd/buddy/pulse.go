package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/onboardbuddy/internal/pulse"
	"github.com/steveyegge/onboardbuddy/internal/ui"
)

var pulseCmd = &cobra.Command{
	Use:     "pulse",
	Short:   "Well-being pulse questions and insights",
	GroupID: GroupData,
}

var pulseQuestionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List the pulse question bank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := pulse.LoadBank()
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), bank.Questions)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.PulseQuestions(bank))
		return nil
	},
}

var pulseInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize recorded pulse responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		user, _ := cmd.Flags().GetString("user")

		bank, err := pulse.LoadBank()
		if err != nil {
			return err
		}
		store, err := openCLIStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		responses, err := store.ListPulses(cmd.Context(), user)
		if err != nil {
			return err
		}
		in := pulse.Summarize(bank, responses, time.Now(), days)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), in)
		}
		printInsights(cmd, in)
		return nil
	},
}

func init() {
	pulseInsightsCmd.Flags().Int("days", pulse.DefaultWindowDays, "Days of responses to include")
	pulseInsightsCmd.Flags().String("user", "", "Only this user's responses (Slack ID)")
	pulseCmd.AddCommand(pulseQuestionsCmd, pulseInsightsCmd)
	rootCmd.AddCommand(pulseCmd)
}

func printInsights(cmd *cobra.Command, in pulse.Insights) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", ui.RenderTitle(fmt.Sprintf("Team well-being, last %d days", in.Days)))
	fmt.Fprintf(out, "%s %d from %d people\n", ui.KeyStyle.Render("Responses"), in.Responses, in.Respondents)
	if in.Responses == 0 {
		fmt.Fprintln(out, ui.RenderMuted("No pulse responses recorded yet."))
		return
	}
	for _, d := range in.Dimensions {
		if d.Responses == 0 {
			fmt.Fprintf(out, "%s %s\n", ui.KeyStyle.Render(strings.ToUpper(d.Dimension[:1])+d.Dimension[1:]), ui.RenderMuted("no data"))
			continue
		}
		fmt.Fprintf(out, "%s %s %s %s\n",
			ui.KeyStyle.Render(strings.ToUpper(d.Dimension[:1])+d.Dimension[1:]),
			ui.RenderPercent(d.Score),
			d.Sparkline,
			ui.RenderMuted(d.Trend))
	}
}

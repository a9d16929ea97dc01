package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/analytics"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/ui/theme"
)

var reportCmd = &cobra.Command{
	Use:   "report <assessment-id>",
	Short: "Show the aggregate report for an assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		eng := a.engine(nil, nil, nil)
		defer eng.Close()

		rep, err := eng.GenerateAssessmentReport(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("generate report: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		fmt.Fprintln(out, renderReport(rep))
		return nil
	},
}

func init() {
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
}

const barWidth = 20

func renderReport(rep *analytics.Report) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(rep.Title) + "\n")
	b.WriteString(theme.Subtitle.Render(rep.AssessmentID+" · generated "+rep.GeneratedAt.Local().Format("2006-01-02 15:04")) + "\n")

	b.WriteString(theme.Section.Render("Sessions") + "\n")
	b.WriteString(theme.Row("Total", fmt.Sprint(rep.TotalSessions)) + "\n")
	b.WriteString(theme.Row("Completed", fmt.Sprint(rep.CompletedSessions)) + "\n")
	b.WriteString(theme.Row("Abandoned", fmt.Sprint(rep.AbandonedSessions)) + "\n")
	b.WriteString(theme.Row("Active", fmt.Sprint(rep.ActiveSessions)) + "\n")

	if !rep.InsufficientData {
		b.WriteString(theme.Section.Render("Results") + "\n")
		b.WriteString(theme.Row("Average score", fmt.Sprintf("%s %.1f%%", theme.Bar(rep.AverageScore, barWidth), rep.AverageScore)) + "\n")
		b.WriteString(theme.Row("Average accuracy", fmt.Sprintf("%s %.1f%%", theme.Bar(rep.AverageAccuracy, barWidth), rep.AverageAccuracy)) + "\n")
		completion := rep.AverageCompletion.Round(time.Second).String()
		if rep.TimeLimit > 0 {
			completion += " of " + rep.TimeLimit.String()
		}
		b.WriteString(theme.Row("Average completion", completion) + "\n")

		if len(rep.TierAccuracy) > 0 {
			b.WriteString(theme.Section.Render("By difficulty") + "\n")
			for _, t := range question.AllTiers() {
				st, ok := rep.TierAccuracy[t]
				if !ok {
					continue
				}
				b.WriteString(theme.Row(t.String(), fmt.Sprintf("%s %.1f%% (%d/%d)",
					theme.Bar(st.Accuracy, barWidth), st.Accuracy, st.Correct, st.Attempts)) + "\n")
			}
		}

		b.WriteString(theme.Section.Render("Questions") + "\n")
		for i, q := range rep.Questions {
			label := fmt.Sprintf("%2d. %s", i+1, truncate(q.Content, 40))
			if q.Attempts == 0 {
				b.WriteString(theme.Hint.Render(label+"  not attempted") + "\n")
				continue
			}
			acc := fmt.Sprintf("%.0f%%", q.Accuracy)
			if q.Accuracy < 50 {
				acc = theme.Incorrect.Render(acc)
			} else {
				acc = theme.Correct.Render(acc)
			}
			fmt.Fprintf(&b, "%s  %s %s\n", theme.Body.Render(fmt.Sprintf("%-44s", label)), theme.Bar(q.Accuracy, 10), acc)
		}
	}

	b.WriteString(theme.Section.Render("Recommendations") + "\n")
	for _, r := range rep.Recommendations {
		b.WriteString(theme.Warning.Render("• "+r) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

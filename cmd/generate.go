package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/logging"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/questiongen"
	"github.com/abhisek/adaptiq/internal/ui/theme"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Preview generated questions for a subject (no database)",
	Long: `Generate questions from the configured source and print them with their
answers. Nothing is stored; use it to check template packs or LLM output.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("subject", "", "Subject to generate for (required)")
	generateCmd.Flags().String("tier", "beginner", "Difficulty tier: beginner, intermediate, advanced or expert")
	generateCmd.Flags().Int("count", 5, "Number of questions to generate")
	generateCmd.Flags().StringSlice("type", nil, "Limit to question types (e.g. multiple-choice,true-false)")
	generateCmd.Flags().Bool("json", false, "Print the questions as JSON")
	_ = generateCmd.MarkFlagRequired("subject")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	tierVal, _ := cmd.Flags().GetString("tier")
	count, _ := cmd.Flags().GetInt("count")
	typeVals, _ := cmd.Flags().GetStringSlice("type")
	asJSON, _ := cmd.Flags().GetBool("json")

	tier, err := question.ParseTier(tierVal)
	if err != nil {
		return err
	}
	types := make([]question.Type, 0, len(typeVals))
	for _, v := range typeVals {
		qt, err := question.ParseType(v)
		if err != nil {
			return err
		}
		types = append(types, qt)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	src, err := buildSource(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	qs, err := src.Generate(cmd.Context(), questiongen.Request{
		Subject: subject,
		Tier:    tier,
		Count:   count,
		Types:   types,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(qs)
	}
	fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("%d %s questions", len(qs), subject))+"  "+theme.TierBadge(tier))
	fmt.Fprintln(out)
	for i, q := range qs {
		fmt.Fprintln(out, renderQuestion(i+1, len(qs), q))
	}
	return nil
}

// renderQuestion draws one question card with its answer key.
func renderQuestion(n, total int, q question.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n",
		theme.Subtitle.Render(fmt.Sprintf("Question %d/%d · %s · %d pt · ~%s", n, total, q.Type, q.Points, q.EstimatedTime)),
		theme.TierBadge(q.Tier))
	b.WriteString(theme.Body.Render(q.Content))
	b.WriteString("\n")
	for _, o := range q.Options {
		line := fmt.Sprintf("  %s) %s", o.ID, o.Text)
		if o.ID == q.CorrectAnswer {
			line = theme.Correct.Render(line)
		}
		b.WriteString(line + "\n")
	}
	writeAnswer(&b, q)
	for _, h := range q.Hints {
		b.WriteString(theme.Hint.Render("Hint: "+h) + "\n")
	}
	if q.Explanation != "" {
		b.WriteString(theme.Hint.Render("Explanation: "+q.Explanation) + "\n")
	}
	return theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

func writeAnswer(w io.Writer, q question.Question) {
	var answer string
	switch q.Type {
	case question.TypeMultipleChoice:
		return
	case question.TypeEssay:
		answer = fmt.Sprintf("free text, at least %d words", q.MinWords)
	case question.TypeFillBlank:
		answer = strings.Join(q.AcceptableAnswers, " | ")
	default:
		answer = q.CorrectAnswer
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
		theme.Subtitle.Render("Answer: "), theme.Correct.Render(answer)))
}

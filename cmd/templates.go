package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/templates"
	"github.com/abhisek/adaptiq/internal/ui/theme"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect and validate question templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates (built-ins merged with templates.path)",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lib, err := templates.Load(cfg.Templates.Path, templates.DefaultRegistry())
		if err != nil {
			return err
		}

		tpls := lib.All()
		if subject != "" {
			if !lib.HasSubject(subject) {
				return fmt.Errorf("no templates for subject %q (have %s)", subject, strings.Join(lib.Subjects(), ", "))
			}
			tpls = lib.ForSubject(subject)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-26s  %-12s  %-24s  %-16s  %s\n", "ID", "Subject", "Topic", "Type", "Vars")
		fmt.Fprintln(out, strings.Repeat("─", 92))
		for _, t := range tpls {
			fmt.Fprintf(out, "%-26s  %-12s  %-24s  %-16s  %d\n",
				t.ID, t.Subject, truncate(t.Topic, 24), t.Type, len(t.Vars))
		}
		fmt.Fprintf(out, "\n%d templates\n", len(tpls))
		return nil
	},
}

var templatesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a JSON template pack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := templates.LoadFile(args[0], templates.DefaultRegistry())
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Incorrect.Render("✗ invalid"))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d templates for %s\n",
			theme.Correct.Render("✓ valid:"), lib.Len(), strings.Join(lib.Subjects(), ", "))
		return nil
	},
}

func init() {
	templatesListCmd.Flags().String("subject", "", "Only list templates for this subject")

	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesValidateCmd)
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the persisted event log",
}

var errNoEventLog = errors.New("the event log needs the sqlite store driver")

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List logged events in sequence order",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		after, _ := cmd.Flags().GetInt64("after")
		kind, _ := cmd.Flags().GetString("kind")
		sessionID, _ := cmd.Flags().GetString("session")

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.eventLog == nil {
			return errNoEventLog
		}

		list, err := a.eventLog.Query(cmd.Context(), store.EventQuery{
			After:     after,
			Limit:     limit,
			Kind:      events.Kind(kind),
			SessionID: sessionID,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}
		fmt.Fprintf(out, "%-6s  %-19s  %-20s  %-36s  %s\n", "Seq", "Time", "Kind", "Session", "Student")
		fmt.Fprintln(out, strings.Repeat("─", 104))
		for _, e := range list {
			fmt.Fprintf(out, "%-6d  %-19s  %-20s  %-36s  %s\n",
				e.Sequence,
				e.At.Local().Format("2006-01-02 15:04:05"),
				e.Kind,
				e.SessionID,
				e.StudentID,
			)
		}
		return nil
	},
}

var eventsViewCmd = &cobra.Command{
	Use:   "view <sequence>",
	Short: "Show one logged event with its payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var seq int64
		if _, err := fmt.Sscanf(args[0], "%d", &seq); err != nil || seq < 1 {
			return fmt.Errorf("invalid sequence %q", args[0])
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.eventLog == nil {
			return errNoEventLog
		}

		list, err := a.eventLog.Query(cmd.Context(), store.EventQuery{After: seq - 1, Limit: 1})
		if err != nil {
			return err
		}
		if len(list) == 0 || list[0].Sequence != seq {
			return fmt.Errorf("event %d not found", seq)
		}
		e := list[0]

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sequence:    %d\n", e.Sequence)
		fmt.Fprintf(out, "ID:          %s\n", e.ID)
		fmt.Fprintf(out, "Time:        %s\n", e.At.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Kind:        %s\n", e.Kind)
		if e.AssessmentID != "" {
			fmt.Fprintf(out, "Assessment:  %s\n", e.AssessmentID)
		}
		if e.SessionID != "" {
			fmt.Fprintf(out, "Session:     %s\n", e.SessionID)
		}
		if e.StudentID != "" {
			fmt.Fprintf(out, "Student:     %s\n", e.StudentID)
		}

		sep := strings.Repeat("─", 60)
		fmt.Fprintln(out)
		fmt.Fprintln(out, sep)
		fmt.Fprintln(out, "PAYLOAD")
		fmt.Fprintln(out, sep)
		var pretty any
		if err := json.Unmarshal(e.Payload, &pretty); err != nil || pretty == nil {
			fmt.Fprintln(out, "(none)")
			return nil
		}
		raw, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintln(out, string(raw))
		return nil
	},
}

func init() {
	eventsListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsListCmd.Flags().Int64("after", 0, "Only show events after this sequence number")
	eventsListCmd.Flags().StringP("kind", "k", "", "Filter by kind (e.g. session.completed)")
	eventsListCmd.Flags().StringP("session", "s", "", "Filter by session id")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsViewCmd)
}

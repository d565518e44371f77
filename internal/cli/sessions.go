package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSessionsCmd(runtime func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and delete sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions with their first message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := runtime().Chat.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				dimColor.Fprintln(cmd.OutOrStdout(), "No sessions found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tCREATED\tPREVIEW")
			for _, s := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.SessionId, s.Created.Format("2006-01-02 15:04"), truncate(s.Preview, 60))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the transcript and extracted memory of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := runtime().Chat.GetHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			titleColor.Fprintf(out, "Session %s\n", h.SessionId)
			fmt.Fprintf(out, "Symptoms:  %v\n", h.Symptoms)
			fmt.Fprintf(out, "Duration:  %s\n", deref(h.Duration))
			fmt.Fprintf(out, "Triggers:  %s\n", deref(h.Triggers))
			fmt.Fprintf(out, "Documents: %v\n\n", h.Documents)
			for _, m := range h.Messages {
				if m.Role == "user" {
					userColor.Fprintf(out, "You: %s\n", m.Text)
				} else {
					botColor.Fprintf(out, "Bot: %s\n", m.Text)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session with its indexes and uploads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runtime().Chat.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

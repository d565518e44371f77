package cli

import (
	"fmt"
	"sort"
	"strings"

	"ai-medchat-be/pkg/events"

	"github.com/spf13/cobra"
)

func newEventsCmd(runtime func() *Runtime) *cobra.Command {
	var eventType string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail lifecycle events from NATS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime()
			if rt.Subscribe == nil {
				return fmt.Errorf("event stream is not configured")
			}

			out := cmd.OutOrStdout()
			dimColor.Fprintf(out, "Waiting for %s events...\n", eventType)
			return rt.Subscribe(cmd.Context(), eventType, func(e events.Event) {
				titleColor.Fprintf(out, "%s ", e.Timestamp().Format("15:04:05"))
				fmt.Fprintf(out, "%s %s\n", e.EventType(), formatPayload(e.Payload()))
			})
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "*", "event type to follow, e.g. TURN_COMPLETED")
	return cmd
}

func formatPayload(p map[string]interface{}) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		if k != "occurred_at" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, " ")
}

package cli

import (
	"bufio"
	"fmt"
	"strings"

	"ai-medchat-be/internal/dto"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const followupMarker = "\n\nFollow-up:"

func newChatCmd(runtime func() *Runtime) *cobra.Command {
	var sessionId string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive consultation (type 'exit' to quit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime()
			if sessionId == "" {
				sessionId = uuid.NewString()
			}

			out := cmd.OutOrStdout()
			titleColor.Fprintf(out, "Medical assistant | session %s\n", sessionId)
			dimColor.Fprintln(out, "Describe your symptoms. Type 'exit' to quit.")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				userColor.Fprint(out, "\nYou: ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if input == "exit" || input == "quit" {
					break
				}

				res, err := rt.Chat.Ask(cmd.Context(), &dto.AskRequest{SessionId: sessionId, Input: input})
				if err != nil {
					warnColor.Fprintf(out, "error: %v\n", err)
					continue
				}
				printAnswer(cmd, res)
			}

			fmt.Fprintln(out)
			dimColor.Fprintf(out, "Resume later with: medchat chat --session %s\n", sessionId)
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&sessionId, "session", "", "session id to resume (a new one is minted when empty)")
	return cmd
}

func printAnswer(cmd *cobra.Command, res *dto.AskResponse) {
	out := cmd.OutOrStdout()
	answer, followup := res.Response, ""
	if res.FollowupRequired {
		if i := strings.LastIndex(answer, followupMarker); i >= 0 {
			answer, followup = answer[:i], strings.TrimSpace(answer[i:])
		}
	}

	botColor.Fprintf(out, "Bot: %s\n", answer)
	if followup != "" {
		followColor.Fprintln(out, followup)
	}
	if res.Outcome != "ok" {
		dimColor.Fprintf(out, "(%s)\n", res.Outcome)
	}
}

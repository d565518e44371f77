package cli

import (
	"context"
	"io"

	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/internal/service"
	"ai-medchat-be/pkg/events"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Runtime is what the commands operate on; the binary builds it from the container
type Runtime struct {
	Chat      service.IChatService
	Documents service.IDocumentService
	Consumer  service.IConsumerService
	Logger    logger.ILogger

	// UploadPath resolves the upload directory of a session
	UploadPath func(sessionId string) string

	// Subscribe tails lifecycle events until ctx is done
	Subscribe func(ctx context.Context, eventType string, handler func(events.Event)) error

	Close func()
}

// Loader builds the runtime lazily so --help never touches infrastructure
type Loader func(ctx context.Context) (*Runtime, error)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	userColor    = color.New(color.FgGreen)
	botColor     = color.New(color.FgWhite)
	followColor  = color.New(color.FgYellow)
	warnColor    = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
	successColor = color.New(color.FgGreen, color.Bold)
)

func NewRootCmd(load Loader, in io.Reader, out io.Writer) *cobra.Command {
	var rt *Runtime

	root := &cobra.Command{
		Use:   "medchat",
		Short: "Operator CLI for the medical dialogue service",
		Long: `medchat runs the dialogue pipeline in-process against the configured stores.

Examples:
  # Start an interactive consultation
  medchat chat --session demo

  # Index a lab report into a session
  medchat ingest demo ./labs.pdf

  # List or delete sessions
  medchat sessions list
  medchat sessions delete demo`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rt != nil {
				return nil
			}
			r, err := load(cmd.Context())
			if err != nil {
				return err
			}
			rt = r
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt != nil && rt.Close != nil {
				rt.Close()
			}
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	runtime := func() *Runtime { return rt }
	root.AddCommand(
		newChatCmd(runtime),
		newSessionsCmd(runtime),
		newIngestCmd(runtime),
		newEventsCmd(runtime),
	)
	return root
}

package cli

import (
	"os"
	"path/filepath"

	"ai-medchat-be/internal/dto"

	"github.com/spf13/cobra"
)

func newIngestCmd(runtime func() *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <session-id> <file>",
		Short: "Upload a document to a session and index it synchronously",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime()
			sessionId, path := args[0], args[1]

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			up, err := rt.Documents.Upload(cmd.Context(), sessionId, filepath.Base(path), f)
			if err != nil {
				return err
			}

			chunks, err := rt.Consumer.Ingest(cmd.Context(), dto.IngestDocumentMessage{
				JobId:     up.JobId,
				SessionId: up.SessionId,
				Filename:  up.Filename,
				Path:      filepath.Join(rt.UploadPath(up.SessionId), up.Filename),
			})
			if err != nil {
				return err
			}

			successColor.Fprintf(cmd.OutOrStdout(), "Indexed %s into session %s (%d chunks)\n", up.Filename, up.SessionId, chunks)
			return nil
		},
	}
}

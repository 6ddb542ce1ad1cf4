package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fmueller/fwtext/internal/download"
	"github.com/fmueller/fwtext/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSetupCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download the speech model into the model directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := whisper.InspectModelDir(app.cfg.ModelDir)
			if err != nil {
				return err
			}

			if !resolved.NeedsDownload() {
				app.log().Info("model already present", zap.String("path", resolved.Dir))
				fmt.Fprintf(cmd.OutOrStdout(), "Model already present at %s\n", resolved.Dir)
				return nil
			}

			required := make(map[string]bool, len(whisper.ModelFiles))
			for _, file := range whisper.ModelFiles {
				required[file.Name] = file.Required
			}

			baseURL := app.modelBaseURL
			if baseURL == "" {
				baseURL = whisper.DefaultModelBaseURL
			}

			for _, name := range resolved.Missing {
				url := whisper.ModelFileURL(baseURL, name)
				app.log().Info("downloading model file", zap.String("file", name), zap.String("url", url))

				err := download.DownloadFile(cmd.Context(), download.Options{
					URL:            url,
					Destination:    filepath.Join(resolved.Dir, name),
					ChecksumHeader: whisper.ModelChecksumHeader,
					Description:    name,
					Retries:        app.downloadRetries,
					NoProgress:     app.noProgress,
					Logger:         app.log(),
				})
				if err == nil {
					continue
				}
				if required[name] {
					return fmt.Errorf("download model file %s: %w", name, err)
				}
				app.log().Warn("optional model file unavailable; the runtime will fetch it on demand", zap.String("file", name), zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model installed at %s\n", resolved.Dir)
			return nil
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fmueller/fwtext/internal/config"
	"github.com/fmueller/fwtext/internal/logging"
	"github.com/fmueller/fwtext/internal/probe"
	"github.com/fmueller/fwtext/internal/version"
	"github.com/fmueller/fwtext/internal/whisper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	logFile    string

	cfg             config.Config
	modelBaseURL    string
	downloadRetries int

	logger *zap.Logger
	now    func() time.Time
	out    io.Writer

	engine  whisper.Engine
	probeFn func(ctx context.Context, path string) (float64, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{
		modelBaseURL: whisper.DefaultModelBaseURL,
		now:          time.Now,
	})
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fwtext",
		Short:         "Transcribe " + config.DefaultAudioFile + " with a local faster-whisper model into a timestamped text file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs, File: app.logFile})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger

			if app.cfg.ModelDir == "" {
				cfg, err := config.Default()
				if err != nil {
					return err
				}
				app.cfg = cfg
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.out == nil {
				app.out = cmd.OutOrStdout()
			}
			return app.run(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	flags.BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	flags.StringVar(&app.logFile, "log-file", app.logFile, "Also write JSON logs to this file (rotated by size)")

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (a *appState) loadModel(ctx context.Context, req whisper.LoadRequest) (whisper.Model, error) {
	engine := a.engine
	if engine == nil {
		helper, err := whisper.NewHelperEngine(a.log())
		if err != nil {
			return nil, err
		}
		engine = helper
	}
	return engine.Load(ctx, req)
}

func (a *appState) probeDuration(ctx context.Context, path string) (float64, error) {
	if a.probeFn != nil {
		return a.probeFn(ctx, path)
	}
	return probe.NewFFProbe(a.log()).ProbeDuration(ctx, path)
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) clock() func() time.Time {
	if a.now == nil {
		return time.Now
	}
	return a.now
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// segmentCountOnBar reports whether the running segment count should move from stdout into
// the progress bar. That only happens when stdout is a terminal as well, so redirected
// output keeps every count line.
func (a *appState) segmentCountOnBar(progress bool) bool {
	if !progress {
		return false
	}
	f, ok := a.outWriter().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fmueller/fwtext/internal/report"
	"github.com/fmueller/fwtext/internal/transcript"
	"github.com/fmueller/fwtext/internal/whisper"
	"go.uber.org/zap"
)

// run drives one transcription: load model, probe duration, transcribe, write, summarize.
// The transcript file is only opened after the probe succeeded.
func (a *appState) run(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	audioPath := filepath.Clean(cfg.AudioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file not found: %w", err)
	}

	outputPath := transcript.OutputPath(audioPath)
	if outputPath == audioPath {
		return fmt.Errorf("transcript path %s would overwrite the input", outputPath)
	}

	progress := a.progressEnabled()
	rep := report.New(a.outWriter(), a.clock())
	rep.QuietSegments = a.segmentCountOnBar(progress)
	rep.Start()

	rep.LoadStarted(cfg.ModelDir)
	a.log().Debug("loading model", zap.String("model_dir", cfg.ModelDir), zap.String("device", cfg.EngineDevice()), zap.String("compute_type", cfg.ComputeType))
	stopSpinner := startSpinner(progress, "Loading model")
	model, err := a.loadModel(ctx, whisper.LoadRequest{
		ModelDir:    cfg.ModelDir,
		Device:      cfg.EngineDevice(),
		ComputeType: cfg.ComputeType,
	})
	stopSpinner()
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Close(); err != nil {
			a.log().Warn("failed to shut down model", zap.Error(err))
		}
	}()
	rep.LoadFinished()

	rep.TranscribeStarted()
	duration, err := a.probeDuration(ctx, audioPath)
	if err != nil {
		return err
	}
	rep.MediaProbed(audioPath, duration)

	stream, info, err := model.Transcribe(ctx, whisper.TranscribeRequest{
		AudioPath:         audioPath,
		BeamSize:          cfg.BeamSize,
		VADFilter:         cfg.VADFilter,
		WithoutTimestamps: cfg.WithoutTimestamps,
		WordTimestamps:    cfg.WordTimestamps,
		Language:          cfg.Language,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	rep.Detected(info)
	rep.Output(outputPath)

	bar := startSegmentProgress(progress, duration)
	count, err := transcript.WriteFile(outputPath, stream, func(n int, seg whisper.Segment) {
		rep.SegmentWritten(n)
		bar.update(n, seg.End)
	})
	bar.finish()
	if err != nil {
		a.log().Warn("transcription stopped early", zap.Int("segments_written", count), zap.String("output", outputPath))
		return fmt.Errorf("write transcript %s: %w", outputPath, err)
	}

	rep.TranscribeFinished(count)
	rep.Summary()

	timings := rep.Timings()
	a.log().Debug("run finished",
		zap.String("output", outputPath),
		zap.Int("segments", count),
		zap.String("language", info.Language),
		zap.Duration("load", timings.Load),
		zap.Duration("transcribe", timings.Transcribe),
		zap.Duration("total", timings.Total),
	)
	return nil
}

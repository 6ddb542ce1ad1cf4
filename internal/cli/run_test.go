package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fmueller/fwtext/internal/transcript"
	"github.com/fmueller/fwtext/internal/whisper"
	"github.com/stretchr/testify/require"
)

func helloWorldModel() *stubModel {
	return &stubModel{
		info: whisper.Info{Language: "ja", LanguageProbability: 0.987},
		segments: []whisper.Segment{
			{Start: 0.0, End: 1.2, Text: " hello "},
			{Start: 1.2, End: 3.0, Text: "world"},
		},
	}
}

func TestRunWritesTimestampedTranscript(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	model := helloWorldModel()
	app, out := newTestApp(audio, model, 125.0)

	var loadReq whisper.LoadRequest
	app.engine = engineFunc(func(_ context.Context, req whisper.LoadRequest) (whisper.Model, error) {
		loadReq = req
		return model, nil
	})

	require.NoError(t, app.run(context.Background()))

	content, err := os.ReadFile(filepath.Join(filepath.Dir(audio), "b4.txt"))
	require.NoError(t, err)
	require.Equal(t, "[00:00:00.00 - 00:00:01.20] hello\n[00:00:01.20 - 00:00:03.00] world\n", string(content))

	require.Equal(t, whisper.LoadRequest{ModelDir: "/models/faster-whisper-large-v3", Device: "cpu", ComputeType: "int8"}, loadReq)
	require.Equal(t, []whisper.TranscribeRequest{{AudioPath: audio, BeamSize: 5, VADFilter: true}}, model.requests)
	require.True(t, model.closed)

	stdout := out.String()
	require.Contains(t, stdout, "media length 2 min 5 sec")
	require.Contains(t, stdout, "Detected language: ja (prob=0.987)")
	require.Contains(t, stdout, " Segments: 1\n Segments: 2\n")
	require.Contains(t, stdout, "[OUTPUT] Saving: "+filepath.Join(filepath.Dir(audio), "b4.txt"))
	require.Contains(t, stdout, "=== Timing summary ===")
}

func TestRunProbeFailureLeavesNoOutput(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	model := helloWorldModel()
	app, _ := newTestApp(audio, model, 0)
	app.probeFn = func(_ context.Context, _ string) (float64, error) {
		return 0, errors.New("ffprobe b4.mp4 failed: exit status 1")
	}

	err := app.run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ffprobe")
	require.Empty(t, model.requests)
	require.True(t, model.closed)

	_, statErr := os.Stat(transcript.OutputPath(audio))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunProbeInvalidJSONLeavesNoOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stubs require a POSIX shell")
	}

	dir := t.TempDir()
	fake := filepath.Join(dir, "ffprobe")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\necho 'Invalid data found when processing input'\n"), 0o755))
	t.Setenv("FWTEXT_FFPROBE_PATH", fake)

	audio := writeAudioFixture(t, "b4.mp4")
	app, _ := newTestApp(audio, helloWorldModel(), 0)
	app.probeFn = nil

	err := app.run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode ffprobe json")

	_, statErr := os.Stat(transcript.OutputPath(audio))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunOverwritesPreviousTranscript(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	output := transcript.OutputPath(audio)
	require.NoError(t, os.WriteFile(output, []byte(strings.Repeat("[old] stale\n", 10)), 0o644))

	app, _ := newTestApp(audio, helloWorldModel(), 3.0)
	require.NoError(t, app.run(context.Background()))

	app, _ = newTestApp(audio, helloWorldModel(), 3.0)
	require.NoError(t, app.run(context.Background()))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "[00:00:00.00 - 00:00:01.20] hello\n[00:00:01.20 - 00:00:03.00] world\n", string(content))
}

func TestRunMissingAudioSkipsModelLoad(t *testing.T) {
	t.Parallel()

	loaded := false
	app, _ := newTestApp(filepath.Join(t.TempDir(), "b4.mp4"), helloWorldModel(), 1)
	app.engine = engineFunc(func(_ context.Context, _ whisper.LoadRequest) (whisper.Model, error) {
		loaded = true
		return nil, errors.New("unexpected load")
	})

	err := app.run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio file not found")
	require.False(t, loaded)
}

func TestRunRejectsTranscriptOverwritingInput(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "notes.txt")
	app, _ := newTestApp(audio, helloWorldModel(), 1)

	err := app.run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "would overwrite the input")
}

func TestRunLoadFailurePropagates(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	app, out := newTestApp(audio, helloWorldModel(), 1)
	app.engine = engineFunc(func(_ context.Context, _ whisper.LoadRequest) (whisper.Model, error) {
		return nil, whisper.ErrModelNotFound
	})

	err := app.run(context.Background())
	require.ErrorIs(t, err, whisper.ErrModelNotFound)
	require.Contains(t, out.String(), "[LOAD] Loading model")
	require.NotContains(t, out.String(), "[LOAD] Done")
}

func TestRunTranscribeFailurePropagates(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	model := helloWorldModel()
	model.transcribeErr = errors.New("transcribe b4.mp4: RuntimeError: Invalid data")
	app, _ := newTestApp(audio, model, 1)

	err := app.run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid data")
	require.True(t, model.closed)

	_, statErr := os.Stat(transcript.OutputPath(audio))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunFailsOnOutOfOrderSegments(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	model := &stubModel{segments: []whisper.Segment{
		{Start: 4, End: 5, Text: "b"},
		{Start: 1, End: 2, Text: "a"},
	}}
	app, _ := newTestApp(audio, model, 5)

	err := app.run(context.Background())
	require.ErrorIs(t, err, transcript.ErrSegmentOrder)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	app, _ := newTestApp(audio, helloWorldModel(), 1)
	app.cfg.BeamSize = 0

	err := app.run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCommandRunsPipeline(t *testing.T) {
	t.Parallel()

	audio := writeAudioFixture(t, "b4.mp4")
	app, _ := newTestApp(audio, helloWorldModel(), 125)
	app.out = nil

	stdout, _, err := runAppCommand(t, app, []string{"--no-progress"})
	require.NoError(t, err)
	require.Contains(t, stdout, "=== fwtext run started ===")
	require.Contains(t, stdout, "=== Done ===")

	_, err = os.Stat(transcript.OutputPath(audio))
	require.NoError(t, err)
}

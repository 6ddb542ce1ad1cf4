package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fmueller/fwtext/internal/config"
	"github.com/fmueller/fwtext/internal/whisper"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runAppCommand(t, &appState{now: time.Now}, args)
}

func runAppCommand(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetContext(context.Background())
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

type stubModel struct {
	segments      []whisper.Segment
	info          whisper.Info
	transcribeErr error

	requests []whisper.TranscribeRequest
	closed   bool
}

func (m *stubModel) Transcribe(_ context.Context, req whisper.TranscribeRequest) (whisper.SegmentStream, whisper.Info, error) {
	m.requests = append(m.requests, req)
	if m.transcribeErr != nil {
		return nil, whisper.Info{}, m.transcribeErr
	}
	return &segmentList{segments: m.segments}, m.info, nil
}

type engineFunc func(ctx context.Context, req whisper.LoadRequest) (whisper.Model, error)

func (f engineFunc) Load(ctx context.Context, req whisper.LoadRequest) (whisper.Model, error) {
	return f(ctx, req)
}

type segmentList struct {
	segments []whisper.Segment
	pos      int
}

func (s *segmentList) Next() (whisper.Segment, error) {
	if s.pos >= len(s.segments) {
		return whisper.Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}

func (s *segmentList) Close() error {
	return nil
}

func (m *stubModel) Close() error {
	m.closed = true
	return nil
}

func testConfig(audioPath string) config.Config {
	return config.Config{
		ModelDir:    "/models/faster-whisper-large-v3",
		AudioPath:   audioPath,
		Device:      config.DefaultDevice,
		ComputeType: config.DefaultComputeType,
		BeamSize:    config.DefaultBeamSize,
		VADFilter:   true,
	}
}

func writeAudioFixture(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really an mp4"), 0o644))
	return path
}

// newTestApp wires a stub model and a fixed-duration probe around audioPath.
func newTestApp(audioPath string, model *stubModel, duration float64) (*appState, *bytes.Buffer) {
	out := new(bytes.Buffer)
	app := &appState{
		noProgress: true,
		cfg:        testConfig(audioPath),
		out:        out,
		now:        time.Now,
		engine: engineFunc(func(_ context.Context, _ whisper.LoadRequest) (whisper.Model, error) {
			return model, nil
		}),
		probeFn: func(_ context.Context, _ string) (float64, error) {
			return duration, nil
		},
	}
	return app, out
}

// Package report prints the human-readable progress and timing lines of a run to stdout.
// Nothing here influences the transcript itself.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fmueller/fwtext/internal/probe"
	"github.com/fmueller/fwtext/internal/whisper"
)

const clockLayout = "2006-01-02 15:04:05"

type Timings struct {
	Load       time.Duration
	Transcribe time.Duration
	Total      time.Duration
	Segments   int
}

type Reporter struct {
	out io.Writer
	now func() time.Time

	// QuietSegments suppresses the per-segment count line, e.g. while a progress bar
	// already shows it.
	QuietSegments bool

	started           time.Time
	loadStarted       time.Time
	transcribeStarted time.Time
	timings           Timings
}

func New(out io.Writer, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{out: out, now: now}
}

func (r *Reporter) Start() {
	r.started = r.now()
	r.printf("=== fwtext run started ===\n")
	r.printf("Started at: %s\n", r.started.Format(clockLayout))
}

func (r *Reporter) LoadStarted(modelDir string) {
	r.loadStarted = r.now()
	r.printf("\n[LOAD] Loading model: %s\n", modelDir)
}

func (r *Reporter) LoadFinished() {
	r.timings.Load = r.now().Sub(r.loadStarted)
	r.printf("[LOAD] Done (%s)\n", seconds(r.timings.Load))
}

// TranscribeStarted starts the transcription clock. The media probe that follows
// counts towards transcription time.
func (r *Reporter) TranscribeStarted() {
	r.transcribeStarted = r.now()
}

func (r *Reporter) MediaProbed(audioPath string, durationSec float64) {
	r.printf("\n[TRANSCRIBE] Start: file=%s, media length %s\n", audioPath, probe.HumanDuration(durationSec))
}

func (r *Reporter) Detected(info whisper.Info) {
	r.printf("\n=== Transcription result ===\n")
	r.printf("Detected language: %s (prob=%.3f)\n", info.Language, info.LanguageProbability)
}

func (r *Reporter) Output(path string) {
	r.printf("[OUTPUT] Saving: %s\n", path)
}

func (r *Reporter) SegmentWritten(count int) {
	r.timings.Segments = count
	if r.QuietSegments {
		return
	}
	r.printf(" Segments: %d\n", count)
}

func (r *Reporter) TranscribeFinished(count int) {
	r.timings.Segments = count
	r.timings.Transcribe = r.now().Sub(r.transcribeStarted)
	r.printf("[TRANSCRIBE] Done (%s, %d segments)\n", seconds(r.timings.Transcribe), count)
}

func (r *Reporter) Summary() {
	finished := r.now()
	r.timings.Total = finished.Sub(r.started)

	r.printf("\n=== Timing summary ===\n")
	r.printf("Finished at: %s\n", finished.Format(clockLayout))
	r.printf("Model load time:     %s\n", seconds(r.timings.Load))
	r.printf("Transcription time:  %s\n", seconds(r.timings.Transcribe))
	r.printf("Total time:          %s\n", seconds(r.timings.Total))
	r.printf("=== Done ===\n")
}

func (r *Reporter) Timings() Timings {
	return r.timings
}

func (r *Reporter) printf(format string, args ...any) {
	if r.out == nil {
		return
	}
	fmt.Fprintf(r.out, format, args...)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2f s", d.Seconds())
}

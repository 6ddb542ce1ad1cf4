package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fmueller/fwtext/internal/whisper"
)

var ErrSegmentOrder = errors.New("segments out of chronological order")

// Source is the part of a segment stream the writer consumes.
type Source interface {
	Next() (whisper.Segment, error)
}

// WriteFile truncates path and writes one line per segment, in stream order. onSegment,
// when set, runs after each line with the running count. The file is closed on every
// return path; lines written before a failure stay on disk.
func WriteFile(path string, segments Source, onSegment func(count int, seg whisper.Segment)) (count int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create transcript: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close transcript: %w", closeErr)
		}
	}()

	w := bufio.NewWriter(f)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil && err == nil {
			err = fmt.Errorf("flush transcript: %w", flushErr)
		}
	}()

	return Write(w, segments, onSegment)
}

// Write streams segments to w without buffering the sequence.
func Write(w io.Writer, segments Source, onSegment func(count int, seg whisper.Segment)) (int, error) {
	count := 0
	prevStart := 0.0
	for {
		seg, err := segments.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("read segment %d: %w", count+1, err)
		}

		if seg.Start < 0 || seg.Start < prevStart {
			return count, fmt.Errorf("%w: segment %d starts at %.2fs after a segment starting at %.2fs", ErrSegmentOrder, count+1, seg.Start, prevStart)
		}
		prevStart = seg.Start

		if _, err := io.WriteString(w, formatLine(seg.Start, seg.End, seg.Text)); err != nil {
			return count, fmt.Errorf("write segment %d: %w", count+1, err)
		}

		count++
		if onSegment != nil {
			onSegment(count, seg)
		}
	}
}

package whisper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrStreamBusy   = errors.New("a segment stream is already open on this model")
	ErrModelClosed  = errors.New("model is closed")
	errHelperExited = errors.New("faster-whisper helper exited unexpectedly")
)

const maxHelperLine = 4 << 20

type helperRequest struct {
	Audio             string `json:"audio"`
	BeamSize          int    `json:"beam_size"`
	VADFilter         bool   `json:"vad_filter"`
	WithoutTimestamps bool   `json:"without_timestamps"`
	WordTimestamps    bool   `json:"word_timestamps"`
	Language          string `json:"language,omitempty"`
}

type helperMessage struct {
	Type                string  `json:"type"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Duration            float64 `json:"duration"`
	Start               float64 `json:"start"`
	End                 float64 `json:"end"`
	Text                string  `json:"text"`
	Error               string  `json:"error"`
}

// helperModel is the Go side of the helper protocol. It is not safe for concurrent use.
type helperModel struct {
	stdin   io.WriteCloser
	lines   *bufio.Scanner
	logger  *zap.Logger
	wait    func() error
	kill    func()
	cleanup func()

	busy    bool
	broken  bool
	closed  bool
	waitErr error
	once    sync.Once
}

func newHelperModel(stdin io.WriteCloser, stdout io.Reader, logger *zap.Logger) *helperModel {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64<<10), maxHelperLine)
	return &helperModel{stdin: stdin, lines: scanner, logger: logger}
}

func (m *helperModel) awaitReady() error {
	msg, err := m.readMessage()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	switch msg.Type {
	case "ready":
		return nil
	case "error":
		return fmt.Errorf("load model: %s", msg.Error)
	default:
		return fmt.Errorf("load model: unexpected helper message %q", msg.Type)
	}
}

func (m *helperModel) Transcribe(ctx context.Context, req TranscribeRequest) (SegmentStream, Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, Info{}, err
	}
	if m.closed {
		return nil, Info{}, ErrModelClosed
	}
	if m.broken {
		return nil, Info{}, errors.New("model helper is in an unknown state after an abandoned stream")
	}
	if m.busy {
		return nil, Info{}, ErrStreamBusy
	}
	if req.AudioPath == "" {
		return nil, Info{}, errors.New("audio path is required")
	}

	payload, err := json.Marshal(helperRequest{
		Audio:             req.AudioPath,
		BeamSize:          req.BeamSize,
		VADFilter:         req.VADFilter,
		WithoutTimestamps: req.WithoutTimestamps,
		WordTimestamps:    req.WordTimestamps,
		Language:          req.Language,
	})
	if err != nil {
		return nil, Info{}, fmt.Errorf("encode transcribe request: %w", err)
	}
	if _, err := m.stdin.Write(append(payload, '\n')); err != nil {
		m.broken = true
		return nil, Info{}, fmt.Errorf("send transcribe request: %w", m.exitError(err))
	}

	msg, err := m.readMessage()
	if err != nil {
		m.broken = true
		return nil, Info{}, fmt.Errorf("transcribe %s: %w", req.AudioPath, err)
	}
	switch msg.Type {
	case "info":
	case "error":
		m.broken = true
		return nil, Info{}, fmt.Errorf("transcribe %s: %s", req.AudioPath, msg.Error)
	default:
		m.broken = true
		return nil, Info{}, fmt.Errorf("transcribe %s: unexpected helper message %q", req.AudioPath, msg.Type)
	}

	m.busy = true
	info := Info{Language: msg.Language, LanguageProbability: msg.LanguageProbability, Duration: msg.Duration}
	m.logger.Debug("transcription started", zap.String("language", info.Language), zap.Float64("duration", info.Duration))
	return &helperStream{model: m}, info, nil
}

func (m *helperModel) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	if m.busy || m.broken {
		if m.kill != nil {
			m.kill()
		}
	}
	_ = m.stdin.Close()

	err := m.waitOnce()
	if m.busy || m.broken {
		// exit status of a killed helper carries no information
		err = nil
	}
	if m.cleanup != nil {
		m.cleanup()
	}
	return err
}

// readMessage returns the next protocol message, skipping anything on stdout that is
// not a JSON object (libraries occasionally print there).
func (m *helperModel) readMessage() (helperMessage, error) {
	for m.lines.Scan() {
		line := bytes.TrimSpace(m.lines.Bytes())
		if len(line) == 0 || line[0] != '{' {
			if len(line) > 0 {
				m.logger.Debug("helper output", zap.ByteString("line", line))
			}
			continue
		}

		var msg helperMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return helperMessage{}, fmt.Errorf("decode helper message: %w", err)
		}
		return msg, nil
	}

	if err := m.lines.Err(); err != nil {
		return helperMessage{}, fmt.Errorf("read helper output: %w", err)
	}
	return helperMessage{}, m.exitError(errHelperExited)
}

func (m *helperModel) exitError(fallback error) error {
	if err := m.waitOnce(); err != nil {
		return err
	}
	return fallback
}

func (m *helperModel) waitOnce() error {
	m.once.Do(func() {
		if m.wait != nil {
			m.waitErr = m.wait()
		}
	})
	return m.waitErr
}

type helperStream struct {
	model *helperModel
	done  bool
	err   error
}

func (s *helperStream) Next() (Segment, error) {
	if s.err != nil {
		return Segment{}, s.err
	}
	if s.done {
		return Segment{}, io.EOF
	}

	msg, err := s.model.readMessage()
	if err != nil {
		s.fail(err)
		return Segment{}, s.err
	}

	switch msg.Type {
	case "segment":
		return Segment{Start: msg.Start, End: msg.End, Text: msg.Text}, nil
	case "done":
		s.done = true
		s.model.busy = false
		return Segment{}, io.EOF
	case "error":
		s.fail(fmt.Errorf("decode segments: %s", msg.Error))
		return Segment{}, s.err
	default:
		s.fail(fmt.Errorf("unexpected helper message %q", msg.Type))
		return Segment{}, s.err
	}
}

// Close abandons the stream. A stream closed before io.EOF leaves the helper mid-request,
// so the owning model can only be closed afterwards.
func (s *helperStream) Close() error {
	if !s.done && s.err == nil {
		s.model.broken = true
		s.err = errors.New("segment stream closed")
	}
	return nil
}

func (s *helperStream) fail(err error) {
	s.err = err
	s.model.broken = true
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

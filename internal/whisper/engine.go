package whisper

import "context"

// Segment is one contiguous span of recognised speech, in seconds from the start of the media.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

type Info struct {
	Language            string
	LanguageProbability float64
	Duration            float64
}

type LoadRequest struct {
	ModelDir    string
	Device      string
	ComputeType string
}

type TranscribeRequest struct {
	AudioPath         string
	BeamSize          int
	VADFilter         bool
	WithoutTimestamps bool
	WordTimestamps    bool
	Language          string
}

// SegmentStream yields segments in the order the model decodes them. Next returns io.EOF
// once the stream is exhausted; a stream cannot be rewound.
type SegmentStream interface {
	Next() (Segment, error)
	Close() error
}

type Model interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (SegmentStream, Info, error)
	Close() error
}

type Engine interface {
	Load(ctx context.Context, req LoadRequest) (Model, error)
}

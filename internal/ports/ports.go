package ports

import (
	"context"
	"time"

	"github.com/forPelevin/srtgen/internal/types"
)

// Transcoder re-encodes arbitrary media to mono 16 kHz 16-bit PCM WAV.
type Transcoder interface {
	ToWAV(ctx context.Context, inPath, outWav string) error
	ProbeDuration(ctx context.Context, inPath string) (time.Duration, error)
}

// DecodeOptions are the recognizer settings passed to an Engine.
type DecodeOptions struct {
	Language          string
	Translate         bool
	SuppressBlank     bool
	SuppressNonSpeech bool
	NoSpeechThreshold float32
	LogProbThreshold  float32
	InitialPrompt     string
	TokenTimestamps   bool
	// AlignmentPreset names the DTW preset for token-level timing; empty disables it.
	AlignmentPreset string
	UseGPU          bool
	Threads         int
}

// SegmentSink receives fragments in order as the engine produces them.
type SegmentSink func(seg types.RawSegment) error

// Engine runs speech recognition over 16 kHz mono samples. It blocks until
// the engine finishes and returns every fragment in order; when sink is
// non-nil it is also called once per fragment as soon as it is available.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, sink SegmentSink) ([]types.RawSegment, error)
}

// ProgressSink receives progress events; implementations must be safe for
// use from the reporter goroutine.
type ProgressSink func(ev types.ProgressEvent)

// PrimingPrompt is the initial prompt used when transcribing.
const PrimingPrompt = "Hello, welcome to the transcription. This is a clear English text."

// DefaultDecodeOptions returns the recommended settings. Translation uses
// the lenient end of both thresholds and no prompt.
func DefaultDecodeOptions(translate bool) DecodeOptions {
	opts := DecodeOptions{
		Language:          "auto",
		Translate:         translate,
		SuppressBlank:     true,
		SuppressNonSpeech: true,
		TokenTimestamps:   true,
		UseGPU:            true,
	}
	if translate {
		opts.NoSpeechThreshold = 0.1
		opts.LogProbThreshold = -2.0
		return opts
	}
	opts.NoSpeechThreshold = 0.3
	opts.LogProbThreshold = -1.5
	opts.InitialPrompt = PrimingPrompt
	return opts
}

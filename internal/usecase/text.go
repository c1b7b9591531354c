package usecase

import (
	"context"
	"strings"

	"github.com/forPelevin/srtgen/internal/audio"
	"github.com/forPelevin/srtgen/internal/domain/hallucination"
	"github.com/forPelevin/srtgen/internal/jobs"
	"github.com/forPelevin/srtgen/internal/logging"
	"github.com/forPelevin/srtgen/internal/types"
)

// Transcript runs inference and returns the filtered fragments joined with
// spaces. Nothing is written to disk. An all-artifact transcript is "".
func (u Usecase) Transcript(ctx context.Context, in Input) (string, error) {
	tok := in.Token
	if tok == nil {
		tok = jobs.NewToken()
	}
	logger := u.d.Logger.With("component", "usecase", logging.FieldJobID, in.Job.ID)
	if tok.Cancelled() {
		return "", cancelled(types.StatusLoadingModel)
	}

	stage := types.StatusLoadingAudio
	norm := audio.NewNormalizer(u.d.Transcoder, u.d.TempDir, logger)
	norm.OnStage = func(s types.Status) { stage = s }
	a, err := norm.Normalize(ctx, in.Job.InputPath)
	if err != nil {
		return "", types.WithStage(err, stage)
	}
	if tok.Cancelled() {
		return "", cancelled(types.StatusLoadingAudio)
	}

	segs, err := u.infer(ctx, tok, a.Samples, in.Decode, nil, a.DurationMS, in.Progress)
	if tok.Cancelled() {
		return "", cancelled(types.StatusTranscribing)
	}
	if err != nil {
		return "", types.WithStage(err, types.StatusTranscribing)
	}

	filter := hallucination.New(in.Decode.InitialPrompt)
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if kept, ok := filter.Keep(s); ok {
			parts = append(parts, kept.Text)
		}
	}
	text := filter.Transcript(strings.Join(parts, " "))
	logger.Info("transcript ready", "segments", len(segs), "chars", len(text))
	return text, nil
}

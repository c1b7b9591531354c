package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/forPelevin/srtgen/internal/audio"
	"github.com/forPelevin/srtgen/internal/domain/hallucination"
	"github.com/forPelevin/srtgen/internal/domain/subtitles"
	"github.com/forPelevin/srtgen/internal/jobs"
	"github.com/forPelevin/srtgen/internal/logging"
	"github.com/forPelevin/srtgen/internal/ports"
	"github.com/forPelevin/srtgen/internal/progress"
	"github.com/forPelevin/srtgen/internal/types"
)

// Progress checkpoints outside the reporter's transcribing range.
const (
	pctLoadingModel       = 2
	pctConverting         = 5
	pctLoadingAudio       = 10
	pctPreprocessing      = 15
	pctProcessingSegments = 85
	pctGeneratingSRT      = 90
	pctSavingFile         = 95
	pctComplete           = 100

	// Below this speech ratio the no-speech threshold is relaxed.
	sparseSpeechCoverage = 0.5
	lenientNoSpeech      = 0.6
)

type Deps struct {
	Transcoder ports.Transcoder
	Engine     ports.Engine
	Reporter   *progress.Reporter
	Logger     *slog.Logger
	// TempDir holds transcoded audio; empty means the system temp dir.
	TempDir string
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Reporter == nil {
		d.Reporter = progress.NewReporter()
	}
	return Usecase{d: d}
}

type Input struct {
	Job      types.Job
	Decode   ports.DecodeOptions
	Token    *jobs.Token
	Progress ports.ProgressSink
}

type Result struct {
	OutputPath string
	Entries    int
	// Segments counts engine fragments before filtering.
	Segments   int
	DurationMS int64
}

// Run executes one job: normalize, infer, filter, compose and write. The
// output file is left untouched when the job is cancelled before its first
// write. In stream mode a later failure leaves the blocks written so far.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	tok := in.Token
	if tok == nil {
		tok = jobs.NewToken()
	}
	logger := u.d.Logger.With("component", "usecase", logging.FieldJobID, in.Job.ID)
	ev := &emitter{sink: in.Progress}

	if tok.Cancelled() {
		return Result{}, cancelled(types.StatusLoadingModel)
	}
	ctx, cancel := tok.Context(ctx)
	defer cancel()
	ev.emit(types.StatusLoadingModel, pctLoadingModel)

	stage := types.StatusLoadingModel
	norm := audio.NewNormalizer(u.d.Transcoder, u.d.TempDir, logger)
	norm.OnStage = func(s types.Status) {
		stage = s
		switch s {
		case types.StatusConverting:
			ev.emit(s, pctConverting)
		case types.StatusLoadingAudio:
			ev.emit(s, pctLoadingAudio)
		}
	}
	a, err := norm.Normalize(ctx, in.Job.InputPath)
	if err != nil {
		if tok.Cancelled() {
			return Result{}, cancelled(stage)
		}
		return Result{}, types.WithStage(err, stage)
	}
	totalMS := a.DurationMS
	ev.total = totalMS
	logger.Info("audio loaded", "input", in.Job.InputPath, "duration_ms", totalMS)
	if tok.Cancelled() {
		return Result{}, cancelled(types.StatusLoadingAudio)
	}

	ev.emit(types.StatusPreprocessing, pctPreprocessing)
	opts := in.Decode
	coverage := audio.Coverage(audio.SegmentSpeech(a.Samples), len(a.Samples))
	if coverage < sparseSpeechCoverage && !opts.Translate && opts.NoSpeechThreshold < lenientNoSpeech {
		logger.Debug("sparse speech, relaxing no-speech threshold", "coverage", coverage, "no_speech_threshold", lenientNoSpeech)
		opts.NoSpeechThreshold = lenientNoSpeech
	}

	outPath, err := subtitles.ResolveOutputPath(in.Job.OutputPath, in.Job.Duplicate)
	if err != nil {
		return Result{}, types.WithStage(err, types.StatusPreprocessing)
	}
	if tok.Cancelled() {
		return Result{}, cancelled(types.StatusPreprocessing)
	}

	filter := hallucination.New(opts.InitialPrompt)
	out := &output{path: outPath, format: in.Job.Format, tok: tok}
	defer out.close()

	var sink ports.SegmentSink
	streamed := 0
	if in.Job.WriteMode != types.WriteBuffer {
		sink = func(seg types.RawSegment) error {
			streamed++
			return out.push(filter, seg)
		}
	}

	ev.emit(types.StatusTranscribing, progress.DefaultLow)
	segs, err := u.infer(ctx, tok, a.Samples, opts, sink, totalMS, in.Progress)
	a.Samples = nil // the engine no longer needs the buffer
	if err != nil {
		if tok.Cancelled() {
			return Result{}, cancelled(types.StatusTranscribing)
		}
		return Result{}, types.WithStage(err, types.StatusTranscribing)
	}
	if tok.Cancelled() {
		return Result{}, cancelled(types.StatusTranscribing)
	}
	logger.Info("transcription finished", "segments", len(segs))
	ev.processed = totalMS
	ev.emit(types.StatusProcessingSegments, pctProcessingSegments)

	if in.Job.WriteMode == types.WriteBuffer {
		var kept []types.RawSegment
		for _, s := range segs {
			if c, ok := filter.Keep(s); ok {
				kept = append(kept, c)
			}
		}
		entries := subtitles.Compose(kept)
		ev.emit(types.StatusGeneratingSRT, pctGeneratingSRT)
		if tok.Cancelled() {
			return Result{}, cancelled(types.StatusGeneratingSRT)
		}
		ev.emit(types.StatusSavingFile, pctSavingFile)
		if err := subtitles.WriteFile(outPath, in.Job.Format, entries); err != nil {
			return Result{}, types.WithStage(err, types.StatusSavingFile)
		}
		out.count = len(entries)
	} else {
		if streamed == 0 {
			// Engine did not stream; feed the bulk result through the same path.
			for _, s := range segs {
				if err := out.push(filter, s); err != nil {
					return Result{}, stageOf(err, tok, types.StatusGeneratingSRT)
				}
			}
		}
		ev.emit(types.StatusGeneratingSRT, pctGeneratingSRT)
		if err := out.flush(); err != nil {
			return Result{}, stageOf(err, tok, types.StatusGeneratingSRT)
		}
		ev.emit(types.StatusSavingFile, pctSavingFile)
		if err := out.finish(); err != nil {
			return Result{}, stageOf(err, tok, types.StatusSavingFile)
		}
	}

	ev.emit(types.StatusComplete, pctComplete)
	logger.Info("subtitles written", "output", outPath, "entries", out.count)
	return Result{
		OutputPath: outPath,
		Entries:    out.count,
		Segments:   len(segs),
		DurationMS: totalMS,
	}, nil
}

// infer runs the engine with the progress reporter alongside. The reporter
// has exited by the time infer returns.
func (u Usecase) infer(ctx context.Context, tok *jobs.Token, samples []float32, opts ports.DecodeOptions, sink ports.SegmentSink, totalMS int64, ps ports.ProgressSink) ([]types.RawSegment, error) {
	ctx, cancel := tok.Context(ctx)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		u.d.Reporter.Run(tok, totalMS, ps, done)
	}()

	start := time.Now()
	segs, err := u.d.Engine.Transcribe(ctx, samples, opts, sink)
	close(done)
	wg.Wait()
	u.d.Logger.Debug("engine returned", "component", "usecase", "elapsed", time.Since(start), "error", err)
	return segs, err
}

func cancelled(stage types.Status) error {
	err := types.Errorf(types.KindCancelled, nil, "job cancelled")
	err.Stage = stage
	return err
}

func stageOf(err error, tok *jobs.Token, stage types.Status) error {
	if tok.Cancelled() {
		return cancelled(stage)
	}
	return types.WithStage(err, stage)
}

type emitter struct {
	sink      ports.ProgressSink
	total     int64
	processed int64
}

func (e *emitter) emit(status types.Status, pct int) {
	if e.sink == nil {
		return
	}
	e.sink(types.ProgressEvent{Percentage: pct, ProcessedMS: e.processed, TotalMS: e.total, Status: status})
}

// output feeds filtered fragments through the composer into a lazily opened
// stream writer.
type output struct {
	path     string
	format   types.Format
	tok      *jobs.Token
	composer subtitles.Composer
	w        *subtitles.StreamWriter
	count    int
}

func (o *output) push(filter *hallucination.Filter, seg types.RawSegment) error {
	kept, ok := filter.Keep(seg)
	if !ok {
		return nil
	}
	return o.write(o.composer.Push(kept))
}

func (o *output) flush() error {
	return o.write(o.composer.Flush())
}

func (o *output) write(entries []types.SubtitleEntry) error {
	for _, e := range entries {
		if o.tok.Cancelled() {
			return cancelled(types.StatusTranscribing)
		}
		if err := o.open(); err != nil {
			return err
		}
		if err := o.w.WriteEntry(e); err != nil {
			return err
		}
		o.count = o.w.Count()
	}
	return nil
}

func (o *output) open() error {
	if o.w != nil {
		return nil
	}
	w, err := subtitles.OpenStream(o.path, o.format)
	if err != nil {
		return err
	}
	o.w = w
	return nil
}

// finish makes sure the file exists, even for an empty transcript, and
// closes it.
func (o *output) finish() error {
	if o.tok.Cancelled() {
		return cancelled(types.StatusSavingFile)
	}
	if err := o.open(); err != nil {
		return err
	}
	w := o.w
	o.w = nil
	return w.Close()
}

func (o *output) close() {
	if o.w != nil {
		_ = o.w.Close()
		o.w = nil
	}
}

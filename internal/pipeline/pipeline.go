// Package pipeline wires configuration, adapters and the job lifecycle
// around the transcription usecase.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/srtgen/internal/history"
	"github.com/forPelevin/srtgen/internal/jobs"
	"github.com/forPelevin/srtgen/internal/logging"
	"github.com/forPelevin/srtgen/internal/models"
	"github.com/forPelevin/srtgen/internal/ports"
	"github.com/forPelevin/srtgen/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/srtgen/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/srtgen/internal/types"
	"github.com/forPelevin/srtgen/internal/usecase"
)

type Config struct {
	InputPath string
	// OutputPath defaults to the input path with the format's extension.
	OutputPath string
	Format     types.Format

	ModelID   string
	ModelsDir string
	Translate bool
	UseGPU    bool
	Threads   int
	Duplicate types.DuplicateMode
	WriteMode types.WriteMode

	// TempDir holds intermediate audio; empty means the system temp dir.
	TempDir string

	FFmpegPath  string
	FFprobePath string
	WhisperBin  string

	Logger   *slog.Logger
	Progress ports.ProgressSink
	// History, when set, receives one entry per finished job.
	History *history.Store

	// Transcoder and Engine replace the ffmpeg and whisper.cpp adapters.
	Transcoder ports.Transcoder
	Engine     ports.Engine
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return errors.New("input is empty")
	}
	if strings.TrimSpace(c.ModelID) == "" {
		return errors.New("model id is required")
	}
	if c.ModelsDir == "" {
		return errors.New("models dir is required")
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0")
	}
	if _, err := types.ParseDuplicateMode(string(c.Duplicate)); err != nil {
		return err
	}
	if _, err := types.ParseWriteMode(string(c.WriteMode)); err != nil {
		return err
	}
	if _, err := types.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	return nil
}

// DefaultOutputPath replaces the input extension with the subtitle one.
func DefaultOutputPath(input string, f types.Format) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + f.Ext()
}

type Result struct {
	JobID string
	usecase.Result
}

// Run executes one subtitle job under tok and records its outcome.
func Run(ctx context.Context, cfg Config, tok *jobs.Token) (Result, error) {
	job, uc, decode, logger, err := prepare(cfg)
	if err != nil {
		return Result{JobID: job.ID}, err
	}
	started := time.Now().UTC()
	logger.Info("job started", "input", job.InputPath, "output", job.OutputPath, "model", job.ModelID, "write_mode", job.WriteMode, "format", job.Format)

	var res usecase.Result
	if decode.err == nil {
		res, err = uc.Run(ctx, usecase.Input{Job: job, Decode: decode.opts, Token: tok, Progress: cfg.Progress})
	} else {
		err = decode.err
	}
	record(ctx, cfg.History, logger, job, res, started, err)
	if err != nil {
		logger.Warn("job failed", "kind", types.KindOf(err), "error", err)
		return Result{JobID: job.ID}, err
	}
	logger.Info("job finished", "output", res.OutputPath, "entries", res.Entries, "duration_ms", res.DurationMS)
	return Result{JobID: job.ID, Result: res}, nil
}

// Text runs inference only and returns the cleaned plain transcript.
func Text(ctx context.Context, cfg Config, tok *jobs.Token) (string, error) {
	job, uc, decode, _, err := prepare(cfg)
	if err != nil {
		return "", err
	}
	if decode.err != nil {
		return "", decode.err
	}
	return uc.Transcript(ctx, usecase.Input{Job: job, Decode: decode.opts, Token: tok, Progress: cfg.Progress})
}

type decodeSetup struct {
	opts ports.DecodeOptions
	// err is a model resolution failure; it is reported as a job outcome.
	err error
}

func prepare(cfg Config) (types.Job, usecase.Usecase, decodeSetup, *slog.Logger, error) {
	job := types.Job{ID: uuid.NewString()}
	if err := cfg.Validate(); err != nil {
		return job, usecase.Usecase{}, decodeSetup{}, nil, types.Errorf(types.KindInput, err, "invalid job")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("component", "pipeline", logging.FieldJobID, job.ID)

	absIn, err := filepath.Abs(cfg.InputPath)
	if err != nil {
		return job, usecase.Usecase{}, decodeSetup{}, nil, types.Errorf(types.KindInput, err, "resolve input path")
	}
	format, _ := types.ParseFormat(string(cfg.Format))
	out := cfg.OutputPath
	if out == "" {
		out = DefaultOutputPath(absIn, format)
	}
	job.InputPath = absIn
	job.OutputPath = out
	job.ModelID = cfg.ModelID
	job.Translate = cfg.Translate
	job.UseGPU = cfg.UseGPU
	job.Duplicate = cfg.Duplicate
	job.WriteMode = cfg.WriteMode
	job.Format = format

	decode := decodeSetup{opts: ports.DefaultDecodeOptions(cfg.Translate)}
	decode.opts.UseGPU = cfg.UseGPU
	decode.opts.Threads = cfg.Threads
	decode.opts.AlignmentPreset = models.AlignmentPreset(cfg.ModelID)

	modelPath, err := models.Resolve(cfg.ModelsDir, cfg.ModelID)
	if err != nil {
		decode.err = types.WithStage(err, types.StatusLoadingModel)
	}

	transcoder := cfg.Transcoder
	if transcoder == nil {
		transcoder = ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	}
	engine := cfg.Engine
	if engine == nil {
		engine = whispercpp.New(cfg.WhisperBin, modelPath, cfg.TempDir, logger)
	}
	uc := usecase.New(usecase.Deps{
		Transcoder: transcoder,
		Engine:     engine,
		Logger:     logger,
		TempDir:    cfg.TempDir,
	})
	return job, uc, decode, logger, nil
}

func record(ctx context.Context, store *history.Store, logger *slog.Logger, job types.Job, res usecase.Result, started time.Time, jobErr error) {
	if store == nil {
		return
	}
	entry := history.Entry{
		ID:           job.ID,
		InputPath:    job.InputPath,
		OutputPath:   job.OutputPath,
		ModelID:      job.ModelID,
		Translate:    job.Translate,
		Status:       Outcome(jobErr),
		Message:      types.UserMessage(jobErr),
		SegmentCount: res.Entries,
		DurationMS:   res.DurationMS,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}
	if res.OutputPath != "" {
		entry.OutputPath = res.OutputPath
	}
	// A cancelled caller context must not lose the record.
	if err := store.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("history record failed", "error", err)
	}
}

// Outcome maps a job error to its history status.
func Outcome(err error) history.Outcome {
	switch {
	case err == nil:
		return history.OutcomeDone
	case errors.Is(err, types.ErrCancelled):
		return history.OutcomeCancelled
	default:
		return history.OutcomeFailed
	}
}

// ensure adapters implement ports
var _ ports.Transcoder = (*ffmpeg.Adapter)(nil)
var _ ports.Engine = (*whispercpp.Adapter)(nil)

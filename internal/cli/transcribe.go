package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/srtgen/internal/config"
	"github.com/forPelevin/srtgen/internal/jobs"
	"github.com/forPelevin/srtgen/internal/pipeline"
	"github.com/forPelevin/srtgen/internal/types"
)

type jobFlags struct {
	out       string
	model     string
	translate bool
	gpu       bool
	duplicate string
	writeMode string
	format    string
	json      bool
}

func newTranscribeCommand(cc *commandContext) *cobra.Command {
	var f jobFlags
	cmd := &cobra.Command{
		Use:   "transcribe <input>",
		Short: "Write subtitles for a local audio or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			logger := cc.loggerFor(cfg)
			pc, err := jobConfig(cmd, cfg, f, args[0])
			if err != nil {
				return err
			}
			pc.Logger = logger
			pc.History = cc.openHistory(cmd.Context(), cfg, logger)

			view := newProgressView(cmd.OutOrStdout(), cmd.ErrOrStderr(), f.json, logger)
			pc.Progress = view.sink

			var res pipeline.Result
			mgr := jobs.NewManager(cfg.LockPath(), logger)
			err = runJob(cmd.Context(), mgr, logger, func(tok *jobs.Token) error {
				var runErr error
				res, runErr = pipeline.Run(cmd.Context(), pc, tok)
				return runErr
			})
			view.finish()
			if f.json {
				return writeResult(cmd.OutOrStdout(), res, err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s (%d entries)\n", types.UserMessage(nil), res.OutputPath, res.Entries)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output path (default: input path with the subtitle extension)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Subtitle format: srt|ass (default from config, or the --out extension)")
	addDecodeFlags(cmd, &f)
	cmd.Flags().StringVar(&f.duplicate, "duplicate", "", "Existing output policy: overwrite|rename")
	cmd.Flags().StringVar(&f.writeMode, "write-mode", "", "How the file is written: stream|buffer")
	cmd.Flags().BoolVar(&f.json, "json", false, "Emit progress and the result as newline-delimited JSON")
	return cmd
}

func newTextCommand(cc *commandContext) *cobra.Command {
	var f jobFlags
	cmd := &cobra.Command{
		Use:   "text <input>",
		Short: "Print a plain-text transcription to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			logger := cc.loggerFor(cfg)
			pc, err := jobConfig(cmd, cfg, f, args[0])
			if err != nil {
				return err
			}
			pc.Logger = logger

			var text string
			mgr := jobs.NewManager(cfg.LockPath(), logger)
			err = runJob(cmd.Context(), mgr, logger, func(tok *jobs.Token) error {
				var runErr error
				text, runErr = pipeline.Text(cmd.Context(), pc, tok)
				return runErr
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	addDecodeFlags(cmd, &f)
	return cmd
}

func addDecodeFlags(cmd *cobra.Command, f *jobFlags) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model id (default from config)")
	cmd.Flags().BoolVar(&f.translate, "translate", false, "Translate speech to English")
	cmd.Flags().BoolVar(&f.gpu, "gpu", true, "Use GPU acceleration when the engine supports it")
}

// jobConfig merges config defaults with explicitly set flags.
func jobConfig(cmd *cobra.Command, cfg *config.Config, f jobFlags, input string) (pipeline.Config, error) {
	pc := pipeline.Config{
		InputPath:   input,
		OutputPath:  strings.TrimSpace(f.out),
		ModelID:     cfg.Transcription.Model,
		ModelsDir:   cfg.Paths.ModelsDir,
		Translate:   cfg.Transcription.Translate,
		UseGPU:      cfg.Transcription.UseGPU,
		Threads:     cfg.Transcription.Threads,
		Duplicate:   cfg.DuplicateMode(),
		WriteMode:   cfg.WriteMode(),
		Format:      cfg.Format(),
		TempDir:     cfg.Paths.TempDir,
		FFmpegPath:  cfg.Tools.FFmpeg,
		FFprobePath: cfg.Tools.FFprobe,
		WhisperBin:  cfg.Tools.Whisper,
	}
	flags := cmd.Flags()
	if flags.Changed("model") {
		pc.ModelID = strings.TrimSpace(f.model)
	}
	if flags.Changed("translate") {
		pc.Translate = f.translate
	}
	if flags.Changed("gpu") {
		pc.UseGPU = f.gpu
	}
	if flags.Changed("duplicate") {
		m, err := types.ParseDuplicateMode(f.duplicate)
		if err != nil {
			return pc, err
		}
		pc.Duplicate = m
	}
	if flags.Changed("write-mode") {
		m, err := types.ParseWriteMode(f.writeMode)
		if err != nil {
			return pc, err
		}
		pc.WriteMode = m
	}
	switch {
	case flags.Changed("format"):
		fm, err := types.ParseFormat(f.format)
		if err != nil {
			return pc, err
		}
		pc.Format = fm
	case pc.OutputPath != "":
		if fm, err := types.ParseFormat(strings.TrimPrefix(filepath.Ext(pc.OutputPath), ".")); err == nil && filepath.Ext(pc.OutputPath) != "" {
			pc.Format = fm
		}
	}
	return pc, pc.Validate()
}

type resultLine struct {
	Type       string `json:"type"`
	JobID      string `json:"job_id,omitempty"`
	Status     string `json:"status"`
	Output     string `json:"output,omitempty"`
	Entries    int    `json:"entries"`
	DurationMS int64  `json:"duration_ms"`
	Message    string `json:"message"`
	Kind       string `json:"kind,omitempty"`
}

// writeResult prints the final JSON line and passes the job error through so
// the exit code still reflects it.
func writeResult(w io.Writer, res pipeline.Result, jobErr error) error {
	line := resultLine{
		Type:       "result",
		JobID:      res.JobID,
		Status:     string(pipeline.Outcome(jobErr)),
		Output:     res.OutputPath,
		Entries:    res.Entries,
		DurationMS: res.DurationMS,
		Message:    types.UserMessage(jobErr),
	}
	if jobErr != nil {
		line.Kind = string(types.KindOf(jobErr))
	}
	if err := writeJSONLine(w, line); err != nil {
		return err
	}
	return jobErr
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/srtgen/internal/audio"
	"github.com/forPelevin/srtgen/internal/config"
	"github.com/forPelevin/srtgen/internal/models"
	"github.com/forPelevin/srtgen/internal/ports/adapters/ffmpeg"
)

// check is one doctor row.
type check struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func checkBinary(name, command string) check {
	c := check{Name: name, Target: strings.TrimSpace(command)}
	if c.Target == "" {
		c.Detail = "command not configured"
		return c
	}
	path, err := exec.LookPath(c.Target)
	if err != nil {
		c.Detail = fmt.Sprintf("binary %q not found", c.Target)
		return c
	}
	c.OK = true
	c.Detail = path
	return c
}

func runChecks(ctx context.Context, cfg *config.Config) []check {
	checks := []check{
		checkBinary("ffmpeg", cfg.Tools.FFmpeg),
		checkBinary("ffprobe", cfg.Tools.FFprobe),
		checkBinary("whisper", cfg.Tools.Whisper),
	}
	if checks[0].OK {
		if v, err := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe).Version(ctx); err == nil {
			checks[0].Detail = v
		}
	}

	dir := check{Name: "models dir", Target: cfg.Paths.ModelsDir}
	if info, err := os.Stat(cfg.Paths.ModelsDir); err != nil {
		dir.Detail = err.Error()
	} else if !info.IsDir() {
		dir.Detail = "not a directory"
	} else {
		dir.OK = true
	}
	checks = append(checks, dir)

	model := check{Name: "model", Target: cfg.Transcription.Model}
	if p, err := models.Resolve(cfg.Paths.ModelsDir, cfg.Transcription.Model); err != nil {
		model.Detail = err.Error()
	} else {
		model.OK = true
		model.Detail = p
	}
	return append(checks, model)
}

func newDoctorCommand(cc *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			checks := runChecks(ctx, cfg)

			failed := 0
			rows := make([][]string, 0, len(checks))
			for _, c := range checks {
				if !c.OK {
					failed++
				}
				status := "ok"
				if !c.OK {
					status = "missing"
				}
				rows = append(rows, []string{c.Name, status, c.Target, c.Detail})
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				if err := writeJSON(out, checks); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Target", "Detail"}, rows, nil))
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

type probeResult struct {
	Path       string `json:"path"`
	DurationMS int64  `json:"duration_ms"`
	Canonical  bool   `json:"canonical_wav"`
}

func newProbeCommand(cc *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "probe <input>",
		Short: "Report media duration and whether conversion is needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			input := args[0]
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("stat input: %w", err)
			}
			d, err := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe).ProbeDuration(cmd.Context(), input)
			if err != nil {
				return err
			}
			res := probeResult{Path: input, DurationMS: d.Milliseconds(), Canonical: audio.IsCanonicalWAV(input)}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, res)
			}
			fmt.Fprintf(out, "Duration: %s\n", d.Round(time.Millisecond))
			if res.Canonical {
				fmt.Fprintln(out, "Format: 16 kHz mono PCM WAV, no conversion needed")
			} else {
				fmt.Fprintln(out, "Format: needs conversion with ffmpeg")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

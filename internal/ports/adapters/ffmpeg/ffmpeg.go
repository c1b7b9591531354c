package ffmpeg

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/srtgen/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ToWAV re-encodes any decodable media into 16 kHz mono 16-bit PCM WAV.
func (a *Adapter) ToWAV(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, toWAVArgs(in, outWav)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return toolError(ctx, err, b, "ffmpeg convert %s", in)
	}
	return nil
}

func toWAVArgs(in, outWav string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		outWav,
	}
}

// ProbeDuration reads the container duration reported by ffprobe.
func (a *Adapter) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, toolError(ctx, err, b, "ffprobe duration %s", in)
	}
	return parseDuration(string(b))
}

func parseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, types.Errorf(types.KindTool, err, "parse duration %q", s)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// Version returns the first line of `ffmpeg -version`.
func (a *Adapter) Version(ctx context.Context) (string, error) {
	b, err := exec.CommandContext(ctx, a.ffmpeg, "-version").CombinedOutput()
	if err != nil {
		return "", toolError(ctx, err, b, "ffmpeg -version")
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(b)), "\n")
	return line, nil
}

func toolError(ctx context.Context, err error, output []byte, format string, args ...any) error {
	if ctx.Err() != nil {
		return types.Errorf(types.KindCancelled, ctx.Err(), format, args...)
	}
	je := types.Errorf(types.KindTool, err, format, args...)
	je.Detail = strings.TrimSpace(string(output))
	return je
}

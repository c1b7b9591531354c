package cli

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/forPelevin/srtgen/internal/ports"
	"github.com/forPelevin/srtgen/internal/progress"
	"github.com/forPelevin/srtgen/internal/types"
)

// progressView renders job progress. finish is called once the job returns.
type progressView struct {
	sink   ports.ProgressSink
	finish func()
}

// newProgressView picks newline-delimited JSON on stdout when asked, a bar
// when stderr is a terminal and sampled log lines otherwise.
func newProgressView(stdout, stderr io.Writer, jsonOut bool, logger *slog.Logger) progressView {
	switch {
	case jsonOut:
		return jsonProgress(stdout)
	case isTerminal(stderr):
		return barProgress(stderr)
	default:
		return logProgress(logger)
	}
}

func jsonProgress(w io.Writer) progressView {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return progressView{
		sink: func(ev types.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			_ = enc.Encode(struct {
				Type string `json:"type"`
				types.ProgressEvent
			}{Type: "progress", ProgressEvent: ev})
		},
		finish: func() {},
	}
}

func barProgress(w io.Writer) progressView {
	var mu sync.Mutex
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetDescription(string(types.StatusLoadingModel)),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)
	return progressView{
		sink: func(ev types.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			bar.Describe(string(ev.Status))
			_ = bar.Set(ev.Percentage)
		},
		finish: func() {
			mu.Lock()
			defer mu.Unlock()
			if !bar.IsFinished() {
				_, _ = io.WriteString(w, "\n")
			}
		},
	}
}

func logProgress(logger *slog.Logger) progressView {
	var mu sync.Mutex
	sampler := progress.NewSampler(10)
	return progressView{
		sink: func(ev types.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			if !sampler.ShouldLog(ev) {
				return
			}
			logger.Info("progress",
				"component", "cli",
				"status", ev.Status,
				"percent", ev.Percentage,
				"processed_ms", ev.ProcessedMS,
				"total_ms", ev.TotalMS,
			)
		},
		finish: func() {},
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

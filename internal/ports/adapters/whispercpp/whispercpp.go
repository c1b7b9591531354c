package whispercpp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/forPelevin/srtgen/internal/ports"
	"github.com/forPelevin/srtgen/internal/types"
)

const (
	sampleRate     = 16000
	maxDetailBytes = 4096
)

// Markers whisper.cpp prints when the model file cannot be used.
var modelLoadMarkers = []string{
	"failed to load model",
	"failed to initialize whisper context",
	"invalid model data",
	"failed to open",
}

type Adapter struct {
	bin     string
	model   string
	tempDir string
	logger  *slog.Logger
}

func New(binPath, modelPath, tempDir string, logger *slog.Logger) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter{bin: binPath, model: modelPath, tempDir: tempDir, logger: logger}
}

// Transcribe runs whisper-cli over samples. Fragments printed on stdout are
// forwarded to sink as they arrive; the JSON output file is the returned
// result.
func (a *Adapter) Transcribe(ctx context.Context, samples []float32, opts ports.DecodeOptions, sink ports.SegmentSink) ([]types.RawSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Errorf(types.KindCancelled, err, "transcription not started")
	}
	dir, err := os.MkdirTemp(a.tempDir, "srtgen-whisper-*")
	if err != nil {
		return nil, types.Errorf(types.KindIO, err, "create whisper workspace")
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "input.wav")
	if err := writeWAV(wavPath, samples); err != nil {
		return nil, err
	}
	outPrefix := filepath.Join(dir, "whisper")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := buildArgs(a.model, wavPath, outPrefix, opts)
	a.logger.Debug("starting whisper", "bin", a.bin, "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, a.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, types.Errorf(types.KindInference, err, "whisper stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, types.Errorf(types.KindInference, err, "start %s", a.bin)
	}

	var sinkErr error
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		seg, ok := parseLine(sc.Text())
		if !ok || sink == nil || sinkErr != nil {
			continue
		}
		if err := sink(seg); err != nil {
			sinkErr = err
			cancel()
		}
	}
	waitErr := cmd.Wait()

	switch {
	case sinkErr != nil:
		return nil, sinkErr
	case waitErr != nil && ctx.Err() != nil:
		return nil, types.Errorf(types.KindCancelled, ctx.Err(), "whisper interrupted")
	case waitErr != nil:
		return nil, engineError(waitErr, stderr.String())
	}

	segs, err := readJSON(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	a.logger.Debug("whisper finished", "segments", len(segs))
	return segs, nil
}

func buildArgs(model, wavPath, outPrefix string, opts ports.DecodeOptions) []string {
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", model,
		"-f", wavPath,
		"-l", lang,
	}
	if opts.Translate {
		args = append(args, "-tr")
	}
	if opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(opts.Threads))
	}
	if opts.NoSpeechThreshold > 0 {
		args = append(args, "-nth", formatFloat(opts.NoSpeechThreshold))
	}
	if opts.LogProbThreshold != 0 {
		args = append(args, "-lpt", formatFloat(opts.LogProbThreshold))
	}
	if opts.InitialPrompt != "" {
		args = append(args, "--prompt", opts.InitialPrompt)
	}
	if opts.SuppressNonSpeech {
		args = append(args, "-sns")
	}
	if opts.AlignmentPreset != "" {
		args = append(args, "-dtw", opts.AlignmentPreset)
	}
	if !opts.UseGPU {
		args = append(args, "-ng")
	}
	if opts.TokenTimestamps {
		args = append(args, "-ojf")
	} else {
		args = append(args, "-oj")
	}
	return append(args, "-of", outPrefix)
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

var lineRE = regexp.MustCompile(`^\[(\d+):(\d{2}):(\d{2})\.(\d{3}) --> (\d+):(\d{2}):(\d{2})\.(\d{3})\]\s*(.*)$`)

// parseLine reads a "[HH:MM:SS.mmm --> HH:MM:SS.mmm] text" result line.
func parseLine(line string) (types.RawSegment, bool) {
	m := lineRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return types.RawSegment{}, false
	}
	text := strings.TrimSpace(m[9])
	if text == "" {
		return types.RawSegment{}, false
	}
	return types.RawSegment{
		StartMS: clockMS(m[1], m[2], m[3], m[4]),
		EndMS:   clockMS(m[5], m[6], m[7], m[8]),
		Text:    text,
	}, true
}

func clockMS(h, m, s, ms string) int64 {
	hv, _ := strconv.ParseInt(h, 10, 64)
	mv, _ := strconv.ParseInt(m, 10, 64)
	sv, _ := strconv.ParseInt(s, 10, 64)
	msv, _ := strconv.ParseInt(ms, 10, 64)
	return ((hv*60+mv)*60+sv)*1000 + msv
}

type jsonOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func readJSON(path string) ([]types.RawSegment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Errorf(types.KindInference, err, "whisper produced no JSON output")
	}
	return decodeJSON(b)
}

func decodeJSON(b []byte) ([]types.RawSegment, error) {
	var out jsonOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, types.Errorf(types.KindInference, err, "decode whisper JSON")
	}
	segs := make([]types.RawSegment, 0, len(out.Transcription))
	for _, t := range out.Transcription {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		end := max(t.Offsets.To, t.Offsets.From)
		segs = append(segs, types.RawSegment{StartMS: t.Offsets.From, EndMS: end, Text: text})
	}
	return segs, nil
}

func engineError(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if len(detail) > maxDetailBytes {
		detail = detail[len(detail)-maxDetailBytes:]
	}
	kind := types.KindInference
	lower := strings.ToLower(detail)
	for _, m := range modelLoadMarkers {
		if strings.Contains(lower, m) {
			kind = types.KindModel
			break
		}
	}
	var exitErr *exec.ExitError
	msg := "whisper failed"
	if errors.As(err, &exitErr) {
		msg = fmt.Sprintf("whisper exited with code %d", exitErr.ExitCode())
	}
	je := types.Errorf(kind, nil, "%s", msg)
	je.Detail = detail
	return je
}

func writeWAV(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return types.Errorf(types.KindIO, err, "create engine input")
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		data[i] = int(max(-32768, min(32767, v)))
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return types.Errorf(types.KindIO, err, "encode engine input")
	}
	if err := enc.Close(); err != nil {
		return types.Errorf(types.KindIO, err, "finalize engine input")
	}
	return nil
}

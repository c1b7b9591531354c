package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/forPelevin/srtgen/internal/history"
	"github.com/forPelevin/srtgen/internal/jobs"
	"github.com/forPelevin/srtgen/internal/ports"
	"github.com/forPelevin/srtgen/internal/types"
)

type fakeEngine struct {
	segs []types.RawSegment
	opts ports.DecodeOptions
}

func (f *fakeEngine) Transcribe(_ context.Context, _ []float32, opts ports.DecodeOptions, _ ports.SegmentSink) ([]types.RawSegment, error) {
	f.opts = opts
	return f.segs, nil
}

type fakeTranscoder struct{}

func (fakeTranscoder) ToWAV(context.Context, string, string) error { return errors.New("not used") }
func (fakeTranscoder) ProbeDuration(context.Context, string) (time.Duration, error) {
	return 0, nil
}

func writeWAV(t *testing.T, path string, ms int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data := make([]int, ms*16)
	for i := range data {
		data[i] = 6000
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: 1, SampleRate: 16000}, Data: data, SourceBitDepth: 16}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

// fixture lays out an input WAV, a models dir with ggml-base.bin and an open
// history store.
func fixture(t *testing.T) (Config, *fakeEngine) {
	t.Helper()
	tmp := t.TempDir()
	in := filepath.Join(tmp, "talk.wav")
	writeWAV(t, in, 2000)
	modelsDir := filepath.Join(tmp, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modelsDir, "ggml-base.bin"), []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(context.Background(), filepath.Join(tmp, "state", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine := &fakeEngine{segs: []types.RawSegment{{StartMS: 0, EndMS: 1800, Text: "Good morning everyone."}}}
	return Config{
		InputPath:  in,
		ModelID:    "base",
		ModelsDir:  modelsDir,
		UseGPU:     true,
		Duplicate:  types.DuplicateRename,
		WriteMode:  types.WriteStream,
		History:    store,
		Transcoder: fakeTranscoder{},
		Engine:     engine,
	}, engine
}

func TestValidate(t *testing.T) {
	base := Config{InputPath: "a.mp4", ModelID: "base", ModelsDir: "/models", Duplicate: types.DuplicateRename, WriteMode: types.WriteStream}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "empty modes default", mutate: func(c *Config) { c.Duplicate, c.WriteMode = "", "" }, ok: true},
		{name: "no input", mutate: func(c *Config) { c.InputPath = " " }},
		{name: "no model", mutate: func(c *Config) { c.ModelID = "" }},
		{name: "negative threads", mutate: func(c *Config) { c.Threads = -1 }},
		{name: "bad write mode", mutate: func(c *Config) { c.WriteMode = "mmap" }},
		{name: "bad format", mutate: func(c *Config) { c.Format = "vtt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		in     string
		format types.Format
		want   string
	}{
		{"/media/My Talk.mp4", types.FormatSRT, "/media/My Talk.srt"},
		{"/media/noext", "", "/media/noext.srt"},
		{"clip.v2.wav", types.FormatSRT, "clip.v2.srt"},
		{"clip.v2.wav", types.FormatASS, "clip.v2.ass"},
	}
	for _, tt := range tests {
		if got := DefaultOutputPath(tt.in, tt.format); got != tt.want {
			t.Fatalf("DefaultOutputPath(%q, %q) = %q, want %q", tt.in, tt.format, got, tt.want)
		}
	}
}

func TestRun_WritesAndRecords(t *testing.T) {
	cfg, engine := fixture(t)

	res, err := Run(context.Background(), cfg, jobs.NewToken())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := DefaultOutputPath(cfg.InputPath, types.FormatSRT)
	if res.OutputPath != want || res.Entries != 1 || res.JobID == "" {
		t.Fatalf("result = %+v", res)
	}
	b, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "1\n00:00:00,000 --> 00:00:01,800\nGood morning everyone.\n\n" {
		t.Fatalf("srt = %q", b)
	}
	if engine.opts.AlignmentPreset != "base" || !engine.opts.UseGPU || engine.opts.InitialPrompt != ports.PrimingPrompt {
		t.Fatalf("decode options = %+v", engine.opts)
	}

	entries, err := cfg.History.Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d", len(entries))
	}
	got := entries[0]
	if got.ID != res.JobID || got.Status != history.OutcomeDone || got.SegmentCount != 1 || got.DurationMS != 2000 || got.Message != "Subtitles generated." {
		t.Fatalf("history entry = %+v", got)
	}
}

func TestRun_ASSFormat(t *testing.T) {
	cfg, _ := fixture(t)
	cfg.Format = types.FormatASS

	res, err := Run(context.Background(), cfg, jobs.NewToken())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.OutputPath != DefaultOutputPath(cfg.InputPath, types.FormatASS) {
		t.Fatalf("output = %s", res.OutputPath)
	}
	b, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "Dialogue: 0,0:00:00.00,0:00:01.80,Default,,0,0,0,,Good morning everyone.\n") {
		t.Fatalf("ass = %q", b)
	}
}

func TestRun_MissingModelIsRecorded(t *testing.T) {
	cfg, _ := fixture(t)
	cfg.ModelID = "medium"

	_, err := Run(context.Background(), cfg, jobs.NewToken())
	if !errors.Is(err, types.ErrModel) || !errors.Is(err, types.ErrModelNotFound) {
		t.Fatalf("expected model not found, got %v", err)
	}
	var je *types.JobError
	if !errors.As(err, &je) || je.Stage != types.StatusLoadingModel {
		t.Fatalf("stage = %v", err)
	}
	entries, _ := cfg.History.Recent(context.Background(), 5)
	if len(entries) != 1 || entries[0].Status != history.OutcomeFailed {
		t.Fatalf("history = %+v", entries)
	}
	if _, statErr := os.Stat(DefaultOutputPath(cfg.InputPath, types.FormatSRT)); !os.IsNotExist(statErr) {
		t.Fatalf("output written for failed job")
	}
}

func TestRun_CancelledIsRecorded(t *testing.T) {
	cfg, _ := fixture(t)
	tok := jobs.NewToken()
	tok.Cancel()

	_, err := Run(context.Background(), cfg, tok)
	if !errors.Is(err, types.ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	entries, _ := cfg.History.Recent(context.Background(), 5)
	if len(entries) != 1 || entries[0].Status != history.OutcomeCancelled || entries[0].Message != "Cancelled by user." {
		t.Fatalf("history = %+v", entries)
	}
}

func TestText(t *testing.T) {
	cfg, engine := fixture(t)
	cfg.Translate = true
	engine.segs = append(engine.segs, types.RawSegment{StartMS: 1800, EndMS: 2000, Text: "[BLANK_AUDIO]"})

	got, err := Text(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if got != "Good morning everyone." {
		t.Fatalf("text = %q", got)
	}
	if !engine.opts.Translate || engine.opts.InitialPrompt != "" {
		t.Fatalf("decode options = %+v", engine.opts)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want history.Outcome
	}{
		{nil, history.OutcomeDone},
		{types.Errorf(types.KindCancelled, nil, "job cancelled"), history.OutcomeCancelled},
		{types.Errorf(types.KindTool, nil, "ffmpeg exited"), history.OutcomeFailed},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Fatalf("Outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

// Package audio turns input media into the canonical sample buffer the
// recognizer consumes: mono, 16 kHz, float32 in [-1, 1].
package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"github.com/forPelevin/srtgen/internal/ports"
	"github.com/forPelevin/srtgen/internal/types"
)

const (
	SampleRate = 16000
	// samplesPerMS converts buffer lengths to milliseconds.
	samplesPerMS = SampleRate / 1000
)

// Audio is a normalized buffer. The pipeline owns it for one job only.
type Audio struct {
	Samples    []float32
	DurationMS int64
}

// Normalizer converts an input path into canonical samples, transcoding
// through Transcoder when the file is not already 16 kHz mono 16-bit WAV.
type Normalizer struct {
	Transcoder ports.Transcoder
	// TempDir holds the transcoded intermediate; empty means os.TempDir().
	TempDir string
	Logger  *slog.Logger
	OnStage func(types.Status)

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
}

func NewNormalizer(tr ports.Transcoder, tempDir string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{
		Transcoder: tr,
		TempDir:    tempDir,
		Logger:     logger,
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
	}
}

// Normalize loads inputPath as canonical samples. Any transcoded temporary
// file is removed before it returns, whatever the outcome.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (Audio, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return Audio{}, types.Errorf(types.KindInput, err, "input file not found: %s", inputPath)
	}
	if info.IsDir() {
		return Audio{}, types.Errorf(types.KindInput, nil, "input is a directory: %s", inputPath)
	}

	wavPath := inputPath
	if !IsCanonicalWAV(inputPath) {
		n.emit(types.StatusConverting)
		if n.Transcoder == nil {
			return Audio{}, types.Errorf(types.KindTool, nil, "no transcoder configured for %s", filepath.Base(inputPath))
		}
		tmpDir, err := n.mkdirTemp(n.TempDir, "srtgen-*")
		if err != nil {
			return Audio{}, types.Errorf(types.KindIO, err, "create temporary workspace")
		}
		defer func() {
			if rmErr := n.removeAll(tmpDir); rmErr != nil {
				n.Logger.Warn("temporary workspace cleanup failed", "path", tmpDir, "error", rmErr)
			}
		}()

		wavPath = filepath.Join(tmpDir, "audio-16k-mono.wav")
		n.Logger.Debug("transcoding input", "input", inputPath, "output", wavPath)
		if err := n.Transcoder.ToWAV(ctx, inputPath, wavPath); err != nil {
			if ctx.Err() != nil {
				return Audio{}, types.Errorf(types.KindCancelled, ctx.Err(), "conversion interrupted")
			}
			var je *types.JobError
			if errors.As(err, &je) {
				return Audio{}, err
			}
			return Audio{}, types.Errorf(types.KindTool, err, "transcode %s", filepath.Base(inputPath))
		}
		if st, err := os.Stat(wavPath); err != nil || st.Size() == 0 {
			return Audio{}, types.Errorf(types.KindTool, err, "transcoder completed but output file was not created")
		}
	}

	n.emit(types.StatusLoadingAudio)
	samples, rate, channels, err := decodeWAV(wavPath)
	if err != nil {
		return Audio{}, err
	}
	samples, err = Downmix(samples, channels)
	if err != nil {
		return Audio{}, err
	}
	if rate != SampleRate {
		n.Logger.Debug("resampling", "from_hz", rate, "to_hz", SampleRate)
		samples = Resample(samples, rate, SampleRate)
	}
	return Audio{Samples: samples, DurationMS: DurationMS(len(samples))}, nil
}

func (n *Normalizer) emit(s types.Status) {
	if n.OnStage != nil {
		n.OnStage(s)
	}
}

// DurationMS converts a 16 kHz sample count to milliseconds.
func DurationMS(samples int) int64 {
	return int64(samples) / samplesPerMS
}

// IsCanonicalWAV reports whether path is a PCM WAV at 16 kHz, mono, 16 bits.
func IsCanonicalWAV(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if d.Err() != nil {
		return false
	}
	return d.WavAudioFormat == 1 && d.SampleRate == SampleRate && d.NumChans == 1 && d.BitDepth == 16
}

func decodeWAV(path string) ([]float32, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, types.Errorf(types.KindIO, err, "open wav")
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, 0, types.Errorf(types.KindInput, d.Err(), "not a valid wav file: %s", filepath.Base(path))
	}
	if d.BitDepth != 16 {
		return nil, 0, 0, types.Errorf(types.KindInput, types.ErrUnsupportedFormat, "expected 16-bit PCM, got %d-bit", d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, types.Errorf(types.KindInput, err, "decode pcm data")
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / 32768.0
	}
	return samples, int(d.SampleRate), int(d.NumChans), nil
}

// Downmix averages interleaved stereo pairs. Mono passes through untouched.
func Downmix(samples []float32, channels int) ([]float32, error) {
	switch {
	case channels <= 1:
		return samples, nil
	case channels == 2:
		out := make([]float32, len(samples)/2)
		for i := range out {
			out[i] = (samples[2*i] + samples[2*i+1]) / 2
		}
		return out, nil
	default:
		return nil, types.Errorf(types.KindInput, types.ErrUnsupportedFormat, "unsupported channel count %d", channels)
	}
}

// Resample converts samples from rate `from` to rate `to` by linear
// interpolation between the floor and ceil source positions.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 || from <= 0 || to <= 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}
	ratio := float64(from) / float64(to)
	n := int(float64(len(samples)) / ratio)
	out := make([]float32, n)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		lo := int(pos)
		if lo > last {
			lo = last
		}
		hi := lo + 1
		if hi > last {
			hi = last
		}
		t := float32(pos - float64(lo))
		out[i] = samples[lo]*(1-t) + samples[hi]*t
	}
	return out
}

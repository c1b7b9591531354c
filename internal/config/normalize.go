package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	envConfig    = "SRTGEN_CONFIG"
	envModelsDir = "SRTGEN_MODELS_DIR"
	envStateDir  = "SRTGEN_STATE_DIR"
	envTempDir   = "SRTGEN_TEMP_DIR"
	envFFmpeg    = "SRTGEN_FFMPEG"
	envFFprobe   = "SRTGEN_FFPROBE"
	envWhisper   = "SRTGEN_WHISPER_BIN"
	envModel     = "SRTGEN_MODEL"
	envUseGPU    = "SRTGEN_USE_GPU"
	envLogLevel  = "SRTGEN_LOG_LEVEL"
	envLogFormat = "SRTGEN_LOG_FORMAT"
)

// applyEnv overrides file values with non-empty SRTGEN_* variables.
func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{envModelsDir, &c.Paths.ModelsDir},
		{envStateDir, &c.Paths.StateDir},
		{envTempDir, &c.Paths.TempDir},
		{envFFmpeg, &c.Tools.FFmpeg},
		{envFFprobe, &c.Tools.FFprobe},
		{envWhisper, &c.Tools.Whisper},
		{envModel, &c.Transcription.Model},
		{envLogLevel, &c.Logging.Level},
		{envLogFormat, &c.Logging.Format},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}
	if v, ok := os.LookupEnv(envUseGPU); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Transcription.UseGPU = b
		}
	}
}

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.ModelsDir) == "" {
		c.Paths.ModelsDir = defaultModelsDir
	}
	if c.Paths.ModelsDir, err = expandPath(c.Paths.ModelsDir); err != nil {
		return fmt.Errorf("paths.models_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(strings.TrimSpace(c.Paths.TempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}

	c.Tools.FFmpeg = orDefault(c.Tools.FFmpeg, defaultFFmpeg)
	c.Tools.FFprobe = orDefault(c.Tools.FFprobe, defaultFFprobe)
	c.Tools.Whisper = orDefault(c.Tools.Whisper, defaultWhisper)

	c.Transcription.Model = strings.ToLower(orDefault(c.Transcription.Model, defaultModel))
	c.Transcription.Duplicate = strings.ToLower(orDefault(c.Transcription.Duplicate, defaultDuplicate))
	c.Transcription.WriteMode = strings.ToLower(orDefault(c.Transcription.WriteMode, defaultWriteMode))
	c.Transcription.Format = strings.ToLower(orDefault(c.Transcription.Format, defaultFormat))

	c.Logging.Format = strings.ToLower(orDefault(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(orDefault(c.Logging.Level, defaultLogLevel))
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

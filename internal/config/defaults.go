package config

const (
	defaultConfigPath = "~/.config/srtgen/config.toml"
	defaultModelsDir  = "~/.local/share/srtgen/models"
	defaultStateDir   = "~/.local/share/srtgen"
	defaultFFmpeg     = "ffmpeg"
	defaultFFprobe    = "ffprobe"
	defaultWhisper    = "whisper-cli"
	defaultModel      = "base"
	defaultDuplicate  = "rename"
	defaultWriteMode  = "stream"
	defaultFormat     = "srt"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ModelsDir: defaultModelsDir,
			StateDir:  defaultStateDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
			Whisper: defaultWhisper,
		},
		Transcription: Transcription{
			Model:     defaultModel,
			UseGPU:    true,
			Duplicate: defaultDuplicate,
			WriteMode: defaultWriteMode,
			Format:    defaultFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

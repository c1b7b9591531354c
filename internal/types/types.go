package types

import (
	"fmt"
	"strings"
)

// RawSegment is one timed text fragment as produced by the ASR engine.
type RawSegment struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// Duration returns EndMS-StartMS.
func (s RawSegment) Duration() int64 { return s.EndMS - s.StartMS }

// SubtitleEntry is a composed cue ready for rendering.
type SubtitleEntry struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

func (e SubtitleEntry) Duration() int64 { return e.EndMS - e.StartMS }

type DuplicateMode string

const (
	DuplicateOverwrite DuplicateMode = "overwrite"
	DuplicateRename    DuplicateMode = "rename"
)

func ParseDuplicateMode(s string) (DuplicateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return DuplicateOverwrite, nil
	case "rename":
		return DuplicateRename, nil
	default:
		return "", fmt.Errorf("duplicate mode: unsupported value %q (want overwrite|rename)", s)
	}
}

// WriteMode selects how the SRT file is produced.
//   - stream: the file is opened once and every finalized entry is appended and flushed.
//   - buffer: entries are rendered after inference and written atomically.
type WriteMode string

const (
	WriteStream WriteMode = "stream"
	WriteBuffer WriteMode = "buffer"
)

func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stream":
		return WriteStream, nil
	case "buffer":
		return WriteBuffer, nil
	default:
		return "", fmt.Errorf("write mode: unsupported value %q (want stream|buffer)", s)
	}
}

// Format is the subtitle file format written for a job.
type Format string

const (
	FormatSRT Format = "srt"
	FormatASS Format = "ass"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "srt":
		return FormatSRT, nil
	case "ass":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("format: unsupported value %q (want srt|ass)", s)
	}
}

// Ext is the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatASS {
		return ".ass"
	}
	return ".srt"
}

// Job describes one transcription request. It is never mutated after creation.
type Job struct {
	ID         string
	InputPath  string
	OutputPath string
	ModelID    string
	Translate  bool
	UseGPU     bool
	Duplicate  DuplicateMode
	WriteMode  WriteMode
	Format     Format
}

type Status string

const (
	StatusLoadingModel       Status = "loading_model"
	StatusConverting         Status = "converting"
	StatusLoadingAudio       Status = "loading_audio"
	StatusPreprocessing      Status = "preprocessing"
	StatusTranscribing       Status = "transcribing"
	StatusProcessingSegments Status = "processing_segments"
	StatusGeneratingSRT      Status = "generating_srt"
	StatusSavingFile         Status = "saving_file"
	StatusComplete           Status = "complete"
)

// ProgressEvent is pushed to a subscriber; nothing retains history of them.
type ProgressEvent struct {
	Percentage  int    `json:"percentage"`
	ProcessedMS int64  `json:"processed_ms"`
	TotalMS     int64  `json:"total_ms"`
	Status      Status `json:"status"`
}

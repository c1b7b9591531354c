package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies job failures. Every kind is terminal for the job.
type Kind string

const (
	KindInput     Kind = "input"
	KindTool      Kind = "tool"
	KindModel     Kind = "model"
	KindInference Kind = "inference"
	KindIO        Kind = "io"
	KindCancelled Kind = "cancelled"
)

// Sentinels for errors.Is; a *JobError matches the sentinel of its kind.
var (
	ErrInput     = kindError(KindInput)
	ErrTool      = kindError(KindTool)
	ErrModel     = kindError(KindModel)
	ErrInference = kindError(KindInference)
	ErrIO        = kindError(KindIO)
	ErrCancelled = kindError(KindCancelled)
)

var (
	ErrModelNotFound      = errors.New("model not found")
	ErrDuplicateExhausted = errors.New("too many duplicate files")
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
)

type kindError Kind

func (k kindError) Error() string { return string(k) + " error" }

// JobError is a stage-aware failure. Detail holds tool or engine diagnostics verbatim.
type JobError struct {
	Kind    Kind
	Stage   Status
	Message string
	Detail  string
	Err     error
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if d := strings.TrimSpace(e.Detail); d != "" {
		b.WriteString("\n")
		b.WriteString(d)
	}
	return b.String()
}

func (e *JobError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *JobError) Is(target error) bool {
	k, ok := target.(kindError)
	return ok && e != nil && Kind(k) == e.Kind
}

// Errorf builds a JobError without a stage; callers attach one with WithStage.
func Errorf(kind Kind, err error, format string, args ...any) *JobError {
	return &JobError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithStage sets the stage when err is a JobError that does not carry one yet.
func WithStage(err error, stage Status) error {
	var je *JobError
	if errors.As(err, &je) && je.Stage == "" {
		je.Stage = stage
	}
	return err
}

// KindOf reports the failure kind, defaulting to io for foreign errors.
func KindOf(err error) Kind {
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	if errors.Is(err, ErrCancelled) {
		return KindCancelled
	}
	return KindIO
}

// UserMessage maps a job outcome to the single line shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return "Subtitles generated."
	}
	var je *JobError
	if !errors.As(err, &je) {
		return "Subtitle generation failed: " + err.Error()
	}
	var prefix string
	switch je.Kind {
	case KindInput:
		prefix = "Cannot read input media"
	case KindTool:
		prefix = "Audio conversion failed"
	case KindModel:
		prefix = "Model unavailable"
	case KindInference:
		prefix = "Transcription failed"
	case KindCancelled:
		return "Cancelled by user."
	default:
		prefix = "Could not write subtitles"
	}
	msg := prefix + ": " + je.Message
	if je.Err != nil {
		msg += ": " + je.Err.Error()
	}
	if d := strings.TrimSpace(je.Detail); d != "" {
		msg += " (" + strings.Join(strings.Fields(d), " ") + ")"
	}
	return msg
}

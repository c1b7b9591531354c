package hallucination

import (
	"testing"

	"github.com/forPelevin/srtgen/internal/types"
)

func TestKeep_Table(t *testing.T) {
	f := New("Hello, welcome to the transcription. This is a clear English text.")
	tests := []struct {
		name     string
		text     string
		wantKeep bool
		wantText string
	}{
		{"pure music annotation", "[Music]", false, ""},
		{"paren applause", " (Applause) ", false, ""},
		{"blank audio", "[BLANK_AUDIO]", false, ""},
		{"inline annotation stripped", "Thank you [Music] for listening", true, "Thank you for listening"},
		{"annotation before comma", "Okay [laughs], let's go", true, "Okay, let's go"},
		{"amara credit", "Subtitles by the Amara.org community", false, ""},
		{"speaking marker", "(speaking in foreign language)", false, ""},
		{"whole boilerplate", "Thank you for watching!", false, ""},
		{"boilerplate inside real speech kept", "Thank you for watching my daughter while I was away.", true, "Thank you for watching my daughter while I was away."},
		{"subscribe inside sentence kept", "Did you subscribe to the newspaper last year?", true, "Did you subscribe to the newspaper last year?"},
		{"prompt echo", "This is a clear English text.", false, ""},
		{"non-keyword paren kept", "(sighs)", true, "(sighs)"},
		{"only brackets", "[inaudible] [noise]", false, ""},
		{"whitespace only", "   ", false, ""},
		{"plain speech trimmed", "  So let's begin.  ", true, "So let's begin."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := types.RawSegment{StartMS: 100, EndMS: 900, Text: tt.text}
			got, ok := f.Keep(seg)
			if ok != tt.wantKeep {
				t.Fatalf("Keep(%q) kept=%v, want %v", tt.text, ok, tt.wantKeep)
			}
			if !ok {
				return
			}
			if got.Text != tt.wantText {
				t.Fatalf("text = %q, want %q", got.Text, tt.wantText)
			}
			if got.StartMS != 100 || got.EndMS != 900 {
				t.Fatalf("timing changed: %+v", got)
			}
		})
	}
}

func TestTranscript(t *testing.T) {
	f := New()
	if got := f.Transcript("[Music] Thanks for watching."); got != "" {
		t.Fatalf("expected whole-text boilerplate to be dropped, got %q", got)
	}
	if got := f.Transcript("Hello there [Applause] everyone"); got != "Hello there everyone" {
		t.Fatalf("Transcript = %q", got)
	}
}

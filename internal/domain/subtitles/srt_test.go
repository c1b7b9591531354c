package subtitles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/srtgen/internal/types"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00,000"},
		{3723004, "01:02:03,004"},
		{59999, "00:00:59,999"},
		{-20, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.ms); got != tt.want {
			t.Fatalf("FormatTimestamp(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	got := Render([]types.SubtitleEntry{
		{StartMS: 0, EndMS: 1200, Text: "Hi there"},
		{StartMS: 1500, EndMS: 4000, Text: "This line is long enough that it has to wrap onto two"},
	})
	want := "1\n00:00:00,000 --> 00:00:01,200\nHi there\n\n" +
		"2\n00:00:01,500 --> 00:00:04,000\nThis line is long enough that it has to\nwrap onto two\n\n"
	if got != want {
		t.Fatalf("Render mismatch:\n%q\nwant\n%q", got, want)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveOutputPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "talk.srt")

	got, err := ResolveOutputPath(out, types.DuplicateRename)
	if err != nil || got != out {
		t.Fatalf("absent path: got %q, %v", got, err)
	}

	touch(t, out)
	got, err = ResolveOutputPath(out, types.DuplicateOverwrite)
	if err != nil || got != out {
		t.Fatalf("overwrite: got %q, %v", got, err)
	}
	got, err = ResolveOutputPath(out, types.DuplicateRename)
	if err != nil || got != filepath.Join(dir, "talk_1.srt") {
		t.Fatalf("rename: got %q, %v", got, err)
	}

	touch(t, filepath.Join(dir, "talk_1.srt"))
	got, err = ResolveOutputPath(out, types.DuplicateRename)
	if err != nil || got != filepath.Join(dir, "talk_2.srt") {
		t.Fatalf("rename second: got %q, %v", got, err)
	}
}

func TestResolveOutputPath_Exhausted(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "busy.srt")
	touch(t, out)
	for n := 1; n <= maxRenameAttempts; n++ {
		touch(t, filepath.Join(dir, fmt.Sprintf("busy_%d.srt", n)))
	}
	_, err := ResolveOutputPath(out, types.DuplicateRename)
	if !errors.Is(err, types.ErrDuplicateExhausted) || !errors.Is(err, types.ErrIO) {
		t.Fatalf("expected exhausted io error, got %v", err)
	}
}

func TestWriteFile_CreatesDirsAtomically(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "deeper", "out.srt")
	entries := []types.SubtitleEntry{{StartMS: 0, EndMS: 1000, Text: "Hello"}}
	if err := WriteFile(out, types.FormatSRT, entries); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != Render(entries) {
		t.Fatalf("content = %q", b)
	}
	names, _ := os.ReadDir(filepath.Dir(out))
	if len(names) != 1 {
		t.Fatalf("temp files left behind: %v", names)
	}
}

func TestStreamWriter_FlushesEachBlock(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sub", "live.srt")
	w, err := OpenStream(out, types.FormatSRT)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	entries := []types.SubtitleEntry{
		{StartMS: 0, EndMS: 1500, Text: "First"},
		{StartMS: 2000, EndMS: 3500, Text: "Second"},
	}
	for i, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		b, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if want := Render(entries[:i+1]); string(b) != want {
			t.Fatalf("after %d blocks file = %q, want %q", i+1, b, want)
		}
	}
	if w.Count() != 2 {
		t.Fatalf("count = %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

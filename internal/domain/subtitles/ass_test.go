package subtitles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/srtgen/internal/types"
)

func TestRenderASS(t *testing.T) {
	entries := []types.SubtitleEntry{
		{StartMS: 0, EndMS: 1500, Text: "Hello {world}"},
		{StartMS: 61_234, EndMS: 64_000, Text: "This line is long enough that it has to wrap onto two"},
	}
	got := RenderASS(entries)
	if !strings.HasPrefix(got, "[Script Info]\n") || !strings.Contains(got, "\n\n[Events]\nFormat: Layer,") {
		t.Fatalf("missing sections:\n%s", got)
	}
	for _, want := range []string{
		"Dialogue: 0,0:00:00.00,0:00:01.50,Default,,0,0,0,,Hello (world)\n",
		`Dialogue: 0,0:01:01.23,0:01:04.00,Default,,0,0,0,,This line is long enough that it has to\Nwrap onto two` + "\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestAssTime_Format(t *testing.T) {
	tests := map[int64]string{
		0:          "0:00:00.00",
		61_234:     "0:01:01.23",
		3_723_009:  "1:02:03.00",
		-5:         "0:00:00.00",
		36_000_990: "10:00:00.99",
	}
	for in, want := range tests {
		if got := assTime(in); got != want {
			t.Fatalf("assTime(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestStreamWriter_ASSMatchesBuffered(t *testing.T) {
	dir := t.TempDir()
	entries := []types.SubtitleEntry{
		{StartMS: 0, EndMS: 1500, Text: "First"},
		{StartMS: 2000, EndMS: 3500, Text: `back\slash`},
	}

	streamed := filepath.Join(dir, "live.ass")
	w, err := OpenStream(streamed, types.FormatASS)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := os.ReadFile(streamed)
	if string(b) != RenderASS(nil) {
		t.Fatalf("header not written on open: %q", b)
	}
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	buffered := filepath.Join(dir, "whole.ass")
	if err := WriteFile(buffered, types.FormatASS, entries); err != nil {
		t.Fatal(err)
	}
	a, _ := os.ReadFile(streamed)
	c, _ := os.ReadFile(buffered)
	if string(a) != string(c) || !strings.Contains(string(a), `back\\slash`) {
		t.Fatalf("stream and buffer differ:\n%s\n---\n%s", a, c)
	}
}

func TestResolveOutputPath_KeepsExtension(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "talk.ass")
	touch(t, out)
	got, err := ResolveOutputPath(out, types.DuplicateRename)
	if err != nil || got != filepath.Join(dir, "talk_1.ass") {
		t.Fatalf("rename: got %q, %v", got, err)
	}
}

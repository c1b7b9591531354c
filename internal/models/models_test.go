package models

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/srtgen/internal/types"
)

func TestFileNameAndPreset(t *testing.T) {
	if got := FileName(" Base.EN "); got != "ggml-base.en.bin" {
		t.Fatalf("FileName = %q", got)
	}
	tests := map[string]string{
		"tiny.en":  "tiny.en",
		"Large":    "large.v1",
		"large-v3": "large.v3",
		"distil":   "",
	}
	for id, want := range tests {
		if got := AlignmentPreset(id); got != want {
			t.Fatalf("AlignmentPreset(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestCatalog_URLMatchesFileAndPreset(t *testing.T) {
	for _, e := range Catalog {
		if !strings.HasSuffix(e.URL, "/"+FileName(e.ID)) {
			t.Fatalf("%s downloads %s, expected %s", e.ID, e.URL, FileName(e.ID))
		}
		if AlignmentPreset(e.ID) == "" {
			t.Fatalf("%s has no alignment preset", e.ID)
		}
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ggml-large-v3.bin"), []byte("w"), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(Catalog) {
		t.Fatalf("downloaded catalog model listed twice: %+v", list)
	}
	for _, l := range list {
		if l.ID == "large-v3" && (!l.Downloaded || AlignmentPreset(l.ID) != "large.v3") {
			t.Fatalf("large-v3 = %+v", l)
		}
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve(dir, "Base"); !errors.Is(err, types.ErrModelNotFound) || !errors.Is(err, types.ErrModel) {
		t.Fatalf("expected model-not-found, got %v", err)
	}
	p := filepath.Join(dir, "ggml-base.bin")
	if err := os.WriteFile(p, []byte("ggml"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Resolve(dir, "Base")
	if err != nil || got != p {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
	if _, err := Resolve(dir, "../etc"); !errors.Is(err, types.ErrInput) {
		t.Fatalf("expected input error for path-like id, got %v", err)
	}
}

func TestListAndRemove(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ggml-small.bin", "ggml-custom-q5.bin", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("1234"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	list, err := List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != len(Catalog)+1 {
		t.Fatalf("list = %+v", list)
	}
	byID := map[string]Local{}
	for _, l := range list {
		byID[l.ID] = l
	}
	if !byID["small"].Downloaded || byID["small"].SizeBytes != 4 {
		t.Fatalf("small = %+v", byID["small"])
	}
	if byID["tiny"].Downloaded {
		t.Fatalf("tiny should not be downloaded")
	}
	if !byID["custom-q5"].Downloaded {
		t.Fatalf("extra artifact missing: %+v", list)
	}

	removed, err := Remove(dir, "small")
	if err != nil || !removed {
		t.Fatalf("remove = %v, %v", removed, err)
	}
	removed, err = Remove(dir, "small")
	if err != nil || removed {
		t.Fatalf("second remove = %v, %v", removed, err)
	}
}

func TestList_MissingDir(t *testing.T) {
	list, err := List(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(list) != len(Catalog) {
		t.Fatalf("list = %+v, %v", list, err)
	}
}

// Package models maps model identifiers to local whisper.cpp artifacts.
package models

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/srtgen/internal/types"
)

// Entry is a known downloadable model.
type Entry struct {
	ID  string
	URL string
}

// Catalog lists the models offered for download.
var Catalog = []Entry{
	{ID: "tiny", URL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin"},
	{ID: "base", URL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin"},
	{ID: "small", URL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin"},
	{ID: "medium", URL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin"},
	{ID: "large-v3", URL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin"},
}

// whisper.cpp DTW preset names, keyed by lowercase model id.
var alignmentPresets = map[string]string{
	"tiny.en":   "tiny.en",
	"tiny":      "tiny",
	"base.en":   "base.en",
	"base":      "base",
	"small.en":  "small.en",
	"small":     "small",
	"medium.en": "medium.en",
	"medium":    "medium",
	"large":     "large.v1",
	"large-v1":  "large.v1",
	"large-v2":  "large.v2",
	"large-v3":  "large.v3",
}

// AlignmentPreset returns the DTW preset for id, or "" when none applies.
func AlignmentPreset(id string) string {
	return alignmentPresets[strings.ToLower(strings.TrimSpace(id))]
}

const (
	filePrefix = "ggml-"
	fileSuffix = ".bin"
)

// FileName is "ggml-{lowercase id}.bin".
func FileName(id string) string {
	return filePrefix + strings.ToLower(strings.TrimSpace(id)) + fileSuffix
}

func validID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Errorf(types.KindInput, nil, "model id is empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return types.Errorf(types.KindInput, nil, "invalid model id %q", id)
	}
	return nil
}

// Path returns the expected artifact location without checking it.
func Path(dir, id string) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(id)), nil
}

// Resolve returns the artifact path, failing with ErrModelNotFound when the
// file is absent.
func Resolve(dir, id string) (string, error) {
	p, err := Path(dir, id)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", types.Errorf(types.KindModel, types.ErrModelNotFound, "%s (expected %s)", id, p)
	case err != nil:
		return "", types.Errorf(types.KindModel, err, "stat %s", p)
	case info.IsDir():
		return "", types.Errorf(types.KindModel, types.ErrModelNotFound, "%s is a directory", p)
	}
	return p, nil
}

// Local describes a model as found on disk.
type Local struct {
	ID         string
	Path       string
	URL        string
	Downloaded bool
	SizeBytes  int64
}

// List reports every catalog model plus any other ggml-*.bin in dir.
func List(dir string) ([]Local, error) {
	seen := make(map[string]bool, len(Catalog))
	out := make([]Local, 0, len(Catalog))
	for _, e := range Catalog {
		l := Local{ID: e.ID, Path: filepath.Join(dir, FileName(e.ID)), URL: e.URL}
		if info, err := os.Stat(l.Path); err == nil && !info.IsDir() {
			l.Downloaded = true
			l.SizeBytes = info.Size()
		}
		seen[e.ID] = true
		out = append(out, l)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, types.Errorf(types.KindIO, err, "read models dir")
	}
	var extra []Local
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if seen[id] {
			continue
		}
		l := Local{ID: id, Path: filepath.Join(dir, name), Downloaded: true}
		if info, err := de.Info(); err == nil {
			l.SizeBytes = info.Size()
		}
		extra = append(extra, l)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].ID < extra[j].ID })
	return append(out, extra...), nil
}

// Remove deletes a local artifact. It reports false when there was nothing
// to delete.
func Remove(dir, id string) (bool, error) {
	p, err := Path(dir, id)
	if err != nil {
		return false, err
	}
	err = os.Remove(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, types.Errorf(types.KindIO, err, "delete model %s", id)
	}
	return true, nil
}

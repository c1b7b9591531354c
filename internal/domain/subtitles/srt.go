package subtitles

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/srtgen/internal/types"
)

const maxRenameAttempts = 1000

// FormatTimestamp renders milliseconds as HH:MM:SS,mmm. Negative input
// clamps to zero.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// Render serializes entries with 1-based indices.
func Render(entries []types.SubtitleEntry) string {
	var b strings.Builder
	for i, e := range entries {
		writeBlock(&b, i+1, e)
	}
	return b.String()
}

// Encode renders entries in the given format; empty means SRT.
func Encode(f types.Format, entries []types.SubtitleEntry) string {
	if f == types.FormatASS {
		return RenderASS(entries)
	}
	return Render(entries)
}

// encodeBlock renders the index-th entry (1-based) for streaming.
func encodeBlock(f types.Format, index int, e types.SubtitleEntry) string {
	var b strings.Builder
	if f == types.FormatASS {
		writeDialogue(&b, e)
	} else {
		writeBlock(&b, index, e)
	}
	return b.String()
}

// preamble is written once before the first entry.
func preamble(f types.Format) string {
	if f == types.FormatASS {
		return assHeader()
	}
	return ""
}

func writeBlock(b *strings.Builder, index int, e types.SubtitleEntry) {
	b.WriteString(strconv.Itoa(index))
	b.WriteByte('\n')
	b.WriteString(FormatTimestamp(e.StartMS))
	b.WriteString(" --> ")
	b.WriteString(FormatTimestamp(e.EndMS))
	b.WriteByte('\n')
	b.WriteString(strings.Join(Wrap(e.Text, LineWidth), "\n"))
	b.WriteString("\n\n")
}

// ResolveOutputPath applies the duplicate policy. In rename mode an existing
// path is replaced by the first free "{stem}_{n}{ext}" sibling.
func ResolveOutputPath(path string, mode types.DuplicateMode) (string, error) {
	if mode != types.DuplicateRename {
		return path, nil
	}
	free, err := isFree(path)
	if err != nil || free {
		return path, err
	}
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	for n := 1; n <= maxRenameAttempts; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		free, err := isFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", types.Errorf(types.KindIO, types.ErrDuplicateExhausted, "no free name for %s after %d attempts", path, maxRenameAttempts)
}

func isFree(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	default:
		return false, types.Errorf(types.KindIO, err, "stat %s", path)
	}
}

// WriteFile renders entries into a temp file next to path and renames it into
// place, so readers never see partial output.
func WriteFile(path string, f types.Format, entries []types.SubtitleEntry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Errorf(types.KindIO, err, "create output dir")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return types.Errorf(types.KindIO, err, "create temp output")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(Encode(f, entries)); err != nil {
		_ = tmp.Close()
		return types.Errorf(types.KindIO, err, "write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return types.Errorf(types.KindIO, err, "sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return types.Errorf(types.KindIO, err, "close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return types.Errorf(types.KindIO, err, "rename into %s", path)
	}
	committed = true
	return nil
}

// StreamWriter appends one block per entry and flushes it to disk
// immediately. A crash leaves every block written so far intact.
type StreamWriter struct {
	path   string
	format types.Format
	f      *os.File
	w      *bufio.Writer
	n      int
}

// OpenStream truncates or creates path, creating parent directories, and
// writes the format's header, if any.
func OpenStream(path string, format types.Format) (*StreamWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, types.Errorf(types.KindIO, err, "create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, types.Errorf(types.KindIO, err, "open %s", path)
	}
	s := &StreamWriter{path: path, format: format, f: f, w: bufio.NewWriter(f)}
	if err := s.commit(preamble(format)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// WriteEntry appends the next block.
func (s *StreamWriter) WriteEntry(e types.SubtitleEntry) error {
	if err := s.commit(encodeBlock(s.format, s.n+1, e)); err != nil {
		return err
	}
	s.n++
	return nil
}

func (s *StreamWriter) commit(chunk string) error {
	if chunk == "" {
		return nil
	}
	if _, err := s.w.WriteString(chunk); err != nil {
		return types.Errorf(types.KindIO, err, "append to %s", s.path)
	}
	if err := s.w.Flush(); err != nil {
		return types.Errorf(types.KindIO, err, "flush %s", s.path)
	}
	if err := s.f.Sync(); err != nil {
		return types.Errorf(types.KindIO, err, "sync %s", s.path)
	}
	return nil
}

// Count is the number of blocks written.
func (s *StreamWriter) Count() int { return s.n }

func (s *StreamWriter) Path() string { return s.path }

func (s *StreamWriter) Close() error {
	if s.f == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f = nil
	if err := errors.Join(flushErr, closeErr); err != nil {
		return types.Errorf(types.KindIO, err, "close %s", s.path)
	}
	return nil
}

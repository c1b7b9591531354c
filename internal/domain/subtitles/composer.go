// Package subtitles turns filtered recognizer fragments into SRT entries and
// serializes them.
package subtitles

import (
	"strings"

	"github.com/forPelevin/srtgen/internal/types"
)

const (
	// MinDurationMS is the shortest entry the composer emits on its own.
	MinDurationMS = 1000
	// MaxDurationMS bounds both merges and unsplit entries.
	MaxDurationMS = 7000
	// MaxChars bounds merged and unsplit entry text, in runes.
	MaxChars = 84
	// LineWidth is the wrap width of a rendered line, in runes.
	LineWidth = 42
	// MaxLines is the number of wrapped lines an entry may occupy.
	MaxLines = 2

	pendingMaxChars = 30
	abbrevMaxLen    = 2
)

// Composer folds fragments into entries one at a time. It holds at most one
// short fragment back so it can merge it with its successor.
type Composer struct {
	pending *types.SubtitleEntry
}

// Push adds a fragment and returns the entries it finalizes, in order.
func (c *Composer) Push(seg types.RawSegment) []types.SubtitleEntry {
	text := strings.TrimSpace(seg.Text)
	if text == "" {
		return nil
	}
	var out []types.SubtitleEntry
	if p := c.pending; p != nil {
		merged := p.Text + " " + text
		end := max(seg.EndMS, p.EndMS)
		if p.Duration() < MinDurationMS && end-p.StartMS <= MaxDurationMS && runeLen(merged) <= MaxChars {
			p.EndMS = end
			p.Text = merged
			return nil
		}
		out = append(out, c.flush(seg.StartMS)...)
	}

	entry := types.SubtitleEntry{StartMS: seg.StartMS, EndMS: seg.EndMS, Text: text}
	switch {
	case entry.Duration() < MinDurationMS && runeLen(text) < pendingMaxChars:
		c.pending = &entry
	case entry.Duration() > MaxDurationMS || runeLen(text) > MaxChars:
		for _, piece := range split(entry) {
			out = append(out, fitLines(piece)...)
		}
	default:
		out = append(out, fitLines(entry)...)
	}
	return out
}

// Flush emits the held fragment, if any, lengthened to MinDurationMS.
func (c *Composer) Flush() []types.SubtitleEntry {
	return c.flush(-1)
}

// flush emits the held fragment. A fragment shorter than MinDurationMS is
// lengthened toward it but never past limit, the start of the next
// fragment; a negative limit means nothing follows.
func (c *Composer) flush(limit int64) []types.SubtitleEntry {
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	c.pending = nil
	if p.Duration() < MinDurationMS {
		end := p.StartMS + MinDurationMS
		if limit >= 0 {
			end = min(end, limit)
		}
		p.EndMS = max(p.EndMS, end)
	}
	return fitLines(p)
}

// Compose runs the whole fragment list through a fresh Composer.
func Compose(segs []types.RawSegment) []types.SubtitleEntry {
	var c Composer
	var out []types.SubtitleEntry
	for _, s := range segs {
		out = append(out, c.Push(s)...)
	}
	return append(out, c.Flush()...)
}

// split cuts an over-long entry at sentence ends, falling back to commas, and
// spreads its duration evenly over the pieces.
func split(e types.SubtitleEntry) []types.SubtitleEntry {
	pieces := splitAfter(e.Text, isSentenceEnd)
	if len(pieces) < 2 {
		pieces = splitAfter(e.Text, func(w string) bool { return strings.HasSuffix(w, ",") })
	}
	if len(pieces) < 2 {
		return []types.SubtitleEntry{e}
	}
	n := int64(len(pieces))
	d := e.Duration()
	out := make([]types.SubtitleEntry, 0, len(pieces))
	for i, p := range pieces {
		k := int64(i)
		out = append(out, types.SubtitleEntry{
			StartMS: e.StartMS + d*k/n,
			EndMS:   e.StartMS + d*(k+1)/n,
			Text:    p,
		})
	}
	return out
}

func splitAfter(text string, boundary func(word string) bool) []string {
	var pieces []string
	var cur []string
	for _, w := range strings.Fields(text) {
		cur = append(cur, w)
		if boundary(w) {
			pieces = append(pieces, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	if len(cur) > 0 {
		pieces = append(pieces, strings.Join(cur, " "))
	}
	return pieces
}

// Quotes and brackets around a sentence end, as in `"now."` or `(end.)`.
const (
	closers = "\"'”’)]"
	openers = "\"'“‘(["
)

// isSentenceEnd reports whether w closes a sentence. Short tokens such as
// "Dr." or "e." are treated as abbreviations.
func isSentenceEnd(w string) bool {
	w = strings.TrimRight(w, closers)
	token := strings.TrimRight(w, ".!?")
	if token == w {
		return false
	}
	return runeLen(strings.TrimLeft(token, openers)) > abbrevMaxLen
}

// fitLines re-chunks an entry whose wrap exceeds MaxLines into consecutive
// entries of at most MaxLines lines. Time is shared out by text length.
func fitLines(e types.SubtitleEntry) []types.SubtitleEntry {
	lines := Wrap(e.Text, LineWidth)
	if len(lines) <= MaxLines {
		return []types.SubtitleEntry{e}
	}
	var chunks []string
	for i := 0; i < len(lines); i += MaxLines {
		j := min(i+MaxLines, len(lines))
		chunks = append(chunks, strings.Join(lines[i:j], " "))
	}
	total := 0
	for _, c := range chunks {
		total += runeLen(c)
	}
	d := e.Duration()
	out := make([]types.SubtitleEntry, 0, len(chunks))
	start := e.StartMS
	done := 0
	for i, c := range chunks {
		done += runeLen(c)
		end := e.StartMS + d*int64(done)/int64(total)
		if i == len(chunks)-1 {
			end = e.EndMS
		}
		out = append(out, types.SubtitleEntry{StartMS: start, EndMS: end, Text: c})
		start = end
	}
	return out
}

// Package hallucination drops recognizer artifacts: captioning credits,
// filler boilerplate, and bracketed sound annotations.
//
// Matching is deliberately asymmetric. A handful of spam markers that never
// occur in real dialogue ("amara.org", "subtitles by") drop a fragment when
// they appear anywhere in it. Boilerplate phrases that can also be spoken for
// real ("thank you for watching", "subscribe") only drop a fragment when they
// are the whole fragment.
package hallucination

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/forPelevin/srtgen/internal/types"
)

var defaultMarkers = []string{
	"amara.org",
	"subtitles by",
	"transcribed by",
	"captions by",
	"(speaking",
}

var defaultPhrases = []string{
	"subscribe",
	"please subscribe",
	"subscribe to my channel",
	"like and subscribe",
	"please like and subscribe",
	"don't forget to subscribe",
	"thank you for watching",
	"thanks for watching",
	"thank you for watching and please subscribe",
}

// Stems of content descriptions emitted as "[Music]", "(Applause)", etc.
var annotationStems = []string{
	"speaking",
	"foreign",
	"silence",
	"music",
	"applau",
	"laugh",
	"blank_audio",
	"noise",
}

type Filter struct {
	markers []string
	phrases map[string]struct{}
}

// New returns a filter with the built-in denylist plus extra whole-segment
// phrases, typically the engine's priming prompt sentences.
func New(extraPhrases ...string) *Filter {
	f := &Filter{
		markers: defaultMarkers,
		phrases: make(map[string]struct{}, len(defaultPhrases)+len(extraPhrases)),
	}
	for _, p := range defaultPhrases {
		f.phrases[normalizePhrase(p)] = struct{}{}
	}
	for _, p := range extraPhrases {
		for _, sentence := range splitSentences(p) {
			if n := normalizePhrase(sentence); n != "" {
				f.phrases[n] = struct{}{}
			}
		}
	}
	return f
}

// Keep applies the rules in order and returns the cleaned segment, or false
// when the segment should be dropped.
func (f *Filter) Keep(seg types.RawSegment) (types.RawSegment, bool) {
	text, ok := f.clean(seg.Text)
	if !ok {
		return types.RawSegment{}, false
	}
	seg.Text = text
	return seg, true
}

// Transcript cleans a joined plain-text transcription. It returns "" when the
// whole text is an artifact.
func (f *Filter) Transcript(text string) string {
	out, ok := f.clean(text)
	if !ok {
		return ""
	}
	return out
}

func (f *Filter) clean(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	lower := fold(trimmed)
	for _, m := range f.markers {
		if strings.Contains(lower, m) {
			return "", false
		}
	}
	if _, hit := f.phrases[normalizePhrase(trimmed)]; hit {
		return "", false
	}
	if isPureAnnotation(trimmed) {
		return "", false
	}

	cleaned := trimmed
	if strings.ContainsRune(cleaned, '[') && strings.ContainsRune(cleaned, ']') {
		cleaned = stripBrackets(cleaned)
	}
	cleaned = collapseSpaces(cleaned)
	if cleaned == "" {
		return "", false
	}
	if _, hit := f.phrases[normalizePhrase(cleaned)]; hit {
		return "", false
	}
	return cleaned, true
}

func isPureAnnotation(s string) bool {
	if len(s) < 2 || strings.ContainsFunc(s, unicode.IsSpace) {
		return false
	}
	open, closing := s[0], s[len(s)-1]
	if !(open == '[' && closing == ']') && !(open == '(' && closing == ')') {
		return false
	}
	inner := fold(s[1 : len(s)-1])
	for _, stem := range annotationStems {
		if strings.Contains(inner, stem) {
			return true
		}
	}
	return false
}

func stripBrackets(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	out := strings.Join(strings.Fields(s), " ")
	for _, p := range []string{",", ".", "!", "?", ";", ":"} {
		out = strings.ReplaceAll(out, " "+p, p)
	}
	return strings.TrimSpace(out)
}

func normalizePhrase(s string) string {
	s = fold(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, " .!?,…")
}

func splitSentences(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
}

// fold lowercases with Unicode case folding. Casers carry state, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

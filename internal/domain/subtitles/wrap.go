package subtitles

import (
	"strings"
	"unicode/utf8"
)

// Wrap packs words greedily into lines of at most width runes. A single word
// longer than width gets a line of its own. No word is ever dropped; callers
// that need a line budget re-chunk the entry instead (see fitLines).
func Wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if curLen > 0 && nextLen > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

package subtitles

import (
	"fmt"
	"strings"

	"github.com/forPelevin/srtgen/internal/types"
)

const assEventsHeader = "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

// RenderASS serializes entries as an Advanced SubStation Alpha script with a
// single bottom-centered style. Wrapped lines are joined with \N.
func RenderASS(entries []types.SubtitleEntry) string {
	var b strings.Builder
	b.WriteString(assHeader())
	for _, e := range entries {
		writeDialogue(&b, e)
	}
	return b.String()
}

func writeDialogue(b *strings.Builder, e types.SubtitleEntry) {
	b.WriteString("Dialogue: 0,")
	b.WriteString(assTime(e.StartMS))
	b.WriteByte(',')
	b.WriteString(assTime(e.EndMS))
	b.WriteString(",Default,,0,0,0,,")
	lines := Wrap(e.Text, LineWidth)
	for i, l := range lines {
		lines[i] = sanitizeASS(l)
	}
	b.WriteString(strings.Join(lines, `\N`))
	b.WriteByte('\n')
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
WrapStyle: 2
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default, Arial, 56, &H00FFFFFF, &H000000FF, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,3,1,2, 80,80,60,1
`) + "\n\n" + assEventsHeader
}

// assTime renders H:MM:SS.cc; ASS has centisecond precision.
func assTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, (ms%1000)/10)
}

// sanitizeASS keeps recognizer text from opening override blocks.
func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

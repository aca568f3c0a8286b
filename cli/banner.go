package cli

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"

	boxPadding = 2
)

// DefaultTerminalWidth is used when no width is configured.
const DefaultTerminalWidth = 80

// Alignment controls where text sits inside a box.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// Divider renders a horizontal rule of the given width.
func Divider(cols int) string {
	if cols < boxPadding {
		return ""
	}

	return dividerLeft + strings.Repeat(dividerMiddle, cols-boxPadding) + dividerRight + "\n"
}

// Box renders s inside a box cols wide. Lines that do not fit are truncated
// with an ellipsis. Wide (East Asian) characters count as two columns.
func Box(s string, cols int, alignment Alignment) string {
	if cols <= boxPadding {
		return ""
	}

	inner := cols - boxPadding
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	parts := make([]string, 0, len(lines)+2)
	parts = append(parts, boxTopLeft+strings.Repeat(boxTop, inner)+boxTopRight)

	for _, l := range lines {
		parts = append(parts, boxSide+pad(l, inner, alignment)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

func runeWidth(r rune) int {
	if !unicode.IsGraphic(r) {
		return 0
	}

	switch width.LookupRune(r).Kind() { //nolint:exhaustive // Only wide kinds take two columns
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2 //nolint:mnd
	default:
		return 1
	}
}

// displayWidth returns how many terminal columns s occupies.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}

	return n
}

// truncate cuts s to at most cols columns, appending an ellipsis when cut.
func truncate(s string, cols int) (string, int) {
	if displayWidth(s) <= cols {
		return s, displayWidth(s)
	}

	var b strings.Builder

	used := 0
	limit := cols - 1

	for _, r := range s {
		w := runeWidth(r)
		if used+w > limit {
			break
		}

		b.WriteRune(r)

		used += w
	}

	b.WriteString(ellipsis)

	return b.String(), used + 1
}

func pad(text string, cols int, alignment Alignment) string {
	str, used := truncate(text, cols)
	diff := cols - used

	switch alignment {
	case AlignCenter:
		left := diff / 2 //nolint:mnd
		return strings.Repeat(" ", left) + str + strings.Repeat(" ", diff-left)
	case AlignRight:
		return strings.Repeat(" ", diff) + str
	default:
		return str + strings.Repeat(" ", diff)
	}
}

// StepLine formats a single line for a step in a run transcript.
func StepLine(step int64, text string) string {
	return fmt.Sprintf("%4d  %s", step, text)
}

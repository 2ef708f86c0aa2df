package speech

import "regexp"

var (
	codeSpanRe  = regexp.MustCompile("`([^`]*)`")
	boldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldAltRe   = regexp.MustCompile(`__(.+?)__`)
	strikeRe    = regexp.MustCompile(`~~(.+?)~~`)
	italicRe    = regexp.MustCompile(`\*(.+?)\*`)
	italicAltRe = regexp.MustCompile(`(^|\s)_(.+?)_`)
)

// StripMarkdown removes bold, italic, strikethrough and code-span markers.
// Synthesized speech must not vocalize markup. Only the markers go; the
// wrapped text is still spoken, struck-through text included.
func StripMarkdown(text string) string {
	text = codeSpanRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	text = boldAltRe.ReplaceAllString(text, "$1")
	text = strikeRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = italicAltRe.ReplaceAllString(text, "$1$2")
	return text
}

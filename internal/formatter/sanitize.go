package formatter

import (
	"regexp"
	"strings"
	"unicode"
)

var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)|\x1b[@-Z\\-_]`)

// CleanText removes terminal escape sequences and control characters,
// keeping newlines and tabs
func CleanText(s string) string {
	s = ansiSequence.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\u2028' || r == '\u2029' {
			return -1
		}
		return r
	}, s)
}

// CleanLine is CleanText folded onto one line
func CleanLine(s string) string {
	return strings.Join(strings.Fields(CleanText(s)), " ")
}

var markdownSpecial = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", "&lt;",
	">", "&gt;",
	"#", `\#`,
	"|", `\|`,
)

// EscapeMarkdown makes s safe to embed in markdown, including tables
func EscapeMarkdown(s string) string {
	return markdownSpecial.Replace(CleanText(s))
}

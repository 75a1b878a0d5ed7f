package formatter

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLToText renders an HTML report as plain terminal text
func HTMLToText(doc []byte) string {
	return convertHTML(doc, false)
}

// HTMLToMarkdown renders an HTML report as markdown for glamour
func HTMLToMarkdown(doc []byte) string {
	return convertHTML(doc, true)
}

type htmlConverter struct {
	markdown bool
	out      strings.Builder
	line     strings.Builder
	skip     int // inside script or style
	lists    []listState
	pre      int
}

type listState struct {
	ordered bool
	n       int
}

func convertHTML(doc []byte, markdown bool) string {
	c := &htmlConverter{markdown: markdown}
	z := html.NewTokenizer(bytes.NewReader(doc))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		name, _ := z.TagName()
		a := atom.Lookup(name)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			c.start(a)
			if tt == html.SelfClosingTagToken {
				c.end(a)
			}
		case html.EndTagToken:
			c.end(a)
		case html.TextToken:
			if c.skip > 0 {
				continue
			}
			c.text(string(z.Text()))
		}
	}
	c.flush()

	text := strings.TrimSpace(collapseBlankLines(c.out.String()))
	if text == "" {
		return ""
	}
	return text + "\n"
}

func (c *htmlConverter) start(a atom.Atom) {
	switch a {
	case atom.Script, atom.Style, atom.Head:
		c.skip++
	case atom.H1, atom.H2, atom.H3, atom.H4:
		c.block()
		if c.markdown {
			c.line.WriteString(strings.Repeat("#", headingLevel(a)) + " ")
		}
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Table, atom.Tr:
		c.block()
	case atom.Br:
		c.flush()
	case atom.Ul, atom.Ol:
		c.block()
		c.lists = append(c.lists, listState{ordered: a == atom.Ol})
	case atom.Li:
		c.flush()
		indent := strings.Repeat("  ", max(len(c.lists)-1, 0))
		marker := "• "
		if c.markdown {
			marker = "- "
		}
		if n := len(c.lists); n > 0 && c.lists[n-1].ordered {
			c.lists[n-1].n++
			marker = strconv.Itoa(c.lists[n-1].n) + ". "
		}
		c.line.WriteString(indent + marker)
	case atom.Strong, atom.B:
		if c.markdown {
			c.line.WriteString("**")
		}
	case atom.Em, atom.I:
		if c.markdown {
			c.line.WriteString("_")
		}
	case atom.Pre:
		c.block()
		c.pre++
		if c.markdown {
			c.out.WriteString("```\n")
		}
	case atom.Td, atom.Th:
		if c.line.Len() > 0 {
			c.line.WriteString(" | ")
		}
	}
}

func (c *htmlConverter) end(a atom.Atom) {
	switch a {
	case atom.Script, atom.Style, atom.Head:
		if c.skip > 0 {
			c.skip--
		}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.P, atom.Div, atom.Section, atom.Article, atom.Table, atom.Tr:
		c.block()
	case atom.Ul, atom.Ol:
		c.flush()
		if len(c.lists) > 0 {
			c.lists = c.lists[:len(c.lists)-1]
		}
		c.block()
	case atom.Li:
		c.flush()
	case atom.Strong, atom.B:
		if c.markdown {
			c.line.WriteString("**")
		}
	case atom.Em, atom.I:
		if c.markdown {
			c.line.WriteString("_")
		}
	case atom.Pre:
		c.flush()
		if c.pre > 0 {
			c.pre--
		}
		if c.markdown {
			c.out.WriteString("```\n")
		}
		c.block()
	}
}

func (c *htmlConverter) text(s string) {
	if c.pre > 0 {
		for i, part := range strings.Split(CleanText(s), "\n") {
			if i > 0 {
				c.flush()
			}
			c.line.WriteString(part)
		}
		return
	}

	s = CleanText(s)
	if strings.TrimSpace(s) == "" {
		if c.line.Len() > 0 && s != "" {
			c.space()
		}
		return
	}
	if startsWithSpace(s) {
		c.space()
	}
	words := strings.Fields(s)
	for i, w := range words {
		if i > 0 {
			c.line.WriteByte(' ')
		}
		if c.markdown {
			w = markdownInline.Replace(w)
		}
		c.line.WriteString(w)
	}
	if endsWithSpace(s) {
		c.space()
	}
}

var markdownInline = strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;")

func (c *htmlConverter) space() {
	line := c.line.String()
	if line != "" && !strings.HasSuffix(line, " ") {
		c.line.WriteByte(' ')
	}
}

func (c *htmlConverter) flush() {
	line := strings.TrimRight(c.line.String(), " ")
	c.line.Reset()
	if strings.TrimSpace(line) == "" && c.pre == 0 {
		return
	}
	c.out.WriteString(line)
	c.out.WriteByte('\n')
}

// block ends the current line and leaves one blank line
func (c *htmlConverter) block() {
	c.flush()
	if !strings.HasSuffix(c.out.String(), "\n\n") && c.out.Len() > 0 {
		c.out.WriteByte('\n')
	}
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	default:
		return 4
	}
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\n' || s[0] == '\t' || s[0] == '\r')
}

func endsWithSpace(s string) bool {
	n := len(s)
	return n > 0 && (s[n-1] == ' ' || s[n-1] == '\n' || s[n-1] == '\t' || s[n-1] == '\r')
}

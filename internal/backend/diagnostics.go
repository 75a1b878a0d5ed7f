package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractDiagnostic turns an error response body into one readable line.
// Order: a JSON "detail" field, then the first <pre> block of an HTML page,
// then its <title>, then the raw body cut to limit runes.
func ExtractDiagnostic(body []byte, limit int) string {
	if limit <= 0 {
		limit = DefaultPreviewLength
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if detail, ok := jsonDetail(trimmed); ok {
		return Truncate(detail, limit)
	}

	if looksLikeHTML(trimmed) {
		if text := firstElementText(trimmed, atom.Pre); text != "" {
			return Truncate(text, limit)
		}
		if text := firstElementText(trimmed, atom.Title); text != "" {
			return Truncate(text, limit)
		}
	}

	return Truncate(string(trimmed), limit)
}

// jsonDetail reads {"detail": ...}. FastAPI validation errors carry a list
// of objects there, each with a "msg".
func jsonDetail(body []byte) (string, bool) {
	if body[0] != '{' {
		return "", false
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg == "" {
				continue
			}
			if len(item.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", item.Loc[len(item.Loc)-1], item.Msg))
			} else {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; "), true
		}
	}

	if string(payload.Detail) == "null" {
		return "", false
	}
	return string(payload.Detail), true
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(body[:min(len(body), 512)])
	return bytes.HasPrefix(head, []byte("<")) &&
		(bytes.Contains(head, []byte("<html")) ||
			bytes.Contains(head, []byte("<!doctype")) ||
			bytes.Contains(head, []byte("<pre")) ||
			bytes.Contains(head, []byte("<title")) ||
			bytes.Contains(head, []byte("<body")))
}

// firstElementText returns the collapsed text of the first element a
func firstElementText(body []byte, a atom.Atom) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	depth := 0
	var sb strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(sb.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == a {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == a && depth > 0 {
				depth--
				if depth == 0 {
					if text := collapseSpace(sb.String()); text != "" {
						return text
					}
					sb.Reset()
				}
			}
		case html.TextToken:
			if depth > 0 {
				sb.Write(z.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most limit runes, marking the cut with an ellipsis
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

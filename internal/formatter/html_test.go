package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading and paragraph",
			in:   "<h1>Title</h1><p>Hello <b>world</b></p>",
			want: "Title\n\nHello world\n",
		},
		{
			name: "unordered list",
			in:   "<ul><li>a</li><li>b</li></ul>",
			want: "• a\n• b\n",
		},
		{
			name: "ordered list",
			in:   "<ol><li>a</li><li>b</li></ol>",
			want: "1. a\n2. b\n",
		},
		{
			name: "script and style dropped",
			in:   "<style>p{}</style><script>alert(1)</script><p>x</p>",
			want: "x\n",
		},
		{
			name: "control characters stripped",
			in:   "<p>a\x1b[31mb</p>",
			want: "ab\n",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText([]byte(tt.in)))
		})
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	in := "<h2>Findings</h2><p>Use <strong>MFA</strong> for *all* users</p><ul><li>one</li></ul><pre>line1\nline2</pre>"
	want := "## Findings\n\nUse **MFA** for \\*all\\* users\n\n- one\n\n```\nline1\nline2\n```\n"

	assert.Equal(t, want, HTMLToMarkdown([]byte(in)))
}

func TestCleanTextAndEscape(t *testing.T) {
	assert.Equal(t, "aredb\nc", CleanText("a\x1b[31mred\x1b[0m\x07b\nc"))
	assert.Equal(t, "a b", CleanLine("  a \n b\t"))
	assert.Equal(t, `a\|b\*c &lt;x&gt;`, EscapeMarkdown("a|b*c <x>"))
}

package mail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlTagPattern matches HTML tags for the fallback stripper.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// HTMLToText reduces an HTML body to a plain-text approximation:
// scripts, styles, and head content are dropped, block boundaries
// become line breaks, and runs of blank lines are collapsed.
func HTMLToText(html string) string {
	if html == "" {
		return ""
	}

	// Turn line-break producing tags into newlines before parsing so
	// block structure survives text extraction.
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</tr>",
	} {
		html = strings.ReplaceAll(html, tag, tag+"\n")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseBlankLines(htmlTagPattern.ReplaceAllString(html, ""))
	}

	doc.Find("script, style, head, title").Remove()

	return collapseBlankLines(doc.Text())
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	s = strings.Join(lines, "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}

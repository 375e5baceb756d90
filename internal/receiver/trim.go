package receiver

import (
	"regexp"
	"strings"
	"unicode"
)

// The trimmer scans the body's lines left to right and cuts at the
// first line that looks like the start of quoted history: a separator,
// a notification marker, an attribution line, or a forwarded header
// block. The rules are heuristics, not a grammar — a legitimate body
// that resembles a header block is cut, in exchange for never carrying
// quote bloat into a post. Rule semantics are load-bearing; changing a
// bound or the label set changes which real-world mail gets trimmed.
var (
	// A standalone separator line of 3 to 80 dashes.
	dashSeparatorPattern = regexp.MustCompile(`^\s*-{3,80}\s*$`)

	// "On <date>, <name> wrote:" style attribution.
	wroteAttributionPattern = regexp.MustCompile(`^\s*On .*wrote:\s*$`)

	// A quoted-reply header that carries a timestamp: a 4-digit year
	// and an H:MM time on a line ending in a colon.
	yearTokenPattern = regexp.MustCompile(`\b\d{4}\b`)
	timeTokenPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)

	// Forwarded header field labels, either one per line or several
	// compressed onto a single line.
	headerLineLabelPattern   = regexp.MustCompile(`(?i)^[\s>*]*(From|Sent|To|Subject|Reply To|Cc|Bcc|Date)\s*:`)
	inlineHeaderLabelPattern = regexp.MustCompile(`(?i)(From|Sent|To|Subject|Reply To|Cc|Bcc|Date)\s*:`)
)

// trimQuotedHistory returns body up to (excluding) the first line that
// triggers a trim rule, with trailing whitespace stripped. A body that
// never triggers a rule is returned whole.
func trimQuotedHistory(body, siteName, previousRepliesMarker string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	var viaSitePattern *regexp.Regexp
	if strings.TrimSpace(siteName) != "" {
		viaSitePattern = regexp.MustCompile(`via ` + regexp.QuoteMeta(siteName) + `.*:\s*$`)
	}

	stop := len(lines)
	for i := range lines {
		if trimBoundary(lines, i, viaSitePattern, previousRepliesMarker) {
			stop = i
			break
		}
	}

	return strings.TrimRightFunc(strings.Join(lines[:stop], "\n"), unicode.IsSpace)
}

// trimBoundary reports whether the line at index i halts the keep
// scan. All rules are checked per line; any match halts.
func trimBoundary(lines []string, i int, viaSite *regexp.Regexp, marker string) bool {
	line := lines[i]
	trimmed := strings.TrimSpace(line)

	if dashSeparatorPattern.MatchString(line) {
		return true
	}
	if marker != "" && trimmed == marker {
		return true
	}
	if viaSite != nil && viaSite.MatchString(line) {
		return true
	}
	if strings.HasSuffix(trimmed, ":") &&
		yearTokenPattern.MatchString(line) &&
		timeTokenPattern.MatchString(line) {
		return true
	}
	if wroteAttributionPattern.MatchString(line) {
		return true
	}
	// Headers presented on separate lines: this line and the next two
	// each carry a header field label.
	if i+2 < len(lines) &&
		headerLineLabelPattern.MatchString(lines[i]) &&
		headerLineLabelPattern.MatchString(lines[i+1]) &&
		headerLineLabelPattern.MatchString(lines[i+2]) {
		return true
	}
	// Headers compressed onto one line.
	if len(inlineHeaderLabelPattern.FindAllString(line, -1)) >= 3 {
		return true
	}

	return false
}

package receiver

import (
	"regexp"
	"strings"
)

// The second extraction pass targets inline quoting conventions the
// structural trimmer does not: "> " prefixed lines, the attribution
// line directly above them, and a trailing signature block. It runs
// after trimQuotedHistory and both passes must run before a body is
// accepted.
var (
	quotedLinePattern    = regexp.MustCompile(`^\s*>`)
	signatureLinePattern = regexp.MustCompile(`^\s*(--|__)\s*$|^\s*Sent from my \S+`)
	forwardNoticePattern = regexp.MustCompile(`(?i)^\s*Begin forwarded message:`)
)

// stripQuotedMarkers removes quoted fragments and a trailing signature
// from text that already passed the structural trimmer.
func stripQuotedMarkers(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	kept := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if quotedLinePattern.MatchString(line) || forwardNoticePattern.MatchString(line) {
			continue
		}
		// An attribution line counts as part of the quote it
		// introduces, even though it carries no quote mark itself.
		if wroteAttributionPattern.MatchString(line) && nextContentQuoted(lines, i+1) {
			continue
		}
		kept = append(kept, line)
	}

	kept = cutSignature(kept)

	return strings.TrimSpace(collapseBlank(strings.Join(kept, "\n")))
}

// nextContentQuoted reports whether the next non-blank line starts a
// quoted block.
func nextContentQuoted(lines []string, from int) bool {
	for _, line := range lines[from:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return quotedLinePattern.MatchString(line)
	}
	return false
}

// cutSignature drops everything from a signature delimiter line to the
// end. Only the trailing block is a signature; a delimiter with no
// content after it in the original mail still marks the cut point.
func cutSignature(lines []string) []string {
	for i, line := range lines {
		if signatureLinePattern.MatchString(line) {
			return lines[:i]
		}
	}
	return lines
}

func collapseBlank(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

package receiver

import (
	"fmt"
	"regexp"

	"github.com/nhle/forum-inbound/internal/mail"
)

// mimeArtifactPattern spots unparsed envelope material leaking into a
// selected body: a content-type declaration or a multipart boundary
// marker line. Their presence means the structural parse failed
// upstream and the "body" is not authorial content.
var mimeArtifactPattern = regexp.MustCompile(
	`(?mi)^content-type:.*(charset=|boundary=)|^--[0-9a-z'()+_,\-./:=?]{16,}(--)?\s*$`,
)

// selectBody picks the part holding the authorial content and returns
// it as UTF-8 text. Plain text is always preferred over HTML when both
// are present; HTML-only messages are cleaned down to text.
func selectBody(msg *mail.Message) (string, error) {
	text, err := candidateBody(msg)
	if err != nil {
		return "", err
	}
	if mimeArtifactPattern.MatchString(text) {
		return "", fmt.Errorf("%w: body still contains MIME artifacts", ErrEmptyEmail)
	}
	return text, nil
}

func candidateBody(msg *mail.Message) (string, error) {
	if len(msg.Parts) == 0 {
		return "", fmt.Errorf("%w: no body parts", ErrEmptyEmail)
	}

	if len(msg.Parts) > 1 {
		var plain, html *mail.Part
		for i := range msg.Parts {
			switch {
			case msg.Parts[i].IsPlainText() && plain == nil:
				plain = &msg.Parts[i]
			case msg.Parts[i].IsHTML() && html == nil:
				html = &msg.Parts[i]
			}
		}
		if plain != nil {
			return normalizePart(*plain)
		}
		if html != nil {
			text, err := normalizePart(*html)
			if err != nil {
				return "", err
			}
			return mail.HTMLToText(text), nil
		}
		return normalizePart(msg.Parts[0])
	}

	part := msg.Parts[0]
	text, err := normalizePart(part)
	if err != nil {
		return "", err
	}
	if part.IsHTML() {
		return mail.HTMLToText(text), nil
	}
	return text, nil
}

// normalizePart converts a part's bytes to UTF-8. A charset failure is
// fatal for the whole run.
func normalizePart(p mail.Part) (string, error) {
	text, err := mail.NormalizeCharset(p.Body, p.Charset)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmailUnparsable, err)
	}
	return text, nil
}

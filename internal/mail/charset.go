package mail

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrBadEncoding reports that a part's bytes could not be converted
// from their declared charset to UTF-8. The failure is fatal for the
// whole processing run; no best-effort decoding is attempted.
var ErrBadEncoding = errors.New("mail: bad character encoding")

// NormalizeCharset converts a message part's body to UTF-8 given its
// declared charset. An empty declaration passes the bytes through
// unchanged, assuming they are already UTF-8.
func NormalizeCharset(b []byte, declared string) (string, error) {
	label := strings.ToLower(strings.TrimSpace(declared))
	if label == "" {
		return string(b), nil
	}

	switch label {
	case "utf-8", "utf8", "us-ascii", "ascii":
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: invalid %s byte sequence", ErrBadEncoding, label)
		}
		return string(b), nil
	}

	enc, err := lookupEncoding(label)
	if err != nil {
		return "", err
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: decoding %s: %v", ErrBadEncoding, label, err)
	}

	// x/text decoders substitute U+FFFD for undecodable bytes rather
	// than failing; a replacement rune that was not in the input means
	// the byte sequence is invalid for the declared charset.
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(b, utf8.RuneError) {
		return "", fmt.Errorf("%w: byte sequence invalid for %s", ErrBadEncoding, label)
	}

	return string(out), nil
}

// lookupEncoding resolves a charset label to an encoding, preferring
// the IANA registry and falling back to WHATWG label matching for the
// aliases mail clients actually emit.
func lookupEncoding(label string) (encoding.Encoding, error) {
	if enc, err := ianaindex.MIME.Encoding(label); err == nil && enc != nil {
		return enc, nil
	}
	if enc, _ := htmlcharset.Lookup(label); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: unknown charset %q", ErrBadEncoding, label)
}

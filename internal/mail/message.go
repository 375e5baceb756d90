// Package mail converts raw inbound email bytes into the parsed
// structure the receiver pipeline consumes: sender, ordered recipient
// list, subject, raw header blob, leaf body parts with their declared
// charsets, and decoded attachments.
package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
)

func init() {
	// go-message undoes transfer encodings; charset conversion is
	// deferred to NormalizeCharset so the declared label travels with
	// the part instead of being consumed here.
	gomessage.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
}

// Part is a leaf text part of the message body. Body holds the bytes
// after transfer decoding but before charset conversion.
type Part struct {
	ContentType string
	Charset     string
	Body        []byte
}

// IsPlainText reports whether the part declares a text/plain body.
func (p Part) IsPlainText() bool {
	return strings.HasPrefix(p.ContentType, "text/plain")
}

// IsHTML reports whether the part declares a text/html body.
func (p Part) IsHTML() bool {
	return strings.HasPrefix(p.ContentType, "text/html")
}

// Attachment is a decoded message attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is the parsed, immutable form of one inbound email. It is
// created fresh per message and owned by the processing run.
type Message struct {
	// From is the first sender address, lowercased.
	From string

	// Recipients lists the To then Cc addresses in message order,
	// lowercased. Routing scans them first-match-wins.
	Recipients []string

	// Subject is the decoded subject line.
	Subject string

	// HeaderBlob is the raw header section, kept for pattern matching
	// against headers the structured parse does not surface.
	HeaderBlob string

	// Parts holds the leaf text parts in message order.
	Parts []Part

	// Attachments holds the decoded attachments in message order.
	Attachments []Attachment

	// Raw is the original message bytes.
	Raw []byte
}

// Parse builds a Message from raw RFC 5322 bytes using go-message.
func Parse(raw []byte) (*Message, error) {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("creating message reader: %w", err)
	}
	defer mr.Close()

	msg := &Message{
		Raw:        raw,
		HeaderBlob: headerBlob(raw),
	}

	if list, err := mr.Header.AddressList("From"); err == nil && len(list) > 0 {
		msg.From = strings.ToLower(strings.TrimSpace(list[0].Address))
	}
	for _, field := range []string{"To", "Cc"} {
		list, err := mr.Header.AddressList(field)
		if err != nil {
			continue
		}
		for _, addr := range list {
			msg.Recipients = append(msg.Recipients, strings.ToLower(strings.TrimSpace(addr.Address)))
		}
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = strings.TrimSpace(subject)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading message part: %w", err)
		}

		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, params, ctErr := h.ContentType()
			if ctErr != nil {
				contentType = "text/plain"
				params = nil
			}
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				return nil, fmt.Errorf("reading part body: %w", readErr)
			}
			msg.Parts = append(msg.Parts, Part{
				ContentType: strings.ToLower(strings.TrimSpace(contentType)),
				Charset:     strings.ToLower(strings.TrimSpace(params["charset"])),
				Body:        body,
			})

		case *gomail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			content, readErr := io.ReadAll(part.Body)
			if readErr != nil || len(content) == 0 {
				continue
			}
			if strings.TrimSpace(contentType) == "" {
				contentType = "application/octet-stream"
			}
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename:    filename,
				ContentType: strings.ToLower(strings.TrimSpace(contentType)),
				Content:     content,
			})
		}
	}

	return msg, nil
}

// headerBlob returns the raw header section of the message, up to the
// first blank line.
func headerBlob(raw []byte) string {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return string(raw[:idx])
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return string(raw[:idx])
	}
	return string(raw)
}

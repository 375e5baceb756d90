package model

import "strings"

// Upload is a stored attachment file referenced from post content.
type Upload struct {
	// OriginalFilename is the attachment's filename as sent.
	OriginalFilename string `json:"original_filename"`

	// URL is where the stored file is served from.
	URL string `json:"url"`

	// Width and Height are pixel dimensions for image uploads, zero
	// otherwise.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Filesize is the stored size in bytes.
	Filesize int64 `json:"filesize"`

	// ContentType is the attachment's declared MIME type.
	ContentType string `json:"content_type"`
}

// IsImage reports whether the upload should be referenced with an
// image tag rather than a link.
func (u *Upload) IsImage() bool {
	return strings.HasPrefix(u.ContentType, "image/")
}


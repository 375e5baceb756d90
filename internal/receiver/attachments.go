package receiver

import (
	"context"
	"fmt"
	"os"

	"github.com/nhle/forum-inbound/internal/mail"
	"github.com/nhle/forum-inbound/internal/model"
)

// appendAttachments stores each attachment through the upload
// collaborator and appends a reference line to the body. Attachments
// are processed sequentially; a failed upload is skipped, never
// retried, and never aborts the post.
func (r *Receiver) appendAttachments(ctx context.Context, author *model.User, attachments []mail.Attachment, body string) string {
	for _, att := range attachments {
		upload, err := r.storeAttachment(ctx, author, att)
		if err != nil {
			r.logger.Warn("skipping attachment upload",
				"filename", att.Filename, "err", err)
			continue
		}
		body += "\n\n" + attachmentReference(upload) + "\n\n"
	}
	return body
}

// storeAttachment spools the attachment to a temporary file and hands
// it to the uploader. The temporary file is released before the next
// attachment is processed, whether the upload succeeded or not.
func (r *Receiver) storeAttachment(ctx context.Context, author *model.User, att mail.Attachment) (*model.Upload, error) {
	tmp, err := os.CreateTemp("", "forum-inbound-attachment-")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(att.Content); err != nil {
		return nil, fmt.Errorf("spooling attachment %s: %w", att.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing spool file: %w", err)
	}

	return r.deps.Uploads.Store(ctx, author.ID, att.Filename, att.ContentType, tmp.Name())
}

// attachmentReference renders the body line for a stored upload: an
// image tag for images, a linked filename with a human-readable size
// otherwise.
func attachmentReference(u *model.Upload) string {
	if u.IsImage() {
		return fmt.Sprintf("<img src='%s' width='%d' height='%d'>", u.URL, u.Width, u.Height)
	}
	return fmt.Sprintf("<a class='attachment' href='%s'>%s</a> (%s)",
		u.URL, u.OriginalFilename, humanFileSize(u.Filesize))
}

// humanFileSize formats a byte count the way post content shows it.
func humanFileSize(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

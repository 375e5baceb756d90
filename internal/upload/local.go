// Package upload stores post attachments on the local filesystem and
// hands back references for embedding in post content.
package upload

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/forum-inbound/internal/model"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Local stores uploads under a directory and serves them from a base
// URL prefix.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates a local upload store rooted at dir.
func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Store copies the spooled attachment file into the upload directory
// under a fresh name and returns its reference. Image dimensions are
// probed for image content types.
func (l *Local) Store(ctx context.Context, userID int64, filename, contentType, srcPath string) (*model.Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("opening spooled attachment: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating spooled attachment: %w", err)
	}

	stored := storedName(filename)
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	dst, err := os.Create(filepath.Join(l.dir, stored))
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("writing upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("closing upload file: %w", err)
	}

	u := &model.Upload{
		OriginalFilename: filename,
		URL:              l.baseURL + "/" + stored,
		Filesize:         info.Size(),
		ContentType:      strings.ToLower(contentType),
	}

	if u.IsImage() {
		if width, height, ok := probeImage(srcPath); ok {
			u.Width = width
			u.Height = height
		}
	}

	return u, nil
}

// storedName derives a collision-free stored filename, keeping the
// original extension so served files get sensible content types.
func storedName(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return uuid.NewString() + ext
}

// probeImage reads just enough of the file to learn its pixel
// dimensions. Undecodable images are stored anyway, without
// dimensions.
func probeImage(srcPath string) (width, height int, ok bool) {
	f, err := os.Open(srcPath)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

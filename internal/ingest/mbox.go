package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/emersion/go-mbox"
)

// MboxStats summarizes one import run over an mbox archive.
type MboxStats struct {
	Processed int
	Rejected  int
}

// MboxImporter replays the messages of an mbox archive through the
// processor, one at a time in file order.
type MboxImporter struct {
	processor Processor
	logger    *slog.Logger
}

// NewMboxImporter creates an importer backed by the given processor.
func NewMboxImporter(processor Processor, logger *slog.Logger) *MboxImporter {
	return &MboxImporter{processor: processor, logger: logger}
}

// ImportFile streams the mbox file at path. Messages that the
// pipeline rejects are counted and logged but do not stop the import.
func (m *MboxImporter) ImportFile(ctx context.Context, path string) (*MboxStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mbox %s: %w", path, err)
	}
	defer f.Close()

	return m.Import(ctx, f)
}

// Import streams messages from r until EOF.
func (m *MboxImporter) Import(ctx context.Context, r io.Reader) (*MboxStats, error) {
	reader := mbox.NewReader(r)
	stats := &MboxStats{}

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			return stats, fmt.Errorf("message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return stats, fmt.Errorf("message %d read: %w", idx, err)
		}

		outcome, err := m.processor.Process(ctx, raw)
		if err != nil {
			stats.Rejected++
			m.logger.Warn("message rejected", "index", idx, "err", err)
			continue
		}

		stats.Processed++
		m.logger.Info("message processed",
			"index", idx,
			"topic_id", outcome.Post.TopicID,
			"post_number", outcome.Post.PostNumber,
		)
	}
}

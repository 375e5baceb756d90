// Package ingest feeds raw messages into the receiver pipeline from
// the supported sources: an IMAP inbox, a local drop directory, and
// mbox archive files.
package ingest

import (
	"context"

	"github.com/nhle/forum-inbound/internal/receiver"
)

// Processor consumes one raw RFC 5322 message. It is satisfied by
// *receiver.Receiver.
type Processor interface {
	Process(ctx context.Context, raw []byte) (*receiver.Outcome, error)
}

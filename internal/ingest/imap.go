package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/forum-inbound/internal/model"
	"github.com/nhle/forum-inbound/internal/receiver"
)

// IMAPPoller periodically fetches unseen messages from a mailbox and
// hands them to the processor. Successfully handled messages are
// flagged seen; rejected ones are flagged seen as well so they are
// not retried forever, with the rejection logged.
type IMAPPoller struct {
	cfg       model.IMAPConfig
	processor Processor
	logger    *slog.Logger
}

// NewIMAPPoller creates a poller for the configured mailbox.
func NewIMAPPoller(cfg model.IMAPConfig, processor Processor, logger *slog.Logger) *IMAPPoller {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPPoller{cfg: cfg, processor: processor, logger: logger}
}

// Run polls at the configured interval until ctx is cancelled. A scan
// runs immediately on startup.
func (p *IMAPPoller) Run(ctx context.Context) error {
	interval := time.Duration(p.cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	if err := p.Poll(ctx); err != nil {
		p.logger.Error("IMAP poll failed", "host", p.cfg.Host, "err", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				p.logger.Error("IMAP poll failed", "host", p.cfg.Host, "err", err)
			}
		}
	}
}

// Poll performs a single fetch pass over the unseen messages.
func (p *IMAPPoller) Poll(ctx context.Context) error {
	client, err := p.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(p.cfg.Mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", p.cfg.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	var handled []imap.UID
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			p.logger.Warn("collecting message failed", "err", err)
			continue
		}

		raw := buf.FindBodySection(bodySection)
		if raw == nil {
			continue
		}

		p.handle(ctx, uint32(buf.UID), raw)
		handled = append(handled, buf.UID)
	}

	if err := fetchCmd.Close(); err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	if len(handled) > 0 {
		if err := p.markSeen(client, handled); err != nil {
			return err
		}
	}

	return nil
}

func (p *IMAPPoller) connect() (*imapclient.Client, error) {
	addr := p.cfg.Host + ":" + p.cfg.Port

	var client *imapclient.Client
	var err error

	if p.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(p.cfg.Username, p.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", p.cfg.Username, err)
	}

	return client, nil
}

func (p *IMAPPoller) handle(ctx context.Context, uid uint32, raw []byte) {
	outcome, err := p.processor.Process(ctx, raw)
	if err != nil {
		var invalid *receiver.InvalidPostError
		if errors.As(err, &invalid) {
			p.logger.Warn("message rejected", "uid", uid, "reasons", invalid.Reasons)
		} else {
			p.logger.Warn("message rejected", "uid", uid, "err", err)
		}
		return
	}

	p.logger.Info("message processed",
		"uid", uid,
		"topic_id", outcome.Post.TopicID,
		"post_number", outcome.Post.PostNumber,
	)
}

func (p *IMAPPoller) markSeen(client *imapclient.Client, uids []imap.UID) error {
	storeCmd := client.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("marking messages seen: %w", err)
	}
	return nil
}

package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/carrierwatcher/carrierwatcher/model"
)

type IMAPOptions struct {
	Host               string
	Port               int
	Username           string
	UseTLS             bool
	InsecureSkipVerify bool
	Folder             string
	Limit              int
	Timeout            time.Duration
}

// IMAP reads recent messages from a mailbox over IMAP. The token passed to
// Fetch is the account password.
type IMAP struct {
	opts   IMAPOptions
	logger *slog.Logger
}

func NewIMAP(opts IMAPOptions, logger *slog.Logger) (*IMAP, error) {
	if opts.Host == "" {
		return nil, model.ConfigurationError("imap source", fmt.Errorf("imap host is empty"))
	}
	if opts.Port <= 0 {
		return nil, model.ConfigurationError("imap source", fmt.Errorf("imap port must be positive"))
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	return &IMAP{opts: opts, logger: logger}, nil
}

func (s *IMAP) folder() string {
	if s.opts.Folder == "" {
		return "INBOX"
	}
	return s.opts.Folder
}

func (s *IMAP) Fetch(ctx context.Context, token string, since time.Time) ([]model.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	client, cleanup, err := s.dial(ctx, token)
	if err != nil {
		return nil, model.NetworkError("fetch inbox", err)
	}
	defer cleanup()

	if _, err := client.Select(s.folder(), &imapv2.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, model.NetworkError("fetch inbox", fmt.Errorf("select %s: %w", s.folder(), err))
	}

	// SEARCH SINCE has day granularity; window() applies the exact cutoff.
	criteria := &imapv2.SearchCriteria{}
	if !since.IsZero() {
		criteria.Since = since
	}
	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, model.NetworkError("fetch inbox", fmt.Errorf("uid search: %w", err))
	}
	uids := data.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	// UIDs grow with arrival order, so the tail holds the newest messages.
	if len(uids) > s.opts.Limit {
		uids = uids[len(uids)-s.opts.Limit:]
	}

	section := &imapv2.FetchItemBodySection{
		Specifier: imapv2.PartSpecifierText,
		Peek:      true,
		Partial:   &imapv2.SectionPartial{Offset: 0, Size: previewLimit},
	}
	fetchOpts := &imapv2.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imapv2.FetchItemBodySection{section},
	}
	bufs, err := client.Fetch(imapv2.UIDSetNum(uids...), fetchOpts).Collect()
	if err != nil {
		return nil, model.NetworkError("fetch inbox", fmt.Errorf("uid fetch: %w", err))
	}

	msgs := make([]model.Message, 0, len(bufs))
	for _, buf := range bufs {
		msgs = append(msgs, s.toMessage(buf, section))
	}

	if s.logger != nil {
		s.logger.Debug("imap inbox fetched", "folder", s.folder(), "returned", len(msgs), "since", since)
	}
	return window(msgs, since, s.opts.Limit), nil
}

func (s *IMAP) toMessage(buf *imapclient.FetchMessageBuffer, section *imapv2.FetchItemBodySection) model.Message {
	msg := model.Message{
		ID:         fmt.Sprintf("uid:%d", buf.UID),
		ReceivedAt: buf.InternalDate,
	}
	if env := buf.Envelope; env != nil {
		if id := strings.Trim(strings.TrimSpace(env.MessageID), "<>"); id != "" {
			msg.ID = id
		}
		msg.Subject = env.Subject
		if len(env.From) > 0 {
			msg.From = env.From[0].Addr()
		}
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = env.Date
		}
	}
	msg.Preview = preview(string(buf.FindBodySection(section)))
	return msg
}

func (s *IMAP) dial(ctx context.Context, password string) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	options := &imapclient.Options{}

	if s.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         s.opts.Host,
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)

	if s.opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	if err := client.Login(s.opts.Username, password).Wait(); err != nil {
		stopClose()
		_ = client.Close()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("imap connection established", "address", address, "user", s.opts.Username, "tls", s.opts.UseTLS)
	}

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil && s.logger != nil {
				s.logger.Warn("imap logout failed", "err", err)
			}
		}
		if err := client.Close(); err != nil && s.logger != nil {
			s.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/carrierwatcher/carrierwatcher/model"
)

type MboxOptions struct {
	Path  string
	Limit int
}

// Mbox replays messages from a local mbox archive, for offline imports
// and for mail exported from providers without API access.
type Mbox struct {
	opts   MboxOptions
	logger *slog.Logger
}

func NewMbox(opts MboxOptions, logger *slog.Logger) (*Mbox, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, model.ConfigurationError("mbox source", errors.New("mbox path is empty"))
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return &Mbox{opts: opts, logger: logger}, nil
}

func (m *Mbox) Fetch(ctx context.Context, _ string, since time.Time) ([]model.Message, error) {
	file, err := os.Open(m.opts.Path)
	if err != nil {
		return nil, model.NetworkError("open mbox", err)
	}
	defer file.Close()

	msgs, err := m.read(ctx, file)
	if err != nil {
		return nil, model.NetworkError("read mbox", err)
	}
	return window(msgs, since, m.opts.Limit), nil
}

func (m *Mbox) read(ctx context.Context, r io.Reader) ([]model.Message, error) {
	reader := mboxlib.NewReader(r)

	var msgs []model.Message
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return msgs, nil
			}
			return nil, fmt.Errorf("message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return nil, fmt.Errorf("message %d read: %w", idx, err)
		}

		msg, err := parseMessage(raw)
		if err != nil {
			// A single undecodable message must not hide the rest of the archive.
			if m.logger != nil {
				m.logger.Warn("skipping unparsable mbox message", "index", idx, "err", err)
			}
			continue
		}
		msgs = append(msgs, msg)
	}
}

func parseMessage(raw []byte) (model.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return model.Message{}, err
	}
	defer mr.Close()

	h := mr.Header
	msg := model.Message{}

	if id, err := h.MessageID(); err == nil && id != "" {
		msg.ID = id
	} else {
		sum := sha256.Sum256(raw)
		msg.ID = "sha256:" + base64.RawURLEncoding.EncodeToString(sum[:])
	}
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	if date, err := h.Date(); err == nil {
		msg.ReceivedAt = date
	}

	msg.Preview = preview(firstText(mr))
	return msg, nil
}

// firstText returns the first text/plain part, or the first inline text
// part of any subtype when no plain part exists.
func firstText(mr *mail.Reader) string {
	var fallback string
	for {
		p, err := mr.NextPart()
		if err != nil {
			return fallback
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.HasPrefix(contentType, "text/") {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(p.Body, 8*1024))
		if err != nil {
			continue
		}
		if contentType == "" || contentType == "text/plain" {
			return string(body)
		}
		if fallback == "" {
			fallback = string(body)
		}
	}
}

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carrierwatcher/carrierwatcher/model"
)

const (
	DefaultGraphURL     = "https://graph.microsoft.com/v1.0"
	DefaultFetchTimeout = 20 * time.Second
)

type GraphOptions struct {
	BaseURL string
	Limit   int
	Timeout time.Duration
	// Client overrides the HTTP client; its Timeout is left untouched.
	Client *http.Client
}

// Graph reads the signed-in user's Inbox through Microsoft Graph.
type Graph struct {
	baseURL string
	limit   int
	client  *http.Client
	logger  *slog.Logger
}

func NewGraph(opts GraphOptions, logger *slog.Logger) *Graph {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultGraphURL
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Graph{baseURL: base, limit: limit, client: client, logger: logger}
}

type graphMessage struct {
	ID               string `json:"id"`
	ReceivedDateTime string `json:"receivedDateTime"`
	Subject          string `json:"subject"`
	BodyPreview      string `json:"bodyPreview"`
	From             *struct {
		EmailAddress *struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
}

type graphPage struct {
	Value []graphMessage `json:"value"`
}

func (g *Graph) Fetch(ctx context.Context, token string, since time.Time) ([]model.Message, error) {
	params := url.Values{}
	params.Set("$top", strconv.Itoa(g.limit))
	params.Set("$select", "id,receivedDateTime,subject,from,bodyPreview")
	params.Set("$orderby", "receivedDateTime desc")
	endpoint := g.baseURL + "/me/mailFolders/Inbox/messages?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, model.NetworkError("build graph request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, model.NetworkError("fetch inbox", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, model.NetworkError("fetch inbox", fmt.Errorf("graph returned %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var page graphPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, model.NetworkError("decode inbox", err)
	}

	msgs := make([]model.Message, 0, len(page.Value))
	for _, item := range page.Value {
		if item.ID == "" {
			return nil, model.NetworkError("decode inbox", errors.New("message without id"))
		}
		received, err := time.Parse(time.RFC3339, item.ReceivedDateTime)
		if err != nil {
			return nil, model.NetworkError("decode inbox", fmt.Errorf("message %s: receivedDateTime: %w", item.ID, err))
		}
		msg := model.Message{
			ID:         item.ID,
			Subject:    item.Subject,
			Preview:    item.BodyPreview,
			ReceivedAt: received,
		}
		if item.From != nil && item.From.EmailAddress != nil {
			msg.From = item.From.EmailAddress.Address
		}
		msgs = append(msgs, msg)
	}

	if g.logger != nil {
		g.logger.Debug("graph inbox fetched", "returned", len(msgs), "since", since)
	}
	return window(msgs, since, g.limit), nil
}

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/carrierwatcher/carrierwatcher/model"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ids(msgs []model.Message) string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return strings.Join(out, ",")
}

func TestWindow(t *testing.T) {
	msgs := func() []model.Message {
		return []model.Message{
			{ID: "a", ReceivedAt: ts("2024-01-01T00:00:00Z")},
			{ID: "c", ReceivedAt: ts("2024-01-03T00:00:00Z")},
			{ID: "b", ReceivedAt: ts("2024-01-02T00:00:00Z")},
		}
	}

	tests := []struct {
		name  string
		since time.Time
		limit int
		want  string
	}{
		{name: "newest first", want: "c,b,a"},
		{name: "cutoff is inclusive", since: ts("2024-01-02T00:00:00Z"), want: "c,b"},
		{name: "limit keeps newest", limit: 2, want: "c,b"},
		{name: "limit applies before cutoff", since: ts("2024-01-01T00:00:00Z"), limit: 1, want: "c"},
		{name: "cutoff after everything", since: ts("2024-02-01T00:00:00Z"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(window(msgs(), tt.since, tt.limit)); got != tt.want {
				t.Errorf("window() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	if got := preview("  Hello\r\n\tworld  "); got != "Hello world" {
		t.Errorf("preview() = %q", got)
	}
	long := strings.Repeat("é", previewLimit+10)
	if got := []rune(preview(long)); len(got) != previewLimit {
		t.Errorf("preview() length = %d, want %d", len(got), previewLimit)
	}
}

const graphBody = `{"value":[
 {"id":"m2","receivedDateTime":"2024-01-02T09:00:00Z","subject":"Interview","bodyPreview":"Let's talk","from":{"emailAddress":{"address":"hr@acme.com"}}},
 {"id":"m1","receivedDateTime":"2024-01-01T00:00:00Z","subject":"Merci pour votre candidature","bodyPreview":"","from":null}
]}`

func TestGraph_Fetch(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/mailFolders/Inbox/messages" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(graphBody))
	}))
	defer srv.Close()

	g := NewGraph(GraphOptions{BaseURL: srv.URL + "/", Limit: 5}, nil)

	msgs, err := g.Fetch(context.Background(), "tok", time.Time{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	for _, want := range []string{"%24top=5", "%24orderby=receivedDateTime+desc", "%24select=id%2CreceivedDateTime%2Csubject%2Cfrom%2CbodyPreview"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if ids(msgs) != "m2,m1" {
		t.Fatalf("ids = %q, want m2,m1", ids(msgs))
	}
	if msgs[0].From != "hr@acme.com" || msgs[0].Subject != "Interview" || msgs[0].Preview != "Let's talk" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].From != "" {
		t.Errorf("null sender should map to empty, got %q", msgs[1].From)
	}

	msgs, err = g.Fetch(context.Background(), "tok", ts("2024-01-01T12:00:00Z"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if ids(msgs) != "m2" {
		t.Errorf("ids after cutoff = %q, want m2", ids(msgs))
	}
}

func TestGraph_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "unauthorized", handler: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
		}},
		{name: "bad json", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"value":`))
		}},
		{name: "bad timestamp", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"value":[{"id":"x","receivedDateTime":"yesterday"}]}`))
		}},
		{name: "timeout", handler: func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"value":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := NewGraph(GraphOptions{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
			_, err := g.Fetch(context.Background(), "tok", time.Time{})
			if !errors.Is(err, model.ErrNetwork) {
				t.Fatalf("Fetch() error = %v, want network error", err)
			}
		})
	}
}

const archive = "From hr@acme.com Mon Jan  1 00:00:00 2024\n" +
	"Message-Id: <m1@acme.com>\n" +
	"From: Acme HR <hr@acme.com>\n" +
	"Subject: =?UTF-8?Q?F=C3=A9licitations?=\n" +
	"Date: Mon, 01 Jan 2024 10:00:00 +0000\n" +
	"Content-Type: text/plain; charset=utf-8\n" +
	"\n" +
	"We are happy to make you an offer.\n" +
	"\n" +
	"From jobs@globex.fr Tue Jan  2 00:00:00 2024\n" +
	"From: jobs@globex.fr\n" +
	"Subject: Convocation entretien\n" +
	"Date: Tue, 02 Jan 2024 10:00:00 +0000\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\n" +
	"\n" +
	"--XYZ\n" +
	"Content-Type: text/html\n" +
	"\n" +
	"<p>html body</p>\n" +
	"--XYZ\n" +
	"Content-Type: text/plain\n" +
	"\n" +
	"Plain body\n" +
	"--XYZ--\n"

func TestMbox_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.mbox")
	if err := os.WriteFile(path, []byte(archive), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewMbox(MboxOptions{Path: path}, nil)
	if err != nil {
		t.Fatalf("NewMbox() error = %v", err)
	}
	msgs, err := src.Fetch(context.Background(), "", time.Time{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}

	newest, oldest := msgs[0], msgs[1]
	if newest.Subject != "Convocation entretien" || newest.From != "jobs@globex.fr" {
		t.Errorf("newest = %+v", newest)
	}
	if newest.Preview != "Plain body" {
		t.Errorf("newest preview = %q, want text/plain part", newest.Preview)
	}
	if !strings.HasPrefix(newest.ID, "sha256:") {
		t.Errorf("message without Message-Id should get a content hash id, got %q", newest.ID)
	}
	if oldest.ID != "m1@acme.com" || oldest.Subject != "Félicitations" || oldest.From != "hr@acme.com" {
		t.Errorf("oldest = %+v", oldest)
	}
	if !oldest.ReceivedAt.Equal(ts("2024-01-01T10:00:00Z")) {
		t.Errorf("oldest received = %v", oldest.ReceivedAt)
	}

	msgs, err = src.Fetch(context.Background(), "", ts("2024-01-02T00:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Subject != "Convocation entretien" {
		t.Errorf("cutoff fetch = %+v", msgs)
	}
}

func TestMbox_Errors(t *testing.T) {
	if _, err := NewMbox(MboxOptions{}, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("NewMbox() error = %v, want configuration error", err)
	}

	src, err := NewMbox(MboxOptions{Path: filepath.Join(t.TempDir(), "missing.mbox")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Fetch(context.Background(), "", time.Time{}); !errors.Is(err, model.ErrNetwork) {
		t.Errorf("Fetch() error = %v, want network error", err)
	}
}

func TestIMAP_ToMessage(t *testing.T) {
	src, err := NewIMAP(IMAPOptions{Host: "imap.example.test", Port: 993}, nil)
	if err != nil {
		t.Fatal(err)
	}
	section := &imapv2.FetchItemBodySection{Specifier: imapv2.PartSpecifierText}

	withEnvelope := src.toMessage(&imapclient.FetchMessageBuffer{
		UID:          42,
		InternalDate: ts("2024-01-05T08:00:00Z"),
		Envelope: &imapv2.Envelope{
			Subject:   "Your interview",
			MessageID: "<abc@acme.com>",
			From:      []imapv2.Address{{Name: "HR", Mailbox: "hr", Host: "acme.com"}},
		},
	}, section)
	if withEnvelope.ID != "abc@acme.com" || withEnvelope.From != "hr@acme.com" || withEnvelope.Subject != "Your interview" {
		t.Errorf("toMessage() = %+v", withEnvelope)
	}
	if !withEnvelope.ReceivedAt.Equal(ts("2024-01-05T08:00:00Z")) {
		t.Errorf("ReceivedAt = %v", withEnvelope.ReceivedAt)
	}

	bare := src.toMessage(&imapclient.FetchMessageBuffer{UID: 7}, section)
	if bare.ID != "uid:7" {
		t.Errorf("ID = %q, want uid:7", bare.ID)
	}
}

func TestNewIMAP_Validation(t *testing.T) {
	if _, err := NewIMAP(IMAPOptions{Port: 993}, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("missing host: error = %v", err)
	}
	if _, err := NewIMAP(IMAPOptions{Host: "h"}, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("missing port: error = %v", err)
	}
}

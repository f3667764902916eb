// Package auth provides the bearer credentials handed to message sources.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// TokenCacheFileName is the cached OAuth token inside the data directory.
const TokenCacheFileName = "token_cache.json"

// DefaultScopes grant read access to the mailbox and a refresh token.
var DefaultScopes = []string{"Mail.Read", "offline_access"}

// Provider returns an opaque credential for the configured message source.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

type DeviceCodeOptions struct {
	ClientID  string
	Tenant    string
	Scopes    []string
	CachePath string
	// Prompt receives the verification URL and user code.
	Prompt io.Writer
	// Endpoint overrides the Microsoft identity platform endpoints.
	Endpoint *oauth2.Endpoint
}

// DeviceCode obtains Microsoft Graph tokens with the OAuth 2.0 device
// authorization grant and caches them on disk between runs.
type DeviceCode struct {
	opts   DeviceCodeOptions
	config *oauth2.Config
	logger *slog.Logger
}

func NewDeviceCode(opts DeviceCodeOptions, logger *slog.Logger) *DeviceCode {
	endpoint := microsoft.AzureADEndpoint(opts.Tenant)
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	if endpoint.DeviceAuthURL == "" {
		tenant := opts.Tenant
		if tenant == "" {
			tenant = "common"
		}
		endpoint.DeviceAuthURL = "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0/devicecode"
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	if opts.Prompt == nil {
		opts.Prompt = os.Stderr
	}

	return &DeviceCode{
		opts: opts,
		config: &oauth2.Config{
			ClientID: opts.ClientID,
			Endpoint: endpoint,
			Scopes:   scopes,
		},
		logger: logger,
	}
}

// Token returns a valid access token, reusing or refreshing the cached one
// when possible and otherwise running the interactive device flow.
func (d *DeviceCode) Token(ctx context.Context) (string, error) {
	if d.opts.ClientID == "" {
		return "", model.ConfigurationError("acquire token", errors.New("no OAuth client id configured (set AZURE_CLIENT_ID or --client-id)"))
	}

	if cached := d.readCache(); cached != nil {
		tok, err := d.config.TokenSource(ctx, cached).Token()
		if err == nil && tok.AccessToken != "" {
			if tok.AccessToken != cached.AccessToken {
				d.writeCache(tok)
			}
			return tok.AccessToken, nil
		}
		d.debug("cached token unusable, starting device flow", "err", err)
	}

	da, err := d.config.DeviceAuth(ctx)
	if err != nil {
		return "", model.AuthenticationError("start device authorization", err)
	}
	fmt.Fprintf(d.opts.Prompt, "To authorize mailbox access, visit %s and enter the code %s\n", da.VerificationURI, da.UserCode)

	tok, err := d.config.DeviceAccessToken(ctx, da)
	if err != nil {
		return "", model.AuthenticationError("exchange device code", err)
	}
	if tok.AccessToken == "" {
		return "", model.AuthenticationError("exchange device code", errors.New("token response carried no access token"))
	}

	d.writeCache(tok)
	return tok.AccessToken, nil
}

func (d *DeviceCode) readCache() *oauth2.Token {
	if d.opts.CachePath == "" {
		return nil
	}
	data, err := os.ReadFile(d.opts.CachePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.warn("read token cache", "path", d.opts.CachePath, "err", err)
		}
		return nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		d.warn("parse token cache", "path", d.opts.CachePath, "err", err)
		return nil
	}
	return &tok
}

// writeCache failures are logged; the token in hand is still usable.
func (d *DeviceCode) writeCache(tok *oauth2.Token) {
	if d.opts.CachePath == "" {
		return
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		d.warn("encode token cache", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(d.opts.CachePath), 0o755); err != nil {
		d.warn("create token cache directory", "err", err)
		return
	}
	if err := os.WriteFile(d.opts.CachePath, data, 0o600); err != nil {
		d.warn("write token cache", "path", d.opts.CachePath, "err", err)
	}
}

func (d *DeviceCode) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *DeviceCode) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

// Static hands out a fixed secret such as an IMAP password.
type Static struct {
	Name   string
	Secret string
}

func (s Static) Token(context.Context) (string, error) {
	if s.Secret == "" {
		return "", model.ConfigurationError("acquire token", fmt.Errorf("%s is not configured", s.Name))
	}
	return s.Secret, nil
}

// None is used by sources that need no credential.
type None struct{}

func (None) Token(context.Context) (string, error) {
	return "", nil
}

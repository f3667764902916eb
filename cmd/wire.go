package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/carrierwatcher/carrierwatcher/auth"
	"github.com/carrierwatcher/carrierwatcher/config"
	"github.com/carrierwatcher/carrierwatcher/runner"
	"github.com/carrierwatcher/carrierwatcher/source"
	"github.com/carrierwatcher/carrierwatcher/store"
)

// newSource builds the inbox source selected by --source together with the
// credential provider it needs.
func newSource(cfg config.Config, logger *slog.Logger) (source.Source, auth.Provider, error) {
	switch cfg.Source {
	case config.SourceGraph:
		creds := auth.NewDeviceCode(auth.DeviceCodeOptions{
			ClientID:  cfg.ClientID,
			Tenant:    cfg.Tenant,
			CachePath: filepath.Join(cfg.DataDir, auth.TokenCacheFileName),
			Prompt:    os.Stderr,
		}, logger)
		src := source.NewGraph(source.GraphOptions{
			BaseURL: cfg.GraphURL,
			Limit:   cfg.FetchLimit,
			Timeout: cfg.FetchTimeout,
		}, logger)
		return src, creds, nil

	case config.SourceIMAP:
		src, err := source.NewIMAP(source.IMAPOptions{
			Host:               cfg.IMAPHost,
			Port:               cfg.IMAPPort,
			Username:           cfg.IMAPUser,
			UseTLS:             cfg.UseTLS,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Folder:             cfg.IMAPFolder,
			Limit:              cfg.FetchLimit,
			Timeout:            cfg.FetchTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, auth.Static{Name: "IMAP password", Secret: cfg.IMAPPass}, nil

	case config.SourceMbox:
		src, err := source.NewMbox(source.MboxOptions{
			Path:  cfg.MboxPath,
			Limit: cfg.FetchLimit,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, auth.None{}, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func newRunner(cfg config.Config, logger *slog.Logger) (*runner.Runner, error) {
	src, creds, err := newSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	return runner.New(runner.Options{
		DataDir:     cfg.DataDir,
		Credentials: creds,
		Source:      src,
		Store:       store.New(cfg.DataDir, logger),
		DryRun:      cfg.DryRun,
	}, logger)
}

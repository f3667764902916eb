package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// Message source kinds.
const (
	SourceGraph = "graph"
	SourceIMAP  = "imap"
	SourceMbox  = "mbox"
)

// Config captures the options shared by every subcommand.
type Config struct {
	DataDir            string
	Source             string
	ClientID           string
	Tenant             string
	GraphURL           string
	FetchLimit         int
	FetchTimeout       time.Duration
	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	InsecureSkipVerify bool
	IMAPFolder         string
	MboxPath           string
	DryRun             bool
	LogLevel           string
	LogDir             string
}

// LoadEnv loads KEY=value pairs from the given files (default .env) into
// the process environment without overriding variables already set.
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// RegisterFlags attaches the shared flags to the root command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	flags.String("data-dir", defaultDataDir(), "Directory holding the application table and sync state (CARRIERWATCHER_DATA_DIR)")
	flags.String("source", SourceGraph, "Inbox source: graph, imap or mbox")
	flags.String("client-id", "", "OAuth client id for Microsoft Graph (falls back to AZURE_CLIENT_ID env var)")
	flags.String("tenant", "common", "Microsoft identity tenant")
	flags.String("graph-url", "https://graph.microsoft.com/v1.0", "Microsoft Graph base URL")
	flags.Int("fetch-limit", 30, "Maximum number of recent messages fetched per sync")
	flags.Duration("fetch-timeout", 20*time.Second, "Timeout of the inbox fetch")
	flags.String("imap-host", "", "IMAP server hostname")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("imap-folder", "INBOX", "IMAP folder to scan")
	flags.String("mbox", "", "Path to an .mbox archive to scan instead of a live inbox")
	flags.Bool("dry-run", false, "Run the sync without writing the table, ledger or checkpoint")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Also write logs to a timestamped file in this directory")
	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	var cfg Config
	var err error
	if cfg.DataDir, err = flags.GetString("data-dir"); err != nil {
		return Config{}, err
	}
	if cfg.Source, err = flags.GetString("source"); err != nil {
		return Config{}, err
	}
	if cfg.ClientID, err = flags.GetString("client-id"); err != nil {
		return Config{}, err
	}
	if cfg.Tenant, err = flags.GetString("tenant"); err != nil {
		return Config{}, err
	}
	if cfg.GraphURL, err = flags.GetString("graph-url"); err != nil {
		return Config{}, err
	}
	if cfg.FetchLimit, err = flags.GetInt("fetch-limit"); err != nil {
		return Config{}, err
	}
	if cfg.FetchTimeout, err = flags.GetDuration("fetch-timeout"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPHost, err = flags.GetString("imap-host"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPPort, err = flags.GetInt("imap-port"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPUser, err = flags.GetString("imap-user"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPPass, err = flags.GetString("imap-pass"); err != nil {
		return Config{}, err
	}
	if cfg.UseTLS, err = flags.GetBool("use-tls"); err != nil {
		return Config{}, err
	}
	if cfg.InsecureSkipVerify, err = flags.GetBool("insecure-skip-verify"); err != nil {
		return Config{}, err
	}
	if cfg.IMAPFolder, err = flags.GetString("imap-folder"); err != nil {
		return Config{}, err
	}
	if cfg.MboxPath, err = flags.GetString("mbox"); err != nil {
		return Config{}, err
	}
	if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = flags.GetString("log-level"); err != nil {
		return Config{}, err
	}
	if cfg.LogDir, err = flags.GetString("log-dir"); err != nil {
		return Config{}, err
	}

	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("AZURE_CLIENT_ID")
	}
	if cfg.IMAPPass == "" {
		cfg.IMAPPass = os.Getenv("IMAP_PASS")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir()
	}
	cfg.DataDir = filepath.Clean(cfg.DataDir)
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, model.ConfigurationError("load config", err)
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	switch cfg.Source {
	case SourceGraph, SourceIMAP, SourceMbox:
	default:
		return fmt.Errorf("invalid --source: %s (want graph, imap or mbox)", cfg.Source)
	}
	if cfg.FetchLimit <= 0 {
		return fmt.Errorf("--fetch-limit must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("--fetch-timeout must be positive")
	}
	if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
		return fmt.Errorf("--imap-port must be between 1 and 65535")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func defaultDataDir() string {
	if dir := os.Getenv("CARRIERWATCHER_DATA_DIR"); dir != "" {
		return dir
	}
	return "data"
}

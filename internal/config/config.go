// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// defaultMaxPayload is the largest request body accepted from repositories
// that are not on the payload whitelist.
const defaultMaxPayload = 20 << 20

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken string
	GitHubAppID int64
	BotLogin    string
	ListenAddr  string
	DBPath      string
	BlobDir     string
	// PublicOrigin is the scheme://host[:port] the emitted install and
	// template URLs are built on.
	PublicOrigin string
	// Whitelist lists owner/repo entries exempt from the payload size limit.
	Whitelist  []string
	MaxPayload int64
}

// Load reads configuration from environment variables and returns a validated
// Config. PREVIEWPUB_GITHUB_TOKEN, PREVIEWPUB_BOT_LOGIN, and
// PREVIEWPUB_PUBLIC_ORIGIN are required. Optional variables with defaults:
// PREVIEWPUB_GITHUB_APP_ID (0, disables app-scoped check-run filtering),
// PREVIEWPUB_LISTEN_ADDR (127.0.0.1:8080), PREVIEWPUB_DB_PATH
// (previewpub.db), PREVIEWPUB_BLOB_DIR (blobs), PREVIEWPUB_WHITELIST (empty,
// comma-separated owner/repo entries), PREVIEWPUB_MAX_PAYLOAD (20MiB, bytes).
func Load() (*Config, error) {
	token := os.Getenv("PREVIEWPUB_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("PREVIEWPUB_GITHUB_TOKEN is required")
	}

	botLogin := os.Getenv("PREVIEWPUB_BOT_LOGIN")
	if botLogin == "" {
		return nil, fmt.Errorf("PREVIEWPUB_BOT_LOGIN is required")
	}

	origin := os.Getenv("PREVIEWPUB_PUBLIC_ORIGIN")
	if origin == "" {
		return nil, fmt.Errorf("PREVIEWPUB_PUBLIC_ORIGIN is required")
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("PREVIEWPUB_PUBLIC_ORIGIN must be an absolute URL, got %q", origin)
	}
	origin = strings.TrimRight(origin, "/")

	var appID int64
	if v, ok := os.LookupEnv("PREVIEWPUB_GITHUB_APP_ID"); ok && v != "" {
		appID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PREVIEWPUB_GITHUB_APP_ID has invalid value %q: %w", v, err)
		}
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PREVIEWPUB_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "previewpub.db"
	if v, ok := os.LookupEnv("PREVIEWPUB_DB_PATH"); ok {
		dbPath = v
	}

	blobDir := "blobs"
	if v, ok := os.LookupEnv("PREVIEWPUB_BLOB_DIR"); ok {
		blobDir = v
	}

	var whitelist []string
	if v, ok := os.LookupEnv("PREVIEWPUB_WHITELIST"); ok && v != "" {
		for _, entry := range strings.Split(v, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				whitelist = append(whitelist, entry)
			}
		}
	}
	if whitelist == nil {
		whitelist = []string{}
	}

	var maxPayload int64 = defaultMaxPayload
	if v, ok := os.LookupEnv("PREVIEWPUB_MAX_PAYLOAD"); ok && v != "" {
		maxPayload, err = strconv.ParseInt(v, 10, 64)
		if err != nil || maxPayload <= 0 {
			return nil, fmt.Errorf("PREVIEWPUB_MAX_PAYLOAD has invalid value %q", v)
		}
	}

	return &Config{
		GitHubToken:  token,
		GitHubAppID:  appID,
		BotLogin:     botLogin,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		BlobDir:      blobDir,
		PublicOrigin: origin,
		Whitelist:    whitelist,
		MaxPayload:   maxPayload,
	}, nil
}

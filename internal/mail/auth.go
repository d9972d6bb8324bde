package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/ppiankov/schoolmon/internal/model"
)

// Scopes requested by the auth flow: read and relabel, plus send for invites
var Scopes = []string{gmail.GmailModifyScope, gmail.GmailSendScope}

// OAuthConfig reads a desktop-app client secret and returns the OAuth config
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%s not found; download an OAuth client secret from the Google Cloud console", credentialsFile)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return config, nil
}

// LoadToken reads a token saved by SaveToken
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes token to path, readable by the owner only
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// NewGmailStoreFromConfig builds an authenticated store from saved credentials
func NewGmailStoreFromConfig(ctx context.Context, cfg model.MailConfig) (*GmailStore, error) {
	config, err := OAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token %s: %w. Please run 'schoolmon auth' first", cfg.TokenFile, err)
	}

	return NewGmailStore(ctx, cfg.User, option.WithHTTPClient(config.Client(ctx, token)))
}

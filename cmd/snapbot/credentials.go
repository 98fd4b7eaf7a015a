package main

import (
	"errors"

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/pkg/config"
)

type credentials struct {
	Username     string
	Password     string
	ImageHostKey string
}

// DryRun reports whether the bot runs without site credentials.
func (c credentials) DryRun() bool {
	return c.Username == "" || c.Password == ""
}

// resolveCredentials fills credentials from config, then from the persisted
// state, then from prompts. A blank username selects dry-run and skips the
// remaining questions.
func resolveCredentials(cfg *config.Config, state *entity.SessionState, p *prompter) (credentials, error) {
	creds := credentials{
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
		ImageHostKey: cfg.ImgurAPIKey,
	}
	if creds.Username == "" {
		creds.Username = state.Username
	}
	if creds.ImageHostKey == "" {
		creds.ImageHostKey = state.ImageHostKey
	}

	var err error
	if creds.Username == "" {
		if creds.Username, err = p.ask("Username (blank for dry-run): "); err != nil {
			return creds, err
		}
	}
	if creds.Username == "" {
		return creds, nil
	}
	if creds.Password == "" {
		if creds.Password, err = p.askSecret("Password for " + creds.Username + ": "); err != nil {
			return creds, err
		}
	}
	if creds.Password == "" {
		return creds, nil
	}
	if creds.ImageHostKey == "" {
		if creds.ImageHostKey, err = p.ask("Image host API key: "); err != nil {
			return creds, err
		}
	}
	if creds.ImageHostKey == "" {
		return creds, errors.New("an image host API key is required when site credentials are set")
	}
	return creds, nil
}

// remember copies the persistable credentials into state and reports whether
// anything changed.
func (c credentials) remember(state *entity.SessionState) bool {
	changed := state.Username != c.Username || state.ImageHostKey != c.ImageHostKey
	state.Username = c.Username
	state.ImageHostKey = c.ImageHostKey
	return changed
}

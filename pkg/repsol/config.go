package repsol

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/raterudder/luzygas/pkg/log"
)

const (
	defaultLoginURL = "https://login.repsol.es/accounts.login"
	defaultAPIURL   = "https://areacliente.repsol.es/api/v2/private"
	defaultTimeout  = 10 * time.Second
)

// Config holds everything needed to build a Client.
type Config struct {
	Username string
	Password string

	// ContractID limits fetching to a single contract when set.
	ContractID string

	LoginURL string
	APIURL   string
	APIKey   string
	Timeout  time.Duration
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("repsol-username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("repsol-password is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("repsol-api-key is required")
	}
	for _, f := range []struct{ name, raw string }{
		{"repsol-login-url", c.LoginURL},
		{"repsol-api-url", c.APIURL},
	} {
		name, raw := f.name, f.raw
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("failed to parse %s (%s): %w", name, raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute url: %s", name, raw)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("repsol-timeout must be positive")
	}
	return nil
}

// Configured sets up flags for the account client and returns the instance.
// It uses lflag to register command-line flags for configuration.
func Configured() *Client {
	c := &Client{}
	username := lflag.String("repsol-username", "", "Repsol Luz y Gas account email")
	password := lflag.String("repsol-password", "", "Repsol Luz y Gas account password")
	contractID := lflag.String("repsol-contract-id", "", "Only fetch this contract (see the contracts command)")
	loginURL := lflag.String("repsol-login-url", defaultLoginURL, "URL of the Repsol accounts login endpoint")
	apiURL := lflag.String("repsol-api-url", defaultAPIURL, "Base URL of the Repsol customer area API")
	apiKey := lflag.String("repsol-api-key", "", "API key sent with the login request")
	timeout := lflag.Duration("repsol-timeout", defaultTimeout, "Timeout for each request to Repsol")

	lflag.Do(func() {
		cfg := Config{
			Username:   *username,
			Password:   *password,
			ContractID: *contractID,
			LoginURL:   *loginURL,
			APIURL:     *apiURL,
			APIKey:     *apiKey,
			Timeout:    *timeout,
		}
		if err := cfg.Validate(); err != nil {
			log.Ctx(context.Background()).Error("invalid repsol configuration", slog.Any("error", err))
			os.Exit(1)
		}
		if err := c.init(cfg); err != nil {
			log.Ctx(context.Background()).Error("failed to create repsol client", slog.Any("error", err))
			os.Exit(1)
		}
	})

	return c
}

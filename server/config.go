package main

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is loaded once in main and handed to everything that needs it.
// Values come from the environment, optionally overlaid on a yaml file
// (CONFIG_PATH).
type Config struct {
	Addr        string `yaml:"addr" env:"ADDR" env-default:":8080"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL" env-default:"postgres://postgres:postgres@db:5432/lifereboot?sslmode=disable"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	SessionCookieName string        `yaml:"session_cookie_name" env:"SESSION_COOKIE_NAME" env-default:"lifereboot_sess"`
	SessionTTL        time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"336h"`
	CookieSecure      bool          `yaml:"cookie_secure" env:"COOKIE_SECURE" env-default:"false"`
	CookieSameSite    string        `yaml:"cookie_samesite" env:"COOKIE_SAMESITE" env-default:"lax"`

	OAuthGithubClientID     string `yaml:"oauth_github_client_id" env:"OAUTH_GITHUB_CLIENT_ID"`
	OAuthGithubClientSecret string `yaml:"oauth_github_client_secret" env:"OAUTH_GITHUB_CLIENT_SECRET"`
	OAuthGithubRedirectURL  string `yaml:"oauth_github_redirect_url" env:"OAUTH_GITHUB_REDIRECT_URL"`

	// NoteDebounce is how long the autosaver waits for the user to stop
	// typing before a note write goes out.
	NoteDebounce time.Duration `yaml:"note_debounce" env:"NOTE_DEBOUNCE" env-default:"1s"`
	// HistoryDays is the default window for history and analytics queries.
	HistoryDays int `yaml:"history_days" env:"HISTORY_DAYS" env-default:"90"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		// Missing file falls back to env only.
		var pe *os.PathError
		if errors.As(err, &pe) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return Config{}, err
			}
			return cfg, nil
		}
		return Config{}, err
	}
	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultScope grants read/write access to Buzz.
	DefaultScope = "https://www.googleapis.com/auth/buzz"
	// ReadOnlyScope is requested when mutations are disabled.
	ReadOnlyScope = DefaultScope + ".readonly"

	defaultAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL = "https://accounts.google.com/o/oauth2/token"
	defaultAPIBase  = "https://www.googleapis.com/buzz/v1/"
)

// ErrMissingCredentials is returned when the OAuth client ID or secret is not configured.
var ErrMissingCredentials = errors.New("client ID and secret are not configured")

// CredentialsHint tells the user where the client ID and secret come from.
const CredentialsHint = "Please enter your client ID and secret in BUZZ_CLIENT_ID and BUZZ_CLIENT_SECRET (or client_id/client_secret in the config file)"

// Config holds application configuration
type Config struct {
	ClientID        string
	ClientSecret    string
	Scope           string
	ReadOnly        bool
	PrettyPrint     bool
	APIBaseURL      string
	AuthURL         string
	TokenURL        string
	RedirectPort    int
	Browser         string
	ApplicationName string
	DatabasePath    string
	HTTPTimeout     time.Duration
	LogLevel        string
	LogFormat       string
	MetricsPushURL  string
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix("BUZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("scope", "")
	v.SetDefault("read_only", false)
	v.SetDefault("pretty_print", true)
	v.SetDefault("api_base_url", defaultAPIBase)
	v.SetDefault("auth_url", defaultAuthURL)
	v.SetDefault("token_url", defaultTokenURL)
	v.SetDefault("redirect_port", 8080)
	v.SetDefault("browser", "")
	v.SetDefault("application_name", "Google-BuzzSample/1.0")
	v.SetDefault("db_path", "buzzsample.db")
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_push_url", "")
}

// LoadConfig builds a Config from v. Missing credentials are not an error
// here; see CheckCredentials.
func LoadConfig(v *viper.Viper) (*Config, error) {
	readOnly := v.GetBool("read_only")

	scope := strings.TrimSpace(v.GetString("scope"))
	if scope == "" {
		scope = DefaultScope
		if readOnly {
			scope = ReadOnlyScope
		}
	}

	timeout := parseDuration(v.GetString("http_timeout"), 30*time.Second)

	port := v.GetInt("redirect_port")
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid redirect_port %d", port)
	}

	apiBase := v.GetString("api_base_url")
	if apiBase != "" && !strings.HasSuffix(apiBase, "/") {
		apiBase += "/"
	}

	return &Config{
		ClientID:        strings.TrimSpace(v.GetString("client_id")),
		ClientSecret:    strings.TrimSpace(v.GetString("client_secret")),
		Scope:           scope,
		ReadOnly:        readOnly,
		PrettyPrint:     v.GetBool("pretty_print"),
		APIBaseURL:      apiBase,
		AuthURL:         v.GetString("auth_url"),
		TokenURL:        v.GetString("token_url"),
		RedirectPort:    port,
		Browser:         v.GetString("browser"),
		ApplicationName: v.GetString("application_name"),
		DatabasePath:    v.GetString("db_path"),
		HTTPTimeout:     timeout,
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		LogFormat:       strings.ToLower(v.GetString("log_format")),
		MetricsPushURL:  v.GetString("metrics_push_url"),
	}, nil
}

// CheckCredentials returns ErrMissingCredentials unless both the client ID
// and secret are set.
func (c *Config) CheckCredentials() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// parseDuration parses a duration string with a default
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}

	return d
}

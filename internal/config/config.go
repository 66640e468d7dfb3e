// Package config loads the portal's settings from the environment.
//
// Load runs once at startup and the result is treated as immutable. Only
// values the process cannot start without are checked here; the public
// provider config and the service-account credential are checked when first
// used, so a misconfigured deployment still serves its public pages.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/whynot-innovations/portal/internal/credential"
)

// Identity provider backends.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Public provider settings, served to the browser by /api/config/public.
const (
	PublicAPIKeyEnv            = "NEXT_PUBLIC_FIREBASE_API_KEY"
	PublicAuthDomainEnv        = "NEXT_PUBLIC_FIREBASE_AUTH_DOMAIN"
	PublicProjectIDEnv         = "NEXT_PUBLIC_FIREBASE_PROJECT_ID"
	PublicStorageBucketEnv     = "NEXT_PUBLIC_FIREBASE_STORAGE_BUCKET"
	PublicMessagingSenderIDEnv = "NEXT_PUBLIC_FIREBASE_MESSAGING_SENDER_ID"
	PublicAppIDEnv             = "NEXT_PUBLIC_FIREBASE_APP_ID"
)

// DiagnosedVars are the variables reported by the env diagnostics endpoint.
var DiagnosedVars = []string{
	PublicAPIKeyEnv,
	PublicAuthDomainEnv,
	PublicProjectIDEnv,
	PublicStorageBucketEnv,
	PublicMessagingSenderIDEnv,
	PublicAppIDEnv,
	credential.EnvVar, // read lazily by the Google provider, never by Load
}

// Config holds application-wide settings.
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBPath string

	// Identity
	AuthProvider     string
	LocalTokenSecret string
	LocalTokenTTL    time.Duration
	Public           PublicProviderConfig

	// Session gate
	ProtectedPrefixes []string
	LoginPath         string

	// CORS
	CORSAllowedOrigins []string

	// Diagnostics
	EnableDebugEnv bool

	// Rate limit
	LoginRatePerMinute int
}

// PublicProviderConfig is the client-side provider configuration. None of
// it is secret.
type PublicProviderConfig struct {
	APIKey            string `json:"apiKey"`
	AuthDomain        string `json:"authDomain"`
	ProjectID         string `json:"projectId"`
	StorageBucket     string `json:"storageBucket"`
	MessagingSenderID string `json:"messagingSenderId"`
	AppID             string `json:"appId"`
}

// Missing lists the variables the browser client cannot start without.
func (p PublicProviderConfig) Missing() []string {
	var missing []string
	if p.APIKey == "" {
		missing = append(missing, PublicAPIKeyEnv)
	}
	if p.ProjectID == "" {
		missing = append(missing, PublicProjectIDEnv)
	}
	return missing
}

// IsDevelopment reports whether the process runs in local development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SecureCookies is false only in local development, where the portal is
// served over plain HTTP.
func (c *Config) SecureCookies() bool {
	return !c.IsDevelopment()
}

// Load reads Config from the environment. It returns an error naming every
// required variable that is unset.
func Load() (*Config, error) {
	cfg := &Config{
		Env:                getEnvString("APP_ENV", "development"),
		Port:               getEnvString("PORT", "8080"),
		DBPath:             getEnvString("DB_PATH", "data/whynot.db"),
		AuthProvider:       strings.ToLower(getEnvString("AUTH_PROVIDER", ProviderLocal)),
		LocalTokenSecret:   os.Getenv("LOCAL_TOKEN_SECRET"),
		LocalTokenTTL:      getEnvDuration("LOCAL_TOKEN_TTL", time.Hour),
		ProtectedPrefixes:  getEnvList("PROTECTED_PREFIXES", []string{"/app"}),
		LoginPath:          getEnvString("LOGIN_PATH", "/login"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		EnableDebugEnv:     getEnvBool("ENABLE_DEBUG_ENV", false),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 20),
		Public: PublicProviderConfig{
			APIKey:            os.Getenv(PublicAPIKeyEnv),
			AuthDomain:        os.Getenv(PublicAuthDomainEnv),
			ProjectID:         os.Getenv(PublicProjectIDEnv),
			StorageBucket:     os.Getenv(PublicStorageBucketEnv),
			MessagingSenderID: os.Getenv(PublicMessagingSenderIDEnv),
			AppID:             os.Getenv(PublicAppIDEnv),
		},
	}

	var missing []string

	switch cfg.AuthProvider {
	case ProviderLocal:
		if cfg.LocalTokenSecret == "" {
			missing = append(missing, "LOCAL_TOKEN_SECRET")
		}
	case ProviderGoogle:
	default:
		return nil, fmt.Errorf("AUTH_PROVIDER must be %q or %q, got %q", ProviderLocal, ProviderGoogle, cfg.AuthProvider)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if !strings.HasPrefix(cfg.LoginPath, "/") {
		return nil, fmt.Errorf("LOGIN_PATH must start with '/', got %q", cfg.LoginPath)
	}
	if cfg.LoginRatePerMinute <= 0 {
		cfg.LoginRatePerMinute = 20
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

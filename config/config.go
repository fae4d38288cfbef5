package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MinJWTSecretLength matches the HS256 key size
	MinJWTSecretLength = 32

	// DefaultFrontEndURL is always an allowed CORS origin
	DefaultFrontEndURL = "http://localhost:3000"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	GitHub        GitHubConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that sets those headers.
	TrustProxy bool
}

// AuthConfig holds identity token configuration
type AuthConfig struct {
	JWTSecret   string
	JWTTTL      time.Duration
	JWTIssuer   string
	FrontEndURL string // Post-login redirect target
}

// GitHubConfig holds the OAuth app credentials and API endpoints
type GitHubConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string // OAuth2 callback URL
	Scopes          []string
	APIBaseURL      string
	GraphQLEndpoint string
	Timeout         time.Duration
	UserAgent       string
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists (backend/.env when run from project root, .env when run from backend/)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	frontEndURL := getEnv("FRONT_END_URL", DefaultFrontEndURL)

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TrustProxy:      getEnvAsBool("SERVER_TRUST_PROXY", false),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			JWTTTL:      getEnvAsDuration("JWT_TTL", 24*time.Hour),
			JWTIssuer:   getEnv("JWT_ISSUER", "gitstats-backend"),
			FrontEndURL: frontEndURL,
		},
		GitHub: GitHubConfig{
			ClientID:        getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret:    getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURI:     getEnv("GITHUB_REDIRECT_URI", "http://localhost:8080/login/oauth2/code/github"),
			Scopes:          getEnvAsList("GITHUB_SCOPES", []string{"read:user", "repo"}),
			APIBaseURL:      getEnv("GITHUB_API_BASE_URL", "https://api.github.com"),
			GraphQLEndpoint: getEnv("GITHUB_GRAPHQL_ENDPOINT", "https://api.github.com/graphql"),
			Timeout:         getEnvAsDuration("GITHUB_TIMEOUT", 10*time.Second),
			UserAgent:       getEnv("GITHUB_USER_AGENT", "GitStatsApp"),
		},
		CORS: CORSConfig{
			AllowedOrigins: allowedOrigins(frontEndURL, getEnvAsList("CORS_ALLOWED_ORIGINS", nil)),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	}
	if c.Auth.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	u, err := url.Parse(c.Auth.FrontEndURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("FRONT_END_URL must be an absolute URL")
	}

	// OAuth app credentials (required in production)
	if c.IsProduction() {
		if c.GitHub.ClientID == "" {
			return fmt.Errorf("github client ID is required in production")
		}
		if c.GitHub.ClientSecret == "" {
			return fmt.Errorf("github client secret is required in production")
		}
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// OAuthConfigured reports whether the GitHub login flow can run
func (c *GitHubConfig) OAuthConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// SecureCookies reports whether handshake cookies must be marked Secure
func (c *GitHubConfig) SecureCookies() bool {
	return strings.HasPrefix(c.RedirectURI, "https")
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// allowedOrigins always admits the local dev frontend and the configured
// frontend, followed by any extra origins, without duplicates
func allowedOrigins(frontEndURL string, extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range append([]string{DefaultFrontEndURL, strings.TrimRight(frontEndURL, "/")}, extra...) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

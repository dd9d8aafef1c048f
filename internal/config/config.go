// Package config loads application settings from environment variables and
// makes them available to the rest of the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application settings.
type Config struct {
	// Server
	Port    string // API server port
	GinMode string // gin mode (debug, release, test)

	// Auth
	JWTSecret       string // signing secret for session tokens
	TokenMinVersion int    // minimum accepted token schema version
	BcryptCost      int    // cost used when rehashing passwords

	// CORS / cookies
	FrontendOrigin string // allowed origin for the admin frontend
	// PublicBaseURL is the public site origin. QR stickers encode
	// PublicBaseURL + /lookup/<code>, a frontend page that calls the API; it
	// must point at the site, not at this server.
	PublicBaseURL string

	// Storage
	DatabaseURL string // Postgres DSN
	RedisURL    string // redis connection URL (rate limiting, job store)

	// Uploads
	UploadDir     string // directory for public uploads
	MaxUploadSize int64  // per-file upload size cap in bytes

	// PDF generation
	PDFWorkDir string // workspace for generated quote/commissioning PDFs

	// Supplier portal (Wasco)
	WascoBaseURL  string
	WascoUsername string
	WascoPassword string

	// Bookkeeping SOAP API
	BoekhoudURL      string
	BoekhoudUsername string
	BoekhoudCode1    string // security code 1
	BoekhoudCode2    string // security code 2

	// Notifications
	OfficeEmail string // recipient for internal notification mails

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env.local file is used
// when present (local development).
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenMinVersion: getEnvAsInt("TOKEN_MIN_VERSION", 1),
		BcryptCost:      getEnvAsInt("BCRYPT_COST", 12),

		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:5173"),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/klimaatdesk?sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		UploadDir:     getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "klimaatdesk", "uploads")),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB

		PDFWorkDir: getEnv("PDF_WORK_DIR", filepath.Join(os.TempDir(), "klimaatdesk", "pdf")),

		WascoBaseURL:  getEnv("WASCO_BASE_URL", "https://www.wasco.nl"),
		WascoUsername: getEnv("WASCO_USERNAME", ""),
		WascoPassword: getEnv("WASCO_PASSWORD", ""),

		BoekhoudURL:      getEnv("BOEKHOUD_URL", "https://soap.e-boekhouden.nl/soap.asmx"),
		BoekhoudUsername: getEnv("BOEKHOUD_USERNAME", ""),
		BoekhoudCode1:    getEnv("BOEKHOUD_CODE1", ""),
		BoekhoudCode2:    getEnv("BOEKHOUD_CODE2", ""),

		OfficeEmail: getEnv("OFFICE_EMAIL", "info@klimaatdesk.nl"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}
	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate checks required settings. Release mode is strict; local
// development tolerates missing credentials for the external integrations.
func (c *Config) Validate() error {
	if c.TokenMinVersion < 1 {
		return fmt.Errorf("TOKEN_MIN_VERSION must be at least 1")
	}
	if c.BcryptCost < 10 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 10 and 31")
	}

	if c.GinMode == "release" {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET of at least 32 characters is required in release mode")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in release mode")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in release mode")
		}
	} else if c.JWTSecret == "" {
		// Deterministic development-only secret so a bare checkout boots.
		c.JWTSecret = "dev-secret-change-me-dev-secret-change-me"
	}
	return nil
}

// CookieSecure reports whether cookies should carry the Secure flag.
func (c *Config) CookieSecure() bool {
	return c.GinMode == "release"
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

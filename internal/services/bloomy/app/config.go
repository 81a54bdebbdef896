package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/logging"
	"github.com/louisbranch/bloomy/internal/platform/otel"
	"github.com/louisbranch/bloomy/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/bloomy/internal/services/notifications/delivery"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Consent modes.
const (
	ConsentTerminal    = "terminal"
	ConsentGranted     = "granted"
	ConsentDenied      = "denied"
	ConsentDismiss     = "default"
	ConsentUnsupported = "unsupported"
)

const minSessionSecret = 32

// Config is the full runtime configuration, read from BLOOMY_* variables.
type Config struct {
	Profile string `env:"PROFILE" envDefault:"default"`
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	Backend     string `env:"STORE_BACKEND" envDefault:"file"`
	Codec       string `env:"STORE_CODEC" envDefault:"json"`
	MemoryQuota int    `env:"STORE_MEMORY_QUOTA" envDefault:"5242880"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"bloomy:ls"`

	DirectoryPath string `env:"DIRECTORY_DB"`
	InboxPath     string `env:"INBOX_DB"`
	SeedDemo      bool   `env:"SEED_DEMO" envDefault:"true"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	Consent   string `env:"CONSENT" envDefault:"terminal"`
	SlotsFile string `env:"SLOTS_FILE"`
	Locale    string `env:"LOCALE"`
	Timezone  string `env:"TIMEZONE"`

	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:"127.0.0.1:8787"`
	HealthAddr     string   `env:"HEALTH_ADDR" envDefault:"127.0.0.1:8788"`
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	NATS      delivery.NATSConfig
	Log       logging.Config
	Telemetry otel.Config
}

// Normalize fills derived defaults and validates the configuration.
func (c *Config) Normalize() error {
	c.Profile = strings.TrimSpace(c.Profile)
	if c.Profile == "" {
		c.Profile = "default"
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = BackendFile
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	c.Consent = strings.ToLower(strings.TrimSpace(c.Consent))
	switch c.Consent {
	case "":
		c.Consent = ConsentTerminal
	case ConsentTerminal, ConsentGranted, ConsentDenied, ConsentDismiss, ConsentUnsupported:
	default:
		return fmt.Errorf("unknown consent mode %q", c.Consent)
	}
	if strings.TrimSpace(c.DirectoryPath) == "" {
		c.DirectoryPath = filepath.Join(c.DataDir, "directory.db")
	}
	if strings.TrimSpace(c.InboxPath) == "" {
		c.InboxPath = filepath.Join(c.DataDir, "inbox.db")
	}
	if c.Backend == BackendMemory {
		c.DirectoryPath = sqlitemigrate.MemoryPath
		c.InboxPath = sqlitemigrate.MemoryPath
	}
	if secret := c.SessionSecret; secret != "" && len(secret) < minSessionSecret {
		return fmt.Errorf("session secret must be at least %d bytes", minSessionSecret)
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
	if strings.TrimSpace(c.Locale) == "" {
		c.Locale = localeFromEnvironment()
	}
	return nil
}

// Location resolves the configured time zone, defaulting to local time.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// StoreDir is where the file backend keeps blobs.
func (c Config) StoreDir() string {
	return filepath.Join(c.DataDir, "profiles")
}

// localeFromEnvironment reads the POSIX locale variables, turning
// "pt_BR.UTF-8" into "pt-BR".
func localeFromEnvironment() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}
		return strings.ReplaceAll(value, "_", "-")
	}
	return ""
}

// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Store names accepted by PROFILE_STORE.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

const (
	defaultPort             = "8080"
	defaultRequestBodyLimit = 1 << 20
	defaultNetworkTTL       = 5 * time.Minute
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds server settings.
type Config struct {
	Port                         string
	ProfileStore                 string
	FirebaseProjectID            string
	GoogleApplicationCredentials string
	DatabaseURL                  string
	// ProfileNetworks lists the accepted networkId values. Empty accepts all.
	ProfileNetworks []string
	// NetworkRegistryURL replaces ProfileNetworks with a remote registry.
	NetworkRegistryURL   string
	NetworkRegistryToken string
	NetworkRegistryTTL   time.Duration
	RequestBodyLimit     int64
	CORSAllowedOrigins   []string
	LogLevel             zapcore.Level
}

// Load reads a .env file when present, then the process environment. Values
// already set in the environment win over the file. With no files given,
// ".env" in the working directory is tried.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := FromLookup(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromLookup builds a Config from lookup without validating it.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		Port:                         get("PORT", defaultPort),
		ProfileStore:                 strings.ToLower(get("PROFILE_STORE", StoreFirestore)),
		FirebaseProjectID:            get("FIREBASE_PROJECT_ID", ""),
		GoogleApplicationCredentials: get("GOOGLE_APPLICATION_CREDENTIALS", ""),
		DatabaseURL:                  get("DATABASE_URL", ""),
		ProfileNetworks:              splitList(get("PROFILE_NETWORKS", "")),
		NetworkRegistryURL:           get("NETWORK_REGISTRY_URL", ""),
		NetworkRegistryToken:         get("NETWORK_REGISTRY_TOKEN", ""),
		NetworkRegistryTTL:           defaultNetworkTTL,
		RequestBodyLimit:             defaultRequestBodyLimit,
		CORSAllowedOrigins:           splitList(get("CORS_ALLOWED_ORIGINS", "")),
		LogLevel:                     zapcore.InfoLevel,
	}

	if raw := get("REQUEST_BODY_LIMIT", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: REQUEST_BODY_LIMIT %q: %v", ErrInvalid, raw, err)
		}
		cfg.RequestBodyLimit = n
	}
	if raw := get("NETWORK_REGISTRY_TTL", ""); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: NETWORK_REGISTRY_TTL %q: %v", ErrInvalid, raw, err)
		}
		cfg.NetworkRegistryTTL = ttl
	}
	if raw := get("LOG_LEVEL", ""); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: LOG_LEVEL %q: %v", ErrInvalid, raw, err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		errs = append(errs, fmt.Errorf("%w: PORT %q is not a valid port", ErrInvalid, c.Port))
	}
	switch c.ProfileStore {
	case StoreFirestore:
		if c.FirebaseProjectID == "" {
			errs = append(errs, fmt.Errorf("%w: FIREBASE_PROJECT_ID is required for the firestore store", ErrInvalid))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrInvalid))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: PROFILE_STORE %q is not one of firestore, postgres, memory", ErrInvalid, c.ProfileStore))
	}
	if c.NetworkRegistryURL != "" {
		if u, err := url.Parse(c.NetworkRegistryURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: NETWORK_REGISTRY_URL %q is not an http(s) URL", ErrInvalid, c.NetworkRegistryURL))
		}
		if len(c.ProfileNetworks) > 0 {
			errs = append(errs, fmt.Errorf("%w: set PROFILE_NETWORKS or NETWORK_REGISTRY_URL, not both", ErrInvalid))
		}
		if c.NetworkRegistryTTL <= 0 {
			errs = append(errs, fmt.Errorf("%w: NETWORK_REGISTRY_TTL must be positive", ErrInvalid))
		}
	}
	if c.RequestBodyLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: REQUEST_BODY_LIMIT must be positive", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config assembles the immutable service configuration from the
// environment. It is constructed once in main and passed to constructors;
// nothing else in the tree reads environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	envAddr          = "TASKLANE_ADDR"
	envPGDSN         = "TASKLANE_PG_DSN"
	envRedisURL      = "TASKLANE_REDIS_URL"
	envAccessSecret  = "TASKLANE_JWT_SECRET"
	envRefreshSecret = "TASKLANE_JWT_REFRESH_SECRET"
	envAlgorithm     = "TASKLANE_JWT_ALGORITHM"
	envBcryptCost    = "TASKLANE_BCRYPT_COST"

	defaultAddr       = ":8080"
	defaultAlgorithm  = "HS256"
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Config is the fully resolved, immutable service configuration.
type Config struct {
	Addr     string
	PGDSN    string
	RedisURL string

	// Two independent signing secrets. Compromise of one must not allow
	// forging the other token kind.
	AccessSecret  []byte
	RefreshSecret []byte
	Algorithm     string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Load reads the environment and validates it. Missing secrets are a fatal
// configuration error, never a per-request one.
func Load() (Config, error) {
	cfg := Config{
		Addr:          envOr(envAddr, defaultAddr),
		PGDSN:         strings.TrimSpace(os.Getenv(envPGDSN)),
		RedisURL:      strings.TrimSpace(os.Getenv(envRedisURL)),
		AccessSecret:  []byte(strings.TrimSpace(os.Getenv(envAccessSecret))),
		RefreshSecret: []byte(strings.TrimSpace(os.Getenv(envRefreshSecret))),
		Algorithm:     envOr(envAlgorithm, defaultAlgorithm),
		AccessTTL:     DefaultAccessTTL,
		RefreshTTL:    DefaultRefreshTTL,
		BcryptCost:    bcrypt.DefaultCost,
	}
	if raw := strings.TrimSpace(os.Getenv(envBcryptCost)); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return Config{}, fmt.Errorf("config: invalid %s %q", envBcryptCost, raw)
		}
		cfg.BcryptCost = cost
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.AccessSecret) == 0 {
		return fmt.Errorf("config: %s is required", envAccessSecret)
	}
	if len(c.RefreshSecret) == 0 {
		return fmt.Errorf("config: %s is required", envRefreshSecret)
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return errors.New("config: access and refresh secrets must differ")
	}
	method := jwt.GetSigningMethod(c.Algorithm)
	if method == nil {
		return fmt.Errorf("config: unknown signing algorithm %q", c.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return fmt.Errorf("config: algorithm %q is not an HMAC variant; shared-secret signing requires HS256/384/512", c.Algorithm)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

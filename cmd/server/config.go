package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/wkoster/smhconnect/internal/krypto"
)

// config is the configuration for the server command. It is parsed from
// the environment, any variable that is not set falls back to its
// default value.
type config struct {
	HTTPAddr            string        `env:"HTTP_ADDR" envDefault:":3002"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DBFilename string `env:"DB_FILENAME" envDefault:"smhconnect.db"`
	DBMigrate  bool   `env:"DB_MIGRATE" envDefault:"true"`

	// TokenKey signs session tokens. It is required and must be a hex
	// encoded key of 32 bytes. It is held as a Secret so the raw key is
	// never exposed when the config is logged.
	TokenKey krypto.Secret `env:"TOKEN_KEY,required"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	tokenKey krypto.Key
}

// configFromEnv returns a config with values from the environment. It
// does a best effort to validate provided values, so that mistakes are
// caught ASAP.
func configFromEnv() (config, error) {
	var c config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("failed to parse environment: %w", err)
	}

	for name, dur := range map[string]time.Duration{
		"HTTP_READ_TIMEOUT":     c.HTTPReadTimeout,
		"HTTP_WRITE_TIMEOUT":    c.HTTPWriteTimeout,
		"HTTP_IDLE_TIMEOUT":     c.HTTPIdleTimeout,
		"HTTP_SHUTDOWN_TIMEOUT": c.HTTPShutdownTimeout,
		"TOKEN_TTL":             c.TokenTTL,
	} {
		if dur <= 0 {
			return c, fmt.Errorf("invalid env variable %s: duration %s is not positive", name, dur)
		}
	}

	key, err := krypto.ParseKey(string(c.TokenKey.SecretValue()))
	if err != nil {
		return c, fmt.Errorf("invalid env variable TOKEN_KEY: %w", err)
	}

	c.tokenKey = key

	return c, nil
}

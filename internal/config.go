package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,required=true"`
	Port     int    `env:"PORT,required=true"`
	LogLevel string `env:"LOG_LEVEL,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	ConnectionBufferSize int  `env:"CONNECTION_BUFFER_SIZE,required=true"`
	LimitMessages        *int `env:"LIMIT_MESSAGES"`
	MaxContentLength     int  `env:"MAX_CONTENT_LENGTH,required=true"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,required=true"`

	RestartInterval   time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	RequireAuth        bool   `env:"REQUIRE_AUTH"`
	EntityNotifyPolicy string `env:"ENTITY_NOTIFY_POLICY"`

	// Empty RedisAddr disables the cross-node relay.
	RedisAddr string `env:"REDIS_ADDR"`
	NodeName  string `env:"NODE_NAME"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

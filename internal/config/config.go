package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DataDir   string `envconfig:"BITE_DATA_DIR" default:"data"`
	UserAgent string `envconfig:"BITE_USER_AGENT" default:"CortezBiteBot/1.0 (+https://cortez.fish/bite-pipeline)"`

	MinDelayMS     int `envconfig:"BITE_MIN_DELAY_MS" default:"500"`
	MaxDelayMS     int `envconfig:"BITE_MAX_DELAY_MS" default:"1000"`
	FetchTimeoutMS int `envconfig:"BITE_FETCH_TIMEOUT_MS" default:"15000"`

	ListingMaxPages  int `envconfig:"BITE_LISTING_MAX_PAGES" default:"14"`
	ArchiveMaxPages  int `envconfig:"BITE_ARCHIVE_MAX_PAGES" default:"8"`
	EmptyStreakLimit int `envconfig:"BITE_EMPTY_STREAK_LIMIT" default:"2"`
	StaleStreakLimit int `envconfig:"BITE_STALE_STREAK_LIMIT" default:"4"`

	HistoryWindowDays int `envconfig:"BITE_HISTORY_WINDOW_DAYS" default:"365"`

	MarinaName      string  `envconfig:"MARINA_NAME" default:"Cabo Marina"`
	MarinaLatitude  float64 `envconfig:"MARINA_LATITUDE" default:"22.879"`
	MarinaLongitude float64 `envconfig:"MARINA_LONGITUDE" default:"-109.892"`

	HTTPHost string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8090"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("BITE_DATA_DIR is required")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("BITE_USER_AGENT is required")
	}
	if c.MinDelayMS < 0 {
		return fmt.Errorf("BITE_MIN_DELAY_MS must be >= 0")
	}
	if c.MaxDelayMS < c.MinDelayMS {
		return fmt.Errorf("BITE_MAX_DELAY_MS (%d) cannot be below BITE_MIN_DELAY_MS (%d)", c.MaxDelayMS, c.MinDelayMS)
	}
	if c.FetchTimeoutMS < 1 {
		return fmt.Errorf("BITE_FETCH_TIMEOUT_MS must be >= 1")
	}
	if c.ListingMaxPages < 1 {
		return fmt.Errorf("BITE_LISTING_MAX_PAGES must be >= 1")
	}
	if c.ArchiveMaxPages < 1 {
		return fmt.Errorf("BITE_ARCHIVE_MAX_PAGES must be >= 1")
	}
	if c.EmptyStreakLimit < 1 {
		return fmt.Errorf("BITE_EMPTY_STREAK_LIMIT must be >= 1")
	}
	if c.StaleStreakLimit < 1 {
		return fmt.Errorf("BITE_STALE_STREAK_LIMIT must be >= 1")
	}
	if c.HistoryWindowDays < 1 {
		return fmt.Errorf("BITE_HISTORY_WINDOW_DAYS must be >= 1")
	}
	if c.MarinaLatitude < -90 || c.MarinaLatitude > 90 {
		return fmt.Errorf("MARINA_LATITUDE must be between -90 and 90")
	}
	if c.MarinaLongitude < -180 || c.MarinaLongitude > 180 {
		return fmt.Errorf("MARINA_LONGITUDE must be between -180 and 180")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMS) * time.Millisecond
}

func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

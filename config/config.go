// Package config loads process configuration from the environment, an
// optional .env file and an optional YAML balance file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "QUESTBOT_"

// Config is the process configuration.
type Config struct {
	DBPath       string        `env:"DB_PATH"       envDefault:"questbot.db"`
	BalanceFile  string        `env:"BALANCE_FILE"`
	QuestDir     string        `env:"QUEST_DIR"`
	TokenTTL     time.Duration `env:"TOKEN_TTL"     envDefault:"2m"`
	RNGSeed      int64         `env:"RNG_SEED"      envDefault:"0"`
	LogLevel     string        `env:"LOG_LEVEL"     envDefault:"info"`
	LogFormat    string        `env:"LOG_FORMAT"    envDefault:"text"`
	DefaultQuest string        `env:"DEFAULT_QUEST" envDefault:"romance_dawn"`
	ActorID      string        `env:"ACTOR_ID"      envDefault:"console"`
}

// Load reads the given .env files (".env" when none are named) and then
// parses the environment. Missing .env files are skipped; variables
// already set in the environment win over the file.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%sTOKEN_TTL must be positive, got %s", EnvPrefix, c.TokenTTL)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%sLOG_FORMAT must be text or json, got %q", EnvPrefix, c.LogFormat)
	}
	if c.DefaultQuest == "" {
		return fmt.Errorf("%sDEFAULT_QUEST is required", EnvPrefix)
	}
	return nil
}

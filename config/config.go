package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "VOXSTAGE"

type GRPC struct {
	Addr string `yaml:"addr" split_words:"true"` // empty disables the directory
}

type HTTP struct {
	Addr           string   `yaml:"addr" split_words:"true"`
	AllowedOrigins []string `yaml:"allowedOrigins" split_words:"true"`
}

type Logging struct {
	Env       string `yaml:"env" split_words:"true"`       // dev|prod
	Service   string `yaml:"service" split_words:"true"`   // voxstage
	Version   string `yaml:"version" split_words:"true"`   // v0.1.0
	Backend   string `yaml:"backend" split_words:"true"`   // std|zap
	Level     string `yaml:"level" split_words:"true"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource" split_words:"true"` // false|true
	Debug     bool   `yaml:"debug" split_words:"true"`     // false|true
}

type Postgres struct {
	DSN      string `yaml:"dsn" split_words:"true"` // empty disables the journal
	MaxConns int32  `yaml:"maxConns" split_words:"true"`
}

type WS struct {
	PingEvery  time.Duration `yaml:"pingEvery" split_words:"true"`
	SendBuffer int           `yaml:"sendBuffer" split_words:"true"`
	ReadLimit  int64         `yaml:"readLimit" split_words:"true"`
}

type Rooms struct {
	IdleTTL       time.Duration `yaml:"idleTTL" split_words:"true"`
	SweepInterval time.Duration `yaml:"sweepInterval" split_words:"true"`
}

type Chat struct {
	MaxLength      int      `yaml:"maxLength" split_words:"true"`
	BannedWords    []string `yaml:"bannedWords" split_words:"true"`
	CensorChar     string   `yaml:"censorChar" split_words:"true"`
	DetectLanguage bool     `yaml:"detectLanguage" split_words:"true"`
}

type Assistant struct {
	Enabled bool          `yaml:"enabled" split_words:"true"`
	Timeout time.Duration `yaml:"timeout" split_words:"true"`
	Delay   time.Duration `yaml:"delay" split_words:"true"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwtSecret" split_words:"true"` // empty disables token checks
	Issuer    string        `yaml:"issuer" split_words:"true"`
	Leeway    time.Duration `yaml:"leeway" split_words:"true"`
}

type Journal struct {
	Buffer     int           `yaml:"buffer" split_words:"true"`
	BatchSize  int           `yaml:"batchSize" split_words:"true"`
	FlushEvery time.Duration `yaml:"flushEvery" split_words:"true"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http" split_words:"true"`
	GRPC      GRPC      `yaml:"grpc" split_words:"true"`
	Logging   Logging   `yaml:"logging" split_words:"true"`
	Postgres  Postgres  `yaml:"postgres" split_words:"true"`
	WS        WS        `yaml:"ws" split_words:"true"`
	Rooms     Rooms     `yaml:"rooms" split_words:"true"`
	Chat      Chat      `yaml:"chat" split_words:"true"`
	Assistant Assistant `yaml:"assistant" split_words:"true"`
	Auth      Auth      `yaml:"auth" split_words:"true"`
	Journal   Journal   `yaml:"journal" split_words:"true"`
}

// LoadConfig reads CONFIG_PATH (default ./config/config.yaml, optional), then
// a .env file if present, then VOXSTAGE_* variables on top (VOXSTAGE_<SECTION>_<FIELD>, e.g. VOXSTAGE_CHAT_MAX_LENGTH).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Chat.MaxLength < 0 {
		return errors.New("chat.maxLength must not be negative")
	}
	if c.Chat.CensorChar == "" {
		c.Chat.CensorChar = "*"
	}
	if len([]rune(c.Chat.CensorChar)) != 1 {
		return errors.New("chat.censorChar must be a single character")
	}
	if c.Rooms.IdleTTL < 0 || c.Rooms.SweepInterval < 0 {
		return errors.New("rooms durations must not be negative")
	}
	if c.Rooms.IdleTTL > 0 && c.Rooms.SweepInterval == 0 {
		c.Rooms.SweepInterval = c.Rooms.IdleTTL / 2
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwtSecret must be at least 16 bytes")
	}
	// дефолты, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "voxstage"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	c.Assistant.Timeout = durationOr(15*time.Second, c.Assistant.Timeout)
	c.Journal.FlushEvery = durationOr(2*time.Second, c.Journal.FlushEvery)
	if c.Journal.Buffer <= 0 {
		c.Journal.Buffer = 1024
	}
	if c.Journal.BatchSize <= 0 {
		c.Journal.BatchSize = 128
	}
	return nil
}

// CensorRune is the replacement character for masked words.
func (c *Config) CensorRune() rune {
	return []rune(c.Chat.CensorChar)[0]
}

func durationOr(def, d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

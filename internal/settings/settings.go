// Package settings loads process settings for bot-chat.
//
// Settings are resolved in layers, later layers winning:
//   - built-in defaults
//   - a TOML file ($BOT_CHAT_CONFIG or ~/.bot-chat/config.toml)
//   - a .env file in the working directory
//   - BOT_CHAT_* environment variables
//
// Command-line flags are applied on top by the caller.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// DefaultUndoWindow is how long a deleted chat can be restored.
const DefaultUndoWindow = 5 * time.Second

// DotEnvPath is the .env file read by Load.
var DotEnvPath = ".env"

// Settings is the resolved process configuration.
type Settings struct {
	Backend    string        `toml:"backend" json:"backend"`
	DB         string        `toml:"db" json:"db"`
	DataDir    string        `toml:"data_dir" json:"data_dir"`
	UndoWindow time.Duration `toml:"undo_window" json:"undo_window"`

	Redis RedisSettings `toml:"redis" json:"redis"`
	MySQL MySQLSettings `toml:"mysql" json:"mysql"`
	Log   LogSettings   `toml:"log" json:"log"`
}

// RedisSettings configures the redis backend.
type RedisSettings struct {
	Addr     string `toml:"addr" json:"addr"`
	Password string `toml:"password" json:"-"`
	DB       int    `toml:"db" json:"db"`
}

// MySQLSettings configures the mysql backend.
type MySQLSettings struct {
	DSN string `toml:"dsn" json:"-"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// Dir returns ~/.bot-chat.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bot-chat")
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Backend:    BackendSQLite,
		DB:         filepath.Join(Dir(), "bot-chat.db"),
		DataDir:    filepath.Join(Dir(), "data"),
		UndoWindow: DefaultUndoWindow,
		Redis:      RedisSettings{Addr: "localhost:6379"},
		Log:        LogSettings{Level: "warn", Format: "text"},
	}
}

// Path returns the settings file to read when none is given.
func Path() string {
	if p := os.Getenv("BOT_CHAT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.toml")
}

// Load resolves settings from path (or Path() when empty), .env and the
// environment. A missing file is not an error.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = Path()
	}
	s := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := godotenv.Load(DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvPath, err)
	}

	if err := s.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyEnvOverrides overlays BOT_CHAT_* variables.
func (s *Settings) ApplyEnvOverrides() error {
	s.Backend = getEnv("BOT_CHAT_BACKEND", s.Backend)
	s.DB = getEnv("BOT_CHAT_DB", s.DB)
	s.DataDir = getEnv("BOT_CHAT_DATA_DIR", s.DataDir)
	s.Redis.Addr = getEnv("BOT_CHAT_REDIS_ADDR", s.Redis.Addr)
	s.Redis.Password = getEnv("BOT_CHAT_REDIS_PASSWORD", s.Redis.Password)
	s.MySQL.DSN = getEnv("BOT_CHAT_MYSQL_DSN", s.MySQL.DSN)
	s.Log.Level = getEnv("BOT_CHAT_LOG_LEVEL", s.Log.Level)
	s.Log.Format = getEnv("BOT_CHAT_LOG_FORMAT", s.Log.Format)

	db, err := getEnvAsInt("BOT_CHAT_REDIS_DB", s.Redis.DB)
	if err != nil {
		return err
	}
	s.Redis.DB = db

	if v := os.Getenv("BOT_CHAT_UNDO_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse BOT_CHAT_UNDO_WINDOW: %w", err)
		}
		s.UndoWindow = d
	}
	return nil
}

// Validate rejects unknown backends and a non-positive undo window.
func (s *Settings) Validate() error {
	switch s.Backend {
	case BackendSQLite, BackendFile, BackendMemory, BackendRedis, BackendMySQL:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.Backend == BackendMySQL && s.MySQL.DSN == "" {
		return errors.New("mysql backend requires a dsn")
	}
	if s.UndoWindow <= 0 {
		return fmt.Errorf("undo window must be positive, got %s", s.UndoWindow)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

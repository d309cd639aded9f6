// Package cli implements the bot-chat CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/bot-chat/internal/logging"
	"github.com/rcliao/bot-chat/internal/notify"
	"github.com/rcliao/bot-chat/internal/settings"
	"github.com/rcliao/bot-chat/internal/storage"
	"github.com/rcliao/bot-chat/internal/storage/gormkv"
	"github.com/rcliao/bot-chat/internal/storage/rediskv"
	"github.com/rcliao/bot-chat/internal/storage/sqlitekv"
	"github.com/rcliao/bot-chat/internal/store"
)

var (
	dbPath      string
	backendFlag string
	configPath  string
	logLevel    string
	formatFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "bot-chat",
	Short: "Bots, chats and preferences for a chat client",
	Long:  "A small CLI over the bot registry, chat history and UI preferences of a chat client. JSON in, JSON out.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path for the sqlite backend (default: $BOT_CHAT_DB or ~/.bot-chat/bot-chat.db)")
	RootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "", "Storage backend: sqlite, file, memory, redis or mysql")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default: $BOT_CHAT_CONFIG or ~/.bot-chat/config.toml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// session is one opened set of stores and what they were built from.
type session struct {
	stores   *store.Stores
	queue    *notify.Queue
	settings *settings.Settings
	log      *slog.Logger
	backend  storage.Storage
}

func (s *session) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func loadSettings() (*settings.Settings, error) {
	cfg, err := settings.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

// openBackend builds the storage backend selected by cfg.
func openBackend(ctx context.Context, cfg *settings.Settings) (storage.Storage, error) {
	switch cfg.Backend {
	case settings.BackendSQLite:
		return sqlitekv.Open(cfg.DB)
	case settings.BackendFile:
		return storage.NewFile(cfg.DataDir)
	case settings.BackendMemory:
		return storage.NewMemory(), nil
	case settings.BackendRedis:
		return rediskv.Open(ctx, rediskv.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case settings.BackendMySQL:
		return gormkv.OpenMySQL(cfg.MySQL.DSN)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// openSession wires settings, logger, backend, notification queue and
// stores together. Notifications are echoed to stderr.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}

	queue := notify.NewQueue(cfg.UndoWindow)
	queue.OnEnqueue = func(n notify.Notification) {
		if n.ActionLabel != "" {
			fmt.Fprintf(os.Stderr, "%s [%s]\n", n.Message, n.ActionLabel)
			return
		}
		fmt.Fprintln(os.Stderr, n.Message)
	}

	stores, err := store.Open(ctx, store.Options{
		Storage:  backend,
		Notifier: queue,
		Logger:   log,
	})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open stores: %w", err)
	}
	log.Debug("session opened", "backend", cfg.Backend)
	return &session{stores: stores, queue: queue, settings: cfg, log: log, backend: backend}, nil
}

// mustSession returns a session over the stores carried by the command
// context, opening one when there are none. A session built from the
// context has no backend. The returned func releases what was opened.
func mustSession(cmd *cobra.Command) (*session, func()) {
	if s := store.FromContext(cmd.Context()); s != nil {
		return &session{stores: s}, func() {}
	}
	sess, err := openSession(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	return sess, func() { sess.Close() }
}

func mustStores(cmd *cobra.Command) (*store.Stores, func()) {
	sess, done := mustSession(cmd)
	return sess.stores, done
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/bot-chat/internal/storage"
	"github.com/rcliao/bot-chat/internal/storage/sqlitekv"
	"github.com/rcliao/bot-chat/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	Backend    string               `json:"backend,omitempty"`
	DBSize     int64                `json:"db_size_bytes,omitempty"`
	LastWrites map[string]time.Time `json:"last_writes,omitempty"`
	*store.Stats
}

// lastWrites reports when each snapshot was last saved, for backends that
// track it.
func lastWrites(ctx context.Context, backend storage.Storage) map[string]time.Time {
	kv, ok := backend.(*sqlitekv.Store)
	if !ok {
		return nil
	}
	out := make(map[string]time.Time)
	for _, key := range []string{store.BotsKey, store.ChatsKey, store.ConfigKey} {
		if t, err := kv.UpdatedAt(ctx, key); err == nil {
			out[key] = t
		}
	}
	return out
}

func runStats(cmd *cobra.Command, args []string) {
	sess, done := mustSession(cmd)
	defer done()

	out := statsOutput{Stats: sess.stores.Stats()}
	if sess.settings != nil {
		out.Backend = sess.settings.Backend
		if _, ok := sess.backend.(*sqlitekv.Store); ok {
			out.DBSize = sqlitekv.Size(sess.settings.DB)
		}
	}
	out.LastWrites = lastWrites(cmd.Context(), sess.backend)
	printJSON(cmd, out)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/bot-chat/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a backup",
		Long:  "Import a backup (stdin or file). Expects the format produced by export. Bots are upserted, new chats are added and preferences replaced.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read backup", err)
	}

	var backup store.Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		exitErr("parse json", err)
	}

	s, done := mustStores(cmd)
	defer done()

	res, err := s.Import(cmd.Context(), &backup)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"bots":%d,"chats":%d}`+"\n", res.Bots, res.Chats)
}

package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export bots, chats and preferences as JSON",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	backup, err := s.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	printJSON(cmd, backup)
}

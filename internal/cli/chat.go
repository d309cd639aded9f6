package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/bot-chat/internal/model"
	"github.com/rcliao/bot-chat/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage chats",
}

func init() {
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Start a chat and make it current",
		Long:  "Start a chat bound to --bot, or to the current chat's bot, or to the newest bot.",
		Args:  cobra.NoArgs,
		Run:   runChatNew,
	}
	newCmd.Flags().String("bot", "", "Bot id")

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List chats, newest first",
		Args:  cobra.NoArgs,
		Run:   runChatLs,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current chat",
		Args:  cobra.NoArgs,
		Run:   runChatShow,
	}

	selectCmd := &cobra.Command{
		Use:   "select <index>",
		Short: "Make the chat at index current",
		Args:  cobra.ExactArgs(1),
		Run:   runChatSelect,
	}

	rmCmd := &cobra.Command{
		Use:   "rm <index>",
		Short: "Delete the chat at index",
		Long:  "Delete the chat at index. Undo is available from the shell while the notification is visible.",
		Args:  cobra.ExactArgs(1),
		Run:   runChatRm,
	}

	sayCmd := &cobra.Command{
		Use:   "say [content]",
		Short: "Send a message to the current chat",
		Long:  "Send a message to the current chat. Content can be a positional arg or piped via stdin.",
		Run:   runChatSay,
	}

	rebindCmd := &cobra.Command{
		Use:   "rebind <bot-id>",
		Short: "Point the current chat at another bot",
		Args:  cobra.ExactArgs(1),
		Run:   runChatRebind,
	}

	chatCmd.AddCommand(newCmd, lsCmd, showCmd, selectCmd, rmCmd, sayCmd, rebindCmd)
	RootCmd.AddCommand(chatCmd)
}

// pickBot resolves the bot for a new chat.
func pickBot(s *store.Stores, id string) (string, error) {
	if id != "" {
		if _, ok := s.Bots.GetOne(id); !ok {
			return "", fmt.Errorf("bot %q not found", id)
		}
		return id, nil
	}
	if _, b, err := s.CurrentBot(); err == nil {
		return b.ID, nil
	}
	if bots := s.Bots.GetAll(); len(bots) > 0 {
		return bots[0].ID, nil
	}
	return "", errors.New("no bots; create one with `bot-chat bot new`")
}

func runChatNew(cmd *cobra.Command, args []string) {
	botID, _ := cmd.Flags().GetString("bot")

	s, done := mustStores(cmd)
	defer done()

	id, err := pickBot(s, botID)
	if err != nil {
		exitErr("chat new", err)
	}
	if err := s.Chats.Create(cmd.Context(), id); err != nil {
		exitErr("chat new", err)
	}
	c, _ := s.Chats.Chat()
	printJSON(cmd, c.Summary())
}

type menuEntry struct {
	Index   int    `json:"index"`
	Current bool   `json:"current,omitempty"`
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Updated int64  `json:"lastUpdate"`
}

func runChatLs(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	// Chat clamps the cursor before it is reported.
	s.Chats.Chat()
	cur := s.Chats.Index()

	menu := s.Chats.Menu()
	out := make([]menuEntry, len(menu))
	for i, m := range menu {
		out[i] = menuEntry{Index: i, Current: i == cur, ID: m.ID, Topic: m.Topic, Updated: m.LastUpdate}
	}
	if formatFlag == "text" {
		for _, e := range out {
			mark := " "
			if e.Current {
				mark = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d  %s\n", mark, e.Index, e.Topic)
		}
		return
	}
	printJSON(cmd, out)
}

func runChatShow(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	c, ok := s.Chats.Chat()
	if !ok {
		exitErr("chat show", store.ErrNoChat)
	}
	if formatFlag == "text" {
		printTranscript(cmd.OutOrStdout(), c)
		return
	}
	printJSON(cmd, c)
}

func printTranscript(w io.Writer, c model.Chat) {
	fmt.Fprintf(w, "# %s\n", c.Topic)
	for _, m := range c.History {
		who := string(m.Role)
		if m.Role == model.RoleAssistant && m.Bot != nil {
			who = m.Bot.Name
		}
		if m.IsError {
			who += " (error)"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", m.Date, who, m.Content)
	}
}

func parseIndex(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		exitErr("parse index", err)
	}
	return i
}

func runChatSelect(cmd *cobra.Command, args []string) {
	index := parseIndex(args[0])

	s, done := mustStores(cmd)
	defer done()

	if err := s.Chats.Select(cmd.Context(), index); err != nil {
		exitErr("chat select", err)
	}
	c, ok := s.Chats.Chat()
	if !ok {
		exitErr("chat select", store.ErrNoChat)
	}
	printJSON(cmd, map[string]any{"index": s.Chats.Index(), "chat": c.Summary()})
}

func runChatRm(cmd *cobra.Command, args []string) {
	index := parseIndex(args[0])

	s, done := mustStores(cmd)
	defer done()

	key, err := s.Chats.Delete(cmd.Context(), index)
	if err != nil {
		exitErr("chat rm", err)
	}
	if key == "" {
		fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true,"deleted":false}`)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true,"deleted":true}`)
}

func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func runChatSay(cmd *cobra.Command, args []string) {
	content := strings.TrimSpace(readContent(args))
	if content == "" {
		exitErr("chat say", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, done := mustStores(cmd)
	defer done()

	_, bot, err := s.CurrentBot()
	if errors.Is(err, store.ErrDanglingBot) {
		exitErr("chat say", fmt.Errorf("%w; pick another with `bot-chat chat rebind <bot-id>`", err))
	}
	if err != nil {
		exitErr("chat say", err)
	}
	if err := s.Chats.UserInput(cmd.Context(), content, bot); err != nil {
		exitErr("chat say", err)
	}

	c, _ := s.Chats.Chat()
	printJSON(cmd, c.History[len(c.History)-2:])
}

func runChatRebind(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	if _, ok := s.Bots.GetOne(args[0]); !ok {
		exitErr("chat rebind", fmt.Errorf("bot %q not found", args[0]))
	}
	if err := s.Chats.Rebind(cmd.Context(), args[0]); err != nil {
		exitErr("chat rebind", err)
	}
	c, _ := s.Chats.Chat()
	printJSON(cmd, c.Summary())
}

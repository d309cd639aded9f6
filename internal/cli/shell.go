package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/rcliao/bot-chat/internal/notify"
	"github.com/rcliao/bot-chat/internal/settings"
	"github.com/rcliao/bot-chat/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive chat session",
		Long:  "Interactive chat session. Plain lines are sent to the current chat; /help lists commands. /undo restores a deleted chat while its notification is visible.",
		Args:  cobra.NoArgs,
		Run:   runShell,
	}

	RootCmd.AddCommand(cmd)
}

const shellHelp = `/bots              list bots
/use <bot-id>      start a chat with a bot
/new               start a chat with the current bot
/chats             list chats
/select <index>    switch chat
/show              print the current chat
/rm <index>        delete a chat
/undo              restore the last deleted chat
/rebind <bot-id>   point the current chat at another bot
/theme             toggle dark and light
/quit              leave`

// shell executes one line at a time against a set of stores.
type shell struct {
	ctx   context.Context
	s     *store.Stores
	queue *notify.Queue
	out   io.Writer
}

var errQuit = errors.New("quit")

func (sh *shell) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return sh.say(line)
	}

	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/help":
		fmt.Fprintln(sh.out, shellHelp)
	case "/quit", "/exit":
		return errQuit
	case "/bots":
		for _, b := range sh.s.Bots.List() {
			fmt.Fprintf(sh.out, "%s  %s (%s)\n", b.ID, b.Name, b.Model)
		}
	case "/use":
		id, err := pickBot(sh.s, arg)
		if err != nil {
			return err
		}
		return sh.s.Chats.Create(sh.ctx, id)
	case "/new":
		id, err := pickBot(sh.s, "")
		if err != nil {
			return err
		}
		return sh.s.Chats.Create(sh.ctx, id)
	case "/chats":
		sh.s.Chats.Chat()
		cur := sh.s.Chats.Index()
		for i, m := range sh.s.Chats.Menu() {
			mark := " "
			if i == cur {
				mark = "*"
			}
			fmt.Fprintf(sh.out, "%s %d  %s\n", mark, i, m.Topic)
		}
	case "/select":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("parse index: %w", err)
		}
		return sh.s.Chats.Select(sh.ctx, i)
	case "/show":
		c, ok := sh.s.Chats.Chat()
		if !ok {
			return store.ErrNoChat
		}
		printTranscript(sh.out, c)
	case "/rm":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("parse index: %w", err)
		}
		_, err = sh.s.Chats.Delete(sh.ctx, i)
		return err
	case "/undo":
		n, ok := sh.queue.LastAction()
		if !ok {
			return errors.New("nothing to undo")
		}
		return sh.queue.Invoke(n.Key)
	case "/rebind":
		if _, ok := sh.s.Bots.GetOne(arg); !ok {
			return fmt.Errorf("bot %q not found", arg)
		}
		return sh.s.Chats.Rebind(sh.ctx, arg)
	case "/theme":
		return sh.s.Config.ToggleTheme(sh.ctx)
	default:
		return fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return nil
}

func (sh *shell) say(content string) error {
	_, bot, err := sh.s.CurrentBot()
	if errors.Is(err, store.ErrNoChat) {
		// First message with no chat: start one with the newest bot.
		id, perr := pickBot(sh.s, "")
		if perr != nil {
			return perr
		}
		if err := sh.s.Chats.Create(sh.ctx, id); err != nil {
			return err
		}
		_, bot, err = sh.s.CurrentBot()
	}
	if errors.Is(err, store.ErrDanglingBot) {
		return fmt.Errorf("%w; use /rebind <bot-id>", err)
	}
	if err != nil {
		return err
	}
	if err := sh.s.Chats.UserInput(sh.ctx, content, bot); err != nil {
		return err
	}
	c, _ := sh.s.Chats.Chat()
	last := c.History[len(c.History)-1]
	fmt.Fprintf(sh.out, "%s: %s\n", bot.Name, last.Content)
	return nil
}

func runShell(cmd *cobra.Command, args []string) {
	sess, err := openSession(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer sess.Close()

	sh := &shell{ctx: cmd.Context(), s: sess.stores, queue: sess.queue, out: cmd.OutOrStdout()}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := filepath.Join(settings.Dir(), "shell_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o700); err != nil {
			return
		}
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt("bot-chat> ")
		if err != nil {
			// Ctrl+C or Ctrl+D
			fmt.Fprintln(sh.out)
			return
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if err := sh.exec(input); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

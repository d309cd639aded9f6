package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcliao/bot-chat/internal/model"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Manage bots",
}

func init() {
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a bot",
		Long:  "Create a bot. Unset flags keep their defaults (MRVN, gpt-3.5-turbo, temperature 0.75).",
		Args:  cobra.NoArgs,
		Run:   runBotNew,
	}
	addBotFlags(newCmd)

	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a bot",
		Args:  cobra.ExactArgs(1),
		Run:   runBotEdit,
	}
	addBotFlags(editCmd)

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a bot",
		Args:  cobra.ExactArgs(1),
		Run:   runBotRm,
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a bot",
		Args:  cobra.ExactArgs(1),
		Run:   runBotGet,
	}

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List bots, newest first",
		Args:  cobra.NoArgs,
		Run:   runBotLs,
	}
	lsCmd.Flags().Bool("full", false, "Output every field instead of a summary")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find bots by name or model",
		Args:  cobra.MaximumNArgs(1),
		Run:   runBotSearch,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every bot",
		Args:  cobra.NoArgs,
		Run:   runBotClear,
	}
	clearCmd.Flags().Bool("yes", false, "Confirm deleting every bot")

	botCmd.AddCommand(newCmd, editCmd, rmCmd, getCmd, lsCmd, searchCmd, clearCmd)
	RootCmd.AddCommand(botCmd)
}

func addBotFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "Display name")
	f.String("avatar", "", "Avatar reference")
	f.String("description", "", "Description")
	f.String("pattern", "", "Reply pattern: prompt or api")
	f.StringP("model", "m", "", "Model name")
	f.StringP("prompt", "p", "", "System prompt")
	f.String("api", "", "External endpoint for api bots")
	f.Float64("temperature", 0, "Sampling temperature")
	f.Float64("top-p", 0, "Nucleus sampling")
	f.Int("max-tokens", 0, "Max tokens per reply")
	f.Float64("presence-penalty", 0, "Presence penalty")
	f.Float64("frequency-penalty", 0, "Frequency penalty")
	f.Bool("send-memory", true, "Send earlier messages as context")
	f.Int("history", 0, "Messages of context to send")
	f.Int("compress", 0, "Character threshold for compressing context")
	f.Bool("inject-system-prompt", true, "Prepend the system prompt to the context")
}

// patchFromFlags collects the flags that were set on cmd.
func patchFromFlags(cmd *cobra.Command) (*model.BotPatch, error) {
	f := cmd.Flags()
	p := &model.BotPatch{}

	str := func(name string, dst **string) {
		if f.Changed(name) {
			v, _ := f.GetString(name)
			*dst = &v
		}
	}
	num := func(name string, dst **float64) {
		if f.Changed(name) {
			v, _ := f.GetFloat64(name)
			*dst = &v
		}
	}
	integer := func(name string, dst **int) {
		if f.Changed(name) {
			v, _ := f.GetInt(name)
			*dst = &v
		}
	}
	boolean := func(name string, dst **bool) {
		if f.Changed(name) {
			v, _ := f.GetBool(name)
			*dst = &v
		}
	}

	str("name", &p.Name)
	str("avatar", &p.Avatar)
	str("description", &p.Description)
	str("model", &p.Model)
	str("prompt", &p.Prompt)
	str("api", &p.API)
	num("temperature", &p.Temperature)
	num("top-p", &p.TopP)
	integer("max-tokens", &p.MaxTokens)
	num("presence-penalty", &p.PresencePenalty)
	num("frequency-penalty", &p.FrequencyPenalty)
	boolean("send-memory", &p.SendMemory)
	integer("history", &p.HistoryMessageCount)
	integer("compress", &p.CompressMessageLengthThreshold)
	boolean("inject-system-prompt", &p.EnableInjectSystemPrompts)

	if f.Changed("pattern") {
		v, _ := f.GetString("pattern")
		pat, ok := model.ParsePattern(v)
		if !ok {
			return nil, fmt.Errorf("unknown pattern %q", v)
		}
		p.Pattern = &pat
	}
	if p.Model != nil && !model.ValidModels[*p.Model] {
		return nil, fmt.Errorf("unknown model %q", *p.Model)
	}
	return p, nil
}

func runBotNew(cmd *cobra.Command, args []string) {
	patch, err := patchFromFlags(cmd)
	if err != nil {
		exitErr("bot new", err)
	}

	s, done := mustStores(cmd)
	defer done()

	b, err := s.Bots.Create(cmd.Context(), patch)
	if err != nil {
		exitErr("bot new", err)
	}
	printJSON(cmd, b)
}

func runBotEdit(cmd *cobra.Command, args []string) {
	patch, err := patchFromFlags(cmd)
	if err != nil {
		exitErr("bot edit", err)
	}

	s, done := mustStores(cmd)
	defer done()

	b, ok := s.Bots.GetOne(args[0])
	if !ok {
		exitErr("bot edit", fmt.Errorf("bot %q not found", args[0]))
	}
	patch.Apply(&b)
	if err := s.Bots.Update(cmd.Context(), b.ID, b); err != nil {
		exitErr("bot edit", err)
	}
	printJSON(cmd, b)
}

func runBotRm(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	if err := s.Bots.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("bot rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"deleted":%q}`+"\n", args[0])
}

func runBotGet(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	b, ok := s.Bots.GetOne(args[0])
	if !ok {
		exitErr("bot get", fmt.Errorf("bot %q not found", args[0]))
	}
	printJSON(cmd, b)
}

func runBotLs(cmd *cobra.Command, args []string) {
	full, _ := cmd.Flags().GetBool("full")

	s, done := mustStores(cmd)
	defer done()

	if formatFlag == "text" {
		printBotTable(cmd, s.Bots.GetAll())
		return
	}
	if full {
		printJSON(cmd, s.Bots.GetAll())
		return
	}
	printJSON(cmd, s.Bots.List())
}

func runBotSearch(cmd *cobra.Command, args []string) {
	s, done := mustStores(cmd)
	defer done()

	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	s.Bots.SetQuery(query)
	bots := s.Bots.Search()

	if formatFlag == "text" {
		printBotTable(cmd, bots)
		return
	}
	out := make([]model.BotSummary, len(bots))
	for i, b := range bots {
		out[i] = b.Summary()
	}
	printJSON(cmd, out)
}

func runBotClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("bot clear", fmt.Errorf("refusing to delete every bot without --yes"))
	}

	s, done := mustStores(cmd)
	defer done()

	n := s.Bots.Len()
	if err := s.Bots.Clear(cmd.Context()); err != nil {
		exitErr("bot clear", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"deleted":%d}`+"\n", n)
}

func printBotTable(cmd *cobra.Command, bots []model.Bot) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODEL\tPATTERN\tCREATED")
	for _, b := range bots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			b.ID, strings.ReplaceAll(b.Name, "\t", " "), b.Model, b.Pattern, b.Created().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

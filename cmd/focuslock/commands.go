package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/focuslock/internal/client"
	"github.com/eliteGoblin/focusd/focuslock/internal/config"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/infra"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

var (
	ruleKind    string
	ruleMode    string
	updateApp   string
	updateKind  string
	updateMode  string
	favName     string
	favOrder    int
	clearLogs   bool
	sessionsAll bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage focus sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <duration>",
	Short: "Start a focus session (e.g. 25m, 1h30m, or minutes)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDuration(args[0])
		if err != nil {
			return err
		}
		c, err := connect()
		if err != nil {
			return err
		}
		sess, err := c.StartSession(cmd.Context(), d)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s started, ends in %s\n", sess.ID, formatSecs(sess.RemainingNowSecs))
		return nil
	},
}

var sessionCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		sess, err := c.CurrentSession(cmd.Context())
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("No active session")
			return nil
		}
		fmt.Printf("%s %s, %s left\n", sess.ID, sess.Status, formatSecs(sess.RemainingNowSecs))
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past and current sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		sessions, err := c.Sessions(cmd.Context())
		if err != nil {
			return err
		}
		if !sessionsAll && len(sessions) > 20 {
			sessions = sessions[:20]
		}
		tw := newTable("ID", "STATUS", "DURATION", "STARTED", "REMAINING")
		for _, s := range sessions {
			started := "-"
			if s.StartUTC != nil {
				started = time.Unix(*s.StartUTC, 0).Format(time.DateTime)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.Status, formatSecs(s.DurationSecs), started, formatSecs(s.RemainingNowSecs))
		}
		return tw.Flush()
	},
}

// sessionActionCmd builds pause/resume/complete/cancel. Without an id the
// current session is used.
func sessionActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect()
			if err != nil {
				return err
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			} else {
				cur, err := c.CurrentSession(cmd.Context())
				if err != nil {
					return err
				}
				if cur == nil {
					return fmt.Errorf("no active session")
				}
				id = cur.ID
			}
			sess, err := c.SessionAction(cmd.Context(), id, action)
			if err != nil {
				return err
			}
			fmt.Printf("Session %s is now %s\n", sess.ID, sess.Status)
			return nil
		},
	}
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage block rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List block rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		rules, err := c.Rules(cmd.Context())
		if err != nil {
			return err
		}
		tw := newTable("ID", "APP", "MATCH", "MODE")
		for _, r := range rules {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.AppIdentity, r.MatchKind, r.Mode)
		}
		return tw.Flush()
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <app>",
	Short: "Add a block rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		rule, err := c.AddRule(cmd.Context(), usecase.RuleInput{
			AppIdentity: args[0],
			MatchKind:   ruleKind,
			Mode:        ruleMode,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Rule %s: %s (%s, %s)\n", rule.ID, rule.AppIdentity, rule.MatchKind, rule.Mode)
		return nil
	},
}

var rulesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a block rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch usecase.RulePatch
		if cmd.Flags().Changed("app") {
			patch.AppIdentity = &updateApp
		}
		if cmd.Flags().Changed("kind") {
			patch.MatchKind = &updateKind
		}
		if cmd.Flags().Changed("mode") {
			patch.Mode = &updateMode
		}
		c, err := connect()
		if err != nil {
			return err
		}
		rule, err := c.UpdateRule(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("Rule %s: %s (%s, %s)\n", rule.ID, rule.AppIdentity, rule.MatchKind, rule.Mode)
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a block rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		if err := c.RemoveRule(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Rule %s removed\n", args[0])
		return nil
	},
}

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage pinned apps",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pinned apps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		favs, err := c.Favorites(cmd.Context())
		if err != nil {
			return err
		}
		tw := newTable("ID", "NAME", "APP", "ORDER")
		for _, f := range favs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", f.ID, f.DisplayName, f.AppIdentity, f.Order())
		}
		return tw.Flush()
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <app>",
	Short: "Pin an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := usecase.FavoriteInput{AppIdentity: args[0], DisplayName: favName}
		if cmd.Flags().Changed("order") {
			in.PinnedOrder = &favOrder
		}
		c, err := connect()
		if err != nil {
			return err
		}
		fav, err := c.AddFavorite(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("Pinned %s as %s\n", fav.AppIdentity, fav.DisplayName)
		return nil
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Unpin an app",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		return c.RemoveFavorite(cmd.Context(), args[0])
	},
}

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Show what is blocked right now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		snap, err := c.Blocks(cmd.Context())
		if err != nil {
			return err
		}
		if len(snap.Entries) == 0 {
			fmt.Println("Nothing is blocked")
			return nil
		}
		tw := newTable("APP", "MODE", "MATCH")
		for _, e := range snap.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%v\n", e.AppIdentity, e.Mode, e.MatchKinds)
		}
		return tw.Flush()
	},
}

var appsCmd = &cobra.Command{
	Use:   "apps [query]",
	Short: "List running apps, optionally filtered",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		c, err := connect()
		if err != nil {
			return err
		}
		apps, err := c.Apps(cmd.Context(), query)
		if err != nil {
			return err
		}
		tw := newTable("ID", "NAME", "EXE")
		for _, a := range apps {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.AppID, a.DisplayName, a.ExeOrTarget)
		}
		return tw.Flush()
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		settings, err := c.Settings(cmd.Context())
		if err != nil {
			return err
		}
		tw := newTable("KEY", "VALUE")
		for _, s := range settings {
			fmt.Fprintf(tw, "%s\t%s\n", s.Key, s.Value)
		}
		return tw.Flush()
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		s, err := c.Setting(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(s.Value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		s, err := c.SetSetting(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", s.Key, s.Value)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent server log entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		if clearLogs {
			return c.ClearLogs(cmd.Context())
		}
		entries, err := c.Logs(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s %-5s %s %v\n", e.Time.Local().Format(time.DateTime), e.Level, e.Message, e.Fields)
		}
		return nil
	},
}

func init() {
	sessionListCmd.Flags().BoolVar(&sessionsAll, "all", false, "Show every session instead of the latest 20")
	sessionCmd.AddCommand(sessionStartCmd, sessionCurrentCmd, sessionListCmd,
		sessionActionCmd(usecase.ActionPause, "Pause a session"),
		sessionActionCmd(usecase.ActionResume, "Resume a paused session"),
		sessionActionCmd(usecase.ActionComplete, "Complete a session whose time is up"),
		sessionActionCmd(usecase.ActionCancel, "Cancel a session"),
	)

	rulesAddCmd.Flags().StringVar(&ruleKind, "kind", string(domain.MatchExe), "Match kind (exe, package, shortcut, path, pattern)")
	rulesAddCmd.Flags().StringVar(&ruleMode, "mode", "", "Block mode (hard, soft); defaults to the defaultBlockMode setting")
	rulesUpdateCmd.Flags().StringVar(&updateApp, "app", "", "New app identity")
	rulesUpdateCmd.Flags().StringVar(&updateKind, "kind", "", "New match kind")
	rulesUpdateCmd.Flags().StringVar(&updateMode, "mode", "", "New block mode")
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesUpdateCmd, rulesRemoveCmd)

	favoritesAddCmd.Flags().StringVar(&favName, "name", "", "Display name")
	favoritesAddCmd.Flags().IntVar(&favOrder, "order", 0, "Pinned order")
	favoritesCmd.AddCommand(favoritesListCmd, favoritesAddCmd, favoritesRemoveCmd)

	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd)

	logsCmd.Flags().BoolVar(&clearLogs, "clear", false, "Clear the log buffer instead of printing it")
}

// connect returns a client for the running server, preferring the address
// it registered over the configured one.
func connect() (*client.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	entry, _ := infra.NewFileRegistry(cfg.DataDir, infra.NewProcessManager()).Get()
	return newClient(cfg, entry), nil
}

func newClient(cfg *config.Config, entry *domain.ServerEntry) *client.Client {
	addr := cfg.Server.Addr
	if entry != nil && entry.Addr != "" {
		addr = entry.Addr
	}
	return client.New(addr, cfg.Server.Token)
}

// parseDuration accepts Go durations and bare minute counts.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use e.g. 25m or 1h30m", s)
	}
	return d, nil
}

func formatSecs(secs int64) string {
	return (time.Duration(secs) * time.Second).String()
}

func newTable(headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	return tw
}

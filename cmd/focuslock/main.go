// Package main is the CLI entry point for focuslock.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/focuslock/internal/config"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focuslock",
	Short: "Focus sessions that block distracting apps",
	Long: `focuslock runs timed focus sessions. While a session is running or
paused, every app with a block rule is blocked: hard rules stop the app,
soft rules remind you to get back to work.

Run 'focuslock start' once, then drive sessions with 'focuslock session'.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $"+config.ConfigEnv+")")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(logsCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("focuslock %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/borgmon/transit-snoozer/pkg/config"
)

var (
	configPath string
	debug      bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "transit-snoozer",
	Short: "Wake-at-my-stop alarm driven by transit app notifications",
	Long: `Transit Snoozer watches the notifications of a navigation app and
sounds an alarm when they say your stop is next.

Run without arguments to start the tray app.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

		path := configPath
		if path == "" {
			path = config.Path()
		}
		loaded, err := config.LoadFrom(path)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Debug("config loaded", "path", path, "nats", cfg.Bridge.NATSURL != "")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTray(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/transit-snoozer/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

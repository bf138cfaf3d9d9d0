package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/borgmon/transit-snoozer/pkg/foreground"
	"github.com/borgmon/transit-snoozer/pkg/models"
	"github.com/borgmon/transit-snoozer/pkg/tui"
)

var watchApp string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the alarm from the terminal",
	Long: `Show the alarm state and the last notification in the terminal.
The alarm can be stopped or tested from the keyboard.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchApp, "app", "", "identifier of the app to monitor (default: keep the listener's choice)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the terminal belongs to the program
	if !debug {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b, closeBridge, err := foregroundBridge(ctx, "transit-snoozer-watch")
	if err != nil {
		return err
	}
	defer closeBridge()

	monitored := watchApp
	if monitored == "" {
		monitored = listenerMonitoring(ctx, b)
	}

	device, closeDevice := newDevice("watch")
	defer closeDevice()

	coord := foreground.New(device, b, foreground.Config{
		Cooldown:  cfg.Alarm.Cooldown.Duration,
		Settings:  cfg.Alarm.DefaultSettings,
		Monitored: monitored,
		Logger:    logger.With("component", "foreground"),
	})
	device.OnStopAction(func() { coord.StopAlarm(context.Background()) })

	events := make(chan tea.Msg, 16)
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}
	unState := coord.OnAlarmStateChanged(func(sc models.StateChange) { send(tui.StateMsg(sc)) })
	defer unState()
	unNote := coord.OnNotificationReceived(func(n models.IncomingNotification) { send(tui.NotificationMsg(n)) })
	defer unNote()

	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Close()
	coord.SetVisible(ctx, true)

	p := tea.NewProgram(tui.NewWatch(coord, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

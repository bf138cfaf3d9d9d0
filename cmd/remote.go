package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the listener's alarm status (non-interactive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeBridge, err := oneShotBridge()
		if err != nil {
			return err
		}
		defer closeBridge()

		st, err := b.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("query listener: %w", err)
		}

		monitored := st.Monitored
		if monitored == "" {
			monitored = "-"
		}
		alarm := "idle"
		if st.Active {
			alarm = "ACTIVE"
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LISTENING\tMONITORED\tALARM\tMESSAGE")
		fmt.Fprintln(w, "─────────\t─────────\t─────\t───────")
		fmt.Fprintf(w, "%t\t%s\t%s\t%s\n", st.Listening, monitored, alarm, st.Message)
		return w.Flush()
	},
}

var testAlarmCmd = &cobra.Command{
	Use:   "test-alarm",
	Short: "Ask the listener to sound a test alarm",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeBridge, err := oneShotBridge()
		if err != nil {
			return err
		}
		defer closeBridge()

		reply, err := b.RequestTrigger(cmd.Context(), cfg.Alarm.DefaultSettings)
		if err != nil {
			return fmt.Errorf("request test alarm: %w", err)
		}
		fmt.Printf("Test alarm: %s\n", reply.Result)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the listener's alarm",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeBridge, err := oneShotBridge()
		if err != nil {
			return err
		}
		defer closeBridge()

		if err := b.SendStop(cmd.Context()); err != nil {
			return fmt.Errorf("stop alarm: %w", err)
		}
		fmt.Println("Stop sent.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, testAlarmCmd, stopCmd)
}

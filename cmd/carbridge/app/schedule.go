package app

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/carbridge-io/carbridge/internal/bridge"
	"github.com/carbridge-io/carbridge/internal/bridge/polling"
	"github.com/carbridge-io/carbridge/internal/vehicle"
	pkgoptions "github.com/carbridge-io/carbridge/pkg/options"
)

// maxPreviewRows bounds the table for degenerate configurations.
const maxPreviewRows = 200

// newScheduleCommand builds `carbridge schedule`, a dry run of the polling
// scheduler over one simulated day. No network access, no side effects.
func newScheduleCommand() *cobra.Command {
	opts := pkgoptions.NewBridgeOptions()
	var (
		seed     int64
		charging bool
		battery  int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the computed polling schedule over a simulated day",
		Long: `Simulates one day of poll ticks with the given bridge options and prints
when the scheduler would poll and how long it would sleep. Useful for tuning
the active window and interval bounds before deploying.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduler := polling.NewScheduler(rand.New(rand.NewSource(seed)))
			jitter := scheduler.NewDailyJitter()
			cfg := bridge.PollingConfig(opts)

			var snap vehicle.TelemetrySnapshot
			if charging {
				snap = vehicle.TelemetrySnapshot{
					ChargerStatus:     vehicle.ChargerConnectedWithPower,
					BatteryLevel:      battery,
					BatteryLevelKnown: true,
				}
			}

			table := uitable.New()
			table.AddRow("TIME", "ACTION", "SLEEP")

			day := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.Local)
			now := day
			for rows := 0; now.Before(day.AddDate(0, 0, 1)) && rows < maxPreviewRows; rows++ {
				action := "poll"
				if polling.ShouldSkipPoll(cfg, jitter, now, false) {
					action = "skip"
				}

				interval := scheduler.NextInterval(cfg, jitter, now, snap)
				if interval <= 0 {
					return fmt.Errorf("scheduler returned non-positive interval %s; check the interval bounds", interval)
				}

				table.AddRow(now.Format("15:04"), action, interval.String())
				now = now.Add(interval)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "jitter: start +%dm, end +%dm\n\n",
				jitter.StartOffsetMinutes, jitter.EndOffsetMinutes)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	opts.AddFlags(cmd.Flags())
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Seed for the simulated schedule's random draws.")
	cmd.Flags().BoolVar(&charging, "charging", false, "Simulate a vehicle charging below the target.")
	cmd.Flags().IntVar(&battery, "battery", 50, "Simulated battery percentage (with --charging).")

	return cmd
}

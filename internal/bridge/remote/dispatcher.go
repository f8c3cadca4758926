package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carbridge-io/carbridge/internal/bridge/expectedstate"
	"github.com/carbridge-io/carbridge/internal/cloud"
	"github.com/carbridge-io/carbridge/internal/pkg/metrics"
	"github.com/carbridge-io/carbridge/pkg/log"
)

// Defaults applied when a command arrives without parameters.
const (
	defaultClimateLevel      = "MEDIUM"
	defaultDurationInMinutes = 15
)

// ErrExperimentalDisabled is returned for engine commands when the
// experimental flag is off.
var ErrExperimentalDisabled = fmt.Errorf("engine commands require the experimental option")

// Dispatcher executes remote-control commands for one vehicle: it records
// the expected-state intent, then sends the command to the vehicle cloud, in
// that order, so the mask is active before any fetch could observe stale
// state.
type Dispatcher struct {
	cloud        cloud.Client
	monitor      *expectedstate.Monitor
	experimental bool

	// requestRefresh asks the orchestrator for a debounced forced poll.
	requestRefresh func()

	// now is injectable for tests.
	now func() time.Time
}

// NewDispatcher creates a Dispatcher for one vehicle.
func NewDispatcher(cloudClient cloud.Client, monitor *expectedstate.Monitor, experimental bool, requestRefresh func()) *Dispatcher {
	return &Dispatcher{
		cloud:          cloudClient,
		monitor:        monitor,
		experimental:   experimental,
		requestRefresh: requestRefresh,
		now:            time.Now,
	}
}

// Dispatch executes a single command. Engine commands are rejected unless
// the experimental option is enabled.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	if (cmd.Kind == KindStartEngine || cmd.Kind == KindStopEngine) && !d.experimental {
		metrics.CommandTotal.WithLabelValues(string(cmd.Kind), "rejected").Inc()
		return ErrExperimentalDisabled
	}

	if cmd.Kind == KindForceUpdate {
		log.Info("Force update requested", "vin", cmd.VIN)
		d.requestRefresh()
		return nil
	}

	// Record the intent before the command leaves the bridge.
	if intent := intentFor(cmd.Kind); intent != "" {
		d.monitor.Expect(intent, d.now())
	}

	lifecycle := newLifecycle(cmd)
	if err := lifecycle.Event(ctx, eventSend); err != nil {
		return fmt.Errorf("command lifecycle: %w", err)
	}

	err := d.cloud.SendCommand(ctx, cmd.VIN, string(cmd.Kind), withDefaults(cmd))
	if err != nil {
		_ = lifecycle.Event(ctx, eventFail)
		metrics.CommandTotal.WithLabelValues(string(cmd.Kind), "failed").Inc()
		return fmt.Errorf("dispatching %s: %w", cmd.Kind, err)
	}

	_ = lifecycle.Event(ctx, eventSucceed)
	metrics.CommandTotal.WithLabelValues(string(cmd.Kind), "succeeded").Inc()
	log.Info("Command dispatched", "kind", string(cmd.Kind), "vin", cmd.VIN)
	return nil
}

// withDefaults fills the parameters the vehicle cloud requires for climate
// and engine starts.
func withDefaults(cmd Command) map[string]any {
	params := make(map[string]any, len(cmd.Params)+2)
	for k, v := range cmd.Params {
		params[k] = v
	}

	switch cmd.Kind {
	case KindStartClimate:
		level, _ := params["climate_level"].(string)
		if level == "" {
			level = defaultClimateLevel
		}
		params["climate_level"] = strings.ToUpper(level)
		if _, ok := params["duration_in_minutes"]; !ok {
			params["duration_in_minutes"] = defaultDurationInMinutes
		}
	case KindStartEngine:
		if _, ok := params["duration_in_minutes"]; !ok {
			params["duration_in_minutes"] = defaultDurationInMinutes
		}
	}

	return params
}

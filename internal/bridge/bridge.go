package bridge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/carbridge-io/carbridge/internal/bridge/polling"
	"github.com/carbridge-io/carbridge/internal/bridge/remote"
	"github.com/carbridge-io/carbridge/internal/bridge/server"
	"github.com/carbridge-io/carbridge/internal/vehicle"
	"github.com/carbridge-io/carbridge/pkg/log"
	pkgmqtt "github.com/carbridge-io/carbridge/pkg/mqtt"
	"github.com/carbridge-io/carbridge/pkg/options"
)

// shutdownTimeout bounds the final offline publishes and the disconnect.
const shutdownTimeout = 5 * time.Second

// BridgeServer is the main application struct. It owns the shared MQTT
// connection, one entry per vehicle and the ingress servers.
type BridgeServer struct {
	client    pkgmqtt.Client
	publisher *statePublisher
	entries   map[string]*entry
	manager   *server.Manager

	connectTimeout time.Duration
	ready          atomic.Bool
}

// Run starts the application components and blocks until ctx is canceled or
// a component fails.
func (b *BridgeServer) Run(ctx context.Context) error {
	log.Info("Starting carbridge", "vehicles", len(b.entries))

	if err := b.client.Start(ctx); err != nil {
		return fmt.Errorf("starting mqtt client: %w", err)
	}

	awaitCtx, cancel := context.WithTimeout(ctx, b.connectTimeout)
	err := b.client.AwaitConnection(awaitCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("waiting for mqtt connection: %w", err)
	}

	b.publishAvailability(ctx, true)
	b.ready.Store(true)

	err = b.manager.Start(ctx)

	b.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	b.publishAvailability(shutdownCtx, false)
	b.client.Disconnect(shutdownCtx)

	return err
}

// Ready reports whether the bridge is connected and serving.
func (b *BridgeServer) Ready() bool {
	return b.ready.Load()
}

// VehicleState implements the HTTP service surface.
func (b *BridgeServer) VehicleState(vin string) (vehicle.Data, vehicle.ReportedState, bool) {
	e, ok := b.entries[vin]
	if !ok {
		return vehicle.Data{}, vehicle.ReportedState{}, false
	}
	data, view := e.State()
	return data, view, true
}

// RequestRefresh implements the HTTP service surface.
func (b *BridgeServer) RequestRefresh(vin string) bool {
	e, ok := b.entries[vin]
	if !ok {
		return false
	}
	e.RequestRefresh()
	return true
}

// DispatchCommand routes a command by name. Both the MQTT ingress and the
// HTTP API land here.
func (b *BridgeServer) DispatchCommand(ctx context.Context, vin, command string, params map[string]any) error {
	e, ok := b.entries[vin]
	if !ok {
		return fmt.Errorf("%w: %s", vehicle.ErrUnknownVehicle, vin)
	}

	kind, ok := remote.ParseKind(command)
	if !ok {
		return fmt.Errorf("%w: %s", remote.ErrUnknownCommand, command)
	}

	return e.dispatcher.Dispatch(ctx, remote.Command{Kind: kind, VIN: vin, Params: params})
}

// ApplyBridgeOptions applies a changed schedule configuration to every
// vehicle. The VIN set is fixed for the process lifetime; added or removed
// VINs take effect on restart.
func (b *BridgeServer) ApplyBridgeOptions(opts *options.BridgeOptions) {
	cfg := PollingConfig(opts)
	for _, e := range b.entries {
		e.ApplyOptions(cfg)
	}
}

// PollingConfig maps the user-facing bridge options onto the scheduler
// configuration.
func PollingConfig(opts *options.BridgeOptions) polling.Config {
	return polling.Config{
		SmartPollingEnabled:       opts.SmartPollingEnabled,
		ActiveStartHour:           opts.ActiveStartHour,
		ActiveEndHour:             opts.ActiveEndHour,
		NormalIntervalMin:         opts.NormalIntervalMin,
		NormalIntervalMax:         opts.NormalIntervalMax,
		ChargingIntervalMin:       opts.ChargingIntervalMin,
		ChargingIntervalMax:       opts.ChargingIntervalMax,
		ChargingTargetPercent:     opts.ChargingTargetPercent,
		LegacyScanIntervalMinutes: opts.LegacyScanIntervalMinutes,
		DarkHoursStart:            opts.DarkHoursStart,
		DarkHoursEnd:              opts.DarkHoursEnd,
	}
}

func (b *BridgeServer) publishAvailability(ctx context.Context, online bool) {
	if err := b.publisher.PublishBridgeAvailability(ctx, online); err != nil {
		log.Error(err, "Publishing bridge availability failed")
	}
	for vin := range b.entries {
		if err := b.publisher.PublishAvailability(ctx, vin, online); err != nil {
			log.Error(err, "Publishing availability failed", "vin", vin)
		}
	}
}

package bridge

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carbridge-io/carbridge/internal/bridge/expectedstate"
	"github.com/carbridge-io/carbridge/internal/bridge/polling"
	"github.com/carbridge-io/carbridge/internal/bridge/remote"
	"github.com/carbridge-io/carbridge/internal/cloud"
	"github.com/carbridge-io/carbridge/internal/pkg/metrics"
	"github.com/carbridge-io/carbridge/internal/vehicle"
	"github.com/carbridge-io/carbridge/pkg/log"
)

// publisher is the egress surface the entry publishes through.
type publisher interface {
	PublishState(ctx context.Context, vin string, data vehicle.Data, view vehicle.ReportedState, now time.Time) error
}

// entry owns the state and the update loop of one vehicle. Vehicles are
// independent; everything below runs one update cycle at a time, serialized
// by the loop.
type entry struct {
	vin        string
	scheduler  *polling.Scheduler
	monitor    *expectedstate.Monitor
	dispatcher *remote.Dispatcher
	cloud      cloud.Client
	publisher  publisher
	logger     log.Logger

	// geocode gates the address lookup; without a geocoding endpoint the
	// address attributes stay at the Unavailable sentinel.
	geocode         bool
	refreshCooldown time.Duration
	now             func() time.Time

	mu          sync.Mutex
	cfg         polling.Config
	jitter      polling.DailyJitter
	data        vehicle.Data
	lastRefresh time.Time

	refreshCh chan struct{}
	reloadCh  chan polling.Config
}

func newEntry(vin string, cfg polling.Config, cloudClient cloud.Client, monitor *expectedstate.Monitor, pub publisher, geocode bool, refreshCooldown time.Duration) *entry {
	scheduler := polling.NewScheduler(nil)
	return &entry{
		vin:             vin,
		scheduler:       scheduler,
		monitor:         monitor,
		cloud:           cloudClient,
		publisher:       pub,
		logger:          log.WithValues("vin", vin),
		geocode:         geocode,
		refreshCooldown: refreshCooldown,
		now:             time.Now,
		cfg:             cfg,
		jitter:          scheduler.NewDailyJitter(),
		refreshCh:       make(chan struct{}, 1),
		reloadCh:        make(chan polling.Config, 1),
	}
}

func (e *entry) Name() string { return "poller/" + e.vin }

// Start runs the update loop until ctx is canceled. The first poll is always
// forced so the platform gets state right after startup.
func (e *entry) Start(ctx context.Context) error {
	timer := time.NewTimer(e.poll(ctx, true, polling.LegacyFloorPeriodic))
	defer timer.Stop()

	for {
		force := false
		floor := polling.LegacyFloorPeriodic

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case <-e.refreshCh:
			force = true
		case cfg := <-e.reloadCh:
			e.applyOptions(cfg)
			force = true
			floor = polling.LegacyFloorOptions
		}

		interval := e.poll(ctx, force, floor)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(interval)
	}
}

// RequestRefresh asks for a forced poll. Requests within the cooldown of the
// previous one are coalesced and silently dropped.
func (e *entry) RequestRefresh() {
	now := e.now()

	e.mu.Lock()
	if now.Sub(e.lastRefresh) < e.refreshCooldown {
		e.mu.Unlock()
		e.logger.Debug("Refresh request coalesced")
		return
	}
	e.lastRefresh = now
	e.mu.Unlock()

	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}

// ApplyOptions hands a new polling configuration to the loop. A pending
// unapplied configuration is replaced.
func (e *entry) ApplyOptions(cfg polling.Config) {
	select {
	case <-e.reloadCh:
	default:
	}
	select {
	case e.reloadCh <- cfg:
	default:
	}
}

// State returns the stored data and the reconciled published view.
func (e *entry) State() (vehicle.Data, vehicle.ReportedState) {
	data := e.snapshot()
	return data, e.monitor.Reconcile(data.Reported(), e.now())
}

// applyOptions swaps the schedule configuration and redraws the jitter, as if
// a new day started.
func (e *entry) applyOptions(cfg polling.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.jitter = e.scheduler.NewDailyJitter()
	e.mu.Unlock()
	e.logger.Info("Polling options applied", "smart", cfg.SmartPollingEnabled)
}

// poll runs one update cycle and returns the interval until the next one.
func (e *entry) poll(ctx context.Context, force bool, legacyFloor int) time.Duration {
	e.mu.Lock()
	cfg, jitter := e.cfg, e.jitter
	e.mu.Unlock()

	now := e.now()

	if polling.ShouldSkipPoll(cfg, jitter, now, force) {
		// Hour 00 is the daily chance to reshuffle the window.
		if cfg.SmartPollingEnabled && now.Hour() == 0 {
			e.mu.Lock()
			e.jitter = e.scheduler.NewDailyJitter()
			jitter = e.jitter
			e.mu.Unlock()
			e.logger.Debug("Daily jitter regenerated",
				"startOffset", jitter.StartOffsetMinutes,
				"endOffset", jitter.EndOffsetMinutes)
		}
		metrics.PollTotal.WithLabelValues("skipped").Inc()
		e.logger.Debug("Poll skipped")
		return e.schedule(cfg, jitter, now, e.snapshot().Telemetry(), legacyFloor)
	}

	e.fetch(ctx)

	data := e.snapshot()
	view := e.monitor.Reconcile(data.Reported(), now)
	if err := e.publisher.PublishState(ctx, e.vin, data, view, now); err != nil {
		e.logger.Error(err, "Publishing state failed")
	}

	return e.schedule(cfg, jitter, now, data.Telemetry(), legacyFloor)
}

// fetch retrieves record and shadow concurrently and merges what succeeded
// into the stored data. A failed document keeps its prior value.
func (e *entry) fetch(ctx context.Context) {
	var (
		record, shadow       map[string]any
		recordErr, shadowErr error
	)

	// Plain group: one failing fetch must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		record, recordErr = e.cloud.FetchVehicleRecord(ctx, e.vin)
		return nil
	})
	g.Go(func() error {
		shadow, shadowErr = e.cloud.FetchVehicleShadow(ctx, e.vin)
		return nil
	})
	_ = g.Wait()

	e.mu.Lock()
	if recordErr == nil {
		e.data.Record = record
	}
	if shadowErr == nil {
		e.data.Shadow = shadow
	}
	e.mu.Unlock()

	switch {
	case recordErr != nil && shadowErr != nil:
		metrics.PollTotal.WithLabelValues("failed").Inc()
		e.logger.Error(recordErr, "Fetching vehicle data failed")
		return
	case recordErr != nil:
		metrics.PollTotal.WithLabelValues("partial").Inc()
		e.logger.Warn("Record fetch failed, keeping prior record", "err", recordErr)
	case shadowErr != nil:
		metrics.PollTotal.WithLabelValues("partial").Inc()
		e.logger.Warn("Shadow fetch failed, keeping prior shadow", "err", shadowErr)
	default:
		metrics.PollTotal.WithLabelValues("success").Inc()
	}

	if recordErr == nil {
		e.resolveAddress(ctx)
	}
}

// resolveAddress reverse-geocodes the current position. Any failure, missing
// coordinates included, degrades to the Unavailable sentinel.
func (e *entry) resolveAddress(ctx context.Context) {
	if !e.geocode {
		e.setAddress(vehicle.AddressUnavailable, vehicle.AddressUnavailable)
		return
	}

	lat, lon, ok := e.snapshot().Position()
	if !ok {
		e.setAddress(vehicle.AddressUnavailable, vehicle.AddressUnavailable)
		return
	}

	doc, err := e.cloud.FetchAddress(ctx, lat, lon)
	if err != nil {
		e.logger.Warn("Address lookup failed", "err", err)
		e.setAddress(vehicle.AddressUnavailable, vehicle.AddressUnavailable)
		return
	}

	e.setAddress(vehicle.ParseAddress(doc), vehicle.RawAddress(doc))
}

// schedule computes the next interval, records it and returns it.
func (e *entry) schedule(cfg polling.Config, jitter polling.DailyJitter, now time.Time, snap vehicle.TelemetrySnapshot, legacyFloor int) time.Duration {
	var interval time.Duration
	if cfg.SmartPollingEnabled {
		interval = e.scheduler.NextInterval(cfg, jitter, now, snap)
	} else {
		interval = polling.LegacyInterval(cfg, legacyFloor)
	}

	metrics.PollInterval.WithLabelValues(e.vin).Set(interval.Seconds())
	e.logger.Debug("Next poll scheduled", "interval", interval)
	return interval
}

func (e *entry) snapshot() vehicle.Data {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data
}

func (e *entry) setAddress(parsed, raw string) {
	e.mu.Lock()
	e.data.Address = parsed
	e.data.AddressRaw = raw
	e.mu.Unlock()
}

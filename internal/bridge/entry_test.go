package bridge

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbridge-io/carbridge/internal/bridge/expectedstate"
	"github.com/carbridge-io/carbridge/internal/bridge/polling"
	"github.com/carbridge-io/carbridge/internal/vehicle"
	pkgoptions "github.com/carbridge-io/carbridge/pkg/options"
)

type fakeCloud struct {
	record  map[string]any
	shadow  map[string]any
	address map[string]any

	recordErr  error
	shadowErr  error
	addressErr error

	recordCalls  int
	shadowCalls  int
	addressCalls int
}

func (f *fakeCloud) FetchVehicleRecord(ctx context.Context, vin string) (map[string]any, error) {
	f.recordCalls++
	return f.record, f.recordErr
}

func (f *fakeCloud) FetchVehicleShadow(ctx context.Context, vin string) (map[string]any, error) {
	f.shadowCalls++
	return f.shadow, f.shadowErr
}

func (f *fakeCloud) FetchAddress(ctx context.Context, lat, lon float64) (map[string]any, error) {
	f.addressCalls++
	return f.address, f.addressErr
}

func (f *fakeCloud) SendCommand(ctx context.Context, vin, command string, params map[string]any) error {
	return nil
}

type fakePublisher struct {
	calls    int
	lastData vehicle.Data
	lastView vehicle.ReportedState
}

func (p *fakePublisher) PublishState(ctx context.Context, vin string, data vehicle.Data, view vehicle.ReportedState, now time.Time) error {
	p.calls++
	p.lastData = data
	p.lastView = view
	return nil
}

// newTestEntry builds an entry with a seeded scheduler, zero jitter (window
// 10:40-22:00 with the defaults) and an injected clock.
func newTestEntry(fc *fakeCloud, fp *fakePublisher, at time.Time) *entry {
	cfg := PollingConfig(pkgoptions.NewBridgeOptions())
	e := newEntry("VIN123", cfg, fc, expectedstate.NewMonitor(), fp, true, 10*time.Second)
	e.scheduler = polling.NewScheduler(rand.New(rand.NewSource(1)))
	e.jitter = polling.DailyJitter{}
	e.now = func() time.Time { return at }
	return e
}

func noon() time.Time {
	return time.Date(2026, time.March, 17, 12, 0, 0, 0, time.UTC)
}

func TestPollFetchesAndPublishes(t *testing.T) {
	fc := &fakeCloud{
		record: map[string]any{"electricStatus": map[string]any{"chargeLevel": 55.0}},
		shadow: map[string]any{"evs": map[string]any{}},
	}
	fp := &fakePublisher{}
	e := newTestEntry(fc, fp, noon())

	interval := e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

	assert.Equal(t, 1, fc.recordCalls)
	assert.Equal(t, 1, fc.shadowCalls)
	assert.Equal(t, 1, fp.calls)
	assert.Equal(t, fc.record, fp.lastData.Record)
	assert.Equal(t, fc.shadow, fp.lastData.Shadow)

	// Inside the window, not charging: a normal-range draw.
	assert.GreaterOrEqual(t, interval, 20*time.Minute)
	assert.LessOrEqual(t, interval, 40*time.Minute)
}

func TestPollSkipKeepsStoredData(t *testing.T) {
	fc := &fakeCloud{}
	fp := &fakePublisher{}
	// 03:00 is outside the active window: smart mode skips.
	e := newTestEntry(fc, fp, time.Date(2026, time.March, 17, 3, 0, 0, 0, time.UTC))

	stored := vehicle.Data{
		Record:  map[string]any{"stale": true},
		Address: "Somewhere 1, Town",
	}
	e.data = stored

	interval := e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

	assert.Zero(t, fc.recordCalls)
	assert.Zero(t, fc.shadowCalls)
	assert.Zero(t, fp.calls)
	assert.Equal(t, stored, e.snapshot())
	assert.LessOrEqual(t, interval, 4*time.Hour)
	assert.Greater(t, interval, time.Duration(0))
}

func TestPollForceOverridesSkip(t *testing.T) {
	fc := &fakeCloud{record: map[string]any{}, shadow: map[string]any{}}
	fp := &fakePublisher{}
	e := newTestEntry(fc, fp, time.Date(2026, time.March, 17, 3, 0, 0, 0, time.UTC))

	e.poll(context.Background(), true, polling.LegacyFloorPeriodic)

	assert.Equal(t, 1, fc.recordCalls)
	assert.Equal(t, 1, fp.calls)
}

func TestPollPartialFailureKeepsPriorField(t *testing.T) {
	fc := &fakeCloud{
		record: map[string]any{"rev": 1.0},
		shadow: map[string]any{"rev": 1.0},
	}
	fp := &fakePublisher{}
	e := newTestEntry(fc, fp, noon())

	e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

	fc.record = map[string]any{"rev": 2.0}
	fc.shadow = map[string]any{"rev": 2.0}
	fc.recordErr = errors.New("record endpoint down")

	e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

	data := e.snapshot()
	assert.Equal(t, 1.0, data.Record["rev"], "failed record fetch must keep the prior document")
	assert.Equal(t, 2.0, data.Shadow["rev"], "shadow fetch succeeded and must be applied")
}

func TestPollBothFailedStillPublishesStored(t *testing.T) {
	fc := &fakeCloud{
		recordErr: errors.New("down"),
		shadowErr: errors.New("down"),
	}
	fp := &fakePublisher{}
	e := newTestEntry(fc, fp, noon())
	e.data = vehicle.Data{Record: map[string]any{"stale": true}}

	e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

	require.Equal(t, 1, fp.calls)
	assert.Equal(t, true, fp.lastData.Record["stale"])
}

func TestPollResolvesAddress(t *testing.T) {
	fc := &fakeCloud{
		record: map[string]any{
			"position": map[string]any{"latitude": 57.7, "longitude": 11.97},
		},
		shadow: map[string]any{},
		address: map[string]any{
			"addressComponents": []any{
				map[string]any{"longName": "Kungsgatan", "types": []any{"route"}},
				map[string]any{"longName": "5", "types": []any{"street_number"}},
				map[string]any{"longName": "Göteborg", "types": []any{"postal_town"}},
			},
		},
	}
	fp := &fakePublisher{}
	e := newTestEntry(fc, fp, noon())

	e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

	assert.Equal(t, 1, fc.addressCalls)
	assert.Equal(t, "Kungsgatan 5, Göteborg", e.snapshot().Address)
}

func TestPollAddressUnavailableCases(t *testing.T) {
	t.Run("no coordinates", func(t *testing.T) {
		fc := &fakeCloud{record: map[string]any{}, shadow: map[string]any{}}
		e := newTestEntry(fc, &fakePublisher{}, noon())

		e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

		assert.Zero(t, fc.addressCalls)
		assert.Equal(t, vehicle.AddressUnavailable, e.snapshot().Address)
	})

	t.Run("lookup fails", func(t *testing.T) {
		fc := &fakeCloud{
			record: map[string]any{
				"position": map[string]any{"latitude": 1.0, "longitude": 2.0},
			},
			shadow:     map[string]any{},
			addressErr: errors.New("geocoder down"),
		}
		e := newTestEntry(fc, &fakePublisher{}, noon())

		e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

		assert.Equal(t, vehicle.AddressUnavailable, e.snapshot().Address)
	})

	t.Run("geocoding disabled", func(t *testing.T) {
		fc := &fakeCloud{
			record: map[string]any{
				"position": map[string]any{"latitude": 1.0, "longitude": 2.0},
			},
			shadow: map[string]any{},
		}
		e := newTestEntry(fc, &fakePublisher{}, noon())
		e.geocode = false

		e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

		assert.Zero(t, fc.addressCalls)
		assert.Equal(t, vehicle.AddressUnavailable, e.snapshot().Address)
	})
}

func TestPollMidnightSkipRegeneratesJitter(t *testing.T) {
	fc := &fakeCloud{}
	e := newTestEntry(fc, &fakePublisher{}, time.Date(2026, time.March, 17, 0, 30, 0, 0, time.UTC))

	marker := polling.DailyJitter{StartOffsetMinutes: 99, EndOffsetMinutes: 99}
	e.jitter = marker

	e.poll(context.Background(), false, polling.LegacyFloorPeriodic)

	assert.Zero(t, fc.recordCalls)
	assert.NotEqual(t, marker, e.jitter)
	assert.LessOrEqual(t, e.jitter.StartOffsetMinutes, 20)
}

func TestPollLegacyFloors(t *testing.T) {
	fc := &fakeCloud{record: map[string]any{}, shadow: map[string]any{}}
	e := newTestEntry(fc, &fakePublisher{}, noon())

	e.mu.Lock()
	e.cfg.SmartPollingEnabled = false
	e.cfg.LegacyScanIntervalMinutes = 30
	e.mu.Unlock()

	assert.Equal(t, 60*time.Minute, e.poll(context.Background(), false, polling.LegacyFloorPeriodic))
	assert.Equal(t, 30*time.Minute, e.poll(context.Background(), false, polling.LegacyFloorOptions))
}

func TestRequestRefreshDebounce(t *testing.T) {
	now := noon()
	e := newTestEntry(&fakeCloud{}, &fakePublisher{}, now)
	e.now = func() time.Time { return now }

	e.RequestRefresh()
	e.RequestRefresh()
	assert.Len(t, e.refreshCh, 1, "second request within the cooldown must be coalesced")

	<-e.refreshCh
	now = now.Add(11 * time.Second)
	e.RequestRefresh()
	assert.Len(t, e.refreshCh, 1, "request after the cooldown must go through")
}

func TestApplyOptionsReplacesPending(t *testing.T) {
	e := newTestEntry(&fakeCloud{}, &fakePublisher{}, noon())

	first := PollingConfig(pkgoptions.NewBridgeOptions())
	second := first
	second.NormalIntervalMin = 5

	e.ApplyOptions(first)
	e.ApplyOptions(second)

	require.Len(t, e.reloadCh, 1)
	got := <-e.reloadCh
	assert.Equal(t, 5, got.NormalIntervalMin)
}

func TestApplyOptionsRedrawsJitter(t *testing.T) {
	e := newTestEntry(&fakeCloud{}, &fakePublisher{}, noon())

	marker := polling.DailyJitter{StartOffsetMinutes: 99, EndOffsetMinutes: 99}
	e.jitter = marker

	cfg := PollingConfig(pkgoptions.NewBridgeOptions())
	cfg.SmartPollingEnabled = false
	e.applyOptions(cfg)

	assert.NotEqual(t, marker, e.jitter)
	assert.False(t, e.cfg.SmartPollingEnabled)
}

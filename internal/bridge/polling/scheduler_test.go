package polling

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbridge-io/carbridge/internal/vehicle"
)

func testConfig() Config {
	return Config{
		SmartPollingEnabled:       true,
		ActiveStartHour:           10,
		ActiveEndHour:             22,
		NormalIntervalMin:         20,
		NormalIntervalMax:         40,
		ChargingIntervalMin:       8,
		ChargingIntervalMax:       12,
		ChargingTargetPercent:     90,
		LegacyScanIntervalMinutes: 120,
		DarkHoursStart:            1,
		DarkHoursEnd:              5,
	}
}

func newTestScheduler(seed int64) *Scheduler {
	return NewScheduler(rand.New(rand.NewSource(seed)))
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 17, hour, minute, 0, 0, time.Local)
}

func chargingSnapshot(level int) vehicle.TelemetrySnapshot {
	return vehicle.TelemetrySnapshot{
		ChargerStatus:     vehicle.ChargerConnectedWithPower,
		BatteryLevel:      level,
		BatteryLevelKnown: true,
	}
}

func TestNextIntervalChargingRange(t *testing.T) {
	s := newTestScheduler(1)
	cfg := testConfig()
	jitter := DailyJitter{StartOffsetMinutes: 5, EndOffsetMinutes: 5}

	// Draws are independent per invocation; sample many.
	for i := 0; i < 200; i++ {
		got := s.NextInterval(cfg, jitter, at(15, 0), chargingSnapshot(85))
		assert.GreaterOrEqual(t, got, 8*time.Minute)
		assert.LessOrEqual(t, got, 12*time.Minute)
	}
}

func TestNextIntervalNormalRange(t *testing.T) {
	s := newTestScheduler(2)
	cfg := testConfig()
	jitter := DailyJitter{}

	snaps := map[string]vehicle.TelemetrySnapshot{
		"battery unknown":       {ChargerStatus: vehicle.ChargerConnectedWithPower},
		"battery at target":     chargingSnapshot(90),
		"battery above target":  chargingSnapshot(95),
		"charger not connected": {BatteryLevel: 40, BatteryLevelKnown: true},
		"charger unknown":       {},
	}

	for name, snap := range snaps {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				got := s.NextInterval(cfg, jitter, at(15, 0), snap)
				assert.GreaterOrEqual(t, got, 20*time.Minute)
				assert.LessOrEqual(t, got, 40*time.Minute)
			}
		})
	}
}

func TestNextIntervalDarkHoursCapped(t *testing.T) {
	s := newTestScheduler(3)
	cfg := testConfig()
	jitter := DailyJitter{StartOffsetMinutes: 10, EndOffsetMinutes: 0}

	// 02:00 is more than four hours before the ~10:50 window start.
	got := s.NextInterval(cfg, jitter, at(2, 0), vehicle.TelemetrySnapshot{})
	assert.Equal(t, 4*time.Hour, got)
}

func TestNextIntervalDarkHoursExactRemainder(t *testing.T) {
	s := newTestScheduler(4)
	cfg := testConfig()
	jitter := DailyJitter{StartOffsetMinutes: 10, EndOffsetMinutes: 0}

	// Window opens at 10:50; from 09:00 the remainder is under the cap.
	got := s.NextInterval(cfg, jitter, at(9, 0), vehicle.TelemetrySnapshot{})
	assert.Equal(t, 110*time.Minute, got)
}

func TestNextIntervalAfterWindowRollsToTomorrow(t *testing.T) {
	s := newTestScheduler(5)
	cfg := testConfig()
	jitter := DailyJitter{}

	got := s.NextInterval(cfg, jitter, at(23, 0), vehicle.TelemetrySnapshot{})
	assert.Equal(t, 4*time.Hour, got)
	assert.Greater(t, got, time.Duration(0))
}

func TestNextIntervalWindowBoundariesInclusive(t *testing.T) {
	s := newTestScheduler(6)
	cfg := testConfig()
	jitter := DailyJitter{StartOffsetMinutes: 0, EndOffsetMinutes: 10}

	// Start boundary 10:40 and end boundary 22:10 are both inside.
	for _, now := range []time.Time{at(10, 40), at(22, 10)} {
		got := s.NextInterval(cfg, jitter, now, vehicle.TelemetrySnapshot{})
		assert.GreaterOrEqual(t, got, 20*time.Minute, "at %v", now)
		assert.LessOrEqual(t, got, 40*time.Minute, "at %v", now)
	}

	// One minute past either boundary is dark hours.
	got := s.NextInterval(cfg, jitter, at(10, 39), vehicle.TelemetrySnapshot{})
	assert.Equal(t, time.Minute, got)

	got = s.NextInterval(cfg, jitter, at(22, 11), vehicle.TelemetrySnapshot{})
	assert.Equal(t, 4*time.Hour, got)
}

func TestNextIntervalStartJitterRollsHour(t *testing.T) {
	s := newTestScheduler(7)
	cfg := testConfig()
	// 40 + 20 = 60 rolls the start to 11:00.
	jitter := DailyJitter{StartOffsetMinutes: 20}

	got := s.NextInterval(cfg, jitter, at(10, 59), vehicle.TelemetrySnapshot{})
	assert.Equal(t, time.Minute, got)

	got = s.NextInterval(cfg, jitter, at(11, 0), vehicle.TelemetrySnapshot{})
	assert.LessOrEqual(t, got, 40*time.Minute)
}

func TestNextIntervalLegacyMode(t *testing.T) {
	s := newTestScheduler(8)
	cfg := testConfig()
	cfg.SmartPollingEnabled = false

	got := s.NextInterval(cfg, DailyJitter{}, at(15, 0), vehicle.TelemetrySnapshot{})
	assert.Equal(t, 120*time.Minute, got)

	// The periodic path clamps to a 60 minute floor.
	cfg.LegacyScanIntervalMinutes = 30
	got = s.NextInterval(cfg, DailyJitter{}, at(15, 0), vehicle.TelemetrySnapshot{})
	assert.Equal(t, 60*time.Minute, got)
}

func TestLegacyIntervalFloors(t *testing.T) {
	cfg := testConfig()
	cfg.LegacyScanIntervalMinutes = 30

	assert.Equal(t, 60*time.Minute, LegacyInterval(cfg, LegacyFloorPeriodic))
	assert.Equal(t, 30*time.Minute, LegacyInterval(cfg, LegacyFloorOptions))

	cfg.LegacyScanIntervalMinutes = 10
	assert.Equal(t, 15*time.Minute, LegacyInterval(cfg, LegacyFloorOptions))
}

func TestShouldSkipPollLegacy(t *testing.T) {
	cfg := testConfig()
	cfg.SmartPollingEnabled = false
	cfg.DarkHoursStart = 22
	cfg.DarkHoursEnd = 4

	tests := []struct {
		name  string
		hour  int
		force bool
		want  bool
	}{
		{"wrapping window includes late evening", 23, false, true},
		{"wrapping window includes early morning", 3, false, true},
		{"end hour is outside", 4, false, false},
		{"daytime is outside", 12, false, false},
		{"force update never skips", 23, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldSkipPoll(cfg, DailyJitter{}, at(tt.hour, 30), tt.force)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldSkipPollLegacyNonWrapping(t *testing.T) {
	cfg := testConfig()
	cfg.SmartPollingEnabled = false

	assert.True(t, ShouldSkipPoll(cfg, DailyJitter{}, at(2, 0), false))
	assert.False(t, ShouldSkipPoll(cfg, DailyJitter{}, at(5, 0), false))
	assert.False(t, ShouldSkipPoll(cfg, DailyJitter{}, at(12, 0), false))
}

func TestShouldSkipPollSmart(t *testing.T) {
	cfg := testConfig()
	jitter := DailyJitter{StartOffsetMinutes: 0, EndOffsetMinutes: 0}

	assert.True(t, ShouldSkipPoll(cfg, jitter, at(2, 0), false))
	assert.True(t, ShouldSkipPoll(cfg, jitter, at(10, 39), false))
	assert.False(t, ShouldSkipPoll(cfg, jitter, at(10, 40), false))
	assert.False(t, ShouldSkipPoll(cfg, jitter, at(22, 0), false))
	assert.True(t, ShouldSkipPoll(cfg, jitter, at(22, 1), false))
	assert.False(t, ShouldSkipPoll(cfg, jitter, at(2, 0), true))
}

func TestNewDailyJitterBounds(t *testing.T) {
	s := newTestScheduler(9)

	for i := 0; i < 500; i++ {
		j := s.NewDailyJitter()
		require.GreaterOrEqual(t, j.StartOffsetMinutes, 0)
		require.LessOrEqual(t, j.StartOffsetMinutes, 20)
		require.GreaterOrEqual(t, j.EndOffsetMinutes, 0)
		require.LessOrEqual(t, j.EndOffsetMinutes, 20)
	}
}

func TestNewDailyJitterCoversRange(t *testing.T) {
	s := newTestScheduler(10)

	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		j := s.NewDailyJitter()
		seen[j.StartOffsetMinutes] = true
	}
	for v := 0; v <= 20; v++ {
		assert.True(t, seen[v], "offset %d never drawn", v)
	}
}

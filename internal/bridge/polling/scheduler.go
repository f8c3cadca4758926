package polling

import (
	"math/rand"
	"time"

	"github.com/carbridge-io/carbridge/internal/vehicle"
)

const (
	// maxJitterMinutes caps each daily jitter offset.
	maxJitterMinutes = 20

	// activeStartBaseMinute is the base minute of the active-window start;
	// the start jitter is added on top, rolling into the next hour when
	// the sum reaches 60.
	activeStartBaseMinute = 40

	// darkHoursCap bounds the sleep during dark hours so the scheduler
	// re-evaluates periodically and jitter gets a chance to regenerate.
	darkHoursCap = 4 * time.Hour
)

// Legacy-mode interval floors in minutes. The periodic recompute path has
// always used a higher floor than the options-change path; both are kept as
// distinct call-site constants.
const (
	LegacyFloorPeriodic = 60
	LegacyFloorOptions  = 15
)

// Scheduler computes poll intervals from configuration, the daily jitter,
// wall-clock time and the latest telemetry snapshot. The entropy source is
// injected so tests can seed it.
type Scheduler struct {
	rng *rand.Rand
}

// NewScheduler creates a Scheduler. A nil rng falls back to a time-seeded
// source.
func NewScheduler(rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{rng: rng}
}

// NewDailyJitter draws fresh active-window offsets for a new day.
func (s *Scheduler) NewDailyJitter() DailyJitter {
	return DailyJitter{
		StartOffsetMinutes: s.rng.Intn(maxJitterMinutes + 1),
		EndOffsetMinutes:   s.rng.Intn(maxJitterMinutes + 1),
	}
}

// LegacyInterval returns the fixed legacy-mode interval, clamped to the given
// floor in minutes.
func LegacyInterval(cfg Config, floorMinutes int) time.Duration {
	minutes := cfg.LegacyScanIntervalMinutes
	if minutes < floorMinutes {
		minutes = floorMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// NextInterval returns the duration until the next poll.
//
// Inside the jittered active window the interval is a uniform draw from the
// charging bounds while the vehicle is usefully charging, otherwise from the
// normal bounds. Outside the window it is the time until the next window
// start, capped at four hours. Draws are independent per call.
func (s *Scheduler) NextInterval(cfg Config, jitter DailyJitter, now time.Time, snap vehicle.TelemetrySnapshot) time.Duration {
	if !cfg.SmartPollingEnabled {
		return LegacyInterval(cfg, LegacyFloorPeriodic)
	}

	start, end := activeWindow(cfg, jitter, now)

	if !now.Before(start) && !now.After(end) {
		if snap.ChargingBelow(cfg.ChargingTargetPercent) {
			return s.randomMinutes(cfg.ChargingIntervalMin, cfg.ChargingIntervalMax)
		}
		return s.randomMinutes(cfg.NormalIntervalMin, cfg.NormalIntervalMax)
	}

	// Dark hours: sleep until the next window start, today or tomorrow.
	next := start
	if !now.Before(start) {
		next = start.AddDate(0, 0, 1)
	}
	until := next.Sub(now)
	if until > darkHoursCap {
		until = darkHoursCap
	}
	return until
}

// ShouldSkipPoll reports whether the current tick should perform no fetch at
// all. Force updates never skip. Legacy mode skips inside the fixed dark-hours
// range; smart mode skips outside the jittered active window.
func ShouldSkipPoll(cfg Config, jitter DailyJitter, now time.Time, forceUpdate bool) bool {
	if forceUpdate {
		return false
	}

	if !cfg.SmartPollingEnabled {
		return inLegacyDarkHours(cfg, now.Hour())
	}

	start, end := activeWindow(cfg, jitter, now)
	return now.Before(start) || now.After(end)
}

// activeWindow returns today's jittered active-window boundaries in now's
// location. Boundaries are inclusive on both ends.
func activeWindow(cfg Config, jitter DailyJitter, now time.Time) (start, end time.Time) {
	startHour := cfg.ActiveStartHour
	startMinute := activeStartBaseMinute + jitter.StartOffsetMinutes
	if startMinute >= 60 {
		startHour++
		startMinute -= 60
	}

	start = time.Date(now.Year(), now.Month(), now.Day(), startHour, startMinute, 0, 0, now.Location())
	end = time.Date(now.Year(), now.Month(), now.Day(), cfg.ActiveEndHour, jitter.EndOffsetMinutes, 0, 0, now.Location())
	return start, end
}

// inLegacyDarkHours checks the fixed hour range, handling ranges that wrap
// midnight (start 22, end 4).
func inLegacyDarkHours(cfg Config, hour int) bool {
	if cfg.DarkHoursEnd < cfg.DarkHoursStart {
		return hour >= cfg.DarkHoursStart || hour < cfg.DarkHoursEnd
	}
	return hour >= cfg.DarkHoursStart && hour < cfg.DarkHoursEnd
}

func (s *Scheduler) randomMinutes(min, max int) time.Duration {
	if max < min {
		max = min
	}
	return time.Duration(min+s.rng.Intn(max-min+1)) * time.Minute
}

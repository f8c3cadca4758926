package polling

// Config shapes the polling schedule for one vehicle. Values come from the
// user-facing bridge options; the algorithm itself does not enforce the
// min <= max invariants beyond avoiding bad random draws.
type Config struct {
	// SmartPollingEnabled selects the adaptive schedule. When false the
	// fixed legacy scan interval applies.
	SmartPollingEnabled bool

	// ActiveStartHour/ActiveEndHour bound the daily active window. The
	// effective boundaries are perturbed by the daily jitter so the
	// polling pattern differs every day.
	ActiveStartHour int
	ActiveEndHour   int

	// Interval bounds in minutes, drawn uniformly per poll.
	NormalIntervalMin   int
	NormalIntervalMax   int
	ChargingIntervalMin int
	ChargingIntervalMax int

	// ChargingTargetPercent is compared strictly: a battery at exactly the
	// target polls at the normal cadence.
	ChargingTargetPercent int

	// LegacyScanIntervalMinutes is the fixed interval for legacy mode.
	LegacyScanIntervalMinutes int

	// DarkHoursStart/DarkHoursEnd bound the legacy no-poll window, which
	// may wrap midnight (start 22, end 4 spans two days).
	DarkHoursStart int
	DarkHoursEnd   int
}

// DailyJitter perturbs the active-window boundaries by up to 20 minutes each.
// It is regenerated at entry setup, on an options change, and once per day at
// the hour-00 boundary, so the schedule never settles into a fixed,
// fingerprintable pattern. It lives in per-vehicle process state and is never
// persisted.
type DailyJitter struct {
	StartOffsetMinutes int
	EndOffsetMinutes   int
}

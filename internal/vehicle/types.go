package vehicle

// ChargerConnectionStatus is the charger state reported by the vehicle shadow.
type ChargerConnectionStatus string

const (
	// ChargerConnectedWithPower means the vehicle is plugged in and drawing
	// power. Only this state justifies fast polling.
	ChargerConnectedWithPower ChargerConnectionStatus = "CHARGER_CONNECTION_CONNECTED_WITH_POWER"

	// ChargerStatusUnknown is used when the shadow did not report a status.
	ChargerStatusUnknown ChargerConnectionStatus = ""
)

// TelemetrySnapshot is the projection of the latest record+shadow documents
// the polling scheduler operates on. All other fields of the raw documents
// are opaque pass-through data.
type TelemetrySnapshot struct {
	ChargerStatus ChargerConnectionStatus

	// BatteryLevel is the charge percentage. Only meaningful when
	// BatteryLevelKnown is true.
	BatteryLevel      int
	BatteryLevelKnown bool
}

// ChargingBelow reports whether the vehicle is usefully charging: plugged in
// with power and with a known battery level strictly below target. An unknown
// battery level or charger status never counts as charging.
func (t TelemetrySnapshot) ChargingBelow(targetPercent int) bool {
	return t.ChargerStatus == ChargerConnectedWithPower &&
		t.BatteryLevelKnown &&
		t.BatteryLevel < targetPercent
}

// ReportedState holds the cloud-reported values of the attributes the
// expected-state monitor can mask. nil means the cloud did not report the
// attribute.
type ReportedState struct {
	ClimateOn   *bool `json:"climate_on,omitempty"`
	DoorsLocked *bool `json:"doors_locked,omitempty"`
	EngineOn    *bool `json:"engine_on,omitempty"`
}

// Data is the combined per-vehicle document the bridge stores between polls
// and publishes to the automation platform.
type Data struct {
	Record     map[string]any `json:"vehicle_record,omitempty"`
	Shadow     map[string]any `json:"vehicle_shadow,omitempty"`
	Address    string         `json:"vehicle_address,omitempty"`
	AddressRaw string         `json:"vehicle_address_raw,omitempty"`
}

// Telemetry projects the two raw documents into the snapshot consumed by the
// polling scheduler. Missing fields map to the unknown sentinels.
func (d Data) Telemetry() TelemetrySnapshot {
	snap := TelemetrySnapshot{ChargerStatus: ChargerStatusUnknown}

	if s, ok := dig(d.Shadow, "evs", "chargerStatusData", "chargerConnectionStatus").(string); ok {
		snap.ChargerStatus = ChargerConnectionStatus(s)
	}

	// JSON numbers decode as float64.
	if lvl, ok := dig(d.Record, "electricStatus", "chargeLevel").(float64); ok {
		snap.BatteryLevel = int(lvl)
		snap.BatteryLevelKnown = true
	}

	return snap
}

// Reported projects the cloud-reported values of the maskable attributes.
func (d Data) Reported() ReportedState {
	var state ReportedState

	if v, ok := dig(d.Record, "climateStatus", "preClimateActive").(bool); ok {
		state.ClimateOn = &v
	}
	if s, ok := dig(d.Record, "doorLocksStatus", "lockStatus").(string); ok {
		locked := s == "LOCKED"
		state.DoorsLocked = &locked
	}
	if v, ok := dig(d.Record, "engineStatus", "engineRunning").(bool); ok {
		state.EngineOn = &v
	}

	return state
}

// Position returns the vehicle coordinates from the record, if present.
func (d Data) Position() (lat, lon float64, ok bool) {
	latVal, latOK := dig(d.Record, "position", "latitude").(float64)
	lonVal, lonOK := dig(d.Record, "position", "longitude").(float64)
	if !latOK || !lonOK {
		return 0, 0, false
	}
	return latVal, lonVal, true
}

// dig walks nested string-keyed maps and returns the value at the path, or
// nil when any segment is missing or not a map.
func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = node[key]
	}
	return cur
}

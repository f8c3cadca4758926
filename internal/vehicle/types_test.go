package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleData returns the fixture by value: the projections must be callable
// straight off a function result, the way the bridge chains them off its
// snapshot accessor.
func sampleData() Data {
	return Data{
		Record: map[string]any{
			"electricStatus": map[string]any{"chargeLevel": float64(85)},
			"climateStatus":  map[string]any{"preClimateActive": true},
			"doorLocksStatus": map[string]any{
				"lockStatus": "LOCKED",
			},
			"engineStatus": map[string]any{"engineRunning": false},
			"position": map[string]any{
				"latitude":  float64(57.7),
				"longitude": float64(11.97),
			},
		},
		Shadow: map[string]any{
			"evs": map[string]any{
				"chargerStatusData": map[string]any{
					"chargerConnectionStatus": "CHARGER_CONNECTION_CONNECTED_WITH_POWER",
				},
			},
		},
	}
}

func TestTelemetryProjection(t *testing.T) {
	snap := sampleData().Telemetry()

	assert.Equal(t, ChargerConnectedWithPower, snap.ChargerStatus)
	assert.True(t, snap.BatteryLevelKnown)
	assert.Equal(t, 85, snap.BatteryLevel)
}

func TestTelemetryProjectionMissingFields(t *testing.T) {
	snap := (Data{}).Telemetry()

	assert.Equal(t, ChargerStatusUnknown, snap.ChargerStatus)
	assert.False(t, snap.BatteryLevelKnown)
}

func TestChargingBelow(t *testing.T) {
	tests := []struct {
		name   string
		snap   TelemetrySnapshot
		target int
		want   bool
	}{
		{
			name:   "charging below target",
			snap:   TelemetrySnapshot{ChargerStatus: ChargerConnectedWithPower, BatteryLevel: 85, BatteryLevelKnown: true},
			target: 90,
			want:   true,
		},
		{
			name:   "at target is not below",
			snap:   TelemetrySnapshot{ChargerStatus: ChargerConnectedWithPower, BatteryLevel: 90, BatteryLevelKnown: true},
			target: 90,
			want:   false,
		},
		{
			name:   "battery unknown never counts",
			snap:   TelemetrySnapshot{ChargerStatus: ChargerConnectedWithPower},
			target: 90,
			want:   false,
		},
		{
			name:   "charger unknown never counts",
			snap:   TelemetrySnapshot{BatteryLevel: 10, BatteryLevelKnown: true},
			target: 90,
			want:   false,
		},
		{
			name:   "charger connected without power",
			snap:   TelemetrySnapshot{ChargerStatus: "CHARGER_CONNECTION_CONNECTED_NO_POWER", BatteryLevel: 10, BatteryLevelKnown: true},
			target: 90,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.ChargingBelow(tt.target))
		})
	}
}

func TestReportedProjection(t *testing.T) {
	state := sampleData().Reported()

	require.NotNil(t, state.ClimateOn)
	assert.True(t, *state.ClimateOn)
	require.NotNil(t, state.DoorsLocked)
	assert.True(t, *state.DoorsLocked)
	require.NotNil(t, state.EngineOn)
	assert.False(t, *state.EngineOn)

	empty := (Data{}).Reported()
	assert.Nil(t, empty.ClimateOn)
	assert.Nil(t, empty.DoorsLocked)
	assert.Nil(t, empty.EngineOn)
}

func TestPosition(t *testing.T) {
	lat, lon, ok := sampleData().Position()
	require.True(t, ok)
	assert.InDelta(t, 57.7, lat, 1e-9)
	assert.InDelta(t, 11.97, lon, 1e-9)

	_, _, ok = (Data{}).Position()
	assert.False(t, ok)
}

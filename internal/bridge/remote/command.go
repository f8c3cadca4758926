package remote

import (
	"errors"

	"github.com/carbridge-io/carbridge/internal/bridge/expectedstate"
)

// ErrUnknownCommand is returned when a command name from the wire does not
// map to any Kind.
var ErrUnknownCommand = errors.New("unknown command")

// Kind identifies a remote-control command. The string value doubles as the
// command segment of the MQTT/HTTP command surface.
type Kind string

const (
	KindLockDoors       Kind = "lock_doors"
	KindUnlockDoors     Kind = "unlock_doors"
	KindStartClimate    Kind = "start_climate"
	KindStopClimate     Kind = "stop_climate"
	KindStartEngine     Kind = "start_engine"
	KindStopEngine      Kind = "stop_engine"
	KindStartFlashLight Kind = "start_flash_lights"
	KindStopFlashLight  Kind = "stop_flash_lights"
	KindStartHonk       Kind = "start_honk"
	KindStartHonkFlash  Kind = "start_honk_flash"
	KindStopHonk        Kind = "stop_honk"
	KindForceUpdate     Kind = "force_update"
)

// Command is a fully described remote-control request, independent of the
// transport it arrived on.
type Command struct {
	Kind   Kind
	VIN    string
	Params map[string]any
}

var kinds = map[Kind]bool{
	KindLockDoors:       true,
	KindUnlockDoors:     true,
	KindStartClimate:    true,
	KindStopClimate:     true,
	KindStartEngine:     true,
	KindStopEngine:      true,
	KindStartFlashLight: true,
	KindStopFlashLight:  true,
	KindStartHonk:       true,
	KindStartHonkFlash:  true,
	KindStopHonk:        true,
	KindForceUpdate:     true,
}

// ParseKind maps a command name from the wire to a Kind.
func ParseKind(name string) (Kind, bool) {
	k := Kind(name)
	return k, kinds[k]
}

// intentFor maps a command to the expected-state intent it implies. Commands
// without an observable attribute (lights, horn, refresh) map to "".
func intentFor(kind Kind) expectedstate.Kind {
	switch kind {
	case KindLockDoors:
		return expectedstate.Locked
	case KindUnlockDoors:
		return expectedstate.Unlocked
	case KindStartClimate:
		return expectedstate.ClimateOn
	case KindStopClimate:
		return expectedstate.ClimateOff
	case KindStartEngine:
		return expectedstate.EngineOn
	case KindStopEngine:
		return expectedstate.EngineOff
	}
	return ""
}

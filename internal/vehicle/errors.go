package vehicle

import "errors"

// ErrUnknownVehicle is returned when an operation names a VIN the bridge is
// not configured for.
var ErrUnknownVehicle = errors.New("unknown vehicle")

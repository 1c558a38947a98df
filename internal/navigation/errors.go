package navigation

import "errors"

var (
	ErrMissingDestination  = errors.New("missing destination")
	ErrLocationUnavailable = errors.New("current location unavailable")
	// ErrStalePointPick is returned when a pick is ignored, either because the
	// slots are already filled or because the destination is locked.
	ErrStalePointPick    = errors.New("point pick rejected")
	ErrAlreadyNavigating = errors.New("navigation already active")
	ErrNotNavigating     = errors.New("navigation not active")
	ErrInvalidMode       = errors.New("invalid travel mode")
	ErrInvalidPoint      = errors.New("invalid point")
	ErrNoRoute           = errors.New("no route calculated")
)

// advisory returns the user-facing message for an error raised by a session.
func advisory(v Variant, err error) string {
	switch {
	case errors.Is(err, ErrMissingDestination):
		if v == VariantCurrentLocation {
			return "Please select destination by long clicking on the map"
		}
		return "Select a start and a finish point first"
	case errors.Is(err, ErrLocationUnavailable):
		return "Unable to get current location. Please enable location services."
	case errors.Is(err, ErrStalePointPick):
		if v == VariantCurrentLocation {
			return "Destination cannot be changed during navigation"
		}
		return "Start and finish points are already selected"
	case errors.Is(err, ErrAlreadyNavigating):
		return "Navigation is already running"
	case errors.Is(err, ErrNotNavigating):
		return "Start navigation first"
	case errors.Is(err, ErrInvalidMode):
		return "Unknown travel mode"
	case errors.Is(err, ErrInvalidPoint):
		return "Selected point is outside the map"
	case errors.Is(err, ErrNoRoute):
		return "No route found. Retrying when your position changes."
	}
	return err.Error()
}

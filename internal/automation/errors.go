package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrUnknownActionType) {
//	    // handle configuration mistake
//	}
var (
	// ErrNoActions is returned when a rule has no actions defined.
	ErrNoActions = errors.New("rule: no actions")

	// ErrUnknownActionType is returned when an action type is not one of
	// log, publish or bridge.
	ErrUnknownActionType = errors.New("rule: unknown action type")

	// ErrPublisherUnavailable is returned when a publish action is
	// configured but no publisher was wired in.
	ErrPublisherUnavailable = errors.New("rule: publisher unavailable")

	// ErrBridgeUnavailable is returned when a bridge action is configured
	// but the bridge is disabled or not wired in.
	ErrBridgeUnavailable = errors.New("rule: bridge unavailable")
)
